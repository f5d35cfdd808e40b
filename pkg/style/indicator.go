package style

import "github.com/vanderheijden86/csvboard/pkg/model"

// Fragment is one rendered indicator. Plain fragments carry no style.
type Fragment struct {
	Text    string      `json:"text"`
	Style   model.Style `json:"style"`
	Tooltip string      `json:"tooltip,omitempty"`
	Layout  string      `json:"layout,omitempty"`
	Plain   bool        `json:"plain,omitempty"`
}

// FormatIndicator renders the cell of column as zero or more fragments. Each
// non-empty element of a multi-value cell becomes its own fragment; hidden
// values (falsy icons) produce none.
func FormatIndicator(row *model.Row, column string, cs model.ColumnStyle, ctx *model.Context) []Fragment {
	var out []Fragment
	for _, e := range row.Get(column).Elements() {
		if !e.Present || e.Text == "" {
			continue
		}
		res := Resolve(e.Text, column, cs, ctx)
		switch res.Outcome {
		case Hidden:
			continue
		case NoMatch:
			out = append(out, Fragment{Text: e.Text, Plain: true, Layout: cs.Layout})
		default:
			prefix := res.Style.TitlePrefix
			if prefix == "" {
				prefix = cs.TitlePrefix
			}
			layout := res.Style.Layout
			if layout == "" {
				layout = cs.Layout
			}
			out = append(out, Fragment{
				Text:    res.Style.Text,
				Style:   res.Style,
				Tooltip: prefix + e.Text,
				Layout:  layout,
			})
		}
	}
	return out
}

// Indicators renders each of columns for row using the context's configured
// indicator styles. Columns without a style render as plain text.
func Indicators(row *model.Row, columns []string, ctx *model.Context) []Fragment {
	var out []Fragment
	for _, col := range columns {
		cs, _ := ctx.Style(col)
		out = append(out, FormatIndicator(row, col, cs, ctx)...)
	}
	return out
}

// Color returns the resolved background color for value, or "" when the
// value has no styled match. The graph builder uses it for node colors.
func Color(value, column string, ctx *model.Context) string {
	cs, ok := ctx.Style(column)
	if !ok {
		return ""
	}
	res := Resolve(value, column, cs, ctx)
	if res.Outcome != Matched {
		return ""
	}
	if res.Style.Background != "" {
		return res.Style.Background
	}
	return res.Style.Color
}
