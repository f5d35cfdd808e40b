package ui

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/csvboard/pkg/style"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces on the right to the given display width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncate truncates s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// singleLine folds line breaks so a value fits on one terminal row.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// fragmentsText is the plain text of a list of fragments.
func fragmentsText(frags []style.Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if text := strings.TrimSpace(f.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// cellText is what a cell shows when styling is unavailable.
func cellText(c view.Cell) string {
	if len(c.Fragments) == 0 {
		return singleLine(c.Text)
	}
	return singleLine(fragmentsText(c.Fragments))
}

// renderFragments draws fragments with their colors when they fit width,
// and falls back to truncated plain text otherwise.
func renderFragments(t Theme, frags []style.Fragment, width int) string {
	plain := singleLine(fragmentsText(frags))
	if runewidth.StringWidth(plain)+2*len(frags) > width {
		return truncate(plain, width)
	}
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		f.Text = singleLine(f.Text)
		parts = append(parts, t.Fragment(f))
	}
	return strings.Join(parts, " ")
}

// clamp bounds v to [lo, hi]. When hi < lo the result is lo.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
