package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/csvboard/pkg/editor"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// EditFieldType defines the type of edit field
type EditFieldType int

const (
	EditFieldText EditFieldType = iota
	EditFieldSelect
)

// EditField represents a single editable cell of a row
type EditField struct {
	Label    string
	Key      string // column name
	Kind     editor.ColumnKind
	Type     EditFieldType
	Input    textinput.Model // for text fields
	Options  []editor.Choice // for select fields
	Selected int             // current selection index for select fields
	Original string          // original value for dirty detection
}

// EditModal edits every column of one row, or collects the values of a new
// row in create mode.
type EditModal struct {
	fields       []EditField
	focusedField int
	width        int
	height       int
	theme        Theme
	row          int // dataset index, -1 in create mode
	isCreateMode bool
	dirty        bool

	saveRequested   bool
	cancelRequested bool
}

// NewEditModal creates an edit modal pre-populated from row.
func NewEditModal(ed *editor.Editor, row *model.Row, theme Theme) EditModal {
	m := EditModal{theme: theme, row: row.Index}
	for _, col := range ed.Columns() {
		m.fields = append(m.fields, makeField(ed, col, ed.Format(row.Get(col.Name))))
	}
	if len(m.fields) > 0 {
		m.fields[0] = m.focusField(m.fields[0])
	}
	return m
}

// NewCreateModal creates an empty modal for a new row.
func NewCreateModal(ed *editor.Editor, theme Theme) EditModal {
	m := NewEditModal(ed, model.NewRow(-1, nil), theme)
	m.row = -1
	m.isCreateMode = true
	return m
}

func makeField(ed *editor.Editor, col editor.ColumnInfo, value string) EditField {
	switch col.Kind {
	case editor.KindBoolean, editor.KindLookup:
		opts := ed.Choices(col.Name)
		if col.Kind == editor.KindLookup {
			opts = append([]editor.Choice{{Value: "", Label: "(none)"}}, opts...)
		}
		return makeSelectField(col, value, opts)
	}
	return makeTextField(col, value)
}

// makeTextField creates a text input field
func makeTextField(col editor.ColumnInfo, value string) EditField {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 500
	ti.Width = 50

	return EditField{
		Label:    col.Name,
		Key:      col.Name,
		Kind:     col.Kind,
		Type:     EditFieldText,
		Input:    ti,
		Original: value,
	}
}

// makeSelectField creates a select field. A current value that is not among
// the options is kept as the first choice.
func makeSelectField(col editor.ColumnInfo, value string, options []editor.Choice) EditField {
	selected := -1
	for i, opt := range options {
		if opt.Value == value {
			selected = i
			break
		}
	}
	if selected < 0 {
		options = append([]editor.Choice{{Value: value, Label: value}}, options...)
		selected = 0
	}

	return EditField{
		Label:    col.Name,
		Key:      col.Name,
		Kind:     col.Kind,
		Type:     EditFieldSelect,
		Options:  options,
		Selected: selected,
		Original: value,
	}
}

// Update handles input for the edit modal
func (m EditModal) Update(msg tea.Msg) (EditModal, tea.Cmd) {
	if len(m.fields) == 0 {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			m.cancelRequested = true
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			m.saveRequested = true
			return m, nil

		case "esc":
			m.cancelRequested = true
			return m, nil

		case "tab", "down":
			m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
			m.focusedField = (m.focusedField + 1) % len(m.fields)
			m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
			return m, nil

		case "shift+tab", "up":
			m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
			m.focusedField = (m.focusedField - 1 + len(m.fields)) % len(m.fields)
			m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
			return m, nil

		case "left", "h":
			if m.fields[m.focusedField].Type == EditFieldSelect {
				field := &m.fields[m.focusedField]
				field.Selected = (field.Selected - 1 + len(field.Options)) % len(field.Options)
				m.updateDirtyFlag()
				return m, nil
			}

		case "right", "l", " ":
			if m.fields[m.focusedField].Type == EditFieldSelect {
				field := &m.fields[m.focusedField]
				field.Selected = (field.Selected + 1) % len(field.Options)
				m.updateDirtyFlag()
				return m, nil
			}
		}

		field := &m.fields[m.focusedField]
		if field.Type == EditFieldText {
			field.Input, cmd = field.Input.Update(msg)
		}
		m.updateDirtyFlag()
	}

	return m, cmd
}

// focusField sets focus on the given field
func (m EditModal) focusField(field EditField) EditField {
	if field.Type == EditFieldText {
		field.Input.Focus()
	}
	return field
}

// blurField removes focus from the given field
func (m EditModal) blurField(field EditField) EditField {
	if field.Type == EditFieldText {
		field.Input.Blur()
	}
	return field
}

// updateDirtyFlag checks if any field differs from its original value
func (m *EditModal) updateDirtyFlag() {
	m.dirty = false
	for _, field := range m.fields {
		if m.getCurrentValue(field) != field.Original {
			m.dirty = true
			break
		}
	}
}

// getCurrentValue returns the current value of a field as a string
func (m EditModal) getCurrentValue(field EditField) string {
	switch field.Type {
	case EditFieldText:
		return field.Input.Value()
	case EditFieldSelect:
		if field.Selected >= 0 && field.Selected < len(field.Options) {
			return field.Options[field.Selected].Value
		}
	}
	return ""
}

func (f EditField) optionLabel() string {
	if f.Selected < 0 || f.Selected >= len(f.Options) {
		return ""
	}
	opt := f.Options[f.Selected]
	if opt.Label == "" {
		return opt.Value
	}
	return opt.Label
}

// View renders the edit modal
func (m EditModal) View() string {
	r := m.theme.Renderer

	boxWidth := clamp(m.width-10, 60, 90)

	headerStyle := r.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary)

	title := fmt.Sprintf("Edit row %d", m.row+1)
	if m.isCreateMode {
		title = "New row"
	}
	if m.dirty {
		title += " *"
	}

	var content strings.Builder
	content.WriteString(headerStyle.Render(title))
	content.WriteString("\n\n")

	labelWidth := 14
	labelStyle := r.NewStyle().
		Foreground(m.theme.Secondary).
		Width(labelWidth).
		Align(lipgloss.Right)

	focusedLabelStyle := r.NewStyle().
		Foreground(m.theme.Primary).
		Bold(true).
		Width(labelWidth).
		Align(lipgloss.Right)

	selectStyle := r.NewStyle().
		Foreground(m.theme.Primary)

	first, last := m.visibleFields()
	if first > 0 {
		content.WriteString(m.theme.MutedText.Render(fmt.Sprintf("  ↑ %d more", first)))
		content.WriteString("\n")
	}
	for i := first; i <= last; i++ {
		field := m.fields[i]
		isFocused := i == m.focusedField

		label := truncate(field.Label, labelWidth-1) + ":"
		if isFocused {
			content.WriteString(focusedLabelStyle.Render(label))
		} else {
			content.WriteString(labelStyle.Render(label))
		}
		content.WriteString(" ")

		switch field.Type {
		case EditFieldText:
			content.WriteString(field.Input.View())
		case EditFieldSelect:
			val := field.optionLabel()
			if isFocused {
				content.WriteString(selectStyle.Render(fmt.Sprintf("< %s >", val)))
			} else {
				content.WriteString(val)
			}
		}
		if field.Kind != editor.KindText {
			content.WriteString(" ")
			content.WriteString(m.theme.MutedText.Render("[" + field.Kind.String() + "]"))
		}
		content.WriteString("\n")
	}
	if last < len(m.fields)-1 {
		content.WriteString(m.theme.MutedText.Render(fmt.Sprintf("  ↓ %d more", len(m.fields)-1-last)))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	subtextStyle := r.NewStyle().
		Foreground(m.theme.Subtext).
		Italic(true)

	instructions := "[Tab] Next field   [Ctrl+S] Save   [Esc] Cancel"
	if len(m.fields) > 0 && m.fields[m.focusedField].Type == EditFieldSelect {
		instructions = "[←/→] Change   [Tab] Next field   [Ctrl+S] Save   [Esc] Cancel"
	}
	content.WriteString(subtextStyle.Render(instructions))

	boxStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(boxWidth)

	box := boxStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// visibleFields returns the window of fields that fits the modal height and
// contains the focused field.
func (m EditModal) visibleFields() (int, int) {
	n := len(m.fields)
	if n == 0 {
		return 0, -1
	}
	room := m.height - 12
	if room <= 0 || room >= n {
		return 0, n - 1
	}
	first := clamp(m.focusedField-room/2, 0, n-room)
	return first, first + room - 1
}

// SetSize sets the modal dimensions
func (m *EditModal) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// IsSaveRequested returns true if ctrl+s was pressed
func (m EditModal) IsSaveRequested() bool {
	return m.saveRequested
}

// IsCancelRequested returns true if esc was pressed
func (m EditModal) IsCancelRequested() bool {
	return m.cancelRequested
}

// Row returns the dataset index being edited, -1 in create mode.
func (m EditModal) Row() int {
	return m.row
}

// Changes returns only the fields whose value differs from the original.
func (m EditModal) Changes() map[string]string {
	changes := make(map[string]string)
	for _, field := range m.fields {
		if current := m.getCurrentValue(field); current != field.Original {
			changes[field.Key] = current
		}
	}
	return changes
}

// Values returns every non-empty field, for creating a row.
func (m EditModal) Values() map[string]string {
	values := make(map[string]string)
	for _, field := range m.fields {
		if current := m.getCurrentValue(field); current != "" {
			values[field.Key] = current
		}
	}
	return values
}
