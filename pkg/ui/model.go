// Package ui is the terminal dashboard: one tab per configured view, a
// cursor over the rendered rows and, in edit mode, row editing backed by
// pkg/editor.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/editor"
	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/view"
	"github.com/vanderheijden86/csvboard/pkg/watcher"
)

const (
	defaultWidth  = 120
	defaultHeight = 40
	maxWarnLines  = 3
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// ReloadFunc loads a fresh dataset and configuration from disk.
type ReloadFunc func() (*model.Dataset, *model.Config, error)

// Options configures a Model.
type Options struct {
	// Editor enables edit mode. Its dataset replaces the one passed to
	// NewModel.
	Editor       *editor.Editor
	Watcher      *watcher.Watcher
	Reload       ReloadFunc
	InitialTab   string
	MaxCellWidth int
	ShowWarnings bool
}

// FileChangedMsg is sent when a watched file changes on disk
type FileChangedMsg struct {
	Path string
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		path := <-w.Changed()
		return FileChangedMsg{Path: path}
	}
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ds      *model.Dataset
	cfg     *model.Config
	outputs []view.Output
	opts    Options

	theme    Theme
	width    int
	height   int
	viewport viewport.Model

	activeTab int
	cursor    int
	column    int
	pane      pane
	markdown  bool

	configWarnings []string
	showWarnings   bool
	showHelp       bool

	showEditModal bool
	editModal     EditModal
	pendingReload string // file change seen while the modal was open

	showQuitConfirm bool
	statusMsg       string
	statusIsError   bool

	glamourWidth int
	glamour      *glamour.TermRenderer
}

// NewModel builds the dashboard for ds rendered with cfg.
func NewModel(ds *model.Dataset, cfg *model.Config, opts Options) Model {
	if cfg == nil {
		cfg = &model.Config{}
	}
	m := Model{
		ds:           ds,
		cfg:          cfg,
		opts:         opts,
		theme:        DefaultTheme(lipgloss.DefaultRenderer()),
		width:        defaultWidth,
		height:       defaultHeight,
		showWarnings: opts.ShowWarnings,
	}
	m.viewport = viewport.New(m.width, m.bodyHeight())
	m.rerender()
	if opts.InitialTab != "" {
		for i, out := range m.outputs {
			if out.TabID == opts.InitialTab {
				m.activeTab = i
			}
		}
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.opts.Watcher != nil {
		return WatchFileCmd(m.opts.Watcher)
	}
	return nil
}

// editing reports whether edit mode is on.
func (m Model) editing() bool {
	return m.opts.Editor != nil
}

// dataset is the dataset currently on screen.
func (m Model) dataset() *model.Dataset {
	return m.ds
}

// rerender recomputes every tab from the current dataset and config. In
// edit mode the editor's working copy is what gets drawn.
func (m *Model) rerender() {
	if m.editing() {
		m.ds = m.opts.Editor.Dataset()
	}
	m.outputs = view.RenderAll(m.ds, m.cfg)
	m.configWarnings = nil
	if err := m.cfg.Validate(nil); err != nil {
		m.configWarnings = strings.Split(err.Error(), "\n")
	}
	m.activeTab = clamp(m.activeTab, 0, len(m.outputs)-1)
	m.glamour = nil
}

func (m Model) current() (view.Output, bool) {
	if m.activeTab < 0 || m.activeTab >= len(m.outputs) {
		return view.Output{}, false
	}
	return m.outputs[m.activeTab], true
}

// usesMarkdown reports whether the active tab is drawn through glamour.
func (m Model) usesMarkdown(out view.Output) bool {
	if out.Placeholder != "" {
		return false
	}
	return m.markdown || out.Summary != nil
}

// refresh redraws the active tab into the viewport and keeps the cursor in
// view.
func (m *Model) refresh() {
	m.viewport.Width = m.width
	m.viewport.Height = m.bodyHeight()

	out, ok := m.current()
	switch {
	case !ok:
		m.pane = pane{content: m.theme.MutedText.Render("No enabled tabs. Add a tab to the dashboard configuration.")}
	case out.Placeholder != "":
		m.pane = pane{content: PanelStyle.Padding(0, 1).Render(m.theme.WarningText.Render(out.Placeholder))}
	case m.usesMarkdown(out):
		m.pane = pane{content: m.renderMarkdown(out)}
	default:
		m.pane = m.renderPane(out)
	}

	cursor := clamp(m.cursor, 0, len(m.pane.targets)-1)
	column := clamp(m.column, 0, len(m.pane.columns)-1)
	if cursor != m.cursor || column != m.column {
		m.cursor, m.column = cursor, column
		if ok && out.Placeholder == "" && !m.usesMarkdown(out) {
			m.pane = m.renderPane(out)
		}
	}
	m.viewport.SetContent(m.pane.content)
	m.ensureCursorVisible()
}

func (m Model) renderPane(out view.Output) pane {
	maxCell := m.opts.MaxCellWidth
	switch {
	case out.Table != nil:
		return renderTable(m.theme, out.Table, m.cursor, m.column, m.width, maxCell)
	case out.Hierarchy != nil:
		return renderHierarchy(m.theme, out.Hierarchy, m.cursor, m.column, m.width, maxCell)
	case out.Kanban != nil:
		return renderKanban(m.theme, out.Kanban, m.cursor, m.width)
	case out.Graph != nil:
		return pane{content: renderGraphStats(m.theme, out.Graph)}
	}
	return pane{}
}

func (m *Model) renderMarkdown(out view.Output) string {
	md := export.TabMarkdown(out)
	wrap := max(20, m.width-4)
	if m.glamour == nil || m.glamourWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			debug.Log("ui: glamour renderer: %v", err)
			return md
		}
		m.glamour, m.glamourWidth = r, wrap
	}
	rendered, err := m.glamour.Render(md)
	if err != nil {
		debug.Log("ui: glamour render: %v", err)
		return md
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *Model) ensureCursorVisible() {
	if m.cursor < 0 || m.cursor >= len(m.pane.targets) {
		return
	}
	line := m.pane.targets[m.cursor].Line
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func (m Model) warnings() []string {
	if !m.showWarnings {
		return nil
	}
	var out []string
	out = append(out, m.configWarnings...)
	if cur, ok := m.current(); ok {
		out = append(out, cur.Warnings...)
	}
	return out
}

func (m Model) warningLines() int {
	n := len(m.warnings())
	if n > maxWarnLines {
		return maxWarnLines + 1
	}
	return n
}

// bodyHeight is the terminal height minus header, tab bar and footer.
func (m Model) bodyHeight() int {
	return max(3, m.height-3-m.warningLines())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	// File changes always re-arm the watch, even under the modal.
	if fc, ok := msg.(FileChangedMsg); ok {
		reason := fmt.Sprintf("%s changed on disk", fc.Path)
		if m.showEditModal {
			m.pendingReload = reason
		} else {
			m.reload(reason)
		}
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}
		return m, tea.Batch(cmds...)
	}

	if m.showEditModal {
		if _, isSize := msg.(tea.WindowSizeMsg); !isSize {
			m.editModal, cmd = m.editModal.Update(msg)
			cmds = append(cmds, cmd)
			if m.editModal.IsCancelRequested() {
				m.showEditModal = false
			} else if m.editModal.IsSaveRequested() {
				m.showEditModal = false
				m.applyEditModal()
			}
			if !m.showEditModal && m.pendingReload != "" {
				reason := m.pendingReload
				m.pendingReload = ""
				m.reload(reason)
			}
			return m, tea.Batch(cmds...)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editModal.SetSize(m.width, m.height)
		m.refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showQuitConfirm {
		switch key {
		case "y", "Y", "q":
			return m, tea.Quit
		default:
			m.showQuitConfirm = false
			m.setStatus("Quit cancelled", false)
			return m, nil
		}
	}
	if m.showHelp {
		if key == "?" || key == "esc" || key == "q" {
			m.showHelp = false
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.editing() && m.opts.Editor.Dirty() {
			m.showQuitConfirm = true
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "tab", "]":
		m.switchTab(m.activeTab + 1)
	case "shift+tab", "[":
		m.switchTab(m.activeTab - 1)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if n := int(key[0] - '1'); n < len(m.outputs) {
			m.switchTab(n)
		}
	case "down", "j":
		m.moveCursor(1)
	case "up", "k":
		m.moveCursor(-1)
	case "pgdown", "ctrl+d":
		m.moveCursor(max(1, m.viewport.Height-1))
	case "pgup", "ctrl+u":
		m.moveCursor(-max(1, m.viewport.Height-1))
	case "home", "g":
		m.moveCursor(-len(m.pane.targets))
	case "end", "G":
		m.moveCursor(len(m.pane.targets))
	case "right", "l":
		m.moveColumn(1)
	case "left", "h":
		m.moveColumn(-1)
	case "m":
		m.markdown = !m.markdown
		m.viewport.GotoTop()
		m.refresh()
	case "w":
		m.showWarnings = !m.showWarnings
		m.refresh()
	case "y":
		m.copyCell()
	case "r":
		m.reload("Reloaded")
	default:
		if m.editing() {
			m.handleEditKey(key)
		} else if len(m.pane.targets) == 0 {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleEditKey(key string) {
	ed := m.opts.Editor
	switch key {
	case "enter", "e":
		row, ok := m.selectedRow()
		if !ok {
			return
		}
		m.editModal = NewEditModal(ed, row, m.theme)
		m.editModal.SetSize(m.width, m.height)
		m.showEditModal = true
	case "a":
		m.editModal = NewCreateModal(ed, m.theme)
		m.editModal.SetSize(m.width, m.height)
		m.showEditModal = true
	case "d", "delete":
		t, ok := m.selectedTarget()
		if !ok {
			return
		}
		m.afterEdit(ed.DeleteRow(t.Row), fmt.Sprintf("Deleted row %d", t.Row+1))
	case " ", "x":
		t, ok := m.selectedTarget()
		col := m.selectedColumn()
		if !ok || col == "" {
			return
		}
		m.afterEdit(ed.ToggleBool(t.Row, col), fmt.Sprintf("Toggled %s", col))
	case "u", "ctrl+z":
		label := ed.UndoLabel()
		m.afterEdit(ed.Undo(), "Undid "+label)
	case "ctrl+s":
		if err := ed.Save(); err != nil {
			m.setStatus(fmt.Sprintf("❌ Save failed: %v", err), true)
			return
		}
		m.setStatus("💾 Saved "+ed.Path(), false)
	}
}

func (m *Model) applyEditModal() {
	ed := m.opts.Editor
	if ed == nil {
		return
	}
	if m.editModal.isCreateMode {
		idx, err := ed.AppendRow(m.editModal.Values())
		m.afterEdit(err, fmt.Sprintf("Added row %d", idx+1))
		return
	}
	changes := m.editModal.Changes()
	if len(changes) == 0 {
		m.setStatus("No changes", false)
		return
	}
	m.afterEdit(ed.UpdateRow(m.editModal.Row(), changes), fmt.Sprintf("Updated row %d", m.editModal.Row()+1))
}

func (m *Model) afterEdit(err error, ok string) {
	if err != nil {
		if errors.Is(err, editor.ErrNotBoolean) {
			m.setStatus("Only boolean columns can be toggled", true)
			return
		}
		m.setStatus(fmt.Sprintf("❌ %v", err), true)
		return
	}
	m.setStatus(ok, false)
	m.rerender()
	m.refresh()
}

// reload replaces the dataset and config through the reload function.
// Unsaved edits are kept and the reload is skipped.
func (m *Model) reload(reason string) {
	if m.opts.Reload == nil {
		m.setStatus(reason, false)
		return
	}
	if m.editing() && m.opts.Editor.Dirty() {
		m.setStatus(reason+"; unsaved edits kept (save, then press r)", true)
		return
	}
	ds, cfg, err := m.opts.Reload()
	if err != nil {
		m.setStatus(fmt.Sprintf("❌ Reload failed: %v", err), true)
		return
	}
	m.ds = ds
	if cfg != nil {
		m.cfg = cfg
	}
	if m.editing() {
		path := m.opts.Editor.Path()
		m.opts.Editor = editor.New(ds, m.cfg, editor.WithPath(path))
	}
	m.rerender()
	m.refresh()
	m.setStatus(fmt.Sprintf("🔄 %s (%d rows)", reason, ds.Len()), false)
}

func (m *Model) switchTab(i int) {
	if len(m.outputs) == 0 {
		return
	}
	m.activeTab = (i + len(m.outputs)) % len(m.outputs)
	m.cursor, m.column = 0, 0
	m.viewport.GotoTop()
	m.refresh()
}

func (m *Model) moveCursor(delta int) {
	if len(m.pane.targets) == 0 {
		if delta > 0 {
			m.viewport.ScrollDown(delta)
		} else {
			m.viewport.ScrollUp(-delta)
		}
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.pane.targets)-1)
	m.refresh()
}

// moveColumn moves across grid columns, or between lanes on a board.
func (m *Model) moveColumn(delta int) {
	out, ok := m.current()
	if !ok {
		return
	}
	if out.Kanban != nil {
		m.moveLane(delta)
		return
	}
	if len(m.pane.columns) == 0 {
		return
	}
	m.column = clamp(m.column+delta, 0, len(m.pane.columns)-1)
	m.refresh()
}

func (m *Model) moveLane(delta int) {
	targets := m.pane.targets
	if len(targets) == 0 {
		return
	}
	lane := targets[m.cursor].Lane
	if delta > 0 {
		for i := m.cursor; i < len(targets); i++ {
			if targets[i].Lane > lane {
				m.cursor = i
				break
			}
		}
	} else {
		prev := -1
		for i := m.cursor; i >= 0; i-- {
			if targets[i].Lane < lane {
				prev = targets[i].Lane
				m.cursor = i
				break
			}
		}
		for prev >= 0 && m.cursor > 0 && targets[m.cursor-1].Lane == prev {
			m.cursor--
		}
	}
	m.refresh()
}

func (m Model) selectedTarget() (target, bool) {
	if m.cursor < 0 || m.cursor >= len(m.pane.targets) {
		return target{}, false
	}
	return m.pane.targets[m.cursor], true
}

func (m Model) selectedColumn() string {
	if m.column < 0 || m.column >= len(m.pane.columns) {
		return ""
	}
	return m.pane.columns[m.column]
}

func (m Model) selectedRow() (*model.Row, bool) {
	t, ok := m.selectedTarget()
	if !ok {
		return nil, false
	}
	ds := m.dataset()
	if ds == nil || t.Row < 0 || t.Row >= len(ds.Rows) {
		return nil, false
	}
	return ds.Rows[t.Row], true
}

// copyCell copies the selected cell, or the card title on a board.
func (m *Model) copyCell() {
	t, ok := m.selectedTarget()
	if !ok {
		m.setStatus("❌ Nothing selected", true)
		return
	}
	text := ""
	if col := m.selectedColumn(); col != "" {
		if row, ok := m.selectedRow(); ok {
			text = row.Text(col)
		}
	} else if len(t.Cells) > 0 {
		text = t.Cells[0].Text
	}
	if err := writeClipboard(text); err != nil {
		m.setStatus(fmt.Sprintf("❌ Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 Copied %s to clipboard", truncate(singleLine(text), 40)), false)
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMsg = msg
	m.statusIsError = isError
}

func (m Model) View() string {
	if m.showQuitConfirm {
		return m.renderQuitConfirm()
	}
	if m.showEditModal {
		return m.editModal.View()
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	if w := m.warnings(); len(w) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.renderWarnings(w))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderHeader() string {
	title := m.cfg.GeneralSettings.Title
	if title == "" {
		title = "Dashboard"
	}
	left := m.theme.Header.Render(title)
	info := ""
	if ds := m.dataset(); ds != nil {
		info = fmt.Sprintf(" %d rows · %d columns", ds.Len(), len(ds.Headers))
	}
	if out, ok := m.current(); ok && out.Placeholder == "" {
		info += fmt.Sprintf(" · %d shown", out.RowCount)
	}
	if m.editing() {
		info += " · " + m.theme.PrimaryBold.Render("EDIT")
		if m.opts.Editor.Dirty() {
			info += m.theme.WarningText.Render(" ● unsaved")
		}
	}
	return left + m.theme.MutedText.Render(info)
}

func (m Model) renderTabs() string {
	if len(m.outputs) == 0 {
		return m.theme.MutedText.Render("(no tabs)")
	}
	parts := make([]string, len(m.outputs))
	for i, out := range m.outputs {
		label := fmt.Sprintf("%d %s", i+1, out.Title)
		if out.Placeholder != "" {
			label += " !"
		}
		if i == m.activeTab {
			parts[i] = m.theme.ActiveTab.Render(label)
		} else {
			parts[i] = m.theme.Tab.Render(label)
		}
	}
	return truncateANSI(strings.Join(parts, " "), m.width)
}

// truncateANSI cuts a styled line to width cells.
func truncateANSI(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func (m Model) renderWarnings(w []string) string {
	lines := w
	more := 0
	if len(lines) > maxWarnLines {
		more = len(lines) - maxWarnLines
		lines = lines[:maxWarnLines]
	}
	out := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		out = append(out, m.theme.WarningText.Render("⚠ "+truncate(singleLine(l), m.width-2)))
	}
	if more > 0 {
		out = append(out, m.theme.MutedText.Render(fmt.Sprintf("  … %d more warning(s)", more)))
	}
	return strings.Join(out, "\n")
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsError {
			return m.theme.ErrorText.Render(truncate(m.statusMsg, m.width))
		}
		return m.theme.SuccessText.Render(truncate(m.statusMsg, m.width))
	}
	hints := "tab: next view · ↑↓←→: move · y: copy · m: markdown · w: warnings · r: reload · ?: help · q: quit"
	if m.editing() {
		hints = "enter: edit row · a: add · d: delete · space: toggle · u: undo · ctrl+s: save · ?: help · q: quit"
	}
	return m.theme.MutedText.Render(truncate(hints, m.width))
}

func (m Model) renderHelpOverlay() string {
	r := m.theme.Renderer
	rows := [][2]string{
		{"tab / ]", "next view"},
		{"shift+tab / [", "previous view"},
		{"1-9", "jump to view"},
		{"↑↓ / j k", "move selection"},
		{"←→ / h l", "move column or lane"},
		{"pgup pgdn g G", "page, top, bottom"},
		{"y", "copy selected cell"},
		{"m", "toggle markdown rendering"},
		{"w", "toggle warnings"},
		{"r", "reload from disk"},
		{"q", "quit"},
	}
	if m.editing() {
		rows = append(rows,
			[2]string{"enter / e", "edit selected row"},
			[2]string{"a", "add a row"},
			[2]string{"d", "delete selected row"},
			[2]string{"space / x", "toggle boolean cell"},
			[2]string{"u", "undo"},
			[2]string{"ctrl+s", "save to " + m.opts.Editor.Path()},
		)
	}
	var sb strings.Builder
	sb.WriteString(m.theme.PrimaryBold.Render("Keys"))
	sb.WriteString("\n\n")
	for _, row := range rows {
		sb.WriteString(m.theme.LaneTitle.Render(padRight(row[0], 16)))
		sb.WriteString(row[1])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.MutedText.Render("Press ? or esc to close"))
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderQuitConfirm() string {
	r := m.theme.Renderer
	content := m.theme.WarningText.Render("There are unsaved edits.") + "\n\n" +
		"Quit anyway? " + m.theme.MutedText.Render("[y] quit  [any other key] stay")
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(1, 2).
		Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
