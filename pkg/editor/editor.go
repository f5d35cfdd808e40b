// Package editor applies in-place edits to a loaded dataset: cell values,
// rows and columns, with an undo stack and a dirty flag. Column kinds and
// picker options are derived from the dashboard configuration.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// DefaultUndoLimit bounds the undo stack.
const DefaultUndoLimit = 100

var (
	ErrRowOutOfRange = errors.New("row index out of range")
	ErrUnknownColumn = errors.New("unknown column")
	ErrColumnExists  = errors.New("column already exists")
	ErrEmptyColumn   = errors.New("column name is empty")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNotBoolean    = errors.New("column is not boolean")
	ErrLastColumn    = errors.New("cannot delete the last column")
	ErrNoSavePath    = errors.New("no save path")
)

// Option configures an Editor.
type Option func(*Editor)

// WithUndoLimit caps the number of undo steps kept. Values below one keep a
// single step.
func WithUndoLimit(n int) Option {
	return func(e *Editor) {
		if n < 1 {
			n = 1
		}
		e.undoLimit = n
	}
}

// WithPath sets the file Save writes to.
func WithPath(path string) Option {
	return func(e *Editor) {
		e.path = path
	}
}

type step struct {
	label string
	ds    *model.Dataset
}

// Editor owns a private copy of a dataset. It is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	ds        *model.Dataset
	cfg       *model.Config
	ctx       *model.Context
	undo      []step
	undoLimit int
	dirty     bool
	path      string
}

// New returns an editor over a copy of ds.
func New(ds *model.Dataset, cfg *model.Config, opts ...Option) *Editor {
	if ds == nil {
		ds = model.NewDataset(nil, nil)
	}
	if cfg == nil {
		cfg = &model.Config{}
	}
	e := &Editor{
		ds:        ds.Clone(),
		cfg:       cfg,
		undoLimit: DefaultUndoLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx = model.NewContext(e.ds, cfg)
	return e
}

// Dataset returns a copy of the current data.
func (e *Editor) Dataset() *model.Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ds.Clone()
}

// Dirty reports whether there are unsaved edits.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// CanUndo reports whether Undo has a step to revert.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo) > 0
}

// UndoLabel describes the step Undo would revert, or "".
func (e *Editor) UndoLabel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.undo) == 0 {
		return ""
	}
	return e.undo[len(e.undo)-1].label
}

// Path returns the file Save writes to.
func (e *Editor) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Undo reverts the most recent edit.
func (e *Editor) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.undo) == 0 {
		return ErrNothingToUndo
	}
	last := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.replace(last.ds)
	e.dirty = true
	debug.Log("editor: undo %s", last.label)
	return nil
}

// checkpoint records the state before a mutation. Callers hold mu.
func (e *Editor) checkpoint(label string) {
	e.undo = append(e.undo, step{label: label, ds: e.ds.Clone()})
	if over := len(e.undo) - e.undoLimit; over > 0 {
		e.undo = append(e.undo[:0], e.undo[over:]...)
	}
	e.dirty = true
}

func (e *Editor) replace(ds *model.Dataset) {
	e.ds = ds
	e.ctx = model.NewContext(e.ds, e.cfg)
}

func (e *Editor) row(index int) (*model.Row, error) {
	if index < 0 || index >= len(e.ds.Rows) {
		return nil, fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
	}
	return e.ds.Rows[index], nil
}

func (e *Editor) column(name string) error {
	if !e.ds.HasColumn(name) {
		return fmt.Errorf("%q: %w", name, ErrUnknownColumn)
	}
	return nil
}

// Parse converts typed text into a cell value for column: declared
// multi-value columns are split on the separator, everything else is kept
// verbatim.
func (e *Editor) Parse(column, text string) model.Value {
	gs := e.cfg.GeneralSettings
	if gs.IsMultiValue(column) {
		return model.Multi(loader.SplitMulti(text, gs.Separator())...)
	}
	return model.Scalar(text)
}

// Format renders a cell as editable text, joining multi-values with the
// configured separator so Parse round-trips it.
func (e *Editor) Format(v model.Value) string {
	if v.IsMulti() {
		return strings.Join(v.Items(), e.cfg.GeneralSettings.Separator())
	}
	return v.First()
}

// SetCell replaces one cell.
func (e *Editor) SetCell(index int, column, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.column(column); err != nil {
		return err
	}
	if _, err := e.row(index); err != nil {
		return err
	}
	v := e.Parse(column, text)
	if e.ds.Rows[index].Get(column).Equal(v) {
		return nil
	}
	e.checkpoint(fmt.Sprintf("edit %s of row %d", column, index))
	e.ds.Rows[index].Values[column] = v
	return nil
}

// UpdateRow replaces several cells of one row as a single undo step. Cells
// whose value does not change are left alone; nothing changes when no cell
// differs.
func (e *Editor) UpdateRow(index int, values map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.row(index); err != nil {
		return err
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		if err := e.column(col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	changed := make(map[string]model.Value)
	for _, col := range cols {
		v := e.Parse(col, values[col])
		if !e.ds.Rows[index].Get(col).Equal(v) {
			changed[col] = v
		}
	}
	if len(changed) == 0 {
		return nil
	}
	e.checkpoint(fmt.Sprintf("edit row %d", index))
	for col, v := range changed {
		e.ds.Rows[index].Values[col] = v
	}
	return nil
}

// ToggleBool flips a boolean cell between the first recognised true-value
// and the column's false-value.
func (e *Editor) ToggleBool(index int, column string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.column(column); err != nil {
		return err
	}
	if e.kind(column) != KindBoolean {
		return fmt.Errorf("%q: %w", column, ErrNotBoolean)
	}
	r, err := e.row(index)
	if err != nil {
		return err
	}

	next := e.cfg.GeneralSettings.EffectiveTrueValues()[0]
	if e.ctx.IsTrue(r.Get(column).First()) {
		next = e.falseValue(column)
	}
	e.checkpoint(fmt.Sprintf("toggle %s of row %d", column, index))
	r.Values[column] = model.Scalar(next)
	return nil
}

// falseValue is the first non-true value already present in the column, so
// a column spelled "yes"/"no" stays that way. Empty when there is none.
func (e *Editor) falseValue(column string) string {
	for _, r := range e.ds.Rows {
		s := r.Get(column).First()
		if s != "" && !e.ctx.IsTrue(s) {
			return s
		}
	}
	return ""
}

// InsertRow inserts a row before position at; at == Len appends. Cells not in
// values are empty. The new row's index is returned.
func (e *Editor) InsertRow(at int, values map[string]string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertRow(at, values)
}

// AppendRow adds a row at the end.
func (e *Editor) AppendRow(values map[string]string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertRow(len(e.ds.Rows), values)
}

func (e *Editor) insertRow(at int, values map[string]string) (int, error) {
	if at < 0 || at > len(e.ds.Rows) {
		return 0, fmt.Errorf("row %d: %w", at, ErrRowOutOfRange)
	}
	for col := range values {
		if err := e.column(col); err != nil {
			return 0, err
		}
	}

	cells := make(map[string]model.Value, len(e.ds.Headers))
	for _, h := range e.ds.Headers {
		cells[h] = e.Parse(h, values[h])
	}

	e.checkpoint(fmt.Sprintf("insert row %d", at))
	rows := make([]*model.Row, 0, len(e.ds.Rows)+1)
	rows = append(rows, e.ds.Rows[:at]...)
	rows = append(rows, model.NewRow(at, cells))
	rows = append(rows, e.ds.Rows[at:]...)
	e.replace(model.NewDataset(e.ds.Headers, rows))
	return at, nil
}

// DeleteRow removes a row; later rows are renumbered.
func (e *Editor) DeleteRow(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.row(index); err != nil {
		return err
	}
	e.checkpoint(fmt.Sprintf("delete row %d", index))
	rows := append(append([]*model.Row(nil), e.ds.Rows[:index]...), e.ds.Rows[index+1:]...)
	e.replace(model.NewDataset(e.ds.Headers, rows))
	return nil
}

// AddColumn appends an empty column.
func (e *Editor) AddColumn(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyColumn
	}
	if e.ds.HasColumn(name) {
		return fmt.Errorf("%q: %w", name, ErrColumnExists)
	}
	e.checkpoint("add column " + name)
	e.ds.Headers = append(e.ds.Headers, name)
	for _, r := range e.ds.Rows {
		r.Values[name] = e.Parse(name, "")
	}
	e.replace(e.ds)
	return nil
}

// RenameColumn renames a column in the data. Configuration that refers to
// the old name is left alone.
func (e *Editor) RenameColumn(from, to string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	to = strings.TrimSpace(to)
	if to == "" {
		return ErrEmptyColumn
	}
	if err := e.column(from); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if e.ds.HasColumn(to) {
		return fmt.Errorf("%q: %w", to, ErrColumnExists)
	}
	e.checkpoint(fmt.Sprintf("rename column %s to %s", from, to))
	for i, h := range e.ds.Headers {
		if h == from {
			e.ds.Headers[i] = to
		}
	}
	for _, r := range e.ds.Rows {
		if v, ok := r.Values[from]; ok {
			r.Values[to] = v
			delete(r.Values, from)
		}
	}
	e.replace(e.ds)
	return nil
}

// DeleteColumn removes a column and its cells.
func (e *Editor) DeleteColumn(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.column(name); err != nil {
		return err
	}
	if len(e.ds.Headers) == 1 {
		return ErrLastColumn
	}
	e.checkpoint("delete column " + name)
	headers := make([]string, 0, len(e.ds.Headers)-1)
	for _, h := range e.ds.Headers {
		if h != name {
			headers = append(headers, h)
		}
	}
	e.ds.Headers = headers
	for _, r := range e.ds.Rows {
		delete(r.Values, name)
	}
	e.replace(e.ds)
	return nil
}

// Save writes the data to the editor's path and clears the dirty flag. The
// undo stack is kept.
func (e *Editor) Save() error {
	e.mu.Lock()
	path := e.path
	e.mu.Unlock()
	if path == "" {
		return ErrNoSavePath
	}
	return e.SaveAs(path)
}

// SaveAs writes the data to path and makes it the save target.
func (e *Editor) SaveAs(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := loader.WriteOptions{Separator: e.cfg.GeneralSettings.Separator()}
	if err := loader.SaveCSV(path, e.ds, opts); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	e.path = path
	e.dirty = false
	debug.Log("editor: saved %d rows to %s", len(e.ds.Rows), path)
	return nil
}
