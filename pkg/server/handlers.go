package server

import (
	"bytes"
	_ "embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/csvboard/pkg/editor"
	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/layout"
	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/version"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

//go:embed static/index.html
var indexHTML []byte

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

type tabSummary struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Type  model.ViewType `json:"type"`
}

type dashboardResponse struct {
	Title      string       `json:"title"`
	Tabs       []tabSummary `json:"tabs"`
	Rows       int          `json:"rows"`
	Columns    int          `json:"columns"`
	DataHash   string       `json:"dataHash"`
	Generation uint64       `json:"generation"`
	ReadOnly   bool         `json:"readOnly"`
	Version    string       `json:"version"`
	Warnings   []string     `json:"warnings,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	resp := dashboardResponse{
		Title:      snap.Config.GeneralSettings.Title,
		Tabs:       []tabSummary{},
		Rows:       snap.Dataset.Len(),
		Columns:    len(snap.Dataset.Headers),
		DataHash:   snap.DataHash,
		Generation: s.Generation(),
		ReadOnly:   s.opts.ReadOnly,
		Version:    version.Version,
	}
	if resp.Title == "" {
		resp.Title = "Dashboard"
	}
	for _, tab := range snap.Config.EnabledTabs() {
		resp.Tabs = append(resp.Tabs, tabSummary{ID: tab.ID, Title: tab.Label(), Type: tab.Type})
	}
	if err := snap.Config.Validate(nil); err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

type tabResponse struct {
	view.Output
	Layout *layout.Result `json:"layout,omitempty"`
}

func (s *Server) lookupTab(w http.ResponseWriter, r *http.Request) (*Snapshot, *model.Tab, bool) {
	snap := s.Snapshot()
	id := chi.URLParam(r, "id")
	tab, ok := snap.Config.Tab(id)
	if !ok || !tab.IsEnabled() {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown tab " + strconv.Quote(id)})
		return nil, nil, false
	}
	return snap, tab, true
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	snap, tab, ok := s.lookupTab(w, r)
	if !ok {
		return
	}
	out := view.Render(snap.Dataset, snap.Config, tab)
	resp := tabResponse{Output: out}
	if out.Graph != nil && len(out.Graph.Nodes) > 0 {
		res, err := s.graphLayout(r.Context(), snap, tab.ID, out.Graph)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Layout = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, tab, ok := s.lookupTab(w, r)
	if !ok {
		return
	}
	format := chi.URLParam(r, "format")
	var contentType string
	switch format {
	case "svg":
		contentType = "image/svg+xml"
	case "png":
		contentType = "image/png"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "format must be svg or png"})
		return
	}

	out := view.Render(snap.Dataset, snap.Config, tab)
	if out.Graph == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "tab " + strconv.Quote(tab.ID) + " is not a rendered graph"})
		return
	}
	opts := export.GraphSnapshotOptions{
		Graph:    out.Graph,
		Title:    tab.Label(),
		Preset:   r.URL.Query().Get("preset"),
		DataHash: snap.DataHash,
	}
	if len(out.Graph.Nodes) > 0 {
		res, err := s.graphLayout(r.Context(), snap, tab.ID, out.Graph)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		opts.Layout = &res
	}

	var buf bytes.Buffer
	if err := export.WriteGraphSnapshot(r.Context(), &buf, format, opts); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": metrics.Enabled(),
		"timings": metrics.Snapshot(),
	})
}

type dataResponse struct {
	Headers  []string                   `json:"headers"`
	Columns  []editor.ColumnInfo        `json:"columns"`
	Rows     []*model.Row               `json:"rows"`
	Dirty    bool                       `json:"dirty"`
	CanUndo  bool                       `json:"canUndo"`
	DataHash string                     `json:"dataHash"`
	Options  map[string][]editor.Choice `json:"options,omitempty"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ed := s.ed
	s.mu.Unlock()

	snap := s.Snapshot()
	resp := dataResponse{
		Headers:  snap.Dataset.Headers,
		Columns:  ed.Columns(),
		Rows:     snap.Dataset.Rows,
		Dirty:    ed.Dirty(),
		CanUndo:  ed.CanUndo(),
		DataHash: snap.DataHash,
	}
	if col := r.URL.Query().Get("options"); col != "" {
		resp.Options = map[string][]editor.Choice{col: ed.Choices(col)}
	}
	writeJSON(w, http.StatusOK, resp)
}

type setCellRequest struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Toggle bool   `json:"toggle"`
}

func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	var req setCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	err := s.edit(func(ed *editor.Editor) error {
		if req.Toggle {
			return ed.ToggleBool(req.Row, req.Column)
		}
		return ed.SetCell(req.Row, req.Column, req.Value)
	})
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	s.writeEditResult(w)
}

type insertRowRequest struct {
	// At is the insert position; nil appends.
	At     *int              `json:"at"`
	Values map[string]string `json:"values"`
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	var req insertRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	var index int
	err := s.edit(func(ed *editor.Editor) error {
		var err error
		if req.At == nil {
			index, err = ed.AppendRow(req.Values)
		} else {
			index, err = ed.InsertRow(*req.At, req.Values)
		}
		return err
	})
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"index": index, "generation": s.Generation()})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid row index"})
		return
	}
	if err := s.edit(func(ed *editor.Editor) error { return ed.DeleteRow(index) }); err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	s.writeEditResult(w)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.edit(func(ed *editor.Editor) error { return ed.Undo() }); err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	s.writeEditResult(w)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.ed.Save()
	s.mu.Unlock()
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	s.writeEditResult(w)
}

func (s *Server) writeEditResult(w http.ResponseWriter) {
	s.mu.Lock()
	dirty, canUndo := s.ed.Dirty(), s.ed.CanUndo()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"dirty":      dirty,
		"canUndo":    canUndo,
		"generation": s.Generation(),
		"dataHash":   s.Snapshot().DataHash,
	})
}

func editStatus(err error) int {
	switch {
	case errors.Is(err, editor.ErrRowOutOfRange), errors.Is(err, editor.ErrUnknownColumn):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrNothingToUndo), errors.Is(err, editor.ErrNoSavePath):
		return http.StatusConflict
	case errors.Is(err, editor.ErrNotBoolean), errors.Is(err, editor.ErrColumnExists),
		errors.Is(err, editor.ErrEmptyColumn), errors.Is(err, editor.ErrLastColumn):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
