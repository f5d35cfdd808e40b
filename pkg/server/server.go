// Package server serves the dashboard as a single-page app backed by a JSON
// API. Rendering reads an immutable snapshot that is swapped atomically when
// the files change or an edit lands.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/editor"
	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/layout"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// Options configures a Server.
type Options struct {
	Addr     string
	ReadOnly bool
	// DataPath is where POST /api/data/save writes. Empty disables saving.
	DataPath string
	Layout   layout.Options
}

// Snapshot is one consistent view of the data and its configuration. It is
// never mutated after publication.
type Snapshot struct {
	Dataset  *model.Dataset
	Config   *model.Config
	DataHash string
	LoadedAt time.Time

	layouts sync.Map // tab id -> layout.Result
}

func newSnapshot(ds *model.Dataset, cfg *model.Config) *Snapshot {
	if cfg == nil {
		cfg = &model.Config{}
	}
	return &Snapshot{
		Dataset:  ds,
		Config:   cfg,
		DataHash: export.DataHash(ds, cfg.GeneralSettings.Separator()),
		LoadedAt: time.Now(),
	}
}

// Server holds the current snapshot and the editor that produces new ones.
type Server struct {
	opts Options
	snap atomic.Pointer[Snapshot]

	mu  sync.Mutex // serialises edits and reloads
	ed  *editor.Editor
	gen atomic.Uint64

	// sessions keeps the live engine of each graph tab; a re-render
	// destroys the previous one.
	sessions  sync.Map // tab id -> *layout.Session
	newEngine func(graphmodel.Model, model.LayoutEngine, layout.Options) layout.Engine

	router http.Handler
}

// New builds a server over ds and cfg.
func New(ds *model.Dataset, cfg *model.Config, opts Options) *Server {
	s := &Server{opts: opts, newEngine: layout.New}
	s.Swap(ds, cfg)
	s.router = s.routes()
	return s
}

// Snapshot returns the snapshot currently being served.
func (s *Server) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Generation increases on every published snapshot. The SPA polls it to
// know when to refetch.
func (s *Server) Generation() uint64 {
	return s.gen.Load()
}

// Swap publishes freshly loaded data and configuration. Unsaved edits are
// discarded.
func (s *Server) Swap(ds *model.Dataset, cfg *model.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds == nil {
		ds = model.NewDataset(nil, nil)
	}
	if s.ed != nil && s.ed.Dirty() {
		debug.Log("server: reload discards unsaved edits")
	}
	s.ed = editor.New(ds, cfg, editor.WithPath(s.opts.DataPath))
	s.publish(ds.Clone(), cfg)
}

// publish stores a new snapshot. Callers hold mu.
func (s *Server) publish(ds *model.Dataset, cfg *model.Config) {
	s.snap.Store(newSnapshot(ds, cfg))
	s.gen.Add(1)
}

// edit applies fn to the editor and republishes the result.
func (s *Server) edit(fn func(*editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.ed); err != nil {
		return err
	}
	s.publish(s.ed.Dataset(), s.snap.Load().Config)
	return nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opts.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		debug.Log("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		defer s.closeLayouts()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// graphLayout computes, or returns the cached, positions for a graph tab of
// snap. A fresh computation replaces the tab's previous engine.
func (s *Server) graphLayout(ctx context.Context, snap *Snapshot, tabID string, g *view.Graph) (layout.Result, error) {
	if v, ok := snap.layouts.Load(tabID); ok {
		return v.(layout.Result), nil
	}
	engine := s.newEngine(g.Model(), g.LayoutEngine, s.opts.Layout)
	res, err := layout.Run(ctx, engine, nil)
	if err != nil {
		engine.Destroy()
		return layout.Result{}, err
	}
	sess, _ := s.sessions.LoadOrStore(tabID, &layout.Session{})
	sess.(*layout.Session).Replace(engine)
	snap.layouts.Store(tabID, res)
	return res, nil
}

// closeLayouts destroys every live graph engine.
func (s *Server) closeLayouts() {
	s.sessions.Range(func(_, v any) bool {
		v.(*layout.Session).Close()
		return true
	})
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)

	r.Route("/api", func(api chi.Router) {
		api.Get("/dashboard", s.handleDashboard)
		api.Get("/tabs/{id}", s.handleTab)
		api.Get("/tabs/{id}/snapshot.{format}", s.handleSnapshot)
		api.Get("/metrics", s.handleMetrics)

		api.Get("/data", s.handleData)
		api.With(s.requireWritable).Post("/data/cells", s.handleSetCell)
		api.With(s.requireWritable).Post("/data/rows", s.handleInsertRow)
		api.With(s.requireWritable).Delete("/data/rows/{index}", s.handleDeleteRow)
		api.With(s.requireWritable).Post("/data/undo", s.handleUndo)
		api.With(s.requireWritable).Post("/data/save", s.handleSave)
	})

	return r
}

func (s *Server) requireWritable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.ReadOnly {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "server is read-only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
