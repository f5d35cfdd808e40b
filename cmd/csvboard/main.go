package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/csvboard/internal/datasource"
	"github.com/vanderheijden86/csvboard/pkg/config"
	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/editor"
	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/server"
	"github.com/vanderheijden86/csvboard/pkg/ui"
	"github.com/vanderheijden86/csvboard/pkg/version"
	"github.com/vanderheijden86/csvboard/pkg/view"
	"github.com/vanderheijden86/csvboard/pkg/watcher"
	"github.com/vanderheijden86/csvboard/pkg/wizard"
)

// errUsage marks errors caused by bad flags; they exit with status 2.
var errUsage = errors.New("usage")

type cliOptions struct {
	data      string
	config    string
	dashboard string
	favorite  int
	tab       string
	format    string
	out       string
	serve     bool
	addr      string
	watch     bool
	edit      bool
	init      bool
	debug     bool
	metrics   bool
	version   bool
}

var formats = []string{"text", "json", "md", "dot", "mermaid", "svg", "png", "sqlite"}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("csvboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.data, "data", "", "CSV, TSV or SQLite file (or a directory holding one)")
	fs.StringVar(&o.config, "config", "", "Dashboard configuration (.yaml, .yml or .json)")
	fs.StringVar(&o.dashboard, "dashboard", "", "Open a registered dashboard by name or favorite number (1-9)")
	fs.IntVar(&o.favorite, "favorite", 0, "Assign the opened or generated dashboard to favorite number 1-9")
	fs.StringVar(&o.tab, "tab", "", "Tab id to open or export")
	fs.StringVar(&o.format, "format", "", "Plain output format: "+strings.Join(formats, "|"))
	fs.StringVar(&o.out, "o", "", "Write output to this file instead of stdout (sqlite defaults to the data dir)")
	fs.BoolVar(&o.serve, "serve", false, "Serve the dashboard over HTTP")
	fs.StringVar(&o.addr, "addr", "", "Listen address for -serve")
	fs.BoolVar(&o.watch, "watch", false, "Reload when the data or config file changes")
	fs.BoolVar(&o.edit, "edit", false, "Enable row editing (TUI and HTTP API)")
	fs.BoolVar(&o.init, "init", false, "Generate a dashboard configuration for -data")
	fs.BoolVar(&o.debug, "debug", false, "Log diagnostics to stderr")
	fs.BoolVar(&o.metrics, "metrics", false, "Print timing metrics on exit")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: csvboard -data FILE [-config FILE] [options]")
		fmt.Fprintln(stderr, "\nRender a CSV file as a configurable dashboard.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return o, err
		}
		return o, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	if o.format != "" && !validFormat(o.format) {
		return o, fmt.Errorf("%w: unknown format %q (want %s)", errUsage, o.format, strings.Join(formats, "|"))
	}
	if o.serve && o.format != "" {
		return o, fmt.Errorf("%w: -serve and -format are mutually exclusive", errUsage)
	}
	if o.favorite < 0 || o.favorite > 9 {
		return o, fmt.Errorf("%w: -favorite must be between 1 and 9", errUsage)
	}
	if o.favorite > 0 && o.dashboard == "" && !o.init {
		return o, fmt.Errorf("%w: -favorite needs -dashboard or -init", errUsage)
	}
	return o, nil
}

func validFormat(f string) bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if o.version {
		fmt.Fprintf(stdout, "csvboard %s\n", version.Version)
		return 0
	}
	if o.debug {
		debug.SetEnabled(true)
	}
	if o.metrics {
		defer printMetrics(stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, o, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func printMetrics(w io.Writer) {
	stats := metrics.Snapshot()
	if len(stats) == 0 {
		fmt.Fprintln(w, "metrics: nothing recorded")
		return
	}
	fmt.Fprintf(w, "%-10s %8s %10s %10s %10s\n", "metric", "count", "total ms", "avg ms", "max ms")
	for _, s := range stats {
		fmt.Fprintf(w, "%-10s %8d %10.2f %10.2f %10.2f\n", s.Name, s.Count, s.TotalMs, s.AvgMs, s.MaxMs)
	}
}

// session knows where the data and dashboard come from and reloads both.
type session struct {
	dataPath   string
	configPath string
	warn       func(string)
}

// load reads the dashboard (when configured) and then the data it
// describes. Without a dashboard a starter one is derived from the headers.
func (s *session) load() (*model.Dataset, *model.Config, datasource.DataSource, error) {
	var cfg *model.Config
	if s.configPath != "" {
		var err error
		if cfg, err = config.LoadDashboard(s.configPath); err != nil {
			return nil, nil, datasource.DataSource{}, err
		}
		if s.dataPath == "" {
			s.dataPath = cfg.GeneralSettings.DataFile
		}
	}
	if s.dataPath == "" {
		return nil, nil, datasource.DataSource{}, fmt.Errorf("%w: no data file (pass -data or set generalSettings.dataFile)", errUsage)
	}

	var settings model.GeneralSettings
	if cfg != nil {
		settings = cfg.GeneralSettings
	}
	opts := loader.OptionsFor(settings)
	opts.WarningHandler = s.warn
	ds, src, err := datasource.Load(s.dataPath, opts)
	if err != nil {
		return nil, nil, src, err
	}

	if cfg == nil {
		suggestion := wizard.Suggest(ds, model.DefaultSeparator)
		cfg = wizard.BuildConfig(ds, suggestion, titleFor(src.Path), src.Path)
		if len(cfg.GeneralSettings.MultiValueColumns) > 0 {
			opts = loader.OptionsFor(cfg.GeneralSettings)
			opts.WarningHandler = func(string) {}
			if ds, err = datasource.LoadFromSource(src, opts); err != nil {
				return nil, nil, src, err
			}
		}
		debug.Log("cli: no dashboard configured, derived %d tabs from headers", len(cfg.Tabs))
	}
	return ds, cfg, src, nil
}

func (s *session) reload() (*model.Dataset, *model.Config, error) {
	ds, cfg, _, err := s.load()
	return ds, cfg, err
}

// watchPaths lists the files whose changes trigger a reload.
func (s *session) watchPaths(src datasource.DataSource) []string {
	paths := []string{src.Path}
	if s.configPath != "" {
		paths = append(paths, s.configPath)
	}
	return paths
}

func titleFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" || base == "." {
		return "Dashboard"
	}
	return strings.ReplaceAll(base, "_", " ")
}

func execute(ctx context.Context, o cliOptions, stdout, stderr io.Writer) error {
	// Preferences are optional: a broken file falls back to defaults.
	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
		appCfg = config.DefaultConfig()
	}

	s := &session{
		dataPath:   o.data,
		configPath: o.config,
		warn: func(msg string) {
			fmt.Fprintf(stderr, "Warning: %s\n", msg)
		},
	}
	if o.dashboard == "" && o.data == "" && o.config == "" && !o.init {
		if last := config.LastDashboard(); last != "" && appCfg.FindDashboard(last) != nil {
			debug.Log("cli: reopening %q", last)
			o.dashboard = last
		}
	}
	if o.dashboard != "" {
		d, err := resolveDashboard(appCfg, o.dashboard)
		if err != nil {
			return err
		}
		if s.dataPath == "" {
			s.dataPath = d.Data
		}
		if s.configPath == "" {
			s.configPath = d.Config
		}
		if err := config.RememberDashboard(d.Name); err != nil {
			debug.Log("cli: %v", err)
		}
		if o.favorite > 0 {
			assignFavorite(&appCfg, o.favorite, d.Name, stderr)
		}
	}

	if o.init {
		return runInit(s, &appCfg, o.favorite, stdout, stderr)
	}

	ds, cfg, src, err := s.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(ds.HasColumn); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			s.warn(line)
		}
	}
	// Later reloads report through the UI or the server log.
	s.warn = func(msg string) { debug.Log("load: %s", msg) }

	if o.edit && src.Type == datasource.SourceTypeSQLite {
		return fmt.Errorf("%w: -edit needs a csv or tsv file, got %s", errUsage, src)
	}

	switch {
	case o.serve:
		return runServe(ctx, s, src, ds, cfg, appCfg, o, stderr)
	case o.format != "":
		return writeOutput(ctx, o, ds, cfg, appCfg, stdout)
	case !isTerminal(stdout):
		o.format = "text"
		return writeOutput(ctx, o, ds, cfg, appCfg, stdout)
	}
	return runTUI(s, src, ds, cfg, appCfg, o)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resolveDashboard finds a registered dashboard by name, then by favorite
// number.
func resolveDashboard(appCfg config.Config, arg string) (*config.Dashboard, error) {
	if d := appCfg.FindDashboard(arg); d != nil {
		return d, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if d := appCfg.FavoriteDashboard(n); d != nil {
			return d, nil
		}
		return nil, fmt.Errorf("%w: no dashboard assigned to favorite %d", errUsage, n)
	}
	return nil, fmt.Errorf("%w: no registered dashboard named %q", errUsage, arg)
}

func assignFavorite(appCfg *config.Config, n int, name string, stderr io.Writer) {
	appCfg.SetFavorite(n, name)
	if err := config.Save(*appCfg); err != nil {
		fmt.Fprintf(stderr, "Warning: could not save favorite: %v\n", err)
		return
	}
	fmt.Fprintf(stderr, "Favorite %d now opens %q\n", n, name)
}

func runInit(s *session, appCfg *config.Config, favorite int, stdout, stderr io.Writer) error {
	if s.dataPath == "" {
		return fmt.Errorf("%w: -init needs -data", errUsage)
	}
	opts := loader.ParseOptions{WarningHandler: s.warn}
	ds, src, err := datasource.Load(s.dataPath, opts)
	if err != nil {
		return err
	}
	out := s.configPath
	if out == "" {
		out = strings.TrimSuffix(src.Path, filepath.Ext(src.Path)) + ".dashboard.yaml"
	}
	cfg, err := wizard.New(ds, src.Path, out).Run()
	if err != nil {
		return err
	}

	appCfg.Register(config.Dashboard{Name: cfg.GeneralSettings.Title, Data: src.Path, Config: out})
	if err := config.Save(*appCfg); err != nil {
		debug.Log("cli: could not register dashboard: %v", err)
		return nil
	}
	fmt.Fprintf(stdout, "Registered as %q; open it with: csvboard -dashboard %q\n", cfg.GeneralSettings.Title, cfg.GeneralSettings.Title)
	if favorite > 0 {
		assignFavorite(appCfg, favorite, cfg.GeneralSettings.Title, stderr)
	}
	return nil
}

// selectOutputs narrows the rendered tabs to -tab when given.
func selectOutputs(ds *model.Dataset, cfg *model.Config, tab string) ([]view.Output, error) {
	if tab == "" {
		return view.RenderAll(ds, cfg), nil
	}
	t, ok := cfg.Tab(tab)
	if !ok {
		return nil, fmt.Errorf("%w: unknown tab %q", errUsage, tab)
	}
	return []view.Output{view.Render(ds, cfg, t)}, nil
}

// exportName turns a dashboard title into a file name.
func exportName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(title))
	if strings.Trim(name, "-") == "" {
		return "dashboard"
	}
	return name
}

func firstGraph(outputs []view.Output) (*view.Graph, error) {
	for _, out := range outputs {
		if out.Graph != nil {
			return out.Graph, nil
		}
	}
	return nil, fmt.Errorf("%w: no graph tab to export (pick one with -tab)", errUsage)
}

func writeOutput(ctx context.Context, o cliOptions, ds *model.Dataset, cfg *model.Config, appCfg config.Config, stdout io.Writer) error {
	if o.format == "sqlite" {
		out := o.out
		if out == "" {
			dir := config.DataDir()
			if dir == "" {
				return fmt.Errorf("%w: -format sqlite needs -o", errUsage)
			}
			out = filepath.Join(dir, exportName(cfg.GeneralSettings.Title)+".sqlite")
		}
		if err := export.NewSQLiteExporter(ds, cfg).Export(ctx, out); err != nil {
			return err
		}
		if o.out == "" {
			fmt.Fprintln(stdout, out)
		}
		return nil
	}

	outputs, err := selectOutputs(ds, cfg, o.tab)
	if err != nil {
		return err
	}
	dataHash := export.DataHash(ds, cfg.GeneralSettings.Separator())

	if (o.format == "svg" || o.format == "png") && o.out != "" {
		g, err := firstGraph(outputs)
		if err != nil {
			return err
		}
		return export.SaveGraphSnapshot(ctx, export.GraphSnapshotOptions{
			Path:     o.out,
			Format:   o.format,
			Title:    cfg.GeneralSettings.Title,
			Graph:    g,
			DataHash: dataHash,
		})
	}

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch o.format {
	case "text":
		return export.WriteText(w, outputs, export.TextOptions{MaxCellWidth: appCfg.UI.MaxCellWidth})
	case "json":
		return export.WriteJSON(w, outputs)
	case "md":
		_, err := io.WriteString(w, export.GenerateMarkdown(outputs, cfg.GeneralSettings.Title))
		return err
	case "dot", "mermaid":
		g, err := firstGraph(outputs)
		if err != nil {
			return err
		}
		res, err := export.ExportGraph(g, export.GraphExportConfig{
			Format:   export.GraphExportFormat(o.format),
			DataHash: dataHash,
		})
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, res.Graph)
		return err
	case "svg", "png":
		g, err := firstGraph(outputs)
		if err != nil {
			return err
		}
		return export.WriteGraphSnapshot(ctx, w, o.format, export.GraphSnapshotOptions{
			Title:    cfg.GeneralSettings.Title,
			Graph:    g,
			DataHash: dataHash,
		})
	}
	return fmt.Errorf("%w: unknown format %q", errUsage, o.format)
}

func newWatcher(s *session, src datasource.DataSource, appCfg config.Config) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(s.watchPaths(src),
		watcher.WithDebounceDuration(time.Duration(appCfg.Watch.DebounceMillis)*time.Millisecond),
		watcher.WithForcePoll(appCfg.Watch.ForcePoll),
		watcher.WithOnError(func(err error) { debug.Log("watch: %v", err) }),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

func runServe(ctx context.Context, s *session, src datasource.DataSource, ds *model.Dataset, cfg *model.Config, appCfg config.Config, o cliOptions, stderr io.Writer) error {
	addr := o.addr
	if addr == "" {
		addr = appCfg.Server.Addr
	}
	opts := server.Options{
		Addr:     addr,
		ReadOnly: !o.edit || appCfg.Server.ReadOnly,
	}
	if o.edit {
		opts.DataPath = src.Path
	}
	srv := server.New(ds, cfg, opts)

	// The watcher comes first so a failure leaves nothing running.
	var w *watcher.Watcher
	if o.watch {
		var err error
		if w, err = newWatcher(s, src, appCfg); err != nil {
			return err
		}
		defer w.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if w != nil {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case path := <-w.Changed():
					ds, cfg, err := s.reload()
					if err != nil {
						fmt.Fprintf(stderr, "Reload after %s changed failed: %v\n", path, err)
						continue
					}
					srv.Swap(ds, cfg)
					debug.Log("serve: reloaded %s (%d rows)", path, ds.Len())
				}
			}
		})
	}

	fmt.Fprintf(stderr, "Serving %s on http://%s\n", src.Path, addr)
	return g.Wait()
}

func runTUI(s *session, src datasource.DataSource, ds *model.Dataset, cfg *model.Config, appCfg config.Config, o cliOptions) error {
	opts := ui.Options{
		Reload:       s.reload,
		InitialTab:   o.tab,
		MaxCellWidth: appCfg.UI.MaxCellWidth,
		ShowWarnings: appCfg.UI.WarningsVisible(),
	}
	if opts.InitialTab == "" {
		opts.InitialTab = appCfg.UI.DefaultTab
	}
	if o.edit {
		opts.Editor = editor.New(ds, cfg, editor.WithPath(src.Path))
	}
	if o.watch {
		w, err := newWatcher(s, src, appCfg)
		if err != nil {
			return err
		}
		defer w.Stop()
		opts.Watcher = w
	}
	return runTUIProgram(ui.NewModel(ds, cfg, opts))
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CSVBOARD_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CSVBOARD_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
