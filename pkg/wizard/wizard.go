package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/csvboard/pkg/config"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// none is the select value for "no column".
const none = ""

// Wizard walks the user through generating a dashboard config.
type Wizard struct {
	ds         *model.Dataset
	dataPath   string
	outputPath string
	out        io.Writer

	suggestion Suggestion
	title      string
}

// New creates a wizard for a loaded data file. The config is written to
// outputPath.
func New(ds *model.Dataset, dataPath, outputPath string) *Wizard {
	return &Wizard{
		ds:         ds,
		dataPath:   dataPath,
		outputPath: outputPath,
		out:        os.Stdout,
		suggestion: Suggest(ds, model.DefaultSeparator),
		title:      defaultTitle(dataPath),
	}
}

func defaultTitle(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" || base == "." {
		return "Dashboard"
	}
	return strings.ReplaceAll(base, "_", " ")
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Suggestion returns the current column choices.
func (w *Wizard) Suggestion() Suggestion {
	return w.suggestion
}

// Run asks for confirmation of each suggested column and writes the config.
// It returns the written configuration.
func (w *Wizard) Run() (*model.Config, error) {
	w.printBanner()

	if _, err := os.Stat(w.outputPath); err == nil {
		overwrite := false
		form := newForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s already exists. Overwrite?", w.outputPath)).
					Value(&overwrite).
					Affirmative("Overwrite").
					Negative("Cancel"),
			),
		)
		if err := form.Run(); err != nil {
			return nil, err
		}
		if !overwrite {
			return nil, errors.New("cancelled: config file exists")
		}
	}

	if err := w.collectColumns(); err != nil {
		return nil, err
	}

	cfg := BuildConfig(w.ds, w.suggestion, w.title, w.relativeDataPath())
	if err := config.SaveDashboard(cfg, w.outputPath); err != nil {
		return nil, err
	}
	w.printSummary(cfg)
	return cfg, nil
}

func (w *Wizard) columnOptions(allowNone bool) []huh.Option[string] {
	var opts []huh.Option[string]
	if allowNone {
		opts = append(opts, huh.NewOption("(none)", none))
	}
	for _, h := range w.ds.Headers {
		opts = append(opts, huh.NewOption(h, h))
	}
	return opts
}

func (w *Wizard) collectColumns() error {
	s := &w.suggestion
	multi := append([]string(nil), s.MultiValueColumns...)
	categories := append([]string(nil), s.CategoryColumns...)

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard title").
				Value(&w.title).
				Placeholder(defaultTitle(w.dataPath)),
			huh.NewSelect[string]().
				Title("ID column").
				Description("Uniquely identifies a row; used by hierarchy and graph views").
				Options(w.columnOptions(true)...).
				Value(&s.IDColumn),
			huh.NewSelect[string]().
				Title("Title column").
				Description("Shown on cards and list items").
				Options(w.columnOptions(true)...).
				Value(&s.TitleColumn),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Parent column").
				Description("Holds the ID of the parent row").
				Options(w.columnOptions(true)...).
				Value(&s.ParentColumn),
			huh.NewSelect[string]().
				Title("Group column").
				Description("Kanban lanes and summary sections").
				Options(w.columnOptions(true)...).
				Value(&s.GroupColumn),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Multi-value columns").
				Description(fmt.Sprintf("Cells hold lists separated by %q", s.Separator)).
				Options(w.columnOptions(false)...).
				Value(&multi),
			huh.NewMultiSelect[string]().
				Title("Graph category columns").
				Options(w.columnOptions(false)...).
				Value(&categories),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	s.MultiValueColumns = multi
	s.CategoryColumns = categories
	if strings.TrimSpace(w.title) == "" {
		w.title = defaultTitle(w.dataPath)
	}
	return nil
}

// relativeDataPath records the data file relative to the config so the pair
// can be moved together.
func (w *Wizard) relativeDataPath() string {
	rel, err := filepath.Rel(filepath.Dir(w.outputPath), w.dataPath)
	if err != nil {
		return w.dataPath
	}
	return rel
}

func (w *Wizard) printBanner() {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "╔══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w.out, "║              csvboard → Dashboard Config Wizard                  ║")
	fmt.Fprintln(w.out, "╠══════════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w.out, "║  Data: %-58s║\n", truncate(w.dataPath, 58))
	fmt.Fprintf(w.out, "║  Rows: %-58d║\n", w.ds.Len())
	fmt.Fprintln(w.out, "║                                                                  ║")
	fmt.Fprintln(w.out, "║  Press Ctrl+C anytime to cancel                                  ║")
	fmt.Fprintln(w.out, "╚══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w.out, "")
}

func (w *Wizard) printSummary(cfg *model.Config) {
	fmt.Fprintf(w.out, "Wrote %s with %d tab(s):\n", w.outputPath, len(cfg.Tabs))
	for _, t := range cfg.Tabs {
		fmt.Fprintf(w.out, "  - %-10s %s\n", t.Type, t.Title)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
