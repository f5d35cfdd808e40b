package export

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/layout"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/version"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// ErrReservedColumn is returned when a dataset header collides with the
// exporter's row index column.
var ErrReservedColumn = errors.New("column name is reserved")

// SQLiteExporter exports a dataset and its rendered tabs to a SQLite
// database. The dataset tables can be loaded back as a data source.
type SQLiteExporter struct {
	Dataset   *model.Dataset
	Dashboard *model.Config
	Outputs   []view.Output
	Config    SQLiteExportConfig
}

// NewSQLiteExporter renders every enabled tab of cfg against ds and returns
// an exporter for the result.
func NewSQLiteExporter(ds *model.Dataset, cfg *model.Config) *SQLiteExporter {
	return &SQLiteExporter{
		Dataset:   ds,
		Dashboard: cfg,
		Outputs:   view.RenderAll(ds, cfg),
		Config:    DefaultSQLiteExportConfig(),
	}
}

// Export writes the database to path, replacing any existing file.
func (e *SQLiteExporter) Export(ctx context.Context, path string) error {
	if e.Dataset == nil {
		return fmt.Errorf("no dataset to export")
	}
	for _, h := range e.Dataset.Headers {
		if h == RowIndexColumn {
			return fmt.Errorf("%q: %w", h, ErrReservedColumn)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := CreateSchema(db, e.Dataset.Headers); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := e.insertColumns(db); err != nil {
		return fmt.Errorf("insert columns: %w", err)
	}

	if err := e.insertRows(db); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}

	if err := e.insertTabs(db); err != nil {
		return fmt.Errorf("insert tabs: %w", err)
	}

	if err := e.insertGraphs(ctx, db); err != nil {
		return fmt.Errorf("insert graphs: %w", err)
	}

	if err := e.insertMeta(db); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	if err := OptimizeDatabase(db, e.Config.PageSize); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true

	debug.Log("export: wrote %d rows and %d tabs to %s", e.Dataset.Len(), len(e.Outputs), path)
	return nil
}

func (e *SQLiteExporter) settings() model.GeneralSettings {
	if e.Dashboard == nil {
		return model.GeneralSettings{}
	}
	return e.Dashboard.GeneralSettings
}

// insertColumns records the header order and which columns are multi-value.
func (e *SQLiteExporter) insertColumns(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO ` + ColumnsTable + ` (position, name, multi) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	settings := e.settings()
	for i, h := range e.Dataset.Headers {
		multi := 0
		if settings.IsMultiValue(h) || e.columnHasMulti(h) {
			multi = 1
		}
		if _, err := stmt.Exec(i, h, multi); err != nil {
			return fmt.Errorf("insert column %s: %w", h, err)
		}
	}

	return tx.Commit()
}

func (e *SQLiteExporter) columnHasMulti(column string) bool {
	for _, r := range e.Dataset.Rows {
		if r.Get(column).IsMulti() {
			return true
		}
	}
	return false
}

// insertRows writes every dataset row. Multi-value cells are stored as JSON
// arrays so values containing the separator survive; null cells become NULL.
func (e *SQLiteExporter) insertRows(db *sql.DB) error {
	headers := e.Dataset.Headers
	cols := make([]string, 0, len(headers)+1)
	marks := make([]string, 0, len(headers)+1)
	cols = append(cols, quoteIdent(RowIndexColumn))
	marks = append(marks, "?")
	for _, h := range headers {
		cols = append(cols, quoteIdent(h))
		marks = append(marks, "?")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		DatasetTable, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(headers)+1)
	for _, r := range e.Dataset.Rows {
		args[0] = r.Index
		for i, h := range headers {
			v := r.Get(h)
			switch {
			case v.IsNull():
				args[i+1] = nil
			case v.IsMulti():
				items := v.Items()
				if items == nil {
					items = []string{}
				}
				encoded, err := json.Marshal(items)
				if err != nil {
					return fmt.Errorf("encode row %d column %s: %w", r.Index, h, err)
				}
				args[i+1] = string(encoded)
			default:
				args[i+1] = v.First()
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %d: %w", r.Index, err)
		}
	}

	return tx.Commit()
}

// insertTabs writes the tab list and each tab's rows in display order.
func (e *SQLiteExporter) insertTabs(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tabStmt, err := tx.Prepare(`
		INSERT INTO ` + TabsTable + ` (id, position, title, type, row_count, placeholder, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer tabStmt.Close()

	rowStmt, err := tx.Prepare(`
		INSERT INTO ` + TabRowsTable + ` (tab_id, position, row_index, grp, depth)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for i, out := range e.Outputs {
		var placeholder, warnings any
		if out.Placeholder != "" {
			placeholder = out.Placeholder
		}
		if len(out.Warnings) > 0 {
			encoded, err := json.Marshal(out.Warnings)
			if err != nil {
				return err
			}
			warnings = string(encoded)
		}
		if _, err := tabStmt.Exec(out.TabID, i, out.Title, string(out.Type), out.RowCount, placeholder, warnings); err != nil {
			return fmt.Errorf("insert tab %s: %w", out.TabID, err)
		}

		for _, tr := range TabRows(out) {
			var grp any
			if tr.Group != "" {
				grp = tr.Group
			}
			if _, err := rowStmt.Exec(tr.TabID, tr.Position, tr.RowIndex, grp, tr.Depth); err != nil {
				return fmt.Errorf("insert row %d of tab %s: %w", tr.RowIndex, out.TabID, err)
			}
		}
	}

	return tx.Commit()
}

// TabRows flattens a rendered tab into row memberships in display order.
// Graph tabs and placeholders have none.
func TabRows(out view.Output) []TabRow {
	var rows []TabRow
	add := func(index int, group string, depth int) {
		rows = append(rows, TabRow{TabID: out.TabID, Position: len(rows), RowIndex: index, Group: group, Depth: depth})
	}

	switch {
	case out.Table != nil:
		for _, r := range out.Table.Rows {
			add(r.Index, "", 0)
		}
	case out.Kanban != nil:
		for _, lane := range out.Kanban.Lanes() {
			for _, c := range lane.Cards {
				add(c.Index, lane.Key, 0)
			}
		}
	case out.Summary != nil:
		for _, s := range out.Summary.Sections {
			for _, it := range s.Items {
				add(it.Index, s.Title, 0)
			}
			for _, sg := range s.SubGroups {
				for _, it := range sg.Items {
					add(it.Index, s.Title+" / "+sg.Key, 0)
				}
			}
		}
	case out.Hierarchy != nil:
		for _, r := range out.Hierarchy.Rows {
			add(r.Index, "", r.Depth)
		}
	}
	return rows
}

// insertGraphs writes nodes and edges of every graph tab, with stabilised
// positions when IncludeLayout is set.
func (e *SQLiteExporter) insertGraphs(ctx context.Context, db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	nodeStmt, err := tx.Prepare(`
		INSERT INTO ` + GraphNodesTable + ` (tab_id, id, label, kind, grp, color, title, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	edgeStmt, err := tx.Prepare(`
		INSERT INTO ` + GraphEdgesTable + ` (tab_id, source, target, directed)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, out := range e.Outputs {
		if out.Graph == nil {
			continue
		}
		var positions map[string]layout.Point
		if e.Config.IncludeLayout && len(out.Graph.Nodes) > 0 {
			res, err := ComputeLayout(ctx, out.Graph, layout.Options{})
			if err != nil {
				return fmt.Errorf("layout tab %s: %w", out.TabID, err)
			}
			positions = res.Positions
		}

		for _, n := range out.Graph.Nodes {
			var x, y any
			if p, ok := positions[n.ID]; ok {
				x, y = p.X, p.Y
			}
			if _, err := nodeStmt.Exec(out.TabID, n.ID, n.Label, string(n.Kind), n.Group, n.Color, n.Title, x, y); err != nil {
				return fmt.Errorf("insert node %s of tab %s: %w", n.ID, out.TabID, err)
			}
		}
		for _, ed := range out.Graph.Edges {
			directed := 0
			if ed.Arrows == "to" {
				directed = 1
			}
			if _, err := edgeStmt.Exec(out.TabID, ed.From, ed.To, directed); err != nil {
				return fmt.Errorf("insert edge %s->%s of tab %s: %w", ed.From, ed.To, out.TabID, err)
			}
		}
	}

	return tx.Commit()
}

// insertMeta inserts export metadata.
func (e *SQLiteExporter) insertMeta(db *sql.DB) error {
	meta := e.Meta()
	values := map[string]string{
		"version":        meta.Version,
		"generated_at":   meta.GeneratedAt.Format(time.RFC3339),
		"row_count":      fmt.Sprintf("%d", meta.RowCount),
		"column_count":   fmt.Sprintf("%d", meta.ColumnCount),
		"tab_count":      fmt.Sprintf("%d", meta.TabCount),
		"schema_version": fmt.Sprintf("%d", SchemaVersion),
		"data_hash":      meta.DataHash,
	}
	if meta.Title != "" {
		values["title"] = meta.Title
	}

	for key, value := range values {
		if err := InsertMetaValue(db, key, value); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}
	return nil
}

// Meta describes the export.
func (e *SQLiteExporter) Meta() ExportMeta {
	title := e.Config.Title
	if title == "" {
		title = e.settings().Title
	}
	meta := ExportMeta{
		Version:     version.Version,
		GeneratedAt: time.Now().UTC(),
		TabCount:    len(e.Outputs),
		Title:       title,
	}
	if e.Dataset != nil {
		meta.RowCount = e.Dataset.Len()
		meta.ColumnCount = len(e.Dataset.Headers)
		meta.DataHash = DataHash(e.Dataset, e.settings().Separator())
	}
	return meta
}

// InsertMetaValue inserts or replaces one metadata entry.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO `+MetaTable+` (key, value) VALUES (?, ?)`, key, value)
	return err
}

// DataHash returns a short content hash of the dataset in its CSV form.
func DataHash(ds *model.Dataset, separator string) string {
	h := sha256.New()
	if err := loader.WriteCSV(h, ds, loader.WriteOptions{Separator: separator}); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
