package export

import (
	"database/sql"
	"fmt"
	"strings"
)

// Schema version for tracking layout changes
const SchemaVersion = 1

// Table and column names shared with the SQLite data source reader.
const (
	MetaTable       = "export_meta"
	ColumnsTable    = "dataset_columns"
	DatasetTable    = "dataset"
	RowIndexColumn  = "_row"
	TabsTable       = "tabs"
	TabRowsTable    = "tab_rows"
	GraphNodesTable = "graph_nodes"
	GraphEdgesTable = "graph_edges"
)

// CreateSchema creates all tables and indexes. The dataset table gets one
// TEXT column per header.
func CreateSchema(db *sql.DB, headers []string) error {
	if err := createDatasetTables(db, headers); err != nil {
		return fmt.Errorf("create dataset tables: %w", err)
	}

	if err := createViewTables(db); err != nil {
		return fmt.Errorf("create view tables: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	if err := createMetaTable(db); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	return nil
}

func createDatasetTables(db *sql.DB, headers []string) error {
	columnsSQL := `
		CREATE TABLE IF NOT EXISTS ` + ColumnsTable + ` (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			multi INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := db.Exec(columnsSQL); err != nil {
		return fmt.Errorf("create %s table: %w", ColumnsTable, err)
	}

	cols := make([]string, 0, len(headers)+1)
	cols = append(cols, quoteIdent(RowIndexColumn)+" INTEGER PRIMARY KEY")
	for _, h := range headers {
		cols = append(cols, quoteIdent(h)+" TEXT")
	}
	datasetSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t\t\t%s\n\t\t)", DatasetTable, strings.Join(cols, ",\n\t\t\t"))
	if _, err := db.Exec(datasetSQL); err != nil {
		return fmt.Errorf("create %s table: %w", DatasetTable, err)
	}
	return nil
}

// createViewTables creates the rendered-tab tables: tab metadata, row
// membership in display order and graph nodes and edges.
func createViewTables(db *sql.DB) error {
	tabsSQL := `
		CREATE TABLE IF NOT EXISTS ` + TabsTable + ` (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			placeholder TEXT,
			warnings TEXT
		)
	`
	if _, err := db.Exec(tabsSQL); err != nil {
		return fmt.Errorf("create %s table: %w", TabsTable, err)
	}

	tabRowsSQL := `
		CREATE TABLE IF NOT EXISTS ` + TabRowsTable + ` (
			tab_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			row_index INTEGER NOT NULL,
			grp TEXT,
			depth INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tab_id, position),
			FOREIGN KEY (tab_id) REFERENCES ` + TabsTable + `(id)
		)
	`
	if _, err := db.Exec(tabRowsSQL); err != nil {
		return fmt.Errorf("create %s table: %w", TabRowsTable, err)
	}

	nodesSQL := `
		CREATE TABLE IF NOT EXISTS ` + GraphNodesTable + ` (
			tab_id TEXT NOT NULL,
			id TEXT NOT NULL,
			label TEXT NOT NULL,
			kind TEXT NOT NULL,
			grp TEXT,
			color TEXT,
			title TEXT,
			x REAL,
			y REAL,
			PRIMARY KEY (tab_id, id)
		)
	`
	if _, err := db.Exec(nodesSQL); err != nil {
		return fmt.Errorf("create %s table: %w", GraphNodesTable, err)
	}

	edgesSQL := `
		CREATE TABLE IF NOT EXISTS ` + GraphEdgesTable + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tab_id TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			directed INTEGER NOT NULL DEFAULT 1
		)
	`
	if _, err := db.Exec(edgesSQL); err != nil {
		return fmt.Errorf("create %s table: %w", GraphEdgesTable, err)
	}

	return nil
}

// createIndexes creates indexes for common queries.
func createIndexes(db *sql.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_tab_rows_row ON ` + TabRowsTable + `(row_index)`,
		`CREATE INDEX IF NOT EXISTS idx_tab_rows_group ON ` + TabRowsTable + `(tab_id, grp)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_tab ON ` + GraphEdgesTable + `(tab_id, source)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_nodes_kind ON ` + GraphNodesTable + `(tab_id, kind)`,
	}

	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// createMetaTable creates the export metadata table.
func createMetaTable(db *sql.DB) error {
	metaSQL := `
		CREATE TABLE IF NOT EXISTS ` + MetaTable + ` (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create %s table: %w", MetaTable, err)
	}

	return nil
}

// OptimizeDatabase compacts the database after bulk inserts.
func OptimizeDatabase(db *sql.DB, pageSize int) error {
	if pageSize > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA page_size = %d", pageSize)); err != nil {
			return fmt.Errorf("set page size: %w", err)
		}
	}
	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
