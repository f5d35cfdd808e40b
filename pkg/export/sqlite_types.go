// Package export writes rendered dashboards to files: a SQLite database of
// the dataset and per-tab membership, JSON, Markdown and plain text reports,
// DOT and Mermaid graphs, and SVG/PNG graph snapshots.
package export

import (
	"time"
)

// ExportMeta contains metadata about the export.
type ExportMeta struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	TabCount    int       `json:"tab_count"`
	DataHash    string    `json:"data_hash,omitempty"`
	Title       string    `json:"title,omitempty"`
}

// SQLiteExportConfig configures the SQLite export process.
type SQLiteExportConfig struct {
	// Title overrides the dashboard title stored in the metadata
	Title string

	// IncludeLayout stores stabilised positions for graph nodes
	IncludeLayout bool

	// PageSize is the SQLite page size written by the final VACUUM
	PageSize int
}

// DefaultSQLiteExportConfig returns sensible defaults for export configuration.
func DefaultSQLiteExportConfig() SQLiteExportConfig {
	return SQLiteExportConfig{
		IncludeLayout: true,
		PageSize:      1024,
	}
}

// TabRow is one row's membership in a rendered tab. Group is the kanban lane
// or summary section ("section / sub-group" inside sub-grouped sections).
type TabRow struct {
	TabID    string `json:"tab_id"`
	Position int    `json:"position"`
	RowIndex int    `json:"row_index"`
	Group    string `json:"group,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}
