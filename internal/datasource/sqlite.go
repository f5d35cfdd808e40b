package datasource

import (
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// SQLiteReader provides read access to a SQLite database holding a dataset
type SQLiteReader struct {
	db    *sql.DB
	path  string
	table string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{
		db:    db,
		path:  source.Path,
		table: source.Table,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Tables lists the user tables in name order.
func (r *SQLiteReader) Tables() ([]string, error) {
	rows, err := r.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// isExport reports whether the database was written by the SQLite exporter.
func (r *SQLiteReader) isExport() bool {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, export.ColumnsTable).Scan(&n)
	return err == nil && n > 0
}

// resolveTable picks the configured table, the exported dataset table, or
// the first user table.
func (r *SQLiteReader) resolveTable() (string, error) {
	if r.table != "" {
		return r.table, nil
	}
	if r.isExport() {
		return export.DatasetTable, nil
	}
	tables, err := r.Tables()
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables in %s", r.path)
	}
	return tables[0], nil
}

type columnInfo struct {
	name  string
	multi bool
}

// Columns returns the dataset columns in order.
func (r *SQLiteReader) Columns() ([]string, error) {
	cols, err := r.columns()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

func (r *SQLiteReader) columns() ([]columnInfo, error) {
	table, err := r.resolveTable()
	if err != nil {
		return nil, err
	}
	if table == export.DatasetTable && r.isExport() {
		rows, err := r.db.Query(fmt.Sprintf(`SELECT name, multi FROM %s ORDER BY position`, export.ColumnsTable))
		if err != nil {
			return nil, fmt.Errorf("reading columns: %w", err)
		}
		defer rows.Close()
		var cols []columnInfo
		for rows.Next() {
			var c columnInfo
			if err := rows.Scan(&c.name, &c.multi); err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
		return cols, rows.Err()
	}

	rows, err := r.db.Query(fmt.Sprintf(`SELECT name FROM pragma_table_info(%s) ORDER BY cid`, quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()
	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}
	return cols, nil
}

// LoadDataset reads the selected table. Exported databases restore their
// multi-value columns; other tables use opts.MultiValueColumns and split on
// the separator the way the CSV loader does. SQL NULL becomes a null cell.
func (r *SQLiteReader) LoadDataset(opts loader.ParseOptions) (*model.Dataset, error) {
	table, err := r.resolveTable()
	if err != nil {
		return nil, err
	}
	cols, err := r.columns()
	if err != nil {
		return nil, err
	}
	exported := table == export.DatasetTable && r.isExport()

	multi := make(map[string]bool, len(opts.MultiValueColumns))
	for _, c := range opts.MultiValueColumns {
		multi[c] = true
	}

	selects := make([]string, len(cols))
	headers := make([]string, len(cols))
	for i, c := range cols {
		selects[i] = quoteIdent(c.name)
		headers[i] = c.name
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(selects, ", "), quoteIdent(table))
	if exported {
		query += " ORDER BY " + quoteIdent(export.RowIndexColumn)
	} else {
		query += " ORDER BY rowid"
	}

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	var out []*model.Row
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(out), err)
		}
		values := make(map[string]model.Value, len(cols))
		for i, c := range cols {
			cell := cells[i]
			switch {
			case !cell.Valid:
				values[c.name] = model.Null()
			case exported && c.multi:
				values[c.name] = model.Multi(parseJSONStringArray(cell.String)...)
			case !exported && multi[c.name]:
				values[c.name] = model.Multi(loader.SplitMulti(cell.String, opts.Separator)...)
			default:
				values[c.name] = model.Scalar(cell.String)
			}
		}
		out = append(out, model.NewRow(len(out), values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return model.NewDataset(headers, out), nil
}

// parseJSONStringArray parses a JSON array of strings
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return []string{s}
	}
	return result
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
