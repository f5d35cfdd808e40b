// Package datasource detects, validates and loads csvboard data sources. A
// dataset can come from a CSV or TSV file or from a SQLite database,
// including databases written by the SQLite exporter.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeCSV is a comma separated file
	SourceTypeCSV SourceType = "csv"
	// SourceTypeTSV is a tab separated file
	SourceTypeTSV SourceType = "tsv"
	// SourceTypeSQLite is a SQLite database
	SourceTypeSQLite SourceType = "sqlite"
)

// Priority values for source types (higher = preferred on equal mod time)
const (
	PrioritySQLite = 100
	PriorityCSV    = 80
	PriorityTSV    = 70
)

// DataSource represents a potential source of rows
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Table selects the table inside a SQLite source (optional)
	Table string `json:"table,omitempty"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// Columns is the number of columns found during validation
	Columns int `json:"columns"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, columns=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.Columns, status)
}

// TypeForPath maps a file extension to a source type.
func TypeForPath(path string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return SourceTypeCSV, true
	case ".tsv", ".tab":
		return SourceTypeTSV, true
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, true
	}
	return "", false
}

func priorityFor(t SourceType) int {
	switch t {
	case SourceTypeSQLite:
		return PrioritySQLite
	case SourceTypeCSV:
		return PriorityCSV
	default:
		return PriorityTSV
	}
}

// Detect builds a DataSource for a single file. A SQLite path may name a
// table with a "#table" suffix.
func Detect(path string) (DataSource, error) {
	table := ""
	if i := strings.LastIndex(path, "#"); i > 0 {
		if t, _ := TypeForPath(path[:i]); t == SourceTypeSQLite {
			path, table = path[:i], path[i+1:]
		}
	}
	typ, ok := TypeForPath(path)
	if !ok {
		return DataSource{}, fmt.Errorf("unrecognised data file type: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat data source: %w", err)
	}
	return DataSource{
		Type:     typ,
		Path:     path,
		Table:    table,
		Priority: priorityFor(typ),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives progress messages (optional)
	Logger func(msg string)
}

// DiscoverSources finds every data file directly inside dir, newest first.
func DiscoverSources(dir string, opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		typ, ok := TypeForPath(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		sources = append(sources, DataSource{
			Type:     typ,
			Path:     path,
			Priority: priorityFor(typ),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", typ, path, info.ModTime().Format(time.RFC3339)))
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	return sources, nil
}

// SelectBestSource returns the first valid source in DiscoverSources order.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid data source among %d candidates", len(sources))
}
