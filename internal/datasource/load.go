package datasource

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Load reads the dataset behind path, which may be a data file or a
// directory holding data files (the freshest valid one wins).
func Load(path string, opts loader.ParseOptions) (*model.Dataset, DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, DataSource{}, fmt.Errorf("stat data source: %w", err)
	}

	var source DataSource
	if info.IsDir() {
		sources, err := DiscoverSources(path, DiscoveryOptions{ValidateAfterDiscovery: true})
		if err != nil {
			return nil, DataSource{}, err
		}
		if source, err = SelectBestSource(sources); err != nil {
			return nil, DataSource{}, fmt.Errorf("%s: %w", path, err)
		}
	} else if source, err = Detect(path); err != nil {
		return nil, DataSource{}, err
	}

	ds, err := LoadFromSource(source, opts)
	if err != nil {
		return nil, source, err
	}
	return ds, source, nil
}

// LoadFromSource loads a dataset from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource, opts loader.ParseOptions) (*model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadDataset(opts)

	case SourceTypeTSV:
		opts.Comma = '\t'
		return loader.LoadCSV(source.Path, opts)

	case SourceTypeCSV:
		return loader.LoadCSV(source.Path, opts)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// ValidateSource checks that the source can be opened and has a header row or
// a readable table, recording the outcome on s.
func ValidateSource(s *DataSource) error {
	s.Valid = false
	s.ValidationError = ""
	s.Columns = 0

	err := func() error {
		switch s.Type {
		case SourceTypeSQLite:
			reader, err := NewSQLiteReader(*s)
			if err != nil {
				return err
			}
			defer reader.Close()
			cols, err := reader.Columns()
			if err != nil {
				return err
			}
			s.Columns = len(cols)
			return nil
		case SourceTypeCSV, SourceTypeTSV:
			f, err := os.Open(s.Path)
			if err != nil {
				return err
			}
			defer f.Close()
			r := csv.NewReader(f)
			if s.Type == SourceTypeTSV {
				r.Comma = '\t'
			}
			r.LazyQuotes = true
			header, err := r.Read()
			if err != nil {
				return fmt.Errorf("reading header: %w", err)
			}
			s.Columns = len(header)
			return nil
		}
		return fmt.Errorf("unknown source type: %s", s.Type)
	}()

	if err != nil {
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	return nil
}
