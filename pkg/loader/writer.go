package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

// WriteOptions configures WriteCSV.
type WriteOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Separator joins multi-value cells. Empty means model.DefaultSeparator.
	Separator string
}

// WriteCSV writes ds as a header row followed by one record per row.
// Multi-value cells are joined with the separator; null cells are written
// empty.
func WriteCSV(w io.Writer, ds *model.Dataset, opts WriteOptions) error {
	sep := opts.Separator
	if sep == "" {
		sep = model.DefaultSeparator
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	if err := cw.Write(ds.Headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(ds.Headers))
	for _, row := range ds.Rows {
		for i, h := range ds.Headers {
			v := row.Get(h)
			if v.IsMulti() {
				record[i] = strings.Join(v.Items(), sep)
				continue
			}
			record[i] = v.First()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", row.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes ds to path through a temporary file in the same directory
// so readers never observe a partial file.
func SaveCSV(path string, ds *model.Dataset, opts WriteOptions) error {
	if opts.Comma == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Comma = '\t'
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, ds, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
