// Package loader reads delimited text files into a model.Dataset and writes
// them back.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("no header row")

// ParseOptions configures the behavior of ParseCSV.
type ParseOptions struct {
	// WarningHandler is called with data-shape warnings (short rows,
	// duplicate headers). If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// MultiValueColumns are split on Separator into ordered lists.
	MultiValueColumns []string

	// Separator splits multi-value cells. Empty means model.DefaultSeparator.
	Separator string
}

// OptionsFor derives parse options from dashboard settings.
func OptionsFor(settings model.GeneralSettings) ParseOptions {
	return ParseOptions{
		MultiValueColumns: settings.MultiValueColumns,
		Separator:         settings.Separator(),
	}
}

// LoadCSV reads a dataset from a delimited file.
func LoadCSV(path string, opts ParseOptions) (*model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	if opts.Comma == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Comma = '\t'
	}
	ds, err := ParseCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseCSV parses delimited content. The first record is the header row and
// is authoritative: short rows are padded with null cells and long rows are
// truncated, each with a warning.
func ParseCSV(r io.Reader, opts ParseOptions) (*model.Dataset, error) {
	defer metrics.Timer(metrics.Load)()

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}
	sep := opts.Separator
	if sep == "" {
		sep = model.DefaultSeparator
	}
	multi := make(map[string]bool, len(opts.MultiValueColumns))
	for _, c := range opts.MultiValueColumns {
		multi[c] = true
	}

	reader := csv.NewReader(skipBOM(r))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	record, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// keep[i] is the header name for field i, or "" when the field is dropped.
	keep := make([]string, len(record))
	var headers []string
	seen := make(map[string]bool, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
			warn(fmt.Sprintf("header %d is blank, using %q", i+1, h))
		}
		if seen[h] {
			warn(fmt.Sprintf("duplicate header %q in column %d ignored", h, i+1))
			continue
		}
		seen[h] = true
		keep[i] = h
		headers = append(headers, h)
	}
	for c := range multi {
		if !seen[c] {
			warn(fmt.Sprintf("multi-value column %q not found in headers", c))
		}
	}

	var rows []*model.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading data: %w", err)
		}
		line, _ := reader.FieldPos(0)
		switch {
		case len(record) < len(keep):
			warn(fmt.Sprintf("line %d has %d fields, expected %d; missing cells are empty", line, len(record), len(keep)))
		case len(record) > len(keep):
			warn(fmt.Sprintf("line %d has %d fields, expected %d; extra cells ignored", line, len(record), len(keep)))
		}

		values := make(map[string]model.Value, len(headers))
		for i, name := range keep {
			if name == "" {
				continue
			}
			if i >= len(record) {
				values[name] = model.Null()
				continue
			}
			if multi[name] {
				values[name] = model.Multi(SplitMulti(record[i], sep)...)
				continue
			}
			values[name] = model.Scalar(record[i])
		}
		rows = append(rows, model.NewRow(len(rows), values))
	}

	return model.NewDataset(headers, rows), nil
}

// SplitMulti splits a multi-value cell on sep, trimming items and dropping
// empty ones.
func SplitMulti(s, sep string) []string {
	if sep == "" {
		sep = model.DefaultSeparator
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}
