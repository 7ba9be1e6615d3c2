// Package csvdir reads warehouse tables from CSV files in a directory. This
// is the primary backend: it matches the flat-file export the dashboard was
// built around.
package csvdir

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
	"salesdash/internal/source"
)

func init() {
	source.Register("csvdir", New)
}

// Dir is a directory of CSV files, one per table, each with a header row.
type Dir struct {
	dir        string
	comma      rune
	trimSpace  bool
	lazyQuotes bool
}

// New builds the csvdir backend from source options.
//
// Options:
//   - "dir" (required): directory holding the CSV files.
//   - "comma": field separator, default ','.
//   - "trim_space": trim cell whitespace, default true.
//   - "lazy_quotes": tolerate bare quotes, default false.
func New(ctx context.Context, cfg config.Source) (source.Source, error) {
	dir := cfg.Options.String("dir", "")
	if dir == "" {
		return nil, fmt.Errorf("csvdir: options.dir is required")
	}
	return &Dir{
		dir:        dir,
		comma:      cfg.Options.Rune("comma", ','),
		trimSpace:  cfg.Options.Bool("trim_space", true),
		lazyQuotes: cfg.Options.Bool("lazy_quotes", false),
	}, nil
}

func (d *Dir) Close() {}

// ReadTable parses one CSV file into a table aligned to the spec's columns.
//
// Header matching:
//   - Headers are matched against ColumnSpec.Source verbatim, and against the
//     snake_case normalization of the header (lowercased, spaces to
//     underscores, BOM stripped). "Customer Key" therefore binds to
//     "customer_key" without per-table header maps.
//   - Spec columns absent from the file yield nil cells; extra file columns
//     are ignored.
//
// Errors:
//   - *source.DataNotFoundError when neither the primary nor any fallback
//     file name exists, or the file cannot be opened.
func (d *Dir) ReadTable(ctx context.Context, spec source.TableSpec) (*dataset.Table, error) {
	f, path, err := d.open(spec)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = d.comma
	cr.ReuseRecord = true
	cr.LazyQuotes = d.lazyQuotes
	cr.FieldsPerRecord = -1

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return nil, &source.DataNotFoundError{
			Table: spec.Name,
			Path:  path,
			Err:   fmt.Errorf("read header: %w", err),
		}
	}

	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		srcToIdx[h] = i
		srcToIdx[normalizeHeader(h)] = i
	}

	colIx := make([]int, len(spec.Columns))
	for t, c := range spec.Columns {
		colIx[t] = -1
		if c.Source != "" {
			if si, ok := srcToIdx[c.Source]; ok {
				colIx[t] = si
				continue
			}
		}
		if si, ok := srcToIdx[c.Name]; ok {
			colIx[t] = si
		}
	}

	out, err := dataset.New(spec.ColumnNames())
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csvdir: %s line %d: %w", path, line, err)
		}

		row := make([]any, len(spec.Columns))
		for t := range spec.Columns {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				continue
			}
			v := rec[si]
			if d.trimSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[t] = v
			}
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
}

// open tries the primary file name, then the fallbacks.
func (d *Dir) open(spec source.TableSpec) (*os.File, string, error) {
	names := append([]string{spec.File}, spec.AltFiles...)

	var firstPath string
	for i, name := range names {
		if name == "" {
			continue
		}
		path := filepath.Join(d.dir, name)
		if i == 0 {
			firstPath = path
		}
		f, err := os.Open(path)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", &source.DataNotFoundError{Table: spec.Name, Path: path, Err: err}
		}
	}
	return nil, "", &source.DataNotFoundError{
		Table: spec.Name,
		Path:  firstPath,
		Err:   fs.ErrNotExist,
	}
}

// normalizeHeader lowercases a header and replaces spaces with underscores,
// the same canonical form the warehouse schema uses.
func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}
