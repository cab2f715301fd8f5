// Package merge combines the per-location session outputs of a fan-out run
// into one deduplicated table tagged with State and City.
package merge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
)

const (
	StateColumn = "State"
	CityColumn  = "City"

	// combinedPrefix names the merge output, which Merge never reads back.
	combinedPrefix = "combined_data_"
)

// InputError reports an output file that could not be merged.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("merge input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ErrDepth is wrapped by an InputError for files not laid out as State/City/file.
var ErrDepth = errors.New("expected <State>/<City>/<file> below the merge root")

type Options struct {
	Ext    string // default .xlsx
	Now    func() time.Time
	Logger *log.Logger
}

type Result struct {
	Table  export.Table
	Files  []string // files merged, in walk order
	Output string   // combined file path
	Errors []*InputError
}

// FindFiles lists every file under root with the given extension, sorted,
// skipping previous combined outputs.
func FindFiles(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if strings.HasPrefix(d.Name(), combinedPrefix) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Merge reads every output file under root, tags its rows with the State
// and City taken from its directory, and writes the deduplicated union to
// root/combined_data_<YYYY_MM_DD><ext>. Bad files are skipped and reported
// in Result.Errors.
func Merge(root string, opts Options) (*Result, error) {
	ext := opts.Ext
	if ext == "" {
		ext = export.ExtXLSX
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !export.Supported(ext) {
		return nil, fmt.Errorf("unsupported merge format: %s", ext)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	files, err := FindFiles(root, ext)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var tables []export.Table
	for _, path := range files {
		t, err := readTagged(root, path)
		if err != nil {
			ie := &InputError{Path: path, Err: err}
			res.Errors = append(res.Errors, ie)
			logger.Printf("MERGE_SKIP file=%s err=%v", path, err)
			continue
		}
		tables = append(tables, t)
		res.Files = append(res.Files, path)
	}

	res.Table = Dedup(Union(tables))
	res.Output = filepath.Join(root, combinedPrefix+now().Format("2006_01_02")+ext)
	if err := export.Write(res.Output, res.Table); err != nil {
		return res, fmt.Errorf("writing combined file: %w", err)
	}
	logger.Printf("MERGE_DONE files=%d skipped=%d rows=%d output=%s",
		len(res.Files), len(res.Errors), len(res.Table.Rows), res.Output)
	return res, nil
}

// LocationOf returns the State and City encoded in path, which must sit
// exactly two directories below root.
func LocationOf(root, path string) (state, city string, err error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[0] == ".." {
		return "", "", ErrDepth
	}
	return strings.ReplaceAll(parts[0], "_", " "), strings.ReplaceAll(parts[1], "_", " "), nil
}

func readTagged(root, path string) (export.Table, error) {
	state, city, err := LocationOf(root, path)
	if err != nil {
		return export.Table{}, err
	}
	t, err := export.Read(path)
	if err != nil {
		return export.Table{}, err
	}
	if len(t.Header) == 0 {
		return export.Table{}, errors.New("missing header row")
	}
	t = Dedup(t)

	tagged := export.Table{Header: append(append([]string(nil), t.Header...), StateColumn, CityColumn)}
	for _, row := range t.Rows {
		tagged.Rows = append(tagged.Rows, append(append([]string(nil), row...), state, city))
	}
	return tagged, nil
}

// Union stacks tables, aligning columns by header name. Columns appear in
// first-seen order; cells a table lacks are empty.
func Union(tables []export.Table) export.Table {
	var out export.Table
	pos := map[string]int{}
	for _, t := range tables {
		for _, h := range t.Header {
			if _, ok := pos[h]; !ok {
				pos[h] = len(out.Header)
				out.Header = append(out.Header, h)
			}
		}
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			cells := make([]string, len(out.Header))
			for i, h := range t.Header {
				if i < len(row) {
					cells[pos[h]] = row[i]
				}
			}
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// Dedup drops rows identical to an earlier row, keeping first occurrences.
func Dedup(t export.Table) export.Table {
	out := export.Table{Header: t.Header}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// rowKey length-prefixes every cell so no cell content can forge a boundary.
func rowKey(row []string) string {
	var b strings.Builder
	for _, c := range row {
		b.WriteString(strconv.Itoa(len(c)))
		b.WriteByte(':')
		b.WriteString(c)
	}
	return b.String()
}
