// Package tabular reads delimited trip extracts from local files, transparently
// decompressing gzip.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/klauspost/compress/gzip"
)

// Format identifies how a source file is encoded
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

var (
	// ErrUnknownFormat is returned for files whose extension maps to no known format
	ErrUnknownFormat = errors.New("unknown source file format")
	// ErrSchemaMismatch is returned when files meant to be unioned disagree on columns
	ErrSchemaMismatch = errors.New("source schemas do not match")
)

// Frame is a fully decoded CSV file: its header and its records as strings
type Frame struct {
	Columns []string
	Records [][]string
}

// DetectFormat infers the format of path from its extension, ignoring a trailing .gz
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// IsGzip reports whether path names a gzip-compressed file
func IsGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// Open opens path for reading, wrapping it in a gzip reader when the name ends in .gz
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsGzip(path) {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	ferr := g.file.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// ReadHeader returns the column names of a CSV file without decoding its body
func ReadHeader(path string) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, err := csv.NewReader(rc).Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return header, nil
}

// ReadFrame decodes a whole CSV file.  Every column is kept as a string so the
// engine decides typing.
func ReadFrame(path string) (*Frame, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	df := dataframe.ReadCSV(rc,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%s: decoding csv: %w", path, df.Err)
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: file is empty", path)
	}

	columns := records[0]
	for i := range columns {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(columns[i], "\ufeff"))
	}

	return &Frame{Columns: columns, Records: records[1:]}, nil
}

// Missing returns the names in required that are absent from columns
func Missing(columns, required []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// SameColumns reports whether a and b hold the same column names, ignoring order
func SameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(Missing(a, b)) == 0
}
