// Package engine wraps the embedded analytical databases the trip dataset is
// registered in.  Both implementations go through database/sql; they differ in how
// source files become a table and in the SQL dialect of the trip query.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chrissnell/tripcharts/internal/tabular"
	"github.com/chrissnell/tripcharts/pkg/config"
	"go.uber.org/zap"
)

var (
	// ErrNoFiles is returned when Register is called without any source file
	ErrNoFiles = errors.New("no source files to register")
	// ErrUnsupportedFormat is returned when an engine cannot read a file format
	ErrUnsupportedFormat = errors.New("file format not supported by engine")
	// ErrMixedFormats is returned when one registration mixes file formats
	ErrMixedFormats = errors.New("source files mix formats")
)

// File is a local, staged source file ready to be registered
type File struct {
	Path   string
	Format tabular.Format
}

// Dialect describes the SQL flavour of an engine
type Dialect struct {
	Name string
	// TripQuery selects the trip columns plus derived day-of-week and hour.
	// %s is the quoted table name and the single ? binds the row limit.
	TripQuery string
}

// Engine is an in-process database that can register files as a table and
// answer SQL against it.
type Engine interface {
	// Register replaces table with the union of files.  Either every file is
	// registered or the previous table is left untouched.
	Register(ctx context.Context, table string, files []File) error
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Dialect() Dialect
	Close() error
}

// New opens the engine selected by cfg
func New(cfg config.EngineData, logger *zap.SugaredLogger) (Engine, error) {
	switch cfg.Type {
	case config.EngineSQLite, "":
		return NewSQLite(cfg.Path, logger)
	case config.EngineDuckDB:
		return NewDuckDB(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", cfg.Type)
	}
}

// QuoteIdent quotes name as an SQL identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes s as an SQL string literal
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
