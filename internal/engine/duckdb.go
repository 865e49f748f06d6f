package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/chrissnell/tripcharts/internal/tabular"
	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

const duckdbTripQuery = `
		SELECT
			tpep_pickup_datetime,
			trip_distance,
			tip_amount,
			-- day of week, 0 = Sunday .. 6 = Saturday
			CAST(strftime(CAST(tpep_pickup_datetime AS TIMESTAMP), '%%w') AS INTEGER) AS pickup_day_of_week,
			-- hour, 00-23
			CAST(strftime(CAST(tpep_pickup_datetime AS TIMESTAMP), '%%H') AS INTEGER) AS pickup_hour
		FROM %s
		WHERE tpep_pickup_datetime IS NOT NULL
		LIMIT ?
	`

// DuckDB registers files through DuckDB's own CSV and Parquet readers
type DuckDB struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewDuckDB opens the DuckDB database at path; an empty path or ":memory:"
// keeps it in memory.
func NewDuckDB(path string, logger *zap.SugaredLogger) (*DuckDB, error) {
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB database: %w", err)
	}

	return &DuckDB{db: db, logger: logger}, nil
}

// Dialect returns the DuckDB trip query dialect
func (d *DuckDB) Dialect() Dialect {
	return Dialect{Name: "duckdb", TripQuery: duckdbTripQuery}
}

// QueryContext runs query against the database
func (d *DuckDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// Close closes the database
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// Register replaces table in one CREATE OR REPLACE statement over all files
func (d *DuckDB) Register(ctx context.Context, table string, files []File) error {
	stmt, err := duckdbRegisterStatement(table, files)
	if err != nil {
		return err
	}

	d.logger.Debugf("registering table %s: %s", table, stmt)
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to register table %s: %w", table, err)
	}

	d.logger.Infof("registered %d file(s) as table %s", len(files), table)
	return nil
}

func duckdbRegisterStatement(table string, files []File) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	format := files[0].Format
	paths := make([]string, len(files))
	for i, f := range files {
		if f.Format != format {
			return "", fmt.Errorf("%w: %s is %s, expected %s", ErrMixedFormats, f.Path, f.Format, format)
		}
		paths[i] = quoteLiteral(f.Path)
	}
	list := "[" + strings.Join(paths, ", ") + "]"

	var reader string
	switch format {
	case tabular.FormatCSV:
		reader = fmt.Sprintf("read_csv_auto(%s, header = true)", list)
	case tabular.FormatParquet:
		reader = fmt.Sprintf("read_parquet(%s)", list)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", QuoteIdent(table), reader), nil
}
