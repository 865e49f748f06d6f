package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/chrissnell/tripcharts/internal/tabular"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteTripQuery = `
		SELECT
			tpep_pickup_datetime,
			trip_distance,
			tip_amount,
			-- day of week, 0 = Sunday .. 6 = Saturday
			CAST(strftime('%%w', tpep_pickup_datetime) AS INTEGER) AS pickup_day_of_week,
			-- hour, 00-23
			CAST(strftime('%%H', tpep_pickup_datetime) AS INTEGER) AS pickup_hour
		FROM %s
		WHERE tpep_pickup_datetime IS NOT NULL
		LIMIT ?
	`

// SQLite is the default engine, backed by the pure-Go modernc.org/sqlite driver.
// Register holds one decoded file in memory at a time; full-year extracts
// belong on DuckDB.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// NewSQLite opens (or creates) the SQLite database at path.  An empty path or
// ":memory:" keeps everything in memory.
func NewSQLite(path string, logger *zap.SugaredLogger) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// An in-memory database lives inside one connection
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLite{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

// Dialect returns the SQLite trip query dialect
func (s *SQLite) Dialect() Dialect {
	return Dialect{Name: "sqlite", TripQuery: sqliteTripQuery}
}

// QueryContext runs query against the database
func (s *SQLite) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Register decodes every CSV file and inserts the rows into a freshly created
// table inside a single transaction.
func (s *SQLite) Register(ctx context.Context, table string, files []File) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	for _, f := range files {
		if f.Format != tabular.FormatCSV {
			return fmt.Errorf("%w: sqlite cannot read %s (%s)", ErrUnsupportedFormat, f.Path, f.Format)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		columns []string
		insert  *sql.Stmt
		total   int
	)

	for i, f := range files {
		frame, err := tabular.ReadFrame(f.Path)
		if err != nil {
			return err
		}

		if i == 0 {
			columns = frame.Columns
			if err := createTable(ctx, tx, table, columns); err != nil {
				return err
			}
			insert, err = tx.PrepareContext(ctx, insertStatement(table, columns))
			if err != nil {
				return fmt.Errorf("failed to prepare insert: %w", err)
			}
			defer insert.Close()
		} else if !tabular.SameColumns(columns, frame.Columns) {
			return fmt.Errorf("%w: %s has columns %v, expected %v", tabular.ErrSchemaMismatch, f.Path, frame.Columns, columns)
		}

		// Map this file's column order onto the table's
		position := make(map[string]int, len(frame.Columns))
		for j, c := range frame.Columns {
			position[c] = j
		}

		args := make([]any, len(columns))
		for _, rec := range frame.Records {
			for j, c := range columns {
				args[j] = nullIfEmpty(rec[position[c]])
			}
			if _, err := insert.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert row from %s: %w", f.Path, err)
			}
		}

		total += len(frame.Records)
		s.logger.Debugf("staged %d rows from %s into %s", len(frame.Records), f.Path, table)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", table, err)
	}

	s.logger.Infof("registered %d rows from %d file(s) as table %s", total, len(files), table)
	return nil
}

func createTable(ctx context.Context, tx *sql.Tx, table string, columns []string) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = QuoteIdent(c) + " " + sqliteColumnType(c)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", QuoteIdent(table), strings.Join(quoted, ", "), placeholders)
}

// sqliteColumnType keeps timestamps as ISO text, which strftime understands, and
// lets NUMERIC affinity convert everything else that looks like a number.
func sqliteColumnType(column string) string {
	c := strings.ToLower(column)
	if strings.Contains(c, "datetime") || strings.HasSuffix(c, "_date") || strings.HasSuffix(c, "_time") {
		return "TEXT"
	}
	return "NUMERIC"
}

func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
