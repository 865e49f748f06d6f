package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/tripcharts/internal/engine"
	"github.com/chrissnell/tripcharts/internal/tabular"
	"go.uber.org/zap"
)

// RequiredColumns must be present in every source
var RequiredColumns = []string{"tpep_pickup_datetime", "trip_distance", "tip_amount"}

// Loader registers the union of the configured sources as one engine table
type Loader struct {
	engine    engine.Engine
	fetcher   *Fetcher
	table     string
	locations []string
	logger    *zap.SugaredLogger
}

// LoadResult describes a completed registration
type LoadResult struct {
	Table    string
	Files    int
	Duration time.Duration
}

// NewLoader creates a loader for table fed from locations
func NewLoader(e engine.Engine, fetcher *Fetcher, table string, locations []string, logger *zap.SugaredLogger) *Loader {
	return &Loader{
		engine:    e,
		fetcher:   fetcher,
		table:     table,
		locations: locations,
		logger:    logger,
	}
}

// Table returns the name the dataset is registered under
func (l *Loader) Table() string {
	return l.table
}

// Load stages every source, verifies they share one schema and registers them.
// Any unreachable or incompatible source aborts the whole load.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	start := time.Now()

	sources, err := ParseSources(l.locations)
	if err != nil {
		return nil, err
	}

	staged, err := l.fetcher.Stage(ctx, sources)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := staged.Cleanup(); err != nil {
			l.logger.Warnf("could not remove staged files: %v", err)
		}
	}()

	if err := CheckSchemas(staged.Files); err != nil {
		return nil, err
	}

	if err := l.engine.Register(ctx, l.table, staged.Files); err != nil {
		return nil, err
	}

	result := &LoadResult{
		Table:    l.table,
		Files:    len(staged.Files),
		Duration: time.Since(start),
	}
	l.logger.Infof("loaded %d source file(s) into %s in %v", result.Files, result.Table, result.Duration)
	return result, nil
}

// CheckSchemas verifies that every CSV file carries the required columns and
// that all of them agree on the column set.  Parquet files are left to the
// engine, which reads their embedded schema.
func CheckSchemas(files []engine.File) error {
	var first []string
	var firstPath string

	for _, f := range files {
		if f.Format != tabular.FormatCSV {
			continue
		}

		columns, err := tabular.ReadHeader(f.Path)
		if err != nil {
			return err
		}

		if missing := tabular.Missing(columns, RequiredColumns); len(missing) > 0 {
			return fmt.Errorf("%w: %s is missing required columns %v", tabular.ErrSchemaMismatch, f.Path, missing)
		}

		if first == nil {
			first, firstPath = columns, f.Path
			continue
		}
		if !tabular.SameColumns(first, columns) {
			return fmt.Errorf("%w: %s has columns %v but %s has %v", tabular.ErrSchemaMismatch, f.Path, columns, firstPath, first)
		}
	}
	return nil
}
