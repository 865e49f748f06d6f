// Package query runs the trip query against the registered dataset.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/tripcharts/internal/engine"
	"github.com/chrissnell/tripcharts/internal/types"
	"go.uber.org/zap"
)

// ErrInvalidLimit is returned for a non-positive row limit
var ErrInvalidLimit = errors.New("row limit must be positive")

// pickupLayouts are the textual timestamp forms an engine may hand back
var pickupLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04",
}

// Executor issues the single trip query
type Executor struct {
	engine engine.Engine
	sql    string
	logger *zap.SugaredLogger
}

// NewExecutor prepares the trip query for table.  A non-empty override replaces
// the engine's default template and must bind the limit with a single ?.
func NewExecutor(e engine.Engine, table, override string, logger *zap.SugaredLogger) *Executor {
	text := override
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf(e.Dialect().TripQuery, engine.QuoteIdent(table))
	}
	return &Executor{engine: e, sql: text, logger: logger}
}

// SQL returns the statement the executor runs
func (x *Executor) SQL() string {
	return x.sql
}

// Trips runs the query and returns at most limit records in engine order.
// Errors are returned as-is; there is no retry.
func (x *Executor) Trips(ctx context.Context, limit int) ([]types.TripRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := x.engine.QueryContext(ctx, x.sql, limit)
	if err != nil {
		return nil, fmt.Errorf("trip query failed: %w", err)
	}
	defer rows.Close()

	trips := make([]types.TripRecord, 0, limit)
	skipped := 0
	for rows.Next() {
		var (
			pickup    any
			distance  sql.NullFloat64
			tip       sql.NullFloat64
			dayOfWeek sql.NullInt64
			hour      sql.NullInt64
		)
		if err := rows.Scan(&pickup, &distance, &tip, &dayOfWeek, &hour); err != nil {
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}

		// day of week and hour only mean something when derived from a timestamp
		if pickup == nil || !dayOfWeek.Valid || !hour.Valid {
			skipped++
			continue
		}

		pickupTime, err := parsePickup(pickup)
		if err != nil {
			return nil, err
		}

		trips = append(trips, types.TripRecord{
			PickupTime:      pickupTime,
			TripDistance:    distance.Float64,
			TipAmount:       tip.Float64,
			PickupDayOfWeek: int(dayOfWeek.Int64),
			PickupHour:      int(hour.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trip query failed: %w", err)
	}

	if skipped > 0 {
		x.logger.Warnf("skipped %d trips without a usable pickup time", skipped)
	}
	x.logger.Debugf("trip query returned %d rows (limit %d)", len(trips), limit)
	if len(trips) > 0 {
		x.logger.Debugw("first trip", "trip", trips[0])
	}

	return trips, nil
}

func parsePickup(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parsePickupText(t)
	case []byte:
		return parsePickupText(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected pickup timestamp type %T", v)
}

func parsePickupText(s string) (time.Time, error) {
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pickup timestamp %q", s)
}
