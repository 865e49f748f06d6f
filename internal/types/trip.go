// Package types holds the record and aggregate shapes shared across the load,
// query, shaping and rendering stages.
package types

import "time"

// TripRecord is one row returned by the trip query.  PickupDayOfWeek (0 = Sunday)
// and PickupHour are computed by the engine from PickupTime and are only meaningful
// alongside it.
type TripRecord struct {
	PickupTime      time.Time `json:"tpep_pickup_datetime"`
	TripDistance    float64   `json:"trip_distance"`
	TipAmount       float64   `json:"tip_amount"`
	PickupDayOfWeek int       `json:"pickup_day_of_week"`
	PickupHour      int       `json:"pickup_hour"`
}

// DayTypeCount is the number of trips whose pickup day falls into DayType
type DayTypeCount struct {
	DayType string `json:"day_type"`
	Count   int    `json:"count"`
}

// HourlyTip is the mean tip over all trips picked up during Hour
type HourlyTip struct {
	Hour       int     `json:"hour"`
	AverageTip float64 `json:"average_tip"`
}

// Aggregates bundles everything derived from one query result
type Aggregates struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        int            `json:"rows"`
	DayTypes    []DayTypeCount `json:"day_types"`
	HourlyTips  []HourlyTip    `json:"hourly_tips"`
}
