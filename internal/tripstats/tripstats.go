// Package tripstats turns a flat set of trip records into the aggregate series
// the charts are drawn from.
package tripstats

import (
	"sort"

	"github.com/chrissnell/tripcharts/internal/types"
	"gonum.org/v1/gonum/stat"
)

const (
	DayTypeWeekday = "Weekday"
	DayTypeWeekend = "Weekend"
)

// dayTypeOrder fixes the category order charts see, regardless of discovery order
var dayTypeOrder = []string{DayTypeWeekday, DayTypeWeekend}

// ClassifyDay maps a day of week (0 = Sunday .. 6 = Saturday) to its day type
func ClassifyDay(dayOfWeek int) string {
	if dayOfWeek == 0 || dayOfWeek == 6 {
		return DayTypeWeekend
	}
	return DayTypeWeekday
}

// CountByDayType counts trips per day type.  Categories with no trips are left out
// of the result; Weekday always precedes Weekend.
func CountByDayType(trips []types.TripRecord) []types.DayTypeCount {
	counts := make(map[string]int, len(dayTypeOrder))
	for _, t := range trips {
		counts[ClassifyDay(t.PickupDayOfWeek)]++
	}

	result := make([]types.DayTypeCount, 0, len(counts))
	for _, dayType := range dayTypeOrder {
		if n, ok := counts[dayType]; ok {
			result = append(result, types.DayTypeCount{DayType: dayType, Count: n})
		}
	}
	return result
}

// AverageTipByHour returns the mean tip for every pickup hour present in trips,
// ascending by hour.  Negative tips are averaged as-is.
func AverageTipByHour(trips []types.TripRecord) []types.HourlyTip {
	tipsByHour := make(map[int][]float64)
	for _, t := range trips {
		tipsByHour[t.PickupHour] = append(tipsByHour[t.PickupHour], t.TipAmount)
	}

	hours := make([]int, 0, len(tipsByHour))
	for h := range tipsByHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	result := make([]types.HourlyTip, 0, len(hours))
	for _, h := range hours {
		result = append(result, types.HourlyTip{
			Hour:       h,
			AverageTip: stat.Mean(tipsByHour[h], nil),
		})
	}
	return result
}
