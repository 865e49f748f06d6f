package tripstats

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/chrissnell/tripcharts/internal/types"
)

func trip(dow, hour int, tip float64) types.TripRecord {
	return types.TripRecord{PickupDayOfWeek: dow, PickupHour: hour, TipAmount: tip}
}

func TestClassifyDay(t *testing.T) {
	expected := map[int]string{
		0: DayTypeWeekend,
		1: DayTypeWeekday,
		2: DayTypeWeekday,
		3: DayTypeWeekday,
		4: DayTypeWeekday,
		5: DayTypeWeekday,
		6: DayTypeWeekend,
	}
	for dow, want := range expected {
		if got := ClassifyDay(dow); got != want {
			t.Errorf("ClassifyDay(%d) = %q, expected %q", dow, got, want)
		}
	}
}

func TestCountByDayType(t *testing.T) {
	tests := []struct {
		name     string
		trips    []types.TripRecord
		expected []types.DayTypeCount
	}{
		{
			name:     "mixed days",
			trips:    []types.TripRecord{trip(0, 3, 2.0), trip(1, 3, 4.0), trip(6, 10, 1.0)},
			expected: []types.DayTypeCount{{DayType: DayTypeWeekday, Count: 1}, {DayType: DayTypeWeekend, Count: 2}},
		},
		{
			name:     "weekend discovered first still sorts after weekday",
			trips:    []types.TripRecord{trip(6, 1, 0), trip(0, 1, 0), trip(3, 1, 0)},
			expected: []types.DayTypeCount{{DayType: DayTypeWeekday, Count: 1}, {DayType: DayTypeWeekend, Count: 2}},
		},
		{
			name:     "no weekend trips omits the weekend entry",
			trips:    []types.TripRecord{trip(1, 0, 0), trip(2, 0, 0)},
			expected: []types.DayTypeCount{{DayType: DayTypeWeekday, Count: 2}},
		},
		{
			name:     "only weekend trips",
			trips:    []types.TripRecord{trip(0, 0, 0)},
			expected: []types.DayTypeCount{{DayType: DayTypeWeekend, Count: 1}},
		},
		{
			name:     "empty input",
			trips:    nil,
			expected: []types.DayTypeCount{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountByDayType(tt.trips)
			if got == nil {
				t.Fatal("CountByDayType returned nil, expected an empty slice")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("CountByDayType = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func randomTrips(r *rand.Rand, n int) []types.TripRecord {
	trips := make([]types.TripRecord, n)
	for i := range trips {
		trips[i] = trip(r.Intn(7), r.Intn(24), math.Round((r.Float64()*20-2)*100)/100)
	}
	return trips
}

func TestCountByDayTypeSumsToInput(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		trips := randomTrips(r, 1+r.Intn(500))

		total := 0
		for _, c := range CountByDayType(trips) {
			total += c.Count
		}
		if total != len(trips) {
			t.Errorf("counts sum = %d, expected %d", total, len(trips))
		}
	}
}

func TestCountByDayTypeOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	trips := randomTrips(r, 300)
	want := CountByDayType(trips)

	for i := 0; i < 10; i++ {
		shuffled := append([]types.TripRecord(nil), trips...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := CountByDayType(shuffled); !reflect.DeepEqual(got, want) {
			t.Errorf("permuted CountByDayType = %+v, expected %+v", got, want)
		}
	}
}

func TestAverageTipByHour(t *testing.T) {
	tests := []struct {
		name     string
		trips    []types.TripRecord
		expected []types.HourlyTip
	}{
		{
			name:     "two hours",
			trips:    []types.TripRecord{trip(0, 3, 2.0), trip(1, 3, 4.0), trip(6, 10, 1.0)},
			expected: []types.HourlyTip{{Hour: 3, AverageTip: 3.0}, {Hour: 10, AverageTip: 1.0}},
		},
		{
			name:     "negative tips are included",
			trips:    []types.TripRecord{trip(2, 5, -2.0), trip(2, 5, 4.0)},
			expected: []types.HourlyTip{{Hour: 5, AverageTip: 1.0}},
		},
		{
			name:     "unsorted input hours",
			trips:    []types.TripRecord{trip(2, 23, 1.0), trip(2, 0, 2.0), trip(2, 12, 3.0)},
			expected: []types.HourlyTip{{Hour: 0, AverageTip: 2.0}, {Hour: 12, AverageTip: 3.0}, {Hour: 23, AverageTip: 1.0}},
		},
		{
			name:     "empty input",
			trips:    []types.TripRecord{},
			expected: []types.HourlyTip{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageTipByHour(tt.trips)
			if got == nil {
				t.Fatal("AverageTipByHour returned nil, expected an empty slice")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("AverageTipByHour = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestAverageTipByHourMatchesMean(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	trips := randomTrips(r, 1000)

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, tr := range trips {
		sums[tr.PickupHour] += tr.TipAmount
		counts[tr.PickupHour]++
	}

	got := AverageTipByHour(trips)
	if len(got) != len(counts) {
		t.Fatalf("len(AverageTipByHour) = %d, expected %d", len(got), len(counts))
	}

	for i, h := range got {
		if i > 0 && h.Hour <= got[i-1].Hour {
			t.Errorf("hour %d follows %d; output must be strictly ascending", h.Hour, got[i-1].Hour)
		}
		n, ok := counts[h.Hour]
		if !ok {
			t.Errorf("hour %d not present in input", h.Hour)
			continue
		}
		want := sums[h.Hour] / float64(n)
		if math.Abs(h.AverageTip-want) > 1e-9 {
			t.Errorf("AverageTip(%d) = %.12f, expected %.12f", h.Hour, h.AverageTip, want)
		}
	}
}
