package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
)

// Margins is the space reserved around the plot area for axes and captions
type Margins struct {
	Left, Right, Top, Bottom int
}

// DefaultMargins are shared by all three charts
var DefaultMargins = Margins{Left: 50, Right: 25, Top: 25, Bottom: 50}

// Layout is the plot area left on a surface once margins are removed
type Layout struct {
	Width, Height int
	Margins       Margins
}

// NewLayout computes the plot area for a surface of width x height
func NewLayout(width, height int, m Margins) Layout {
	return Layout{
		Width:   max(width-m.Left-m.Right, 0),
		Height:  max(height-m.Top-m.Bottom, 0),
		Margins: m,
	}
}

// Domain is a closed numeric interval
type Domain struct {
	Min, Max float64
}

// Extent returns the minimum and maximum of values.  A single distinct value is
// widened by one unit on each side so the domain never collapses.
func Extent(values []float64) Domain {
	if len(values) == 0 {
		return Domain{Min: 0, Max: 1}
	}
	return Domain{Min: floats.Min(values), Max: floats.Max(values)}.nonDegenerate()
}

// ZeroTo returns [0, max(values) * 1.1]
func ZeroTo(values []float64) Domain {
	if len(values) == 0 {
		return Domain{Min: 0, Max: 1}
	}
	top := floats.Max(values) * 1.1
	if top <= 0 {
		top = 1
	}
	return Domain{Min: 0, Max: top}
}

func (d Domain) nonDegenerate() Domain {
	if d.Max > d.Min {
		return d
	}
	if d.Max == 0 {
		return Domain{Min: d.Min, Max: 1}
	}
	return Domain{Min: d.Min - 1, Max: d.Max + 1}
}

// Linear maps a domain onto pixel coordinates
type Linear struct {
	Domain   Domain
	From, To float64
}

// Map returns the coordinate of v
func (s Linear) Map(v float64) float64 {
	span := s.Domain.Max - s.Domain.Min
	if span == 0 {
		return s.From
	}
	return s.From + (v-s.Domain.Min)/span*(s.To-s.From)
}

// Band divides a pixel range into equal bands separated by a padding fraction
type Band struct {
	Labels  []string
	Extent  float64
	Padding float64
}

// Step is the distance between the starts of adjacent bands
func (b Band) Step() float64 {
	n := float64(len(b.Labels))
	return b.Extent / math.Max(1, n-b.Padding+2*b.Padding)
}

// Bandwidth is the width of a single band
func (b Band) Bandwidth() float64 {
	return b.Step() * (1 - b.Padding)
}

// Position returns the start of the band for label, or -1 when label is unknown
func (b Band) Position(label string) float64 {
	for i, l := range b.Labels {
		if l == label {
			return b.Step()*b.Padding + float64(i)*b.Step()
		}
	}
	return -1
}

// Ticks returns about n evenly spaced ticks on round values covering d
func Ticks(d Domain, n int) []chart.Tick {
	if n < 2 || math.IsNaN(d.Min) || math.IsNaN(d.Max) {
		return nil
	}

	step := tickStep(d.Max-d.Min, n)
	decimals := max(0, int(-math.Floor(math.Log10(step))))

	var ticks []chart.Tick
	first := math.Ceil(d.Min / step)
	for i := first; i*step <= d.Max+step/1e6; i++ {
		v := i * step
		ticks = append(ticks, chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', decimals, 64)})
	}
	return ticks
}

// IntegerTicks labels every whole number in d
func IntegerTicks(d Domain) []chart.Tick {
	var ticks []chart.Tick
	for v := math.Ceil(d.Min); v <= d.Max; v++ {
		ticks = append(ticks, chart.Tick{Value: v, Label: fmt.Sprintf("%d", int(v))})
	}
	return ticks
}

// tickStep picks 1, 2 or 5 times a power of ten so that span/step is close to n
func tickStep(span float64, n int) float64 {
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r >= 7.07:
		return 10 * mag
	case r >= 3.16:
		return 5 * mag
	case r >= 1.41:
		return 2 * mag
	}
	return mag
}
