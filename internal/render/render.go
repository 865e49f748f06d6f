// Package render draws the trip charts as SVG onto the surface board.
package render

import (
	"errors"
	"fmt"

	"github.com/chrissnell/tripcharts/internal/surface"
	"github.com/chrissnell/tripcharts/internal/tripstats"
	"github.com/chrissnell/tripcharts/internal/types"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
)

// Axis captions
const (
	CaptionDistance = "Distância da Viagem"
	CaptionTip      = "Valor da Gorjeta"
	CaptionDayType  = "Tipo de Dia"
	CaptionTrips    = "Número de Corridas"
	CaptionHour     = "Hora do Dia (24h)"
	CaptionAvgTip   = "Gorjeta Média"
)

// DayTypeLabels are the category names shown under each bar
var DayTypeLabels = map[string]string{
	tripstats.DayTypeWeekday: "Dia de Semana",
	tripstats.DayTypeWeekend: "Fim de Semana",
}

const (
	pointRadius      = 4
	bandPadding      = 0.1
	yTickCount       = 5
	defaultTickCount = 10
	lineWidth        = 2
)

var (
	markColor  = drawing.ColorFromHex("000000")
	lineColor  = drawing.ColorFromHex("006A71")
	pointColor = drawing.ColorFromHex("9ACBD0")
)

// Renderer draws the three trip charts onto their surfaces
type Renderer struct {
	board   *surface.Board
	margins Margins
	logger  *zap.SugaredLogger
}

// New creates a renderer drawing onto board
func New(board *surface.Board, logger *zap.SugaredLogger) *Renderer {
	return &Renderer{board: board, margins: DefaultMargins, logger: logger}
}

// TripTip draws tip amount against trip distance, one point per trip
func (r *Renderer) TripTip(trips []types.TripRecord) error {
	return r.draw(config.SurfaceTripTip, "trip/tip scatter", len(trips) == 0, func(p *plot) {
		xs := make([]float64, len(trips))
		ys := make([]float64, len(trips))
		for i, t := range trips {
			xs[i] = t.TripDistance
			ys[i] = t.TipAmount
		}
		xd, yd := Extent(xs), Extent(ys)
		x, y := p.xScale(xd), p.yScale(yd)

		p.bottomAxis(linearTicks(x, Ticks(xd, defaultTickCount)))
		p.leftAxis(linearTicks(y, Ticks(yd, defaultTickCount)))
		p.captions(CaptionDistance, CaptionTip)

		for i := range xs {
			p.point(x.Map(xs[i]), y.Map(ys[i]), markColor, drawing.Color{})
		}
	})
}

// DayTypes draws one bar per day type, weekday first
func (r *Renderer) DayTypes(counts []types.DayTypeCount) error {
	return r.draw(config.SurfaceWeekdayWeekend, "day type bar", len(counts) == 0, func(p *plot) {
		labels := make([]string, len(counts))
		values := make([]float64, len(counts))
		for i, c := range counts {
			labels[i] = dayTypeLabel(c.DayType)
			values[i] = float64(c.Count)
		}

		band := p.band(labels, bandPadding)
		yd := ZeroTo(values)
		y := p.yScale(yd)

		ticks := make([]tick, len(labels))
		for i, l := range labels {
			ticks[i] = tick{at: p.left() + band.Position(l) + band.Bandwidth()/2, label: l}
		}
		p.bottomAxis(ticks)
		p.leftAxis(linearTicks(y, Ticks(yd, yTickCount)))
		p.captions(CaptionDayType, CaptionTrips)

		for i, l := range labels {
			x0 := p.left() + band.Position(l)
			p.rect(x0, y.Map(values[i]), x0+band.Bandwidth(), p.bottom(), markColor)
		}
	})
}

// HourlyTips draws the average tip per hour as a line with a point on each hour
func (r *Renderer) HourlyTips(tips []types.HourlyTip) error {
	return r.draw(config.SurfaceTipTime, "hourly tip line", len(tips) == 0, func(p *plot) {
		hours := make([]float64, len(tips))
		avgs := make([]float64, len(tips))
		for i, t := range tips {
			hours[i] = float64(t.Hour)
			avgs[i] = t.AverageTip
		}
		xd, yd := Extent(hours), ZeroTo(avgs)
		x, y := p.xScale(xd), p.yScale(yd)

		p.bottomAxis(linearTicks(x, IntegerTicks(xd)))
		p.leftAxis(linearTicks(y, Ticks(yd, yTickCount)))
		p.captions(CaptionHour, CaptionAvgTip)

		xs := make([]float64, len(tips))
		ys := make([]float64, len(tips))
		for i := range tips {
			xs[i], ys[i] = x.Map(hours[i]), y.Map(avgs[i])
		}
		p.polyline(xs, ys, lineColor, lineWidth)
		for i := range xs {
			p.point(xs[i], ys[i], pointColor, lineColor)
		}
	})
}

// draw clears the surface and, unless there is nothing to show, renders the chart
// built for it.  A missing surface is only worth a warning.
func (r *Renderer) draw(id, name string, empty bool, build func(*plot)) error {
	s, err := r.board.Get(id)
	if errors.Is(err, surface.ErrSurfaceNotFound) {
		r.logger.Warnf("surface %s not found, skipping %s chart", id, name)
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.board.Clear(id); err != nil {
		return err
	}

	if empty {
		r.logger.Warnf("no data for %s chart, surface %s left blank", name, id)
		return nil
	}

	p, err := newPlot(s.Width, s.Height, r.margins)
	if err != nil {
		return fmt.Errorf("rendering %s chart: %w", name, err)
	}
	build(p)

	content, err := p.svg()
	if err != nil {
		return fmt.Errorf("rendering %s chart: %w", name, err)
	}

	r.logger.Debugf("drew %s chart on %s (%d bytes)", name, id, len(content))
	return r.board.Draw(id, content)
}

func dayTypeLabel(dayType string) string {
	if l, ok := DayTypeLabels[dayType]; ok {
		return l
	}
	return dayType
}
