package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	tickSize    = 6
	tickPadding = 3
)

var axisColor = drawing.ColorFromHex("000000")

// tick is an axis label placed at a pixel coordinate
type tick struct {
	at    float64
	label string
}

// plot is an SVG canvas the size of a surface.  Axes sit on the left and
// bottom edges of the plot area; the margins hold tick labels and captions.
type plot struct {
	r             chart.Renderer
	width, height int
	m             Margins
	area          Layout
}

func newPlot(width, height int, m Margins) (*plot, error) {
	r, err := chart.SVG(width, height)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("loading chart font: %w", err)
	}
	r.SetFont(font)

	return &plot{r: r, width: width, height: height, m: m, area: NewLayout(width, height, m)}, nil
}

func (p *plot) top() float64    { return float64(p.m.Top) }
func (p *plot) bottom() float64 { return float64(p.m.Top + p.area.Height) }
func (p *plot) left() float64   { return float64(p.m.Left) }
func (p *plot) right() float64  { return float64(p.m.Left + p.area.Width) }

// xScale maps d across the plot area, left to right
func (p *plot) xScale(d Domain) Linear {
	return Linear{Domain: d, From: p.left(), To: p.right()}
}

// yScale maps d up the plot area, so larger values sit higher
func (p *plot) yScale(d Domain) Linear {
	return Linear{Domain: d, From: p.bottom(), To: p.top()}
}

// band spreads labels across the plot width
func (p *plot) band(labels []string, padding float64) Band {
	return Band{Labels: labels, Extent: float64(p.area.Width), Padding: padding}
}

// linearTicks places chart ticks with scale s
func linearTicks(s Linear, ticks []chart.Tick) []tick {
	out := make([]tick, len(ticks))
	for i, t := range ticks {
		out[i] = tick{at: s.Map(t.Value), label: t.Label}
	}
	return out
}

func (p *plot) stroke(c drawing.Color, width float64) {
	p.r.ResetStyle()
	p.r.SetStrokeColor(c)
	p.r.SetStrokeWidth(width)
}

func (p *plot) text() {
	p.r.ResetStyle()
	p.r.SetFontColor(chart.DefaultTextColor)
	p.r.SetFontSize(chart.DefaultAxisFontSize)
}

// bottomAxis draws the domain line along the bottom of the plot area with
// ticks pointing down and labels centred under them.
func (p *plot) bottomAxis(ticks []tick) {
	y := px(p.bottom())

	p.stroke(axisColor, 1)
	p.r.MoveTo(px(p.left()), y)
	p.r.LineTo(px(p.right()), y)
	for _, t := range ticks {
		p.r.MoveTo(px(t.at), y)
		p.r.LineTo(px(t.at), y+tickSize)
	}
	p.r.Stroke()

	p.text()
	for _, t := range ticks {
		b := p.r.MeasureText(t.label)
		p.r.Text(t.label, px(t.at)-b.Width()/2, y+tickSize+tickPadding+int(float64(b.Height())*0.71))
	}
}

// leftAxis draws the domain line along the left of the plot area with ticks
// pointing left and labels right-aligned against them.
func (p *plot) leftAxis(ticks []tick) {
	x := px(p.left())

	p.stroke(axisColor, 1)
	p.r.MoveTo(x, px(p.top()))
	p.r.LineTo(x, px(p.bottom()))
	for _, t := range ticks {
		p.r.MoveTo(x, px(t.at))
		p.r.LineTo(x-tickSize, px(t.at))
	}
	p.r.Stroke()

	p.text()
	for _, t := range ticks {
		b := p.r.MeasureText(t.label)
		p.r.Text(t.label, x-tickSize-tickPadding-b.Width(), px(t.at)+int(float64(b.Height())*0.32))
	}
}

// captions names the axes: x centred in the bottom margin, y rotated and
// centred in the left margin.
func (p *plot) captions(x, y string) {
	p.text()

	xb := p.r.MeasureText(x)
	p.r.Text(x, px(p.left()+float64(p.area.Width)/2)-xb.Width()/2, p.height-p.m.Bottom/2+10)

	yb := p.r.MeasureText(y)
	p.r.SetTextRotation(-math.Pi / 2)
	p.r.Text(y, p.m.Left/2-10, p.height/2+yb.Width()/2)
	p.r.ClearTextRotation()
}

// point draws one mark of pointRadius at (x, y).  A zero stroke color leaves
// the outline off.
func (p *plot) point(x, y float64, fill, stroke drawing.Color) {
	p.r.ResetStyle()
	p.r.SetFillColor(fill)
	if !stroke.IsZero() {
		p.r.SetStrokeColor(stroke)
		p.r.SetStrokeWidth(1)
	}
	p.r.Circle(pointRadius, px(x), px(y))
}

// rect fills the rectangle spanning (x0, y0) to (x1, y1)
func (p *plot) rect(x0, y0, x1, y1 float64, fill drawing.Color) {
	p.r.ResetStyle()
	p.r.SetFillColor(fill)
	p.r.MoveTo(px(x0), px(y0))
	p.r.LineTo(px(x1), px(y0))
	p.r.LineTo(px(x1), px(y1))
	p.r.LineTo(px(x0), px(y1))
	p.r.Close()
	p.r.Fill()
}

// polyline strokes a path through xs and ys
func (p *plot) polyline(xs, ys []float64, c drawing.Color, width float64) {
	if len(xs) == 0 {
		return
	}
	p.stroke(c, width)
	p.r.MoveTo(px(xs[0]), px(ys[0]))
	for i := 1; i < len(xs); i++ {
		p.r.LineTo(px(xs[i]), px(ys[i]))
	}
	p.r.Stroke()
}

func (p *plot) svg() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func px(v float64) int {
	return int(math.Round(v))
}
