package charts

import (
	"math"
	"strconv"
	"strings"
)

// Margins around the plot area of the bar chart.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Bar chart layout.
const (
	BarChartWidth  = 860
	BarChartHeight = 360
	barPadding     = 0.25
	yTickCount     = 6
)

var barMargins = Margins{Top: 16, Right: 16, Bottom: 60, Left: 64}

// Bar is a laid-out rectangle for one category.
type Bar struct {
	X, Y, Width, Height float64
	Fill                string
	Title               string
}

// AxisLabel is a category label under its band.
type AxisLabel struct {
	X    float64
	Text string
}

// Tick is a labelled y-axis position.
type Tick struct {
	Y     float64
	Label string
}

// BarChart is the geometry of the budget-vs-actual chart. Coordinates of
// bars, ticks and labels are relative to the plot origin at Margins.
type BarChart struct {
	Width, Height float64
	Margins       Margins
	InnerWidth    float64
	InnerHeight   float64
	ZeroY         float64
	Domain        [2]float64
	Bars          []Bar
	Labels        []AxisLabel
	Ticks         []Tick
}

// ViewBox is the SVG viewBox attribute.
func (c BarChart) ViewBox() string {
	return "0 0 " + num(c.Width) + " " + num(c.Height)
}

// Translate is the transform moving the plot origin inside the margins.
func (c BarChart) Translate() string {
	return "translate(" + num(c.Margins.Left) + "," + num(c.Margins.Top) + ")"
}

// LayoutBars computes the diverging bar chart for data. Bars grow up from the
// zero line when money remains and down when the budget is overspent.
func LayoutBars(data []BudgetDatum, width, height float64) BarChart {
	m := barMargins
	c := BarChart{
		Width:       width,
		Height:      height,
		Margins:     m,
		InnerWidth:  math.Max(300, width-m.Left-m.Right),
		InnerHeight: math.Max(150, height-m.Top-m.Bottom),
	}

	maxAbs := 0.0
	for _, d := range data {
		maxAbs = math.Max(maxAbs, math.Abs(d.Remaining.Float()))
	}
	y := Linear{D0: -maxAbs, D1: maxAbs, R0: c.InnerHeight, R1: 0}.Nice(10)
	c.Domain = [2]float64{y.D0, y.D1}
	c.ZeroY = y.Scale(0)

	for _, v := range y.Ticks(yTickCount) {
		c.Ticks = append(c.Ticks, Tick{Y: y.Scale(v), Label: Compact(v)})
	}

	x := NewBand(len(data), 0, c.InnerWidth, barPadding)
	for i, d := range data {
		remaining := d.Remaining.Float()
		top := c.ZeroY
		if remaining >= 0 {
			top = y.Scale(remaining)
		}
		fill := ColorPositive
		if remaining < 0 {
			fill = ColorNegative
		}
		c.Bars = append(c.Bars, Bar{
			X:      x.X(i),
			Y:      top,
			Width:  x.Bandwidth(),
			Height: math.Abs(y.Scale(remaining) - c.ZeroY),
			Fill:   fill,
			Title:  d.Tooltip(),
		})
		c.Labels = append(c.Labels, AxisLabel{
			X:    x.X(i) + x.Bandwidth()/2,
			Text: d.Category,
		})
	}
	return c
}

// Gauge layout.
const (
	GaugeWidth  = 520
	GaugeHeight = 320
)

// Gauge is the geometry of the utilization ring.
type Gauge struct {
	Width, Height float64
	CX, CY        float64
	Radius        float64
	Inner         float64
	TrackPath     string
	ProgressPath  string
	Color         string
	Headline      string
	Caption       string
}

func (g Gauge) ViewBox() string {
	return "0 0 " + num(g.Width) + " " + num(g.Height)
}

func (g Gauge) Translate() string {
	return "translate(" + num(g.CX) + "," + num(g.CY) + ")"
}

// LayoutGauge computes a full-circle ring starting at 9 o'clock and filling
// clockwise in proportion to the clamped utilization.
func LayoutGauge(u Utilization, width, height float64) Gauge {
	radius := math.Min(width, height)/2 - 12
	inner := radius * 0.7
	start := -math.Pi / 2
	end := start + 2*math.Pi
	progress := start + u.Clamped()*2*math.Pi

	return Gauge{
		Width:        width,
		Height:       height,
		CX:           width / 2,
		CY:           height / 2,
		Radius:       radius,
		Inner:        inner,
		TrackPath:    annulus(inner, radius, start, end),
		ProgressPath: annulus(inner, radius, start, progress),
		Color:        u.Color(),
		Headline:     u.Headline(),
		Caption:      u.Caption(),
	}
}

const epsilon = 1e-6

// annulus returns the SVG path of a ring sector between angles a0 and a1,
// measured in radians clockwise from 12 o'clock.
func annulus(inner, outer, a0, a1 float64) string {
	sweep := a1 - a0
	if sweep <= epsilon || outer <= 0 {
		return ""
	}

	var b strings.Builder
	if sweep >= 2*math.Pi-epsilon {
		// A full ring is two half circles per edge, with the inner edge
		// drawn backwards to cut the hole.
		p0x, p0y := polar(outer, a0)
		p1x, p1y := polar(outer, a0+math.Pi)
		b.WriteString("M" + num(p0x) + "," + num(p0y))
		b.WriteString(arcTo(outer, 1, p1x, p1y))
		b.WriteString(arcTo(outer, 1, p0x, p0y))
		if inner > 0 {
			q0x, q0y := polar(inner, a0)
			q1x, q1y := polar(inner, a0+math.Pi)
			b.WriteString("M" + num(q0x) + "," + num(q0y))
			b.WriteString(arcTo(inner, 0, q1x, q1y))
			b.WriteString(arcTo(inner, 0, q0x, q0y))
		}
		b.WriteString("Z")
		return b.String()
	}

	large := 0
	if sweep > math.Pi {
		large = 1
	}
	sx, sy := polar(outer, a0)
	ex, ey := polar(outer, a1)
	b.WriteString("M" + num(sx) + "," + num(sy))
	b.WriteString("A" + num(outer) + "," + num(outer) + ",0," + strconv.Itoa(large) + ",1," + num(ex) + "," + num(ey))
	if inner > 0 {
		ix, iy := polar(inner, a1)
		jx, jy := polar(inner, a0)
		b.WriteString("L" + num(ix) + "," + num(iy))
		b.WriteString("A" + num(inner) + "," + num(inner) + ",0," + strconv.Itoa(large) + ",0," + num(jx) + "," + num(jy))
	} else {
		b.WriteString("L0,0")
	}
	b.WriteString("Z")
	return b.String()
}

func arcTo(r float64, sweepFlag int, x, y float64) string {
	return "A" + num(r) + "," + num(r) + ",0,1," + strconv.Itoa(sweepFlag) + "," + num(x) + "," + num(y)
}

// polar converts a clock angle to SVG coordinates around the origin.
func polar(r, a float64) (x, y float64) {
	return r * math.Sin(a), -r * math.Cos(a)
}

func num(f float64) string {
	f = math.Round(f*1000) / 1000
	if f == 0 {
		f = 0 // drop negative zero
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
