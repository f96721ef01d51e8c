// Package plot prepares causer pays data for charts: axis limits and ticks,
// per-element series, frequency band reference lines, and rendering of line
// charts into XLSX workbooks.
package plot

// Axis is the visible range of one chart axis.
type Axis struct {
	Lower float64
	Upper float64
}

// Relimit shifts an axis. The lower limit always moves by lowerOffset; the
// upper limit moves by upperOffset from the old upper limit, or is placed
// upperOffset above the new lower limit when fromNewLower is set.
func Relimit(a Axis, lowerOffset, upperOffset float64, fromNewLower bool) Axis {
	lower := a.Lower + lowerOffset
	upper := a.Upper + upperOffset
	if fromNewLower {
		upper = lower + upperOffset
	}
	return Axis{Lower: lower, Upper: upper}
}

// RangeTicks returns n evenly spaced ticks across the axis, limits included.
func RangeTicks(a Axis, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{a.Lower}
	}
	ticks := make([]float64, n)
	step := (a.Upper - a.Lower) / float64(n-1)
	for i := range ticks {
		ticks[i] = a.Lower + float64(i)*step
	}
	ticks[n-1] = a.Upper
	return ticks
}

// AxisStyle is the shared look of an axis.
type AxisStyle struct {
	TitleSize float64
	LabelSize float64
	TickSize  float64
	// Rotation is the label rotation in degrees.
	Rotation int
	Grid     bool
}

// DefaultAxisStyle returns the house style.
func DefaultAxisStyle() AxisStyle {
	return AxisStyle{
		TitleSize: 10,
		LabelSize: 10,
		TickSize:  8,
		Rotation:  70,
		Grid:      true,
	}
}

// Legend places a chart legend. BBox is (x0, y0) or (x0, y0, w, h) in axes
// coordinates; values outside [0, 1] put the legend outside the plot.
type Legend struct {
	BBox     []float64
	Loc      string
	Cols     int
	FontSize float64
	Mode     string
}

// NewLegend returns a legend that expands across its bounding box.
func NewLegend(bbox []float64, loc string, cols int, fontSize float64) Legend {
	return Legend{
		BBox:     append([]float64(nil), bbox...),
		Loc:      loc,
		Cols:     cols,
		FontSize: fontSize,
		Mode:     "expand",
	}
}
