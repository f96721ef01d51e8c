package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// Figure is one chart and the series it draws.
type Figure struct {
	// Name is the worksheet name; at most 31 characters.
	Name   string
	Title  string
	XTitle string
	YTitle string
	Series []Series
	// YAxis fixes the value axis range when set.
	YAxis *Axis
	// XTicks is the number of category labels to show. Zero shows all.
	XTicks int
	Style  AxisStyle
	Legend Legend
}

const (
	chartWidth  = 960
	chartHeight = 480
)

// RenderXLSX writes every figure to its own sheet of a new workbook at path.
// Each series takes two columns of the sheet (x then y) and the chart is
// anchored to the right of the data.
func RenderXLSX(path string, figs ...Figure) error {
	if len(figs) == 0 {
		return fmt.Errorf("no figures to render")
	}
	w := registry.NewWorkbookWriter(path)
	defer w.Close()

	for i, fig := range figs {
		if fig.Name == "" {
			fig.Name = fmt.Sprintf("Figure%d", i+1)
		}
		if len(fig.Name) > 31 {
			fig.Name = fig.Name[:31]
		}
		if err := renderFigure(w, fig); err != nil {
			return fmt.Errorf("rendering %s: %w", fig.Name, err)
		}
	}
	return w.Save()
}

func renderFigure(w *registry.WorkbookWriter, fig Figure) error {
	if err := w.AddSheet(fig.Name); err != nil {
		return err
	}
	f := w.File()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: fig.Style.LabelSize},
		Alignment: &excelize.Alignment{TextRotation: fig.Style.Rotation},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	chart := &excelize.Chart{
		Type:      excelize.Line,
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: chartHeight},
		Legend:    excelize.ChartLegend{Position: legendPosition(fig.Legend)},
		XAxis: excelize.ChartAxis{
			MajorGridLines: fig.Style.Grid,
			Font:           excelize.Font{Size: fig.Style.TickSize},
			Title:          axisTitle(fig.XTitle, fig.Style.LabelSize),
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: fig.Style.Grid,
			Font:           excelize.Font{Size: fig.Style.TickSize},
			Title:          axisTitle(fig.YTitle, fig.Style.LabelSize),
		},
	}
	if fig.Title != "" {
		chart.Title = []excelize.RichTextRun{{Text: fig.Title, Font: &excelize.Font{Size: fig.Style.TitleSize}}}
	}
	if fig.YAxis != nil {
		lower, upper := fig.YAxis.Lower, fig.YAxis.Upper
		chart.YAxis.Minimum = &lower
		chart.YAxis.Maximum = &upper
	}

	longest := 0
	for i, s := range fig.Series {
		xCol, _ := excelize.ColumnNumberToName(2*i + 1)
		yCol, _ := excelize.ColumnNumberToName(2*i + 2)

		name := s.Name
		if name == "" {
			name = fmt.Sprintf("series %d", i+1)
		}
		if err := f.SetSheetRow(fig.Name, xCol+"1", &[]interface{}{name + " x", name}); err != nil {
			return fmt.Errorf("writing header of %s: %w", name, err)
		}
		if err := f.SetCellStyle(fig.Name, xCol+"1", yCol+"1", headerStyle); err != nil {
			return fmt.Errorf("styling header of %s: %w", name, err)
		}
		for r := range s.Y {
			row := []interface{}{nil, nil}
			if r < len(s.X) {
				row[0] = s.X[r]
			}
			if !math.IsNaN(s.Y[r]) {
				row[1] = s.Y[r]
			}
			if err := f.SetSheetRow(fig.Name, fmt.Sprintf("%s%d", xCol, r+2), &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", name, r+1, err)
			}
		}
		if len(s.Y) > longest {
			longest = len(s.Y)
		}
		if len(s.Y) == 0 {
			continue
		}

		last := len(s.Y) + 1
		series := excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", fig.Name, yCol),
			Categories: fmt.Sprintf("'%s'!$%s$2:$%s$%d", fig.Name, xCol, xCol, last),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", fig.Name, yCol, yCol, last),
			Line:       excelize.ChartLine{Width: s.Width},
			Marker:     excelize.ChartMarker{Symbol: "none"},
		}
		if s.Color != "" {
			series.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(s.Color, "#")}}
		}
		chart.Series = append(chart.Series, series)
	}
	if len(chart.Series) == 0 {
		return fmt.Errorf("figure has no data")
	}
	if fig.XTicks > 1 && longest > fig.XTicks {
		chart.XAxis.TickLabelSkip = longest / (fig.XTicks - 1)
	}

	anchor, _ := excelize.ColumnNumberToName(2*len(fig.Series) + 2)
	return f.AddChart(fig.Name, anchor+"2", chart)
}

func axisTitle(text string, size float64) []excelize.RichTextRun {
	if text == "" {
		return nil
	}
	return []excelize.RichTextRun{{Text: text, Font: &excelize.Font{Size: size}}}
}

// legendPosition maps a legend placement onto the sides excelize supports.
// A bounding box above or below the axes wins over the location name.
func legendPosition(l Legend) string {
	if len(l.BBox) >= 2 {
		switch {
		case l.BBox[1] > 1:
			return "top"
		case l.BBox[1] < 0:
			return "bottom"
		}
	}
	loc := strings.ToLower(l.Loc)
	switch {
	case strings.Contains(loc, "right"):
		return "right"
	case strings.Contains(loc, "left"):
		return "left"
	case strings.Contains(loc, "upper"), strings.Contains(loc, "top"):
		return "top"
	default:
		return "bottom"
	}
}
