package plot

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null"

	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// Normal operating frequency band limits in Hz.
const (
	NOFBUpper = 50.15
	NOFBLower = 49.85
)

// Tab10 is the default categorical palette.
var Tab10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Series is one line of a chart.
type Series struct {
	Name  string
	X     []string
	Y     []float64
	Color string
	Width float64
}

// Sum adds the non-NaN values of the series.
func (s Series) Sum() float64 {
	var total float64
	for _, v := range s.Y {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Colors samples n colours spread evenly across palette, first and last
// entries included.
func Colors(palette []string, n int) []string {
	if len(palette) == 0 {
		palette = Tab10
	}
	out := make([]string, n)
	for i := range out {
		pos := 0.0
		if n > 1 {
			pos = float64(i) / float64(n-1)
		}
		out[i] = palette[int(math.Round(pos*float64(len(palette)-1)))]
	}
	return out
}

// ValueByElement builds one series per distinct element, in order of first
// appearance. Elements whose values sum to zero are left out but still use
// up a colour, so colours stay stable as data changes.
func ValueByElement(t *registry.Table, xCol, elementCol, valueCol string, palette []string) ([]Series, error) {
	if err := t.Require(xCol, elementCol, valueCol); err != nil {
		return nil, err
	}
	groups, order, err := groupSeries(t, xCol, elementCol, valueCol)
	if err != nil {
		return nil, err
	}

	colors := Colors(palette, len(order))
	var out []Series
	for i, name := range order {
		s := groups[name]
		if math.Abs(s.Sum()) > 0 {
			s.Color = colors[i]
			out = append(out, *s)
		}
	}
	return out, nil
}

// NonzeroCategories returns the sorted categories whose values sum to more
// than zero.
func NonzeroCategories(t *registry.Table, categoryCol, valueCol string) ([]string, error) {
	if err := t.Require(categoryCol, valueCol); err != nil {
		return nil, err
	}
	cat, val := t.Index(categoryCol), t.Index(valueCol)

	sums := make(map[string]float64)
	for i, row := range t.Rows {
		if !row[cat].Valid {
			continue
		}
		v, err := cellFloat(row[val])
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i+1, valueCol, err)
		}
		if !math.IsNaN(v) {
			sums[row[cat].String] += v
		} else if _, ok := sums[row[cat].String]; !ok {
			sums[row[cat].String] = 0
		}
	}

	var out []string
	for c, s := range sums {
		if s > 0 {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// NonzeroElementsByCategory keeps the rows whose categoryCol equals
// category, and returns a series for each element (sorted by name) whose
// values sum to more than zero, plus the filtered rows.
func NonzeroElementsByCategory(t *registry.Table, xCol, yCol, elementCol, category, categoryCol string, palette []string) ([]Series, *registry.Table, error) {
	if err := t.Require(xCol, yCol, elementCol, categoryCol); err != nil {
		return nil, nil, err
	}
	cat := t.Index(categoryCol)
	filtered := t.Filter(func(row []null.String) bool {
		return row[cat].Valid && row[cat].String == category
	})

	groups, order, err := groupSeries(filtered, xCol, elementCol, yCol)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(order)

	colors := Colors(palette, len(order))
	var out []Series
	for i, name := range order {
		s := groups[name]
		if s.Sum() > 0 {
			s.Color = colors[i]
			out = append(out, *s)
		}
	}
	return out, filtered, nil
}

// NOFB returns the upper and lower band reference lines over x.
func NOFB(x []string) (upper, lower Series) {
	upper = Series{Name: "NOFB", X: x, Y: constant(len(x), NOFBUpper), Color: "#bcbd22", Width: 1}
	lower = Series{Name: "", X: x, Y: constant(len(x), NOFBLower), Color: "#bcbd22", Width: 1}
	return upper, lower
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func groupSeries(t *registry.Table, xCol, elementCol, valueCol string) (map[string]*Series, []string, error) {
	x, el, val := t.Index(xCol), t.Index(elementCol), t.Index(valueCol)

	groups := make(map[string]*Series)
	var order []string
	for i, row := range t.Rows {
		if !row[el].Valid {
			continue
		}
		v, err := cellFloat(row[val])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %s: %w", i+1, valueCol, err)
		}
		name := row[el].String
		s, ok := groups[name]
		if !ok {
			s = &Series{Name: name, Width: 1}
			groups[name] = s
			order = append(order, name)
		}
		s.X = append(s.X, row[x].String)
		s.Y = append(s.Y, v)
	}
	return groups, order, nil
}

func cellFloat(c null.String) (float64, error) {
	if !c.Valid || strings.TrimSpace(c.String) == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(c.String), 64)
}
