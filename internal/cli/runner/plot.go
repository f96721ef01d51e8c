package runner

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
	"github.com/withObsrvr/causer-pays-workflow/pkg/plot"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// Plot renders an enriched CSV as line charts. Without a category column a
// single figure shows every element; with one, each category with a
// positive total gets its own figure.
func Plot(ctx context.Context, cfg config.PlotConfig, logger *slog.Logger) ([]plot.Figure, error) {
	if cfg.Input == "" || cfg.Output == "" {
		return nil, errors.New("input and output are required")
	}
	t, err := registry.ReadCSV(cfg.Input)
	if err != nil {
		return nil, errors.Wrap(err, "reading plot input")
	}

	base := plot.Figure{
		XTitle: cfg.X,
		YTitle: cfg.Value,
		XTicks: 8,
		Style:  plot.DefaultAxisStyle(),
		Legend: plot.NewLegend([]float64{0, -0.3, 1, 0.1}, "lower left", 4, 8),
	}

	var figs []plot.Figure
	if cfg.Category == "" {
		series, err := plot.ValueByElement(t, cfg.X, cfg.Element, cfg.Value, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building series")
		}
		fig := base
		fig.Name = "values"
		fig.Title = cfg.Title
		fig.Series = series
		figs = append(figs, fig)
	} else {
		categories, err := plot.NonzeroCategories(t, cfg.Category, cfg.Value)
		if err != nil {
			return nil, errors.Wrap(err, "finding categories")
		}
		for _, category := range categories {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			series, _, err := plot.NonzeroElementsByCategory(t, cfg.X, cfg.Value, cfg.Element, category, cfg.Category, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "building series for %s", category)
			}
			fig := base
			fig.Name = category
			fig.Title = category
			if cfg.Title != "" {
				fig.Title = cfg.Title + ": " + category
			}
			fig.Series = series
			figs = append(figs, fig)
		}
	}

	if cfg.NOFB {
		for i := range figs {
			addNOFB(&figs[i])
		}
	}
	if len(figs) == 0 {
		return nil, errors.Errorf("nothing to plot in %s", cfg.Input)
	}

	if err := plot.RenderXLSX(cfg.Output, figs...); err != nil {
		return nil, errors.Wrap(err, "rendering charts")
	}
	logger.Info("saved charts", "path", cfg.Output, "figures", len(figs))
	return figs, nil
}

// addNOFB draws the frequency band over the figure's x values and widens
// the value axis to show it with a margin.
func addNOFB(fig *plot.Figure) {
	if len(fig.Series) == 0 {
		return
	}
	upper, lower := plot.NOFB(fig.Series[0].X)
	fig.Series = append(fig.Series, upper, lower)
	y := plot.Relimit(plot.Axis{Lower: plot.NOFBLower, Upper: plot.NOFBUpper}, -0.1, 0.1, false)
	fig.YAxis = &y
}
