package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/runner"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Chart an enriched CSV into an XLSX workbook",
	Example: `  fcasctl plot --input data/causer_pays/chunk0_enriched.csv --output chunk0.xlsx
  fcasctl plot --input chunk0_enriched.csv --category ELEMENTTYPE --title "FCAS by element"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		figs, err := runner.Plot(cmd.Context(), cfg.Plot, logger)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("Wrote %d chart(s) to %s", len(figs), cfg.Plot.Output))
		return nil
	},
}

func init() {
	f := plotCmd.Flags()
	f.String("input", "", "CSV to plot")
	f.String("output", "plots.xlsx", "workbook to write")
	f.String("x", "datetime", "x axis column")
	f.String("element", "EMSNAME", "column naming each series")
	f.String("value", "fcas_value", "value column")
	f.String("category", "", "split figures by this column")
	f.String("title", "", "chart title")
	f.Bool("nofb", false, "draw the normal operating frequency band")
	for _, name := range []string{"input", "output", "x", "element", "value", "category", "title", "nofb"} {
		viper.BindPFlag("plot."+name, f.Lookup(name))
	}
	rootCmd.AddCommand(plotCmd)
}
