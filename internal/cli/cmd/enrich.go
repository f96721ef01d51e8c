package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/runner"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Join chunk files with the element and variable mappings",
	Example: `  fcasctl enrich --chunk-path data/causer_pays --mappings-path data/raw
  fcasctl enrich --chunk-path data/causer_pays --mappings-path data/raw \
      --proc-path data/processed --ems-duid data/ems_duid.csv --output data/enriched`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		files, err := runner.Enrich(ctx, cfg.Enrich, logger)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("  %s -> %s (%d rows)\n", f.Chunk, f.Output, f.Rows)
		}
		fmt.Println(color.GreenString("Enriched %d chunk(s)", len(files)))
		return nil
	},
}

func init() {
	f := enrichCmd.Flags()
	f.String("chunk-path", "", "directory holding chunk{N}.parquet files")
	f.String("mappings-path", "data/raw", "directory holding the element and variable mappings")
	f.String("proc-path", "", "directory holding the cleaned participant tables")
	f.String("ems-duid", "", "CSV mapping EMSNAME to DUID")
	f.String("output", "", "output directory (default: next to each chunk)")
	viper.BindPFlag("enrich.chunk_path", f.Lookup("chunk-path"))
	viper.BindPFlag("enrich.mappings_path", f.Lookup("mappings-path"))
	viper.BindPFlag("enrich.proc_path", f.Lookup("proc-path"))
	viper.BindPFlag("enrich.ems_duid_path", f.Lookup("ems-duid"))
	viper.BindPFlag("enrich.output", f.Lookup("output"))
	rootCmd.AddCommand(enrichCmd)
}
