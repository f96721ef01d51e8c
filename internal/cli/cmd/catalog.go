package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/runner"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build a DuckDB catalog over chunk files and reference tables",
	Example: `  fcasctl catalog --chunk-glob 'data/causer_pays/chunk*.parquet' --raw-path data/raw --proc-path data/processed`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		res, err := runner.Catalog(ctx, cfg.Catalog, logger)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("Catalog %s: %s", res.Database, strings.Join(res.Objects, ", ")))
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:     "inspect [glob]",
	Short:   "Report rows, time range and ordering of chunk files",
	Example: `  fcasctl inspect 'data/causer_pays/chunk*.parquet'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig()
		if err != nil {
			return err
		}
		in, err := runner.Inspect(cmd.Context(), args[0], logger)
		if err != nil {
			return err
		}

		label := color.New(color.FgGreen)
		for _, f := range in.Files {
			order := color.GreenString("sorted")
			if !f.Sorted {
				order = color.YellowString("unsorted")
			}
			fmt.Printf("%s  %d rows  %s .. %s  %s\n", f.Path, f.Rows,
				f.MinTime.Format("2006-01-02 15:04:05"), f.MaxTime.Format("2006-01-02 15:04:05"), order)
		}
		label.Print("Total: ")
		fmt.Printf("%d files, %d rows, %s .. %s\n", len(in.Files), in.Rows,
			in.MinTime.Format("2006-01-02 15:04:05"), in.MaxTime.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	f := catalogCmd.Flags()
	f.String("database", "fcas.duckdb", "DuckDB database file")
	f.String("chunk-glob", "", "glob of chunk files to expose as the fcas view")
	f.String("raw-path", "", "directory holding raw reference CSVs")
	f.String("proc-path", "", "directory holding processed reference CSVs")
	viper.BindPFlag("catalog.database", f.Lookup("database"))
	viper.BindPFlag("catalog.chunk_glob", f.Lookup("chunk-glob"))
	viper.BindPFlag("catalog.raw_path", f.Lookup("raw-path"))
	viper.BindPFlag("catalog.proc_path", f.Lookup("proc-path"))

	rootCmd.AddCommand(catalogCmd, inspectCmd)
}
