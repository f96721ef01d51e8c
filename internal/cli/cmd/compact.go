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

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact causer pays files into parquet chunks",
	Long: `Walk a directory for causer pays CSV or parquet files, accumulate them in
memory and write chunk{N}.parquet files each time the working set reaches the
memory limit.`,
	Example: `  fcasctl compact --path data/causer_pays --format csv --memory-limit 1024
  fcasctl compact -path data/causer_pays -format csv -memory_limit 1024
  fcasctl compact --path data/causer_pays --format parquet --legacy
  fcasctl compact --path data --format csv --memory-limit 512 --storage GCS --bucket my-chunks`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

func init() {
	f := compactCmd.Flags()
	f.String("path", "", "directory to search for input files")
	f.String("format", "", "input file filter and format (csv or parquet)")
	f.Int64("memory-limit", 0, "flush threshold in MB")
	f.Bool("legacy", false, "fixed 1500 MB threshold, unsorted chunks")
	f.Bool("sort", true, "sort each chunk by datetime")
	f.Int("prefetch", 0, "files to decode ahead of the accumulator")
	f.String("compression", "snappy", "parquet compression: snappy, zstd, gzip, lz4, brotli or none")
	f.String("output", "", "local output directory (default: --path)")
	f.Bool("exclude-chunks", true, "skip chunk files from earlier runs in the output directory")
	f.Bool("dry-run", false, "read and accumulate without writing chunks")
	f.String("storage", "FS", "chunk destination: FS, GCS or S3")
	f.String("bucket", "", "bucket for GCS or S3")
	f.String("prefix", "", "object key prefix for GCS or S3")
	f.String("region", "", "S3 region")
	f.Int("max-retries", 0, "retries per chunk write")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")

	bind := map[string]string{
		"compact.path":           "path",
		"compact.format":         "format",
		"compact.memory_limit":   "memory-limit",
		"compact.legacy":         "legacy",
		"compact.sort":           "sort",
		"compact.prefetch":       "prefetch",
		"compact.compression":    "compression",
		"compact.output":         "output",
		"compact.exclude_chunks": "exclude-chunks",
		"compact.dry_run":        "dry-run",
		"storage.type":           "storage",
		"storage.bucket":         "bucket",
		"storage.prefix":         "prefix",
		"storage.region":         "region",
		"storage.max_retries":    "max-retries",
		"metrics.file":           "metrics-file",
	}
	for key, flag := range bind {
		viper.BindPFlag(key, f.Lookup(flag))
	}
	rootCmd.AddCommand(compactCmd)
}

func runCompact(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Compact.Path == "" {
		return fmt.Errorf("--path is required")
	}
	if cfg.Compact.Format == "" {
		return fmt.Errorf("--format is required")
	}
	if !cfg.Compact.Legacy && cfg.Compact.MemoryLimitMB <= 0 {
		return fmt.Errorf("--memory-limit is required unless --legacy is set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Println(color.GreenString("Compacting %s files under %s", cfg.Compact.Format, cfg.Compact.Path))
	res, err := runner.Compact(ctx, cfg, logger)
	if res != nil && len(res.Chunks) > 0 && err != nil {
		fmt.Println(color.YellowString("%d chunk(s) were written before the failure", len(res.Chunks)))
	}
	if err != nil {
		return err
	}

	for _, c := range res.Chunks {
		fmt.Printf("  %s  %d rows  %s .. %s\n", c.Location, c.Rows,
			c.MinTime.Format("2006-01-02 15:04:05"), c.MaxTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Println(color.GreenString("Done: %d files, %d rows, %d chunks in %s",
		res.Files, res.Rows, len(res.Chunks), res.Duration.Round(1e6)))
	return nil
}
