// Package runner holds the entry points behind each fcasctl command. Each
// takes the resolved configuration and returns a result; none of them
// print to the terminal.
package runner

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
	"github.com/withObsrvr/causer-pays-workflow/pkg/catalog"
	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/chunk"
	"github.com/withObsrvr/causer-pays-workflow/pkg/metrics"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
	"github.com/withObsrvr/causer-pays-workflow/pkg/storage"
)

// CompactionConfig turns the compact section into a compactor configuration.
// Legacy mode pins the threshold to 1500 MB and disables sorting; otherwise
// a memory limit is required.
func CompactionConfig(cfg config.CompactConfig) (chunk.Config, error) {
	if cfg.Path == "" {
		return chunk.Config{}, errors.New("path is required")
	}
	if cfg.Format == "" {
		return chunk.Config{}, errors.New("format is required")
	}
	if _, err := causerpays.ParseFormat(cfg.Format); err != nil {
		return chunk.Config{}, err
	}

	out := chunk.Config{
		Root:            cfg.Path,
		Format:          cfg.Format,
		SizeThresholdMB: cfg.MemoryLimitMB,
		SortByTimestamp: cfg.Sort,
		Prefetch:        cfg.Prefetch,
		Compression:     cfg.Compression,
		ExcludeChunks:   cfg.ExcludeChunks,
		DryRun:          cfg.DryRun,
	}
	if cfg.Legacy {
		out.SizeThresholdMB = chunk.LegacyThresholdMB
		out.SortByTimestamp = false
	} else if cfg.MemoryLimitMB <= 0 {
		return chunk.Config{}, errors.New("memory_limit is required unless legacy mode is set")
	}
	return out, nil
}

// Compact runs one compaction over cfg.Compact.Path. Chunks go to the
// configured storage; a local destination defaults to the output directory
// or, failing that, the input root.
func Compact(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*chunk.Result, error) {
	cc, err := CompactionConfig(cfg.Compact)
	if err != nil {
		return nil, errors.Wrap(err, "invalid compact configuration")
	}

	st := cfg.Storage
	if isLocal(st) {
		if st.LocalPath == "" {
			st.LocalPath = cfg.Compact.Output
		}
		if st.LocalPath == "" {
			st.LocalPath = cfg.Compact.Path
		}
		cc.OutputDir = st.LocalPath
	}

	client, err := storage.New(ctx, st, logger)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	defer client.Close()

	m := metrics.NewCompaction()
	c, err := chunk.NewCompactor(cc, client, chunk.WithLogger(logger), chunk.WithMetrics(m))
	if err != nil {
		return nil, errors.Wrap(err, "creating compactor")
	}

	res, runErr := c.Run(ctx)
	if cfg.Metrics.File != "" {
		if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn("failed to write metrics", "path", cfg.Metrics.File, "error", err)
		}
	}
	if runErr != nil {
		return res, errors.Wrapf(runErr, "compacting %s", cc.Root)
	}
	return res, nil
}

func isLocal(st storage.Config) bool {
	t := strings.ToUpper(st.Type)
	return t == "" || t == storage.TypeFS
}

// Inspect summarises the chunk files matching glob with an in-memory
// DuckDB.
func Inspect(ctx context.Context, glob string, logger *slog.Logger) (*catalog.Inspection, error) {
	db, err := catalog.Open("", logger)
	if err != nil {
		return nil, errors.Wrap(err, "opening duckdb")
	}
	defer db.Close()

	in, err := db.Inspect(ctx, glob)
	if err != nil {
		return nil, errors.Wrapf(err, "inspecting %s", glob)
	}
	return in, nil
}

// CatalogResult lists what a catalog build created.
type CatalogResult struct {
	Database string
	Objects  []string
}

// Catalog builds a DuckDB database with a view over the chunk files and a
// table for each reference CSV found in the raw and processed directories.
func Catalog(ctx context.Context, cfg config.CatalogConfig, logger *slog.Logger) (*CatalogResult, error) {
	if cfg.ChunkGlob == "" {
		return nil, errors.New("chunk_glob is required")
	}

	db, err := catalog.Open(cfg.Database, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", cfg.Database)
	}
	defer db.Close()

	tables := make(map[string]string)
	for name, path := range referenceTables(cfg.RawPath, cfg.ProcPath) {
		if fileExists(path) {
			tables[name] = path
		}
	}
	if err := db.Build(ctx, cfg.ChunkGlob, tables); err != nil {
		return nil, errors.Wrap(err, "building catalog")
	}

	objects, err := db.Objects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing catalog objects")
	}
	return &CatalogResult{Database: cfg.Database, Objects: objects}, nil
}

func referenceTables(rawPath, procPath string) map[string]string {
	out := make(map[string]string)
	if rawPath != "" {
		out["elements"] = filepath.Join(rawPath, registry.ElementsMappingCSV)
		out["variables"] = filepath.Join(rawPath, registry.VariablesMappingCSV)
		out["ancillary_service_providers"] = filepath.Join(rawPath, registry.AncillaryServiceCSV)
	}
	if procPath != "" {
		out["generators_and_loads"] = filepath.Join(procPath, registry.GeneratorsAndLoadsCSV)
		out["unique_fcas_providers"] = filepath.Join(procPath, registry.UniqueFCASProvidersCSV)
	}
	return out
}
