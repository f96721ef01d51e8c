package runner

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/discovery"
	"github.com/withObsrvr/causer-pays-workflow/pkg/merge"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// EnrichedFile is one chunk and the CSV written for it.
type EnrichedFile struct {
	Chunk  string
	Output string
	Rows   int
}

// mappings are the reference tables joined onto chunk rows. Only elements
// and variables are required.
type mappings struct {
	elements  *registry.Table
	variables *registry.Table
	emsDUID   *registry.Table
	genLoads  *registry.Table
	fcas      *registry.Table
}

// Enrich joins every chunk{N}.parquet under cfg.ChunkPath with the mapping
// tables and writes <chunk>_enriched.csv next to it, or into cfg.Output.
func Enrich(ctx context.Context, cfg config.EnrichConfig, logger *slog.Logger) ([]EnrichedFile, error) {
	if cfg.ChunkPath == "" {
		return nil, errors.New("chunk_path is required")
	}
	m, err := loadMappings(cfg, logger)
	if err != nil {
		return nil, err
	}

	files, err := discovery.Walk(cfg.ChunkPath, ".parquet")
	if err != nil {
		return nil, errors.Wrap(err, "finding chunk files")
	}

	var out []EnrichedFile
	for _, f := range files {
		if !discovery.IsChunkName(filepath.Base(f.Path)) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		batch, err := causerpays.ReadFile(ctx, f.Path, causerpays.FormatParquet)
		if err != nil {
			return out, errors.Wrapf(err, "reading %s", f.Path)
		}
		enriched, err := m.apply(batch.Table())
		if err != nil {
			return out, errors.Wrapf(err, "enriching %s", f.Path)
		}

		dest := enrichedPath(f.Path, cfg.Output)
		if err := registry.WriteCSV(dest, enriched); err != nil {
			return out, errors.Wrapf(err, "saving %s", dest)
		}
		logger.Info("enriched chunk", "chunk", f.Path, "output", dest, "rows", enriched.Len())
		out = append(out, EnrichedFile{Chunk: f.Path, Output: dest, Rows: enriched.Len()})
	}
	if len(out) == 0 {
		return nil, errors.Errorf("no chunk files under %s", cfg.ChunkPath)
	}
	return out, nil
}

func enrichedPath(chunkPath, outDir string) string {
	name := discovery.EnrichedName(filepath.Base(chunkPath))
	if outDir == "" {
		outDir = filepath.Dir(chunkPath)
	}
	return filepath.Join(outDir, name)
}

func loadMappings(cfg config.EnrichConfig, logger *slog.Logger) (*mappings, error) {
	var (
		m   mappings
		err error
	)
	if m.elements, err = registry.ReadCSV(filepath.Join(cfg.MappingsPath, registry.ElementsMappingCSV)); err != nil {
		return nil, errors.Wrap(err, "loading elements mapping")
	}
	if m.variables, err = registry.ReadCSV(filepath.Join(cfg.MappingsPath, registry.VariablesMappingCSV)); err != nil {
		return nil, errors.Wrap(err, "loading variables mapping")
	}
	if cfg.EMSDUIDPath != "" {
		if m.emsDUID, err = registry.ReadCSV(cfg.EMSDUIDPath); err != nil {
			return nil, errors.Wrap(err, "loading EMSNAME to DUID mapping")
		}
	}

	if cfg.ProcPath == "" {
		return &m, nil
	}
	if m.emsDUID == nil {
		logger.Warn("skipping participant tables: no EMSNAME to DUID mapping configured")
		return &m, nil
	}
	if path := filepath.Join(cfg.ProcPath, registry.GeneratorsAndLoadsCSV); fileExists(path) {
		if m.genLoads, err = registry.ReadCSV(path); err != nil {
			return nil, errors.Wrap(err, "loading generators and loads")
		}
	}
	if path := filepath.Join(cfg.ProcPath, registry.UniqueFCASProvidersCSV); fileExists(path) {
		if m.fcas, err = registry.ReadCSV(path); err != nil {
			return nil, errors.Wrap(err, "loading unique fcas providers")
		}
	}
	return &m, nil
}

func (m *mappings) apply(df *registry.Table) (*registry.Table, error) {
	out, err := merge.CauserPaysMappings(df, m.elements, m.variables, m.emsDUID, m.genLoads)
	if err != nil {
		return nil, err
	}
	if m.fcas != nil && out.Has(merge.KeyDUID) {
		out, err = merge.LeftJoin(out, m.fcas, merge.On(merge.KeyDUID))
		if err != nil {
			return nil, errors.Wrap(err, "merging fcas providers")
		}
	}
	return out, nil
}
