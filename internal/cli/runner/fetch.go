package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// ParticipantsResult lists the files written by FetchParticipants.
type ParticipantsResult struct {
	Workbook          string
	GenLoadsRaw       string
	GenLoadsClean     string
	AncillaryServices string
	UniqueProviders   string
	GenLoadsRows      int
	UniqueRows        int
}

// FetchParticipants downloads the registration list and writes the raw and
// cleaned participant tables.
func FetchParticipants(ctx context.Context, cfg config.FetchConfig, fetcher registry.Fetcher, logger *slog.Logger) (*ParticipantsResult, error) {
	if cfg.RawPath == "" || cfg.ProcPath == "" {
		return nil, errors.New("raw_path and proc_path are required")
	}
	if err := os.MkdirAll(cfg.ProcPath, 0755); err != nil {
		return nil, errors.Wrap(err, "creating processed directory")
	}
	cleanName := cfg.GenLoadsCleanName
	if cleanName == "" {
		cleanName = registry.GeneratorsAndLoadsCSV
	}

	res := &ParticipantsResult{
		GenLoadsRaw:       filepath.Join(cfg.RawPath, registry.GeneratorsAndLoadsCSV),
		GenLoadsClean:     filepath.Join(cfg.ProcPath, cleanName),
		AncillaryServices: filepath.Join(cfg.RawPath, registry.AncillaryServiceCSV),
		UniqueProviders:   filepath.Join(cfg.ProcPath, registry.UniqueFCASProvidersCSV),
	}

	workbook, err := fetcher.RegistrationList(ctx, cfg.RawPath)
	if err != nil {
		return nil, errors.Wrap(err, "fetching registration list")
	}
	res.Workbook = workbook

	genLoads, err := registry.ReadSheet(workbook, registry.GeneratorsAndLoadsSheet)
	if err != nil {
		return nil, errors.Wrap(err, "reading generators and loads")
	}
	if err := registry.WriteCSV(res.GenLoadsRaw, genLoads); err != nil {
		return nil, errors.Wrap(err, "saving generators and loads")
	}

	cleaned, err := registry.CleanTechnologyTypes(genLoads)
	if err != nil {
		return nil, errors.Wrap(err, "cleaning technology types")
	}
	cleaned, err = registry.CleanCapacities(cleaned)
	if err != nil {
		return nil, errors.Wrap(err, "cleaning capacities")
	}
	if err := registry.WriteCSV(res.GenLoadsClean, cleaned); err != nil {
		return nil, errors.Wrap(err, "saving cleaned generators and loads")
	}
	res.GenLoadsRows = cleaned.Len()
	logger.Info("saved generators and loads", "raw", res.GenLoadsRaw, "processed", res.GenLoadsClean, "rows", cleaned.Len())

	providers, err := registry.ReadSheet(workbook, registry.AncillaryServicesSheet)
	if err != nil {
		return nil, errors.Wrap(err, "reading ancillary services")
	}
	providers = registry.CleanAncillaryServices(providers)
	if err := registry.WriteCSV(res.AncillaryServices, providers); err != nil {
		return nil, errors.Wrap(err, "saving ancillary service providers")
	}

	unique, err := registry.UniqueFCASProviders(providers, genLoads)
	if err != nil {
		return nil, errors.Wrap(err, "finding unique fcas providers")
	}
	if err := registry.WriteCSV(res.UniqueProviders, unique); err != nil {
		return nil, errors.Wrap(err, "saving unique fcas providers")
	}
	res.UniqueRows = unique.Len()
	logger.Info("saved fcas providers", "raw", res.AncillaryServices, "unique", res.UniqueProviders, "rows", unique.Len())

	return res, nil
}

// MappingsResult lists the files written by FetchMappings.
type MappingsResult struct {
	Elements  string
	Variables string
}

// FetchMappings downloads the element and variable mapping tables into
// rawPath.
func FetchMappings(ctx context.Context, rawPath string, fetcher registry.Fetcher, logger *slog.Logger) (*MappingsResult, error) {
	if rawPath == "" {
		return nil, errors.New("raw_path is required")
	}
	if err := os.MkdirAll(rawPath, 0755); err != nil {
		return nil, errors.Wrap(err, "creating raw directory")
	}

	res := &MappingsResult{
		Elements:  filepath.Join(rawPath, registry.ElementsMappingCSV),
		Variables: filepath.Join(rawPath, registry.VariablesMappingCSV),
	}
	targets := []struct {
		table string
		path  string
	}{
		{registry.ElementsTable, res.Elements},
		{registry.VariablesTable, res.Variables},
	}
	for _, target := range targets {
		t, err := fetcher.StaticTable(ctx, target.table, registry.DummyWindow, rawPath)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s", target.table)
		}
		if err := registry.WriteCSV(target.path, t); err != nil {
			return nil, errors.Wrapf(err, "saving %s", target.table)
		}
		logger.Info("saved mapping table", "table", target.table, "path", target.path, "rows", t.Len())
	}
	return res, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
