// Package config holds the fcasctl configuration and its viper defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
	"github.com/withObsrvr/causer-pays-workflow/pkg/storage"
)

// Config is the full fcasctl configuration. Every field can be set from the
// config file, from FCASCTL_ prefixed environment variables, or from flags.
type Config struct {
	Compact CompactConfig         `mapstructure:"compact" yaml:"compact"`
	Fetch   FetchConfig           `mapstructure:"fetch" yaml:"fetch"`
	Enrich  EnrichConfig          `mapstructure:"enrich" yaml:"enrich"`
	Catalog CatalogConfig         `mapstructure:"catalog" yaml:"catalog"`
	Plot    PlotConfig            `mapstructure:"plot" yaml:"plot"`
	Storage storage.Config        `mapstructure:"storage" yaml:"storage"`
	Fetcher registry.NEMWebConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Logging LoggingConfig         `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
}

type CompactConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Format        string `mapstructure:"format" yaml:"format"`
	MemoryLimitMB int64  `mapstructure:"memory_limit" yaml:"memory_limit"`
	// Legacy reproduces the fixed 1500 MB unsorted variant.
	Legacy        bool   `mapstructure:"legacy" yaml:"legacy"`
	Sort          bool   `mapstructure:"sort" yaml:"sort"`
	Prefetch      int    `mapstructure:"prefetch" yaml:"prefetch"`
	Compression   string `mapstructure:"compression" yaml:"compression"`
	Output        string `mapstructure:"output" yaml:"output,omitempty"`
	ExcludeChunks bool   `mapstructure:"exclude_chunks" yaml:"exclude_chunks"`
	DryRun        bool   `mapstructure:"dry_run" yaml:"dry_run"`
}

type FetchConfig struct {
	RawPath  string `mapstructure:"raw_path" yaml:"raw_path"`
	ProcPath string `mapstructure:"proc_path" yaml:"proc_path"`
	// GenLoadsCleanName is the file name of the cleaned generators and
	// loads table in ProcPath.
	GenLoadsCleanName string `mapstructure:"gen_loads_clean_name" yaml:"gen_loads_clean_name"`
}

type EnrichConfig struct {
	ChunkPath    string `mapstructure:"chunk_path" yaml:"chunk_path"`
	MappingsPath string `mapstructure:"mappings_path" yaml:"mappings_path"`
	// ProcPath holds the cleaned participant tables. Optional.
	ProcPath string `mapstructure:"proc_path" yaml:"proc_path,omitempty"`
	// EMSDUIDPath is a CSV mapping EMSNAME to DUID. Optional.
	EMSDUIDPath string `mapstructure:"ems_duid_path" yaml:"ems_duid_path,omitempty"`
	Output      string `mapstructure:"output" yaml:"output,omitempty"`
}

type CatalogConfig struct {
	Database  string `mapstructure:"database" yaml:"database"`
	ChunkGlob string `mapstructure:"chunk_glob" yaml:"chunk_glob"`
	RawPath   string `mapstructure:"raw_path" yaml:"raw_path,omitempty"`
	ProcPath  string `mapstructure:"proc_path" yaml:"proc_path,omitempty"`
}

type PlotConfig struct {
	Input    string `mapstructure:"input" yaml:"input"`
	Output   string `mapstructure:"output" yaml:"output"`
	X        string `mapstructure:"x" yaml:"x"`
	Element  string `mapstructure:"element" yaml:"element"`
	Value    string `mapstructure:"value" yaml:"value"`
	Category string `mapstructure:"category" yaml:"category,omitempty"`
	Title    string `mapstructure:"title" yaml:"title,omitempty"`
	// NOFB adds the normal operating frequency band to every figure.
	NOFB bool `mapstructure:"nofb" yaml:"nofb"`
}

type LoggingConfig struct {
	Format  string `mapstructure:"format" yaml:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Compact: CompactConfig{
			Sort:          true,
			Compression:   "snappy",
			ExcludeChunks: true,
		},
		Fetch: FetchConfig{
			RawPath:           "data/raw",
			ProcPath:          "data/processed",
			GenLoadsCleanName: registry.GeneratorsAndLoadsCSV,
		},
		Enrich: EnrichConfig{
			MappingsPath: "data/raw",
		},
		Catalog: CatalogConfig{
			Database: "fcas.duckdb",
		},
		Plot: PlotConfig{
			Output:  "plots.xlsx",
			X:       "datetime",
			Element: "EMSNAME",
			Value:   "fcas_value",
		},
		Storage: storage.Config{
			Type: storage.TypeFS,
		},
		Fetcher: registry.NEMWebConfig{
			RegistrationURL:     registry.DefaultRegistrationURL,
			StaticTableTemplate: registry.DefaultStaticTableTemplate,
			Timeout:             5 * time.Minute,
			UserAgent:           "fcasctl",
		},
		Logging: LoggingConfig{
			Format: "text",
		},
	}
}

// SetDefaults registers Default with v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("compact.sort", d.Compact.Sort)
	v.SetDefault("compact.compression", d.Compact.Compression)
	v.SetDefault("compact.exclude_chunks", d.Compact.ExcludeChunks)
	v.SetDefault("fetch.raw_path", d.Fetch.RawPath)
	v.SetDefault("fetch.proc_path", d.Fetch.ProcPath)
	v.SetDefault("fetch.gen_loads_clean_name", d.Fetch.GenLoadsCleanName)
	v.SetDefault("enrich.mappings_path", d.Enrich.MappingsPath)
	v.SetDefault("catalog.database", d.Catalog.Database)
	v.SetDefault("plot.output", d.Plot.Output)
	v.SetDefault("plot.x", d.Plot.X)
	v.SetDefault("plot.element", d.Plot.Element)
	v.SetDefault("plot.value", d.Plot.Value)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("fetcher.registration_url", d.Fetcher.RegistrationURL)
	v.SetDefault("fetcher.static_table_template", d.Fetcher.StaticTableTemplate)
	v.SetDefault("fetcher.timeout", d.Fetcher.Timeout)
	v.SetDefault("fetcher.user_agent", d.Fetcher.UserAgent)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load resolves the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return &cfg, nil
}
