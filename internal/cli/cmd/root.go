package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "fcasctl",
		Short: "Causer pays FCAS data workflow",
		Long: color.CyanString(`fcasctl compacts AEMO causer pays 4-second data into parquet chunks,
fetches the registry tables needed to interpret it, and joins the two.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// legacyFlags are single-dash flags still accepted for older invocations.
var legacyFlags = map[string]string{
	"-path":         "--path",
	"-format":       "--format",
	"-memory_limit": "--memory-limit",
	"-raw_path":     "--raw-path",
	"-proc_path":    "--proc-path",
}

// NormalizeArgs rewrites legacy single-dash flags, including the -flag=value
// form, to their double-dash equivalents.
func NormalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if long, ok := legacyFlags[name]; ok {
			if hasValue {
				a = long + "=" + value
			} else {
				a = long
			}
		}
		out[i] = a
	}
	return out
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	rootCmd.SetArgs(NormalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fcasctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(home)
		viper.SetConfigName(".fcasctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FCASCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the configuration and the logger it asks for.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(os.Stderr, cfg.Logging), nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
