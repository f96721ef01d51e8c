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
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch registry tables from AEMO",
}

var fetchParticipantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Fetch and clean the registration and exemption list",
	Long: `Download the NEM Registration and Exemption List, save the generators and
scheduled loads and ancillary services tables, and write cleaned copies plus
the FCAS providers that are not registered generators or loads.`,
	Example: `  fcasctl fetch participants --raw-path data/raw --proc-path data/processed
  fcasctl fetch participants -raw_path data/raw -proc_path data/processed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		fetcher, err := registry.NewNEMWebFetcher(cfg.Fetcher, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		res, err := runner.FetchParticipants(ctx, cfg.Fetch, fetcher, logger)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("Raw Gen and Load files in %s, processed in %s", cfg.Fetch.RawPath, cfg.Fetch.ProcPath))
		fmt.Printf("  %s\n  %s (%d rows)\n  %s\n  %s (%d rows)\n",
			res.GenLoadsRaw, res.GenLoadsClean, res.GenLoadsRows, res.AncillaryServices, res.UniqueProviders, res.UniqueRows)
		return nil
	},
}

var fetchMappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Fetch the causer pays element and variable mappings",
	Example: `  fcasctl fetch mappings --raw-path data/raw
  fcasctl fetch mappings -path data/raw`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		rawPath := cfg.Fetch.RawPath
		if p, _ := cmd.Flags().GetString("path"); p != "" {
			rawPath = p
		}
		fetcher, err := registry.NewNEMWebFetcher(cfg.Fetcher, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		res, err := runner.FetchMappings(ctx, rawPath, fetcher, logger)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("FCAS mappings in %s", rawPath))
		fmt.Printf("  %s\n  %s\n", res.Elements, res.Variables)
		return nil
	},
}

func init() {
	pf := fetchCmd.PersistentFlags()
	pf.String("raw-path", "data/raw", "directory for raw downloads")
	pf.String("registration-url", registry.DefaultRegistrationURL, "registration and exemption list URL")
	pf.String("static-table-template", registry.DefaultStaticTableTemplate, "URL template for static MMS tables")
	viper.BindPFlag("fetch.raw_path", pf.Lookup("raw-path"))
	viper.BindPFlag("fetcher.registration_url", pf.Lookup("registration-url"))
	viper.BindPFlag("fetcher.static_table_template", pf.Lookup("static-table-template"))

	fetchParticipantsCmd.Flags().String("proc-path", "data/processed", "directory for cleaned tables")
	fetchParticipantsCmd.Flags().String("gen-loads-name", registry.GeneratorsAndLoadsCSV, "file name of the cleaned generators and loads table")
	viper.BindPFlag("fetch.proc_path", fetchParticipantsCmd.Flags().Lookup("proc-path"))
	viper.BindPFlag("fetch.gen_loads_clean_name", fetchParticipantsCmd.Flags().Lookup("gen-loads-name"))

	// -path is the mappings script's name for the raw directory.
	fetchMappingsCmd.Flags().String("path", "", "alias of --raw-path")

	fetchCmd.AddCommand(fetchParticipantsCmd, fetchMappingsCmd)
	rootCmd.AddCommand(fetchCmd)
}
