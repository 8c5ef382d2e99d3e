// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-radar CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/internal/secrets"
	"github.com/pdiddy/research-radar/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the research-radar CLI.
var rootCmd = &cobra.Command{
	Use:   "research-radar",
	Short: "Track newly published papers and keyword trends",
	Long: `research-radar fetches newly published papers from preprint servers and
journals, drops duplicates and papers seen in earlier runs, scores each paper
against weighted keywords with an AI model, analyzes the relevant ones in depth
and records keyword observations for trend reports.

Run it once with "run" or keep it running on a cron schedule with "schedule".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.LoadEnv(".env"); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		httputil.Progress = os.Stderr
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-radar.yaml or ~/.config/research-radar/research-radar.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-radar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-radar"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_RADAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// envKeys are bound explicitly so environment overrides reach Unmarshal
// even when the config file does not mention them.
var envKeys = []string{
	"llm.cheap.api_key",
	"llm.cheap.model",
	"llm.smart.api_key",
	"llm.smart.model",
	"sources.enabled",
	"sources.openalex_email",
	"sources.semantic_scholar_api_key",
	"storage.db_path",
	"storage.report_dir",
	"notify.slack_webhook_url",
	"schedule",
}

// loadConfig merges the config file and environment over the defaults and
// fills credentials from secrets. Commands that run the pipeline validate
// the result themselves.
func loadConfig() (types.RadarConfig, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	loadedSecrets.Fill(&cfg)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
