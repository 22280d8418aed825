// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the inquiry-engine CLI.
//
// The CLI answers questions over a local document corpus (ask), manages the
// corpus index (corpus), inspects graph-augmented retrieval (graph expand),
// checks claims against retrieved sources (verify), and serves the engine to
// MCP clients over stdio (serve).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/logging"
	"github.com/pdiddy/inquiry-engine/internal/secrets"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Store

	// engineCfg is the decoded configuration for this invocation.
	engineCfg types.EngineConfig

	logger = zap.NewNop()
)

// rootCmd is the base command for the inquiry-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "inquiry-engine",
	Short: "Confidentiality-aware question answering over a document corpus",
	Long: `inquiry-engine answers natural-language questions over a local corpus of
public and confidential documents. A question passes through clarification,
research, verification, and answer stages; every model call is routed to a
local model whenever confidential content or personal data is involved.

Index the corpus with "corpus ingest", then use "ask". The same pipeline is
available to MCP clients through "serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engineCfg = cfg

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets/", logger)
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
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./inquiry-engine.yaml or ~/.config/inquiry-engine/inquiry-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("inquiry-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "inquiry-engine"))
		}
	}

	setDefaults(types.DefaultEngineConfig())

	viper.SetEnvPrefix("INQUIRY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables are honored by Unmarshal even without a config file.
func setDefaults(d types.EngineConfig) {
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)

	viper.SetDefault("store.corpus_dir", d.Store.CorpusDir)
	viper.SetDefault("store.index_dir", d.Store.IndexDir)
	viper.SetDefault("store.max_results", d.Store.MaxResults)

	viper.SetDefault("models.cloud_provider", string(d.Models.CloudProvider))
	viper.SetDefault("models.cloud_model", d.Models.CloudModel)
	viper.SetDefault("models.cloud_api_key", d.Models.CloudAPIKey)
	viper.SetDefault("models.local_model", d.Models.LocalModel)
	viper.SetDefault("models.local_host", d.Models.LocalHost)
	viper.SetDefault("models.call_timeout", d.Models.CallTimeout)
	viper.SetDefault("models.max_retries", d.Models.MaxRetries)

	viper.SetDefault("router.detect_pii", d.Router.DetectPII)

	viper.SetDefault("research.max_findings", d.Research.MaxFindings)
	viper.SetDefault("research.use_graph", d.Research.UseGraph)

	viper.SetDefault("graph.max_entities", d.Graph.MaxEntities)
	viper.SetDefault("graph.max_depth", d.Graph.MaxDepth)
	viper.SetDefault("graph.candidate_limit", d.Graph.CandidateLimit)
	viper.SetDefault("graph.max_expanded", d.Graph.MaxExpanded)

	viper.SetDefault("verification.max_claims", d.Verification.MaxClaims)
	viper.SetDefault("verification.max_sources", d.Verification.MaxSources)
	viper.SetDefault("verification.concurrency", d.Verification.Concurrency)
	viper.SetDefault("verification.detect_inconsistencies", d.Verification.DetectInconsistencies)

	viper.SetDefault("answer.style", string(d.Answer.Style))
	viper.SetDefault("answer.language", d.Answer.Language)
}

// loadConfig decodes the merged defaults, config file, and environment.
func loadConfig() (types.EngineConfig, error) {
	var cfg types.EngineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	switch cfg.Models.CloudProvider {
	case types.ProviderAnthropic, types.ProviderOpenRouter:
	default:
		return cfg, fmt.Errorf("unknown cloud provider %q (want anthropic or openrouter)", cfg.Models.CloudProvider)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
