package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zatekoja/medscan/backend/internal/catalog"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

func getRootCmd() *cobra.Command {
	cfgFile = ""
	cfg = nil

	rootCmd := &cobra.Command{
		Use:   "medscan",
		Short: "medscan resolves medication packages and maintains the catalog",
		Long: `medscan runs the medication identification pipeline from the command line
and checks catalog files before they are deployed.

Configuration precedence (highest to lowest):
  1. CLI flags (--catalog, --log-level)
  2. Environment variables (MEDSCAN_*, then the service variables such as OPENAI_API_KEY)
  3. Config file (--config medscan.yaml)
  4. Built-in defaults

Examples:
  medscan resolve --barcode 5000159461788
  medscan resolve --text "NUROFEN 200mg tablets" --region GB
  medscan catalog list --region US
  medscan catalog check --file ./medications.yaml
  medscan evaluate --file config/eval_cases.yaml --offline --min-accuracy 0.9`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			observability.InitLoggerWithWriter(cmd.ErrOrStderr(), "medscan-cli", "development", cfg.LogLevel)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().String("catalog", "", "catalog YAML file (default: built-in catalog)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug/info/warn/error)")

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for medscan")

	rootCmd.AddCommand(getResolveCmd())
	rootCmd.AddCommand(getCatalogCmd())
	rootCmd.AddCommand(getEvaluateCmd())

	return rootCmd
}

// loadConfig starts from the service environment and layers the config
// file, MEDSCAN_* variables and flags on top.
func loadConfig(path string, flags *pflag.FlagSet) (*config.Config, error) {
	base, err := config.Load()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("MEDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "warn")
	v.SetDefault("catalog.path", base.Catalog.Path)
	v.SetDefault("openai.api_key", base.OpenAI.APIKey)
	v.SetDefault("openai.model", base.OpenAI.Model)
	v.SetDefault("openai.base_url", base.OpenAI.BaseURL)
	v.SetDefault("pipeline.extraction_timeout", base.Pipeline.ExtractionTimeout)
	v.SetDefault("pipeline.warning_threshold", base.Pipeline.WarningThreshold)
	v.SetDefault("pipeline.critical_threshold", base.Pipeline.CriticalThreshold)
	v.SetDefault("pipeline.failure_policy", string(base.Pipeline.ExtractionFailurePolicy))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if f := flags.Lookup("catalog"); f != nil {
		if err := v.BindPFlag("catalog.path", f); err != nil {
			return nil, err
		}
	}
	if f := flags.Lookup("log-level"); f != nil {
		if err := v.BindPFlag("log_level", f); err != nil {
			return nil, err
		}
	}

	base.LogLevel = v.GetString("log_level")
	base.Catalog.Path = v.GetString("catalog.path")
	base.OpenAI.APIKey = v.GetString("openai.api_key")
	base.OpenAI.Model = v.GetString("openai.model")
	base.OpenAI.BaseURL = v.GetString("openai.base_url")
	base.Pipeline.ExtractionTimeout = v.GetDuration("pipeline.extraction_timeout")
	base.Pipeline.WarningThreshold = v.GetFloat64("pipeline.warning_threshold")
	base.Pipeline.CriticalThreshold = v.GetFloat64("pipeline.critical_threshold")
	base.Pipeline.ExtractionFailurePolicy = config.ExtractionFailurePolicy(strings.ToLower(v.GetString("pipeline.failure_policy")))

	if err := base.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

func openCatalog() (*catalog.Catalog, error) {
	if cfg == nil || cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
