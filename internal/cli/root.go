package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/footgraph/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "footgraph",
	Short: "footgraph - enrich a football player graph from DBpedia",
	Long: `footgraph reads a local Turtle graph of football players, queries a
remote SPARQL endpoint (DBpedia by default) for each player's birth and
death facts, position and team, and appends the enriched statements to an
output graph one batch at a time.

An interrupted run keeps every batch it already flushed. With a progress
journal, a later run can resume where it stopped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "footgraph %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./footgraph.yaml, then $HOME/.footgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	setDefaults(model.DefaultConfig())

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	case fileExists("footgraph.yaml"):
		viper.SetConfigFile("footgraph.yaml")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			break
		}
		viper.AddConfigPath(filepath.Join(home, ".footgraph"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FOOTGRAPH_BATCH_SIZE overrides batch.size
	viper.SetEnvPrefix("FOOTGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env variables and config
// files can override it
func setDefaults(cfg *model.Config) {
	viper.SetDefault("input", cfg.Input)
	viper.SetDefault("output", cfg.Output)

	viper.SetDefault("batch.size", cfg.Batch.Size)
	viper.SetDefault("batch.workers", cfg.Batch.Workers)
	viper.SetDefault("batch.throttle", cfg.Batch.Throttle)

	viper.SetDefault("endpoint.url", cfg.Endpoint.URL)
	viper.SetDefault("endpoint.resource_namespace", cfg.Endpoint.ResourceNamespace)
	viper.SetDefault("endpoint.timeout", cfg.Endpoint.Timeout)
	viper.SetDefault("endpoint.user_agent", cfg.Endpoint.UserAgent)
	viper.SetDefault("endpoint.max_body_bytes", cfg.Endpoint.MaxBodyBytes)
	viper.SetDefault("endpoint.requests_per_second", cfg.Endpoint.RequestsPerSecond)
	viper.SetDefault("endpoint.burst", cfg.Endpoint.Burst)
	viper.SetDefault("endpoint.max_retries", cfg.Endpoint.MaxRetries)
	viper.SetDefault("endpoint.respect_robots", cfg.Endpoint.RespectRobots)
	viper.SetDefault("endpoint.http_proxy", cfg.Endpoint.HTTPProxy)
	viper.SetDefault("endpoint.https_proxy", cfg.Endpoint.HTTPSProxy)
	viper.SetDefault("endpoint.no_proxy", cfg.Endpoint.NoProxy)

	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_dir", cfg.Cache.DiskDir)
	viper.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)

	viper.SetDefault("coercion.fold_diacritics", cfg.Coercion.FoldDiacritics)

	viper.SetDefault("progress.journal", cfg.Progress.Journal)
	viper.SetDefault("progress.resume", cfg.Progress.Resume)

	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("log.format", cfg.Log.Format)
	viper.SetDefault("log.output", cfg.Log.Output)
}

// loadConfig resolves the effective configuration: flags, then
// FOOTGRAPH_* env, then the config file, then defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
