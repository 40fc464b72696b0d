package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/hilite/internal/config"
	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/registry"
	"github.com/zjrosen/hilite/internal/style"
	"github.com/zjrosen/hilite/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts, so
	// the OSC 11 reply cannot race the input loop and show up as typed text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	// Set up by setup for the duration of one command.
	reg      *registry.Registry
	provider = tracing.Noop()
	closeLog func()
)

var rootCmd = &cobra.Command{
	Use:   "hilite [FILE]",
	Short: "Incremental regex-driven syntax highlighting",
	Long: `hilite highlights source text with declarative regex pattern sets and keeps
the highlighting current as the text is edited, reclassifying only the
region an edit can affect.

With a FILE argument it opens the interactive viewer.`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runView(cmd, args[0])
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .hilite/config.yaml, then ~/.config/hilite/config.yaml)")
	rootCmd.PersistentFlags().StringP("patterns", "p", "",
		"directory of pattern-set files")
	rootCmd.PersistentFlags().String("log", "",
		"write a debug log to this file")
	rootCmd.PersistentFlags().StringP("mode", "m", "",
		"language mode (default: from the file extension)")
	rootCmd.Flags().BoolP("watch", "w", false,
		"reload the file and pattern sets when they change")

	_ = viper.BindPFlag("pattern_dir", rootCmd.PersistentFlags().Lookup("patterns"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("pattern_dir", defaults.PatternDir)
	viper.SetDefault("watch", defaults.Watch)
	viper.SetDefault("highlight.chunk_size", defaults.Highlight.ChunkSize)
	viper.SetDefault("highlight.min_window", defaults.Highlight.MinWindow)
	viper.SetDefault("highlight.match_timeout", defaults.Highlight.MatchTimeout)
	viper.SetDefault("highlight.cache_ttl", defaults.Highlight.CacheTTL)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix("HILITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .hilite/config.yaml (current directory)
		// 2. ~/.config/hilite/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "hilite"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// A missing config file is fine; `hilite init` writes one.
	_ = viper.ReadInConfig()
	_ = viper.Unmarshal(&cfg)
}

const localConfigPath = ".hilite/config.yaml"

// setup validates the config and builds the logger, tracer and registry.
func setup(cmd *cobra.Command, _ []string) error {
	// Viper folds map keys to lower case; style names are case-sensitive.
	if path := viper.ConfigFileUsed(); path != "" {
		styles, err := config.LoadStyles(path)
		if err != nil {
			return err
		}
		cfg.Styles = styles
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Log.File != "" {
		cleanup, err := log.Init(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		closeLog = cleanup
		log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	}
	log.Info(log.CatConfig, "starting", "command", cmd.Name(), "config", viper.ConfigFileUsed())

	p, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		log.ErrorErr(log.CatTrace, "tracing disabled", err)
		p = tracing.Noop()
	}
	provider = p

	reg = registry.New(registry.Options{
		MatchTimeout: cfg.Highlight.MatchTimeout,
		CacheTTL:     cfg.Highlight.CacheTTL,
		Styles:       style.DefaultTable(),
	})
	if err := reg.LoadBuiltin(); err != nil {
		return fmt.Errorf("loading built-in pattern sets: %w", err)
	}
	if cfg.PatternDir != "" {
		if err := reg.LoadDir(cfg.PatternDir); err != nil {
			// One bad file must not hide the rest; `hilite check` reports it.
			log.ErrorErr(log.CatRegistry, "pattern directory has errors", err, "dir", cfg.PatternDir)
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	err := provider.Shutdown(context.Background())
	provider = tracing.Noop()
	if closeLog != nil {
		closeLog()
		closeLog = nil
	}
	return err
}

// stylesFor layers the configured styles over the mode's own.
func stylesFor(mode string) *style.Table {
	return reg.StylesFor(mode).Merge(cfg.Styles)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
