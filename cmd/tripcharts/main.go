package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chrissnell/tripcharts/internal/app"
	"github.com/chrissnell/tripcharts/internal/constants"
	"github.com/chrissnell/tripcharts/internal/log"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/spf13/cobra"
)

// flags shared by every command
var (
	cfgFile    string
	cfgBackend string
	debug      bool
	sources    []string
	engine     string
	limit      int
	outputDir  string
)

var rootCmd = &cobra.Command{
	Use:           "tripcharts",
	Short:         "Load taxi trips into an embedded database and chart them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "config.yaml", "Path to configuration source: a YAML file or a SQLite database")
	pf.StringVar(&cfgBackend, "config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	pf.BoolVar(&debug, "debug", false, "Turn on debugging output")
	pf.StringSliceVar(&sources, "source", nil, "Source file location (path, http(s):// or s3://); repeat to union several files")
	pf.StringVar(&engine, "engine", "", "Embedded engine: sqlite or duckdb")
	pf.IntVar(&limit, "limit", 0, "Maximum number of trips to query")
	pf.StringVar(&outputDir, "output", "", "Directory drawn surfaces are written to as <id>.svg")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Register the dataset and serve the load/clear web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false, true)
			if err != nil {
				return err
			}
			defer log.Sync()
			return a.Run(cmd.Context())
		},
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Run one load action and write the three charts to the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			agg, err := a.Render(cmd.Context())
			if err != nil {
				return err
			}
			log.Infof("run %s drew %d trips (%d day types, %d hours) into %s",
				agg.RunID, agg.Rows, len(agg.DayTypes), len(agg.HourlyTips), a.OutputDir())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear every surface written to the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true, false)
			if err != nil {
				return err
			}
			defer log.Sync()
			return a.Clear()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tripcharts %s\n", constants.Version)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import-config <config.yaml> <config.db>",
		Short: "Copy a YAML configuration into a SQLite configuration database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewYAMLProvider(args[0]).LoadConfig()
			if err != nil {
				return fmt.Errorf("error reading %s: %w", args[0], err)
			}

			db, err := config.NewSQLiteProvider(args[1])
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Printf("imported %s into %s\n", args[0], args[1])
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, renderCmd, clearCmd, importCmd, versionCmd)
	rootCmd.SetContext(context.Background())
}

// setup loads the configuration, applies flag overrides and initializes logging.
// Commands that write surfaces to disk fall back to the working directory, and
// commands that never load trips run without dataset sources.
func setup(needsOutput, needsSources bool) (*app.App, error) {
	cfg, err := loadConfig(cfgFile, cfgBackend, !needsSources || len(sources) > 0)
	if err != nil {
		return nil, err
	}

	if len(sources) > 0 {
		cfg.Dataset.Sources = sources
	}
	if engine != "" {
		cfg.Engine.Type = engine
	}
	if limit > 0 {
		cfg.Query.Limit = limit
	}
	if outputDir != "" {
		cfg.Server.OutputDir = outputDir
	}
	if needsOutput && cfg.Server.OutputDir == "" {
		cfg.Server.OutputDir = "."
	}

	err = log.InitWithFile(debug, log.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	provider := config.NewStaticProvider(*cfg)
	if !needsSources {
		provider.WithoutSources()
	}
	if _, err := provider.LoadConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return app.New(provider, log.GetSugaredLogger()), nil
}

// loadConfig reads the configuration source.  A missing source is only
// acceptable when allowMissing is set.
func loadConfig(cfgFile, cfgBackend string, allowMissing bool) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) && allowMissing {
		return &config.ConfigData{}, nil
	}

	var provider config.ConfigProvider
	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		db, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		provider = db
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the --config flag? Run with -h for help: %w", err)
	}
	return cfgData, nil
}
