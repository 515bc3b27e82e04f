package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/example/go-flite/internal/config"
	"github.com/example/go-flite/internal/flite"
	"github.com/example/go-flite/internal/server"
	"github.com/example/go-flite/internal/tts"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	activeCfg    config.Config
	configLoaded bool
)

// openEngine returns the process-wide Flite engine. Tests replace it with an
// engine over a fake binding.
var openEngine = func(cfg config.Config) (*flite.Engine, error) {
	return flite.Bootstrap(flite.LibraryConfig{Dir: cfg.Library.Dir}, flite.WithLogger(slog.Default()))
}

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "flitetts",
		Short:         "Flite text-to-speech command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			configLoaded = true
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newSynthCmd())
	cmd.AddCommand(newSayCmd())
	cmd.AddCommand(newVoicesCmd())
	cmd.AddCommand(newConcatCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if !configLoaded {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// loadCatalog reads the voice manifest at path. A missing manifest at the
// default location yields the built-in catalog; an explicitly configured
// manifest must exist.
func loadCatalog(path string) (*tts.VoiceCatalog, error) {
	if path == "" {
		return tts.DefaultCatalog(), nil
	}

	catalog, err := tts.LoadCatalog(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == config.DefaultConfig().TTS.VoicesFile {
			slog.Debug("voice manifest not found, using built-in voice", slog.String("path", path))
			return tts.DefaultCatalog(), nil
		}
		return nil, err
	}

	return catalog, nil
}

// newService wires the engine, catalog and TTS settings from cfg.
func newService(cfg config.Config) (*tts.Service, error) {
	catalog, err := loadCatalog(cfg.TTS.VoicesFile)
	if err != nil {
		return nil, err
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return nil, err
	}

	return tts.NewService(engine, catalog, cfg.TTS, tts.WithLogger(slog.Default()))
}
