package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/example/go-flite/internal/config"
	"github.com/example/go-flite/internal/doctor"
	"github.com/example/go-flite/internal/flite"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var probeText string
	var skipEngine bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local Flite library and voice checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			dcfg := doctor.Config{
				DetectLibraries: func() (flite.LibraryPaths, error) {
					return flite.DetectLibraries(flite.LibraryConfig{Dir: cfg.Library.Dir})
				},
				ProbeText: probeText,
			}
			if !skipEngine {
				dcfg.Engine = func() (*flite.Engine, error) { return openEngine(cfg) }
			}

			files, err := collectVoiceFiles(cfg)
			if err != nil {
				_, _ = fmt.Fprintf(stdout, "%s voice catalog: %v\n", doctor.FailMark, err)
			}
			dcfg.VoiceFiles = files

			result := doctor.Run(dcfg, stdout)
			if err != nil {
				result.AddFailure(fmt.Sprintf("voice catalog: %v", err))
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().StringVar(&probeText, "probe-text", "", "Text synthesized by the engine check")
	cmd.Flags().BoolVar(&skipEngine, "skip-engine", false, "Only check library discovery and voice files")

	return cmd
}

// collectVoiceFiles returns absolute paths of every file-backed voice in the
// configured catalog so the stat check is independent of the working
// directory.
func collectVoiceFiles(cfg config.Config) ([]string, error) {
	catalog, err := loadCatalog(cfg.TTS.VoicesFile)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, v := range catalog.ListVoices() {
		if v.Path == "" {
			continue
		}
		p := v.Path
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		paths = append(paths, p)
	}

	return paths, nil
}
