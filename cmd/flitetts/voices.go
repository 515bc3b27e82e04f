package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/example/go-flite/internal/download"
	"github.com/example/go-flite/internal/tts"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newVoicesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices from the voice catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			catalog, err := loadCatalog(cfg.TTS.VoicesFile)
			if err != nil {
				return err
			}

			return printVoices(cmd.OutOrStdout(), catalog.ListVoices(), cfg.TTS.Voice, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|json|yaml)")
	cmd.AddCommand(newVoicesDownloadCmd())

	return cmd
}

func newVoicesDownloadCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "download [id...]",
		Short: "Fetch .flitevox files for catalog voices that declare a url",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			catalog, err := loadCatalog(cfg.TTS.VoicesFile)
			if err != nil {
				return err
			}

			targets, err := downloadTargets(catalog, args)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no voices with a download url")
				return err
			}

			opts := download.Options{
				Client: &http.Client{Timeout: timeout},
				Stdout: cmd.OutOrStdout(),
			}
			for _, v := range targets {
				if _, err := download.Fetch(cmd.Context(), download.File{URL: v.URL, Path: v.Path, SHA256: v.SHA256}, opts); err != nil {
					return fmt.Errorf("voice %q: %w", v.ID, err)
				}
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Per-file download timeout")

	return cmd
}

// downloadTargets selects the voices named in ids, or every downloadable
// voice when ids is empty.
func downloadTargets(catalog *tts.VoiceCatalog, ids []string) ([]tts.Voice, error) {
	if len(ids) == 0 {
		var out []tts.Voice
		for _, v := range catalog.ListVoices() {
			if v.URL != "" {
				out = append(out, v)
			}
		}
		return out, nil
	}

	out := make([]tts.Voice, 0, len(ids))
	for _, id := range ids {
		v, err := catalog.Lookup(id)
		if err != nil {
			return nil, err
		}
		if v.URL == "" {
			return nil, fmt.Errorf("voice %q has no download url", id)
		}
		out = append(out, v)
	}

	return out, nil
}

func printVoices(w io.Writer, voices []tts.Voice, defaultID, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(voices)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]tts.Voice{"voices": voices}); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unsupported format %q (want table, json or yaml)", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSOURCE\tDESCRIPTION")
	for _, v := range voices {
		id := v.ID
		if id == defaultID {
			id += " *"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", id, voiceSource(v), v.Description)
	}

	return tw.Flush()
}

func voiceSource(v tts.Voice) string {
	switch {
	case v.Builtin():
		return "builtin"
	case v.Path != "":
		return v.Path
	default:
		return "name:" + v.Name
	}
}
