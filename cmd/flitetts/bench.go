package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/go-flite/internal/audio"
	"github.com/example/go-flite/internal/bench"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		text         string
		voice        string
		runs         int
		format       string
		rtfThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark synthesis latency and realtime factor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			samples, err := bench.Run(cmd.Context(), runs, func(ctx context.Context) (audio.PCM, error) {
				return svc.Synthesize(ctx, text, voice)
			})
			if err != nil {
				return err
			}

			summary := bench.Summarize(samples)
			out := cmd.OutOrStdout()
			if format == "json" {
				err = bench.WriteJSON(out, samples, summary)
			} else {
				err = bench.WriteTable(out, samples, summary)
			}
			if err != nil {
				return err
			}

			return bench.CheckRTF(summary.MeanRTF, rtfThreshold)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize on every run")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice ID (defaults to the configured voice)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of synthesis runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Fail if mean RTF exceeds this value (0 disables)")

	return cmd
}
