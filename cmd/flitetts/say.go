package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-flite/internal/audio"
	"github.com/spf13/cobra"
)

// audioPlayer is the subset of *audio.Player used by say.
type audioPlayer interface {
	Play(ctx context.Context, p audio.PCM) error
	Close() error
}

var newPlayer = func(l *slog.Logger) (audioPlayer, error) {
	return audio.NewPlayer(l)
}

func newSayCmd() *cobra.Command {
	var opts synthOptions

	cmd := &cobra.Command{
		Use:   "say",
		Short: "Synthesize text and play it on the default audio device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			opts.ChunkSet = cmd.Flags().Changed("chunk")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pcm, err := runSynthesis(ctx, cfg, opts, cmd.InOrStdin())
			if err != nil {
				return err
			}

			player, err := newPlayer(slog.Default())
			if err != nil {
				return fmt.Errorf("open audio device: %w", err)
			}
			defer func() { _ = player.Close() }()

			return player.Play(ctx, pcm)
		},
	}

	registerSynthFlags(cmd, &opts)

	return cmd
}
