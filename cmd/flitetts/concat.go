package main

import (
	"fmt"
	"os"

	"github.com/example/go-flite/internal/audio"
	"github.com/spf13/cobra"
)

func newConcatCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "concat <in.wav>...",
		Short: "Join WAV files with matching formats into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				parts = append(parts, data)
			}

			merged, err := audio.ConcatWAV(parts...)
			if err != nil {
				return fmt.Errorf("concat: %w", err)
			}

			return writeSynthOutput(out, merged, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "out.wav", "Output WAV path ('-' for stdout)")

	return cmd
}
