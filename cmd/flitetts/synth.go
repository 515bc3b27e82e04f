package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-flite/internal/audio"
	"github.com/example/go-flite/internal/config"
	textpkg "github.com/example/go-flite/internal/text"
	"github.com/spf13/cobra"
)

type synthOptions struct {
	Text          string
	Voice         string
	Chunk         bool
	ChunkSet      bool
	MaxChunkChars int
	StripControl  bool
	DSP           synthDSPOptions
}

type synthDSPOptions struct {
	Normalize bool
	DCBlock   bool
	FadeInMS  float64
	FadeOutMS float64
}

func (o synthDSPOptions) enabled() bool {
	return o.Normalize || o.DCBlock || o.FadeInMS > 0 || o.FadeOutMS > 0
}

// registerSynthFlags adds the flags shared by synth and say.
func registerSynthFlags(cmd *cobra.Command, opts *synthOptions) {
	cmd.Flags().StringVar(&opts.Text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&opts.Voice, "voice", "", "Voice ID from the voices file (overrides config)")
	cmd.Flags().BoolVar(&opts.Chunk, "chunk", true, "Split text into sentence chunks and synthesize sequentially")
	cmd.Flags().IntVar(&opts.MaxChunkChars, "max-chunk-chars", 0, "Maximum characters per chunk (0 uses config)")
	cmd.Flags().BoolVar(&opts.StripControl, "strip-control", false, "Remove control characters before synthesis")
	cmd.Flags().BoolVar(&opts.DSP.Normalize, "normalize", false, "Peak-normalize output audio")
	cmd.Flags().BoolVar(&opts.DSP.DCBlock, "dc-block", false, "Apply DC-block high-pass filter")
	cmd.Flags().Float64Var(&opts.DSP.FadeInMS, "fade-in-ms", 0, "Apply linear fade-in duration in milliseconds")
	cmd.Flags().Float64Var(&opts.DSP.FadeOutMS, "fade-out-ms", 0, "Apply linear fade-out duration in milliseconds")
}

func newSynthCmd() *cobra.Command {
	var opts synthOptions
	var out string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			opts.ChunkSet = cmd.Flags().Changed("chunk")

			pcm, err := runSynthesis(cmd.Context(), cfg, opts, cmd.InOrStdin())
			if err != nil {
				return err
			}

			wavData, err := audio.EncodePCM(pcm)
			if err != nil {
				return fmt.Errorf("encode WAV: %w", err)
			}

			return writeSynthOutput(out, wavData, cmd.OutOrStdout())
		},
	}

	registerSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&out, "out", "o", "out.wav", "Output WAV path ('-' for stdout)")

	return cmd
}

// runSynthesis reads the input, synthesizes it with a fresh service and
// applies the requested DSP chain.
func runSynthesis(ctx context.Context, cfg config.Config, opts synthOptions, stdin io.Reader) (audio.PCM, error) {
	input, err := readSynthText(opts.Text, stdin)
	if err != nil {
		return audio.PCM{}, err
	}
	if opts.StripControl {
		input = textpkg.StripControl(input)
	}

	if opts.ChunkSet {
		cfg.TTS.Chunk = opts.Chunk
	}
	if opts.MaxChunkChars > 0 {
		cfg.TTS.MaxChunkChars = opts.MaxChunkChars
	}

	svc, err := newService(cfg)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("initialize synth service: %w", err)
	}
	defer func() { _ = svc.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}

	pcm, err := svc.Synthesize(ctx, input, opts.Voice)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("synth failed: %w", err)
	}
	if len(pcm.Samples) == 0 {
		return audio.PCM{}, fmt.Errorf("synthesis produced no samples")
	}

	if opts.DSP.enabled() {
		pcm = applyDSP(pcm, opts.DSP)
	}

	return pcm, nil
}

func applyDSP(p audio.PCM, opts synthDSPOptions) audio.PCM {
	var hooks []audio.Hook
	if opts.Normalize {
		hooks = append(hooks, audio.PeakNormalize)
	}
	if opts.DCBlock {
		hooks = append(hooks, func(s []float32) []float32 { return audio.DCBlock(s, p.SampleRate, p.Channels) })
	}
	if opts.FadeInMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return audio.FadeIn(s, p.SampleRate, p.Channels, opts.FadeInMS) })
	}
	if opts.FadeOutMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return audio.FadeOut(s, p.SampleRate, p.Channels, opts.FadeOutMS) })
	}

	processed := audio.ApplyHooks(audio.Int16ToFloat32(p.Samples), hooks...)

	return audio.PCM{
		Samples:    audio.Float32ToInt16(processed),
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
	}
}

func writeSynthOutput(outPath string, wavData []byte, stdout io.Writer) error {
	if outPath == "-" {
		if stdout == nil {
			return fmt.Errorf("stdout writer is nil")
		}
		_, err := stdout.Write(wavData)
		return err
	}
	return os.WriteFile(outPath, wavData, 0o644)
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
