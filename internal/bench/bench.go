// Package bench times repeated synthesis runs and reports latency and
// realtime factor.
package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-flite/internal/audio"
)

// SynthFunc produces one utterance. It is called once per run.
type SynthFunc func(ctx context.Context) (audio.PCM, error)

// Sample is the outcome of a single timed run.
type Sample struct {
	Index   int
	Cold    bool // first run, includes voice loading
	Elapsed time.Duration
	Audio   time.Duration
	RTF     float64
}

// Summary aggregates a set of samples.
type Summary struct {
	Min     time.Duration
	Max     time.Duration
	Mean    time.Duration
	MeanRTF float64
}

// Run calls fn n times and records the wall time and audio length of each
// call. It stops at the first error or when ctx is done.
func Run(ctx context.Context, n int, fn SynthFunc) ([]Sample, error) {
	if n < 1 {
		return nil, errors.New("bench: run count must be at least 1")
	}

	samples := make([]Sample, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return samples, err
		}

		start := time.Now()
		pcm, err := fn(ctx)
		elapsed := time.Since(start)
		if err != nil {
			return samples, fmt.Errorf("run %d: %w", i+1, err)
		}

		dur := pcm.Duration()
		samples = append(samples, Sample{
			Index:   i,
			Cold:    i == 0,
			Elapsed: elapsed,
			Audio:   dur,
			RTF:     RealTimeFactor(elapsed, dur),
		})
	}

	return samples, nil
}

// Summarize computes min, max and mean latency and the mean RTF.
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	s := Summary{Min: samples[0].Elapsed, Max: samples[0].Elapsed}
	var sum time.Duration
	var rtf float64
	for _, r := range samples {
		s.Min = min(s.Min, r.Elapsed)
		s.Max = max(s.Max, r.Elapsed)
		sum += r.Elapsed
		rtf += r.RTF
	}
	s.Mean = sum / time.Duration(len(samples))
	s.MeanRTF = rtf / float64(len(samples))

	return s
}

// RealTimeFactor returns synthesis time divided by audio time, or 0 for
// empty audio.
func RealTimeFactor(elapsed, audioDur time.Duration) float64 {
	if audioDur <= 0 {
		return 0
	}
	return float64(elapsed) / float64(audioDur)
}

// CheckRTF returns an error if meanRTF exceeds limit. A limit of 0 disables
// the gate.
func CheckRTF(meanRTF, limit float64) error {
	if limit <= 0 || meanRTF <= limit {
		return nil
	}
	return fmt.Errorf("mean RTF %.3f exceeds threshold %.3f", meanRTF, limit)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// WriteTable writes a fixed-width table of samples followed by the summary.
func WriteTable(w io.Writer, samples []Sample, sum Summary) error {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s  %8s\n", "Run", "Cold", "MS", "Audio(ms)", "RTF")
	fmt.Fprintln(sb, strings.Repeat("-", 48))

	for _, r := range samples {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %12.1f  %8.3f\n", r.Index+1, cold, ms(r.Elapsed), ms(r.Audio), r.RTF)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 48))
	for _, row := range []struct {
		label string
		d     time.Duration
	}{{"min", sum.Min}, {"mean", sum.Mean}, {"max", sum.Max}} {
		fmt.Fprintf(sb, "%-12s  %10.1f\n", row.label, ms(row.d))
	}
	fmt.Fprintf(sb, "%-12s  %10.3f\n", "mean rtf", sum.MeanRTF)

	_, err := io.WriteString(w, sb.String())
	return err
}

type report struct {
	Runs    []reportRun   `json:"runs"`
	Summary reportSummary `json:"summary"`
}

type reportRun struct {
	Index     int     `json:"index"`
	Cold      bool    `json:"cold"`
	ElapsedMS float64 `json:"elapsed_ms"`
	AudioMS   float64 `json:"audio_ms"`
	RTF       float64 `json:"rtf"`
}

type reportSummary struct {
	MinMS   float64 `json:"min_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanRTF float64 `json:"mean_rtf"`
}

// WriteJSON writes the samples and summary as an indented JSON document.
func WriteJSON(w io.Writer, samples []Sample, sum Summary) error {
	rep := report{
		Runs: make([]reportRun, len(samples)),
		Summary: reportSummary{
			MinMS:   ms(sum.Min),
			MeanMS:  ms(sum.Mean),
			MaxMS:   ms(sum.Max),
			MeanRTF: sum.MeanRTF,
		},
	}
	for i, r := range samples {
		rep.Runs[i] = reportRun{
			Index:     r.Index,
			Cold:      r.Cold,
			ElapsedMS: ms(r.Elapsed),
			AudioMS:   ms(r.Audio),
			RTF:       r.RTF,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
