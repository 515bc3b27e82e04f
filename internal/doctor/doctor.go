// Package doctor provides environment preflight checks for flitetts.
package doctor

import (
	"fmt"
	"io"
	"os"

	"github.com/example/go-flite/internal/flite"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// DefaultProbeText is synthesized when Config.ProbeText is empty.
const DefaultProbeText = "Flite preflight check."

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// DetectLibraries locates the Flite shared libraries. Nil skips the check.
	DetectLibraries func() (flite.LibraryPaths, error)
	// Engine returns the engine to probe. Nil skips every engine check.
	Engine func() (*flite.Engine, error)
	// ProbeText is synthesized with the default voice.
	ProbeText string
	// VoiceFiles is the list of voice file paths to verify on disk.
	VoiceFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(w io.Writer, check string, err error) {
	r.failures = append(r.failures, fmt.Sprintf("%s: %v", check, err))
	fmt.Fprintf(w, "%s %s: %v\n", FailMark, check, err)
}

func pass(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, check, detail)
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- shared libraries -------------------------------------------------
	if cfg.DetectLibraries == nil {
		pass(w, "flite libraries", "skipped")
	} else if paths, err := cfg.DetectLibraries(); err != nil {
		res.fail(w, "flite libraries", err)
	} else {
		pass(w, "flite libraries", paths.Core)
		for _, p := range []string{paths.Lang, paths.Lex, paths.Voice} {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}

	// ---- engine, default voice, synthesis --------------------------------
	if cfg.Engine == nil {
		pass(w, "flite engine", "skipped")
	} else {
		checkEngine(cfg, w, &res)
	}

	// ---- voice files ------------------------------------------------------
	for _, path := range cfg.VoiceFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(w, fmt.Sprintf("voice file %s", path), err)
		} else {
			pass(w, "voice file", path)
		}
	}

	return res
}

func checkEngine(cfg Config, w io.Writer, res *Result) {
	engine, err := cfg.Engine()
	if err == nil {
		err = engine.EnsureInitialized()
	}
	if err != nil {
		res.fail(w, "flite engine", err)
		return
	}
	pass(w, "flite engine", "initialized")

	voice, err := engine.DefaultVoice()
	if err != nil {
		res.fail(w, "default voice", err)
		return
	}
	defer func() { _ = voice.Close() }()
	pass(w, "default voice", voice.Name())

	text := cfg.ProbeText
	if text == "" {
		text = DefaultProbeText
	}

	wave, err := engine.Speak(text, voice)
	if err != nil {
		res.fail(w, "synthesis", err)
		return
	}
	defer func() { _ = wave.Close() }()

	if err := checkWave(wave); err != nil {
		res.fail(w, "synthesis", err)
		return
	}
	pass(w, "synthesis", fmt.Sprintf("%d samples at %d Hz (%s)",
		wave.NumSamples(), wave.SampleRate(), wave.Duration()))
}

// checkWave verifies the sample view agrees with the wave's metadata.
func checkWave(w *flite.Wave) error {
	if w.NumSamples() == 0 {
		return fmt.Errorf("produced no audio")
	}
	if w.SampleRate() <= 0 || w.NumChannels() <= 0 {
		return fmt.Errorf("invalid format %d Hz/%d ch", w.SampleRate(), w.NumChannels())
	}
	if got, want := len(w.Samples()), w.NumSamples()*w.NumChannels(); got != want {
		return fmt.Errorf("sample view has %d samples, metadata says %d", got, want)
	}

	return nil
}
