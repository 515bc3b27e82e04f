package flite

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

// Wave is a handle to a synthesized waveform. Its lifetime is independent of
// the Voice it was synthesized with.
type Wave struct {
	engine *Engine

	sampleRate  int
	numSamples  int
	numChannels int

	mu  sync.Mutex
	raw *RawWave
}

// Speak synthesizes text with voice. Text containing a NUL byte is rejected
// with a *StringError before any native call. voice is only borrowed for the
// duration of the call.
func (e *Engine) Speak(text string, voice *Voice) (*Wave, error) {
	ctext, err := cString("text", text)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, fmt.Errorf("%w: nil voice", ErrClosed)
	}
	if voice.engine != e {
		return nil, fmt.Errorf("%w: %q", ErrForeignVoice, voice.name)
	}
	if err := e.EnsureInitialized(); err != nil {
		return nil, err
	}

	rawVoice, release, err := voice.acquire()
	if err != nil {
		return nil, err
	}
	raw := e.binding.TextToWave(ctext, rawVoice)
	release()

	if raw == nil {
		return nil, fmt.Errorf("%w: flite_text_to_wave returned NULL", ErrSynthesisFailed)
	}
	if raw.NumSamples < 0 || raw.NumChannels < 0 || (raw.NumSamples > 0 && raw.Samples == nil) {
		e.binding.DeleteWave(raw)
		return nil, fmt.Errorf("%w: malformed wave (samples=%d channels=%d)",
			ErrSynthesisFailed, raw.NumSamples, raw.NumChannels)
	}

	return &Wave{
		engine:      e,
		raw:         raw,
		sampleRate:  int(raw.SampleRate),
		numSamples:  int(raw.NumSamples),
		numChannels: int(raw.NumChannels),
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (w *Wave) SampleRate() int { return w.sampleRate }

// NumSamples returns the number of samples per channel.
func (w *Wave) NumSamples() int { return w.numSamples }

// NumChannels returns the number of interleaved channels.
func (w *Wave) NumChannels() int { return w.numChannels }

// Duration returns the playback length of the wave.
func (w *Wave) Duration() time.Duration {
	if w.sampleRate <= 0 {
		return 0
	}

	return time.Duration(w.numSamples) * time.Second / time.Duration(w.sampleRate)
}

// Samples returns the interleaved 16-bit samples without copying. The slice
// has NumSamples()*NumChannels() elements and aliases native memory: it must
// not be used after Close. Samples returns nil once the wave is closed.
func (w *Wave) Samples() []int16 {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.numSamples * w.numChannels
	if w.raw == nil || n == 0 {
		return nil
	}

	return unsafe.Slice(w.raw.Samples, n)
}

// CopySamples returns a copy of the samples that remains valid after Close.
func (w *Wave) CopySamples() []int16 {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.numSamples * w.numChannels
	if w.raw == nil || n == 0 {
		return nil
	}

	out := make([]int16, n)
	copy(out, unsafe.Slice(w.raw.Samples, n))

	return out
}

// Close frees the native waveform. It is safe to call more than once; only
// the first call has an effect.
func (w *Wave) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.raw == nil {
		return nil
	}
	w.engine.binding.DeleteWave(w.raw)
	w.raw = nil

	return nil
}
