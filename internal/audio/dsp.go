package audio

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/signal"
)

// dcCutoffHz is the corner frequency of the DC-blocking high-pass filter.
const dcCutoffHz = 20.0

// Hook transforms a block of float samples.
type Hook func(samples []float32) []float32

// ApplyHooks runs hooks over samples in order.
func ApplyHooks(samples []float32, hooks ...Hook) []float32 {
	out := samples
	for _, hook := range hooks {
		out = hook(out)
	}

	return out
}

// PeakNormalize scales samples in place so the peak amplitude reaches 1.0.
// Silence is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	if len(samples) == 0 {
		return samples
	}

	out, err := signal.Normalize(toFloat64(samples), 1.0)
	if err != nil {
		return samples
	}
	fromFloat64(samples, out)

	return samples
}

// DCBlock removes DC offset in place. Each channel of the interleaved buffer
// has its mean removed and then runs through a 20 Hz Butterworth high-pass.
func DCBlock(samples []float32, sampleRate, channels int) []float32 {
	if sampleRate < 1 || len(samples) == 0 {
		return samples
	}

	coeffs := design.Highpass(dcCutoffHz, 1/math.Sqrt2, float64(sampleRate))
	for ch := range frameChannels(channels) {
		buf := channelOf(samples, ch, channels)
		centered, err := signal.RemoveDC(buf)
		if err != nil {
			continue
		}
		biquad.NewSection(coeffs).ProcessBlock(centered)
		setChannel(samples, centered, ch, channels)
	}

	return samples
}

// FadeIn applies a linear fade-in ramp over the given duration in
// milliseconds. All channels of a frame get the same gain.
func FadeIn(samples []float32, sampleRate, channels int, ms float64) []float32 {
	channels = frameChannels(channels)
	n := fadeLength(len(samples)/channels, sampleRate, ms)
	for f := range n {
		gain := float32(f) / float32(n)
		for ch := range channels {
			samples[f*channels+ch] *= gain
		}
	}

	return samples
}

// FadeOut applies a linear fade-out ramp over the given duration in
// milliseconds. The final frame is always silent.
func FadeOut(samples []float32, sampleRate, channels int, ms float64) []float32 {
	channels = frameChannels(channels)
	frames := len(samples) / channels
	n := fadeLength(frames, sampleRate, ms)
	start := frames - n
	for f := range n {
		gain := float32(n-1-f) / float32(n)
		for ch := range channels {
			samples[(start+f)*channels+ch] *= gain
		}
	}

	return samples
}

func fadeLength(frames, sampleRate int, ms float64) int {
	if sampleRate < 1 || ms <= 0 {
		return 0
	}

	return min(frames, int(ms/1000*float64(sampleRate)))
}

func frameChannels(channels int) int {
	return max(channels, 1)
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, s := range in {
		out[i] = float64(s)
	}

	return out
}

func fromFloat64(dst []float32, src []float64) {
	for i := range dst {
		dst[i] = float32(src[i])
	}
}

// channelOf copies one channel out of an interleaved buffer. A trailing
// partial frame is ignored.
func channelOf(samples []float32, ch, channels int) []float64 {
	channels = frameChannels(channels)
	out := make([]float64, len(samples)/channels)
	for f := range out {
		out[f] = float64(samples[f*channels+ch])
	}

	return out
}

func setChannel(samples []float32, buf []float64, ch, channels int) {
	channels = frameChannels(channels)
	for f, v := range buf {
		samples[f*channels+ch] = float32(v)
	}
}
