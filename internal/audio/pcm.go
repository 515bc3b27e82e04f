package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (p PCM) Frames() int {
	if p.Channels < 1 {
		return 0
	}

	return len(p.Samples) / p.Channels
}

// Duration returns the playback length of p.
func (p PCM) Duration() time.Duration {
	if p.SampleRate < 1 {
		return 0
	}

	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Int16ToFloat32 converts 16-bit samples to floats in [-1, 1).
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768
	}

	return out
}

// Float32ToInt16 converts float samples to 16-bit, clamping to the int16
// range. NaN becomes silence.
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s != s {
			continue
		}
		v := math.Round(float64(s) * 32768)
		out[i] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
	}

	return out
}

// Int16ToBytes encodes samples as little-endian bytes.
func Int16ToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	return buf
}
