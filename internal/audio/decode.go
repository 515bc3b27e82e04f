package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// ErrFormatMismatch is returned when WAV data is not 16-bit PCM or when
// concatenated parts disagree on rate or channel count.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// DecodeWAV decodes 16-bit PCM WAV bytes of any rate and channel count.
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) == 0 {
		return PCM{}, errors.New("empty WAV input")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return PCM{}, errors.New("invalid WAV file")
	}

	if dec.BitDepth != BitDepth {
		return PCM{}, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, BitDepth)
	}
	if dec.NumChans < 1 {
		return PCM{}, fmt.Errorf("%w: no channels", ErrFormatMismatch)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("reading PCM data: %w", err)
	}

	return PCM{
		Samples:    Float32ToInt16(buf.Data),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

// ConcatWAV joins WAV files that share a sample rate and channel count.
func ConcatWAV(parts ...[]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, errors.New("no WAV parts to concatenate")
	}

	var out PCM
	for i, part := range parts {
		p, err := DecodeWAV(part)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}

		if i == 0 {
			out.SampleRate, out.Channels = p.SampleRate, p.Channels
		} else if p.SampleRate != out.SampleRate || p.Channels != out.Channels {
			return nil, fmt.Errorf("%w: part %d is %d Hz/%d ch, want %d Hz/%d ch",
				ErrFormatMismatch, i, p.SampleRate, p.Channels, out.SampleRate, out.Channels)
		}

		out.Samples = append(out.Samples, p.Samples...)
	}

	return EncodePCM(out)
}
