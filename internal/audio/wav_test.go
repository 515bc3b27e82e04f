package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

// makeWAV builds a minimal 16-bit PCM WAV file for testing.
func makeWAV(sampleRate uint32, numChannels uint16, samples []int16) []byte {
	const bitDepth = 16
	blockAlign := numChannels * bitDepth / 8
	byteRate := sampleRate * uint32(blockAlign)
	dataSize := uint32(len(samples) * 2)
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, numChannels)
	_ = binary.Write(buf, binary.LittleEndian, sampleRate)
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitDepth))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func within(a, b, tol int16) bool {
	d := int(a) - int(b)
	return d >= -int(tol) && d <= int(tol)
}

func TestDecodeWAV(t *testing.T) {
	t.Run("decodes 16 kHz mono", func(t *testing.T) {
		in := []int16{0, 1000, -1000, 12000}
		p, err := DecodeWAV(makeWAV(16000, 1, in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.SampleRate != 16000 || p.Channels != 1 {
			t.Errorf("format = %d Hz/%d ch; want 16000/1", p.SampleRate, p.Channels)
		}
		if len(p.Samples) != len(in) {
			t.Fatalf("got %d samples, want %d", len(p.Samples), len(in))
		}
		for i := range in {
			if !within(p.Samples[i], in[i], 1) {
				t.Errorf("sample[%d] = %d, want ~%d", i, p.Samples[i], in[i])
			}
		}
	})

	t.Run("accepts stereo at any rate", func(t *testing.T) {
		p, err := DecodeWAV(makeWAV(44100, 2, make([]int16, 20)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Channels != 2 || p.Frames() != 10 {
			t.Errorf("channels = %d, frames = %d; want 2, 10", p.Channels, p.Frames())
		}
	})

	t.Run("rejects invalid WAV data", func(t *testing.T) {
		if _, err := DecodeWAV([]byte("not a wav file")); err == nil {
			t.Fatal("expected error for invalid WAV")
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		if _, err := DecodeWAV(nil); err == nil {
			t.Fatal("expected error for nil input")
		}
	})
}

func TestDecodeWAV_RejectsOtherBitDepths(t *testing.T) {
	wav := makeWAV(16000, 1, make([]int16, 12))
	// Rewrite as 24-bit: block align 3, byte rate 48000, 8 frames of data.
	binary.LittleEndian.PutUint32(wav[28:32], 48000)
	binary.LittleEndian.PutUint16(wav[32:34], 3)
	binary.LittleEndian.PutUint16(wav[34:36], 24)

	_, err := DecodeWAV(wav)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("err = %v; want ErrFormatMismatch", err)
	}
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 100), 16000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) < 44+200 {
		t.Fatalf("WAV too short: %d bytes", len(data))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE header")
	}

	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != BitDepth {
		t.Errorf("bit depth = %d, want %d", got, BitDepth)
	}
}

func TestEncodeWAV_InvalidArguments(t *testing.T) {
	tests := []struct {
		name       string
		samples    []int16
		sampleRate int
		channels   int
	}{
		{"zero rate", []int16{0}, 0, 1},
		{"zero channels", []int16{0}, 16000, 0},
		{"partial frame", []int16{0, 0, 0}, 16000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.samples, tt.sampleRate, tt.channels); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	original := []int16{0, 1, -1, 1000, -1000, 16384, -16384, 32767, -32768}

	for _, ch := range []int{1, 3} {
		encoded, err := EncodeWAV(original, 11025, ch)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}

		p, err := DecodeWAV(encoded)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if p.SampleRate != 11025 || p.Channels != ch {
			t.Errorf("format = %d Hz/%d ch; want 11025/%d", p.SampleRate, p.Channels, ch)
		}
		if len(p.Samples) != len(original) {
			t.Fatalf("roundtrip: got %d samples, want %d", len(p.Samples), len(original))
		}

		// Float conversion inside the codec may shift a sample by one step.
		for i, want := range original {
			if !within(p.Samples[i], want, 2) {
				t.Errorf("ch=%d sample[%d] = %d, want ~%d", ch, i, p.Samples[i], want)
			}
		}
	}
}

func TestConcatWAV(t *testing.T) {
	a := makeWAV(16000, 1, []int16{100, 200})
	b := makeWAV(16000, 1, []int16{300})

	out, err := ConcatWAV(a, b)
	if err != nil {
		t.Fatalf("ConcatWAV: %v", err)
	}

	p, err := DecodeWAV(out)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(p.Samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(p.Samples))
	}
	for i, want := range []int16{100, 200, 300} {
		if !within(p.Samples[i], want, 2) {
			t.Errorf("sample[%d] = %d, want ~%d", i, p.Samples[i], want)
		}
	}
}

func TestConcatWAV_Errors(t *testing.T) {
	if _, err := ConcatWAV(); err == nil {
		t.Error("expected error for no parts")
	}

	_, err := ConcatWAV(makeWAV(16000, 1, []int16{1}), makeWAV(8000, 1, []int16{1}))
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("err = %v; want ErrFormatMismatch", err)
	}

	if _, err := ConcatWAV(makeWAV(16000, 1, []int16{1}), []byte("junk")); err == nil {
		t.Error("expected error for invalid part")
	}
}

func TestPCM_Duration(t *testing.T) {
	tests := []struct {
		p    PCM
		want time.Duration
	}{
		{PCM{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}, time.Second},
		{PCM{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 2}, 500 * time.Millisecond},
		{PCM{Samples: make([]int16, 10), SampleRate: 0, Channels: 1}, 0},
		{PCM{Samples: make([]int16, 10), SampleRate: 16000, Channels: 0}, 0},
	}

	for _, tt := range tests {
		if got := tt.p.Duration(); got != tt.want {
			t.Errorf("Duration(%d samples, %d Hz, %d ch) = %v; want %v",
				len(tt.p.Samples), tt.p.SampleRate, tt.p.Channels, got, tt.want)
		}
	}
}

func TestInt16Float32Conversion(t *testing.T) {
	in := []int16{0, 1, -1, 16384, -16384, 32767, -32768}
	out := Float32ToInt16(Int16ToFloat32(in))
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("roundtrip[%d] = %d; want %d", i, out[i], in[i])
		}
	}

	clamped := Float32ToInt16([]float32{2, -3, float32(math.NaN())})
	if clamped[0] != 32767 || clamped[1] != -32768 || clamped[2] != 0 {
		t.Errorf("clamped = %v; want [32767 -32768 0]", clamped)
	}
}
