package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteWAVHeaderStreaming writes a 44-byte 16-bit PCM WAV header suitable for
// streaming where the total data length is not known in advance. Both the
// RIFF chunk size and the data sub-chunk size are set to 0xFFFFFFFF, the
// conventional marker for an unknown length.
func WriteWAVHeaderStreaming(w io.Writer, sampleRate, channels int) (int, error) {
	if sampleRate < 1 || channels < 1 {
		return 0, fmt.Errorf("invalid stream format: %d Hz, %d channels", sampleRate, channels)
	}

	blockAlign := channels * BitDepth / 8
	byteRate := sampleRate * blockAlign

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], BitDepth)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	return w.Write(hdr[:])
}

// WritePCM16 writes samples to w as little-endian 16-bit integers.
func WritePCM16(w io.Writer, samples []int16) (int, error) {
	return w.Write(Int16ToBytes(samples))
}
