package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("audio: player closed")

// Player plays PCM through the default output device using miniaudio.
type Player struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	closed bool
	log    *slog.Logger
}

// NewPlayer initializes an audio context. A nil logger uses slog.Default().
func NewPlayer(logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	return &Player{ctx: ctx, log: logger}, nil
}

// Play blocks until p has been played or ctx is cancelled.
func (pl *Player) Play(ctx context.Context, p PCM) error {
	if len(p.Samples) == 0 {
		return nil
	}
	if p.SampleRate < 1 || p.Channels < 1 {
		return fmt.Errorf("invalid playback format: %d Hz, %d channels", p.SampleRate, p.Channels)
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.closed {
		return ErrPlayerClosed
	}

	const periods = 2
	feed := &playbackFeed{
		data:       Int16ToBytes(p.Samples),
		frameBytes: p.Channels * 2,
		drain:      periods,
	}
	done := make(chan struct{}, 1)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(p.Channels)
	cfg.SampleRate = uint32(p.SampleRate)
	cfg.PeriodSizeInFrames = 512
	cfg.Periods = periods

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			if feed.fill(out, frameCount) {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(pl.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	defer func() { _ = device.Stop() }()

	pl.log.Debug("playback started", "duration", p.Duration(), "sample_rate", p.SampleRate)

	select {
	case <-ctx.Done():
		pl.log.Debug("playback cancelled")
		return ctx.Err()
	case <-done:
		return nil
	}
}

// playbackFeed copies PCM bytes into device buffers. It reports completion
// only after drain callbacks of pure silence, so every period still queued in
// the device has been played before the device is stopped.
type playbackFeed struct {
	data       []byte
	frameBytes int
	pos        int
	drain      int
	silent     int
}

func (f *playbackFeed) fill(out []byte, frameCount uint32) bool {
	need := min(int(frameCount)*f.frameBytes, len(out))
	n := copy(out[:need], f.data[f.pos:])
	f.pos += n
	clear(out[n:need])

	if f.pos < len(f.data) {
		return false
	}
	if n == 0 {
		f.silent++
	}

	return f.silent >= f.drain
}

// Close releases the audio context. It is safe to call more than once.
func (pl *Player) Close() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.closed {
		return nil
	}
	pl.closed = true

	err := pl.ctx.Uninit()
	pl.ctx.Free()
	pl.ctx = nil

	return err
}
