// Package tts turns text into PCM audio using the Flite engine, with a voice
// catalog, sentence chunking and per-voice serialization.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/go-flite/internal/audio"
	"github.com/example/go-flite/internal/config"
	"github.com/example/go-flite/internal/flite"
	"github.com/example/go-flite/internal/text"
)

// Audio is the synthesized result of one request.
type Audio = audio.PCM

// PCMChunk is one synthesized text chunk delivered by SynthesizeStream.
type PCMChunk struct {
	audio.PCM

	ChunkIndex int
	Final      bool
}

type loadedVoice struct {
	mu    sync.Mutex // a flite voice is not safe for concurrent synthesis
	voice *flite.Voice
}

// Service synthesizes text with catalog voices. Voices are loaded on first
// use and cached until Close.
type Service struct {
	engine  *flite.Engine
	catalog *VoiceCatalog
	cfg     config.TTSConfig
	log     *slog.Logger

	mu     sync.Mutex
	voices map[string]*loadedVoice
	closed bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService returns a service backed by engine. The configured default voice
// must exist in catalog.
func NewService(engine *flite.Engine, catalog *VoiceCatalog, cfg config.TTSConfig, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("tts: nil engine")
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if cfg.Voice == "" {
		cfg.Voice = BuiltinVoiceID
	}
	if _, err := catalog.Lookup(cfg.Voice); err != nil {
		return nil, fmt.Errorf("default voice: %w", err)
	}

	s := &Service{
		engine:  engine,
		catalog: catalog,
		cfg:     cfg,
		log:     slog.Default(),
		voices:  make(map[string]*loadedVoice),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// ListVoices returns the catalog entries.
func (s *Service) ListVoices() []Voice {
	return s.catalog.ListVoices()
}

// DefaultVoice returns the id used when a request names no voice.
func (s *Service) DefaultVoice() string { return s.cfg.Voice }

// Synthesize renders input with the given voice id ("" selects the default)
// and returns the concatenated audio of every chunk.
func (s *Service) Synthesize(ctx context.Context, input, voiceID string) (Audio, error) {
	var out Audio

	err := s.synthesize(ctx, input, voiceID, func(c PCMChunk) error {
		if c.ChunkIndex == 0 {
			out.SampleRate, out.Channels = c.SampleRate, c.Channels
		} else if c.SampleRate != out.SampleRate || c.Channels != out.Channels {
			return fmt.Errorf("chunk %d format %d Hz/%d ch differs from %d Hz/%d ch",
				c.ChunkIndex, c.SampleRate, c.Channels, out.SampleRate, out.Channels)
		}
		out.Samples = append(out.Samples, c.Samples...)
		return nil
	})
	if err != nil {
		return Audio{}, err
	}

	return out, nil
}

// SynthesizeStream sends one PCMChunk per text chunk to out, in order, and
// closes out when it returns. The last chunk sent on success has Final set.
func (s *Service) SynthesizeStream(ctx context.Context, input, voiceID string, out chan<- PCMChunk) error {
	defer close(out)

	return s.synthesize(ctx, input, voiceID, func(c PCMChunk) error {
		select {
		case out <- c:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (s *Service) synthesize(ctx context.Context, input, voiceID string, emit func(PCMChunk) error) error {
	// Reject NUL up front so no chunk is synthesized for a request that must fail.
	if i := strings.IndexByte(input, 0); i >= 0 {
		return &flite.StringError{Field: "text", Offset: i}
	}

	normalized, err := text.Normalize(input)
	if err != nil {
		return err
	}

	if strings.TrimSpace(voiceID) == "" {
		voiceID = s.cfg.Voice
	}

	lv, err := s.voice(voiceID)
	if err != nil {
		return err
	}

	chunks := []string{strings.Join(strings.Fields(normalized), " ")}
	if s.cfg.Chunk {
		chunks = text.ChunkBySentence(normalized, s.cfg.MaxChunkChars)
	}

	start := time.Now()
	var samples int

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		pcm, err := s.speak(lv, chunk)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		samples += len(pcm.Samples)

		if err := emit(PCMChunk{PCM: pcm, ChunkIndex: i, Final: i == len(chunks)-1}); err != nil {
			return err
		}
	}

	s.log.DebugContext(ctx, "synthesis complete",
		slog.String("voice", voiceID),
		slog.Int("chunks", len(chunks)),
		slog.Int("samples", samples),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// speak synthesizes one chunk and copies the samples out of the native wave.
func (s *Service) speak(lv *loadedVoice, chunk string) (audio.PCM, error) {
	lv.mu.Lock()
	defer lv.mu.Unlock()

	w, err := s.engine.Speak(chunk, lv.voice)
	if err != nil {
		return audio.PCM{}, err
	}
	defer func() { _ = w.Close() }()

	return audio.PCM{
		Samples:    w.CopySamples(),
		SampleRate: w.SampleRate(),
		Channels:   w.NumChannels(),
	}, nil
}

func (s *Service) voice(id string) (*loadedVoice, error) {
	entry, err := s.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, flite.ErrClosed
	}
	if lv, ok := s.voices[id]; ok {
		return lv, nil
	}

	var v *flite.Voice
	switch {
	case entry.Builtin():
		v, err = s.engine.DefaultVoice()
	case entry.Path != "":
		v, err = s.engine.VoiceFromFile(entry.Path)
	default:
		v, err = s.engine.VoiceByName(entry.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("load voice %q: %w", id, err)
	}

	s.log.Debug("voice loaded", slog.String("voice", id), slog.String("name", v.Name()))

	lv := &loadedVoice{voice: v}
	s.voices[id] = lv

	return lv, nil
}

// Close releases every cached voice. Synthesis in progress finishes first.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for id, lv := range s.voices {
		lv.mu.Lock()
		if err := lv.voice.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close voice %q: %w", id, err)
		}
		lv.mu.Unlock()
	}
	s.voices = nil

	return firstErr
}
