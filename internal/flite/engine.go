// Package flite is a handle-based wrapper over the CMU Flite speech synthesis
// engine.
//
// An Engine performs Flite's process-wide setup exactly once, then hands out
// Voice and Wave handles. A handle that owns its native resource releases it
// exactly once on Close; the built-in voice is shared and never freed:
//
//	voice, err := flite.DefaultVoice()
//	if err != nil {
//	    return err
//	}
//	defer voice.Close()
//
//	wave, err := flite.Speak("hello", voice)
//	if err != nil {
//	    return err
//	}
//	defer wave.Close()
//
//	samples := wave.Samples() // valid until wave.Close
package flite

import (
	"fmt"
	"log/slog"
	"sync"
)

// Language tags registered during engine setup. Both are bound to the US
// English language and CMU lexicon callbacks.
var engineLanguages = []string{"eng", "usenglish"}

// Engine owns a native binding and the one-time setup of its global state.
type Engine struct {
	binding Binding
	log     *slog.Logger

	initOnce sync.Once
	initErr  error

	// Flite keeps kal in a process global and returns the same pointer from
	// every register_cmu_us_kal call, so it is registered once per engine.
	defaultMu  sync.Mutex
	defaultRaw *RawVoice
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for engine lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine wraps b. No native call is made until the first operation.
func NewEngine(b Binding, opts ...Option) *Engine {
	e := &Engine{binding: b, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// EnsureInitialized bootstraps Flite and registers the English language
// entries. The first call performs the setup; concurrent callers block until
// it has finished and every later call returns the same result.
func (e *Engine) EnsureInitialized() error {
	e.initOnce.Do(func() {
		e.initErr = e.initialize()
	})

	return e.initErr
}

func (e *Engine) initialize() error {
	if rc := e.binding.Init(); rc != 0 {
		return fmt.Errorf("%w: flite_init returned %d", ErrEngineInit, rc)
	}

	langInit, lexInit := e.binding.LanguageCallbacks()
	for _, lang := range engineLanguages {
		name, err := cString("language", lang)
		if err != nil {
			return err
		}
		if rc := e.binding.AddLang(name, langInit, lexInit); rc == 0 {
			return fmt.Errorf("%w: flite_add_lang(%q) failed", ErrEngineInit, lang)
		}
	}

	e.log.Debug("flite engine initialized", slog.Any("languages", engineLanguages))

	return nil
}

var (
	bootstrapOnce   sync.Once
	bootstrapEngine *Engine
	errBootstrap    error
)

// Bootstrap opens the native libraries and creates the process-wide engine.
// Only the first call's configuration is used; later calls return the same
// engine or error.
func Bootstrap(cfg LibraryConfig, opts ...Option) (*Engine, error) {
	bootstrapOnce.Do(func() {
		b, err := newPlatformBinding(cfg)
		if err != nil {
			errBootstrap = fmt.Errorf("load flite libraries: %w", err)
			return
		}
		bootstrapEngine = NewEngine(b, opts...)
	})

	if errBootstrap != nil {
		return nil, errBootstrap
	}

	return bootstrapEngine, nil
}

// DefaultEngine returns the process-wide engine, bootstrapping it from the
// environment if Bootstrap has not been called yet.
func DefaultEngine() (*Engine, error) {
	return Bootstrap(LibraryConfig{})
}

// EnsureEngineInitialized performs the one-time setup of the process-wide
// engine. It is idempotent and safe for concurrent use.
func EnsureEngineInitialized() error {
	e, err := DefaultEngine()
	if err != nil {
		return err
	}

	return e.EnsureInitialized()
}

// DefaultVoice registers the built-in kal voice on the process-wide engine.
func DefaultVoice() (*Voice, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}

	return e.DefaultVoice()
}

// VoiceByName selects a registered voice on the process-wide engine.
func VoiceByName(name string) (*Voice, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}

	return e.VoiceByName(name)
}

// VoiceFromFile loads a .flitevox voice on the process-wide engine.
func VoiceFromFile(path string) (*Voice, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}

	return e.VoiceFromFile(path)
}

// Speak synthesizes text with voice on the engine that created voice.
func Speak(text string, voice *Voice) (*Wave, error) {
	if voice == nil || voice.engine == nil {
		if _, err := cString("text", text); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: nil voice", ErrClosed)
	}

	return voice.engine.Speak(text, voice)
}
