package flite

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultVoiceName is the name Flite gives the bundled diphone voice.
const DefaultVoiceName = "kal"

// Voice is a handle to a loaded Flite voice.
//
// Voices from VoiceFromFile are owned and freed on Close. Voices from
// DefaultVoice and VoiceByName belong to Flite; Close only invalidates the
// handle.
type Voice struct {
	engine *Engine
	name   string
	owned  bool

	mu  sync.RWMutex
	raw *RawVoice
}

func (e *Engine) newVoice(raw *RawVoice, owned bool, fallbackName string) *Voice {
	name := GoString(raw.Name)
	if name == "" {
		name = fallbackName
	}

	return &Voice{engine: e, raw: raw, name: name, owned: owned}
}

// DefaultVoice initializes the engine and returns a handle to the built-in
// kal voice. The voice is registered on first use and shared by every
// handle; closing a handle never frees it.
func (e *Engine) DefaultVoice() (*Voice, error) {
	if err := e.EnsureInitialized(); err != nil {
		return nil, err
	}

	e.defaultMu.Lock()
	defer e.defaultMu.Unlock()

	if e.defaultRaw == nil {
		raw := e.binding.RegisterDefaultVoice()
		if raw == nil {
			return nil, fmt.Errorf("%w: register_cmu_us_kal returned NULL", ErrVoiceUnavailable)
		}
		e.defaultRaw = raw
		e.log.Debug("flite voice registered", slog.String("voice", DefaultVoiceName))
	}

	return e.newVoice(e.defaultRaw, false, DefaultVoiceName), nil
}

// VoiceByName selects a voice already present in Flite's voice registry.
// Flite falls back to its first registered voice for unknown names; that
// fallback is reported as ErrVoiceNotFound.
func (e *Engine) VoiceByName(name string) (*Voice, error) {
	cname, err := cString("voice name", name)
	if err != nil {
		return nil, err
	}
	if err := e.EnsureInitialized(); err != nil {
		return nil, err
	}

	raw := e.binding.SelectVoice(cname)
	if raw == nil {
		return nil, fmt.Errorf("%w: %q", ErrVoiceNotFound, name)
	}
	if got := GoString(raw.Name); got != name {
		return nil, fmt.Errorf("%w: %q (engine selected %q)", ErrVoiceNotFound, name, got)
	}

	return e.newVoice(raw, false, name), nil
}

// VoiceFromFile loads a .flitevox voice from path. The voice is not added to
// Flite's registry and is freed on Close.
func (e *Engine) VoiceFromFile(path string) (*Voice, error) {
	cpath, err := cString("voice path", path)
	if err != nil {
		return nil, err
	}
	if err := e.EnsureInitialized(); err != nil {
		return nil, err
	}

	raw := e.binding.LoadVoice(cpath)
	if raw == nil {
		return nil, fmt.Errorf("%w: flite_voice_load(%q) returned NULL", ErrVoiceUnavailable, path)
	}

	v := e.newVoice(raw, true, path)
	e.log.Debug("flite voice loaded", slog.String("voice", v.name), slog.String("path", path))

	return v, nil
}

// Name returns the voice name reported by Flite.
func (v *Voice) Name() string { return v.name }

// Owned reports whether Close frees the native voice.
func (v *Voice) Owned() bool { return v.owned }

// Close releases the voice. It is safe to call more than once; only the first
// call has an effect. Waves synthesized from v stay valid.
func (v *Voice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.raw == nil {
		return nil
	}
	if v.owned {
		v.engine.binding.DeleteVoice(v.raw)
	}
	v.raw = nil

	return nil
}

// acquire returns the native voice held under a read lock so Close cannot
// free it mid-synthesis. The caller must call release.
func (v *Voice) acquire() (*RawVoice, func(), error) {
	v.mu.RLock()
	if v.raw == nil {
		v.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: voice %q", ErrClosed, v.name)
	}

	return v.raw, v.mu.RUnlock, nil
}
