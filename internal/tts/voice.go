package tts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/example/go-flite/internal/flite"
)

// BuiltinVoiceID identifies the voice compiled into the Flite voice library.
// It is present in every catalog.
const BuiltinVoiceID = flite.DefaultVoiceName

// ErrUnknownVoice is returned for a voice id the catalog does not list.
var ErrUnknownVoice = errors.New("unknown voice")

// Voice describes one catalog entry. Exactly one of Name (a voice registered
// with the engine) or Path (a .flitevox file) is set, except for the built-in.
type Voice struct {
	ID          string `yaml:"id"                    json:"id"`
	Name        string `yaml:"name,omitempty"        json:"name,omitempty"`
	Path        string `yaml:"path,omitempty"        json:"path,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	License     string `yaml:"license,omitempty"     json:"license,omitempty"`

	// URL and SHA256 locate and pin the published .flitevox for a path voice.
	URL    string `yaml:"url,omitempty"    json:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty" json:"sha256,omitempty"`

	builtin bool
}

// Builtin reports whether v is the compiled-in default voice.
func (v Voice) Builtin() bool { return v.builtin }

func builtinVoice() Voice {
	return Voice{
		ID:          BuiltinVoiceID,
		Name:        flite.DefaultVoiceName,
		Description: "CMU US KAL diphone voice (built in)",
		License:     "BSD-style (CMU)",
		builtin:     true,
	}
}

type voiceManifest struct {
	Voices []Voice `yaml:"voices"`
}

// VoiceCatalog is the set of voices the service can synthesize with.
type VoiceCatalog struct {
	path   string
	voices []Voice
	byID   map[string]Voice
}

// DefaultCatalog returns a catalog holding only the built-in voice.
func DefaultCatalog() *VoiceCatalog {
	c, _ := newCatalog("", nil)
	return c
}

// LoadCatalog reads a YAML voice manifest. Relative voice paths are resolved
// against the manifest's directory.
func LoadCatalog(manifestPath string) (*VoiceCatalog, error) {
	if manifestPath == "" {
		return nil, errors.New("manifest path is required")
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read voice manifest: %w", err)
	}

	c, err := ParseCatalog(data, filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}
	c.path = manifestPath

	return c, nil
}

// ParseCatalog decodes a YAML manifest, resolving relative paths against baseDir.
func ParseCatalog(data []byte, baseDir string) (*VoiceCatalog, error) {
	var manifest voiceManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode voice manifest: %w", err)
	}

	for i, v := range manifest.Voices {
		if v.Path != "" && !filepath.IsAbs(v.Path) {
			manifest.Voices[i].Path = filepath.Clean(filepath.Join(baseDir, v.Path))
		}
	}

	return newCatalog("", manifest.Voices)
}

func newCatalog(path string, voices []Voice) (*VoiceCatalog, error) {
	c := &VoiceCatalog{
		path:   path,
		voices: make([]Voice, 0, len(voices)+1),
		byID:   make(map[string]Voice, len(voices)+1),
	}

	builtin := builtinVoice()
	c.voices = append(c.voices, builtin)
	c.byID[builtin.ID] = builtin

	for _, v := range voices {
		if v.ID == "" {
			return nil, errors.New("voice manifest contains empty id")
		}
		if _, exists := c.byID[v.ID]; exists {
			return nil, fmt.Errorf("duplicate voice id %q", v.ID)
		}
		switch {
		case v.Name == "" && v.Path == "":
			return nil, fmt.Errorf("voice %q needs a name or a path", v.ID)
		case v.Name != "" && v.Path != "":
			return nil, fmt.Errorf("voice %q sets both name and path", v.ID)
		case v.URL != "" && v.Path == "":
			return nil, fmt.Errorf("voice %q has a url but no path to store it", v.ID)
		}

		v.builtin = false
		c.voices = append(c.voices, v)
		c.byID[v.ID] = v
	}

	return c, nil
}

// Path returns the manifest the catalog was loaded from, or "" for DefaultCatalog.
func (c *VoiceCatalog) Path() string { return c.path }

// ListVoices returns the catalog entries, built-in first.
func (c *VoiceCatalog) ListVoices() []Voice {
	return append([]Voice(nil), c.voices...)
}

// Lookup returns the entry for id.
func (c *VoiceCatalog) Lookup(id string) (Voice, error) {
	v, ok := c.byID[id]
	if !ok {
		return Voice{}, fmt.Errorf("%w %q", ErrUnknownVoice, id)
	}

	return v, nil
}
