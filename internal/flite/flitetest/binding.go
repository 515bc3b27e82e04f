// Package flitetest provides an in-memory flite.Binding for tests.
//
// The fake allocates Go-backed RawVoice and RawWave values, derives samples
// deterministically from the input text, and counts every native call so
// tests can assert on initialization and release behavior.
package flitetest

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/example/go-flite/internal/flite"
)

const (
	DefaultSampleRate     = 16000
	DefaultSamplesPerByte = 80
)

type wave struct {
	raw     *flite.RawWave
	samples []int16
}

// Binding is a counting fake of the Flite native API.
type Binding struct {
	// InitStatus is returned from Init; non-zero simulates a failed bootstrap.
	InitStatus int32
	// InitDelay stalls Init to widen races in concurrency tests.
	InitDelay time.Duration
	// FailAddLang makes AddLang report failure.
	FailAddLang bool
	// FailDefaultVoice makes RegisterDefaultVoice return nil.
	FailDefaultVoice bool
	// FailSynthesis makes TextToWave return nil.
	FailSynthesis bool
	// SynthesisDelay stalls every TextToWave call outside the fake's lock.
	SynthesisDelay time.Duration
	// SampleRate and SamplesPerByte shape synthesized waves.
	SampleRate     int32
	SamplesPerByte int
	// Registered lists voice names available to SelectVoice.
	Registered []string

	mu          sync.Mutex
	initCalls   int
	langs       []string
	synthCalls  int
	texts       []string
	voiceAllocs int
	voiceFrees  int
	waveAllocs  int
	waveFrees   int
	doubleFrees int
	overlaps    int
	inFlight    map[*flite.RawVoice]int
	voices      map[*flite.RawVoice]bool
	registry    map[string]*flite.RawVoice
	kal         *flite.RawVoice
	kalRegs     int
	waves       map[*flite.RawWave]*wave
}

// New returns a fake with the default sample rate and the kal voice
// registered.
func New() *Binding {
	return &Binding{
		SampleRate:     DefaultSampleRate,
		SamplesPerByte: DefaultSamplesPerByte,
		Registered:     []string{flite.DefaultVoiceName},
	}
}

func (b *Binding) lazyInit() {
	if b.voices == nil {
		b.voices = make(map[*flite.RawVoice]bool)
		b.registry = make(map[string]*flite.RawVoice)
		b.waves = make(map[*flite.RawWave]*wave)
		b.inFlight = make(map[*flite.RawVoice]int)
	}
}

func (b *Binding) Init() int32 {
	if b.InitDelay > 0 {
		time.Sleep(b.InitDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.initCalls++

	return b.InitStatus
}

func (b *Binding) LanguageCallbacks() (uintptr, uintptr) { return 0x1000, 0x2000 }

func (b *Binding) AddLang(lang *byte, _, _ uintptr) int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.langs = append(b.langs, flite.GoString(lang))
	if b.FailAddLang {
		return 0
	}

	return 1
}

// RegisterDefaultVoice returns the same registry-owned voice on every call,
// as register_cmu_us_kal does. Deleting it counts as a double free.
func (b *Binding) RegisterDefaultVoice() *flite.RawVoice {
	if b.FailDefaultVoice {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.kalRegs++
	if b.kal == nil {
		b.kal = &flite.RawVoice{Name: cstr(flite.DefaultVoiceName)}
	}

	return b.kal
}

func (b *Binding) SelectVoice(name *byte) *flite.RawVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lazyInit()

	if len(b.Registered) == 0 {
		return nil
	}
	want := flite.GoString(name)
	for _, n := range b.Registered {
		if n == want {
			return b.registryVoice(n)
		}
	}

	// Flite falls back to the first registered voice.
	return b.registryVoice(b.Registered[0])
}

func (b *Binding) registryVoice(name string) *flite.RawVoice {
	if v, ok := b.registry[name]; ok {
		return v
	}
	v := &flite.RawVoice{Name: cstr(name)}
	b.registry[name] = v

	return v
}

func (b *Binding) LoadVoice(path *byte) *flite.RawVoice {
	p := flite.GoString(path)
	if !strings.HasSuffix(p, ".flitevox") {
		return nil
	}

	return b.allocVoice(strings.TrimSuffix(filepath.Base(p), ".flitevox"))
}

func (b *Binding) allocVoice(name string) *flite.RawVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lazyInit()

	v := &flite.RawVoice{Name: cstr(name)}
	b.voices[v] = true
	b.voiceAllocs++

	return v
}

func (b *Binding) TextToWave(text *byte, voice *flite.RawVoice) *flite.RawWave {
	t := flite.GoString(text)

	b.mu.Lock()
	b.lazyInit()
	b.synthCalls++
	b.texts = append(b.texts, t)
	b.inFlight[voice]++
	if b.inFlight[voice] > 1 {
		b.overlaps++
	}
	delay := b.SynthesisDelay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight[voice]--

	if b.FailSynthesis || voice == nil {
		return nil
	}

	samples := Samples(t, b.SamplesPerByte)
	raw := &flite.RawWave{
		Type:        cstr("riff"),
		SampleRate:  b.SampleRate,
		NumSamples:  int32(len(samples)),
		NumChannels: 1,
	}
	if len(samples) > 0 {
		raw.Samples = &samples[0]
	}
	b.waves[raw] = &wave{raw: raw, samples: samples}
	b.waveAllocs++

	return raw
}

func (b *Binding) DeleteVoice(v *flite.RawVoice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lazyInit()

	if !b.voices[v] {
		b.doubleFrees++
		return
	}
	delete(b.voices, v)
	b.voiceFrees++
}

func (b *Binding) DeleteWave(w *flite.RawWave) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lazyInit()

	if _, ok := b.waves[w]; !ok {
		b.doubleFrees++
		return
	}
	// Poison the buffer so reads after free are visible in tests.
	for i := range b.waves[w].samples {
		b.waves[w].samples[i] = -1
	}
	delete(b.waves, w)
	b.waveFrees++
}

// Samples returns the waveform the fake synthesizes for text.
func Samples(text string, perByte int) []int16 {
	out := make([]int16, len(text)*perByte)
	for i := range out {
		out[i] = int16(int(text[i/perByte]) * (i%perByte + 1))
	}

	return out
}

func cstr(s string) *byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)

	return &buf[0]
}

func (b *Binding) InitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.initCalls
}

// Languages returns the language tags passed to AddLang, in call order.
func (b *Binding) Languages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.langs...)
}

func (b *Binding) SynthesisCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.synthCalls
}

// Texts returns every text passed to TextToWave, in call order.
func (b *Binding) Texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.texts...)
}

// DefaultVoiceRegistrations counts RegisterDefaultVoice calls.
func (b *Binding) DefaultVoiceRegistrations() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.kalRegs
}

// VoicesAllocated counts owned voices loaded from files.
func (b *Binding) VoicesAllocated() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.voiceAllocs
}

func (b *Binding) VoicesFreed() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.voiceFrees
}

func (b *Binding) WavesAllocated() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.waveAllocs
}

func (b *Binding) WavesFreed() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.waveFrees
}

// DoubleFrees counts frees of resources that were never allocated or were
// already released, including frees of registry-owned voices.
func (b *Binding) DoubleFrees() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.doubleFrees
}

// Overlaps counts TextToWave calls that started while another call on the
// same voice was still running.
func (b *Binding) Overlaps() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.overlaps
}

// Live returns the number of voices and waves allocated but not yet freed.
func (b *Binding) Live() (voices, waves int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.voices), len(b.waves)
}
