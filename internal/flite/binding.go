package flite

import "unsafe"

// RawWave mirrors the layout of flite's cst_wave.
type RawWave struct {
	Type        *byte
	SampleRate  int32
	NumSamples  int32
	NumChannels int32
	Samples     *int16
}

// RawVoice mirrors the leading field of flite's cst_voice. Only Name is ever
// read; the rest of the native struct is opaque.
type RawVoice struct {
	Name *byte
}

// Binding is the set of native entry points the wrapper calls. Every string
// argument is a NUL-terminated buffer owned by the caller for the duration of
// the call.
type Binding interface {
	// Init runs flite_init and returns its status (0 on success).
	Init() int32
	// LanguageCallbacks returns the addresses of usenglish_init and cmu_lex_init.
	LanguageCallbacks() (langInit, lexInit uintptr)
	// AddLang runs flite_add_lang and returns its status (non-zero on success).
	AddLang(lang *byte, langInit, lexInit uintptr) int32
	RegisterDefaultVoice() *RawVoice
	SelectVoice(name *byte) *RawVoice
	LoadVoice(path *byte) *RawVoice
	TextToWave(text *byte, voice *RawVoice) *RawWave
	DeleteVoice(v *RawVoice)
	DeleteWave(w *RawWave)
}

func byteAt(p *byte, i int) *byte {
	return (*byte)(unsafe.Add(unsafe.Pointer(p), i))
}

func sliceOf(p *byte, n int) []byte {
	return unsafe.Slice(p, n)
}
