//go:build darwin || freebsd || linux

package flite

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// nativeBinding calls into the Flite shared libraries through purego.
type nativeBinding struct {
	paths LibraryPaths

	langInit uintptr
	lexInit  uintptr

	fliteInit        func() int32
	fliteAddLang     func(lang *byte, langInit, lexInit uintptr) int32
	registerCmuUsKal func(voxdir unsafe.Pointer) unsafe.Pointer
	fliteVoiceSelect func(name *byte) unsafe.Pointer
	fliteVoiceLoad   func(path *byte) unsafe.Pointer
	fliteTextToWave  func(text *byte, voice unsafe.Pointer) unsafe.Pointer
	deleteVoice      func(voice unsafe.Pointer)
	deleteWave       func(wave unsafe.Pointer)
}

// OpenNative loads the Flite libraries described by paths and resolves every
// symbol the wrapper uses. Libraries are opened RTLD_GLOBAL, core first, so
// the language and voice libraries can resolve against it.
func OpenNative(paths LibraryPaths) (Binding, error) {
	b := &nativeBinding{paths: paths}

	handles := make(map[string]uintptr, 4)
	for _, lib := range []struct{ key, path string }{
		{libCore, paths.Core},
		{libLex, paths.Lex},
		{libLang, paths.Lang},
		{libVoice, paths.Voice},
	} {
		h, err := purego.Dlopen(lib.path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return nil, fmt.Errorf("dlopen %s: %w", lib.path, err)
		}
		handles[lib.key] = h
	}

	funcs := []struct {
		lib  string
		name string
		fptr any
	}{
		{libCore, "flite_init", &b.fliteInit},
		{libCore, "flite_add_lang", &b.fliteAddLang},
		{libCore, "flite_voice_select", &b.fliteVoiceSelect},
		{libCore, "flite_voice_load", &b.fliteVoiceLoad},
		{libCore, "flite_text_to_wave", &b.fliteTextToWave},
		{libCore, "delete_voice", &b.deleteVoice},
		{libCore, "delete_wave", &b.deleteWave},
		{libVoice, "register_cmu_us_kal", &b.registerCmuUsKal},
	}
	for _, fn := range funcs {
		sym, err := purego.Dlsym(handles[fn.lib], fn.name)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", fn.name, err)
		}
		purego.RegisterFunc(fn.fptr, sym)
	}

	var err error
	if b.langInit, err = purego.Dlsym(handles[libLang], "usenglish_init"); err != nil {
		return nil, fmt.Errorf("resolve usenglish_init: %w", err)
	}
	if b.lexInit, err = purego.Dlsym(handles[libLex], "cmu_lex_init"); err != nil {
		return nil, fmt.Errorf("resolve cmu_lex_init: %w", err)
	}

	return b, nil
}

func newPlatformBinding(cfg LibraryConfig) (Binding, error) {
	paths, err := DetectLibraries(cfg)
	if err != nil {
		return nil, err
	}

	return OpenNative(paths)
}

func (b *nativeBinding) Init() int32 { return b.fliteInit() }

func (b *nativeBinding) LanguageCallbacks() (uintptr, uintptr) { return b.langInit, b.lexInit }

func (b *nativeBinding) AddLang(lang *byte, langInit, lexInit uintptr) int32 {
	rc := b.fliteAddLang(lang, langInit, lexInit)
	runtime.KeepAlive(lang)

	return rc
}

func (b *nativeBinding) RegisterDefaultVoice() *RawVoice {
	return (*RawVoice)(b.registerCmuUsKal(nil))
}

func (b *nativeBinding) SelectVoice(name *byte) *RawVoice {
	v := b.fliteVoiceSelect(name)
	runtime.KeepAlive(name)

	return (*RawVoice)(v)
}

func (b *nativeBinding) LoadVoice(path *byte) *RawVoice {
	v := b.fliteVoiceLoad(path)
	runtime.KeepAlive(path)

	return (*RawVoice)(v)
}

func (b *nativeBinding) TextToWave(text *byte, voice *RawVoice) *RawWave {
	w := b.fliteTextToWave(text, unsafe.Pointer(voice))
	runtime.KeepAlive(text)

	return (*RawWave)(w)
}

func (b *nativeBinding) DeleteVoice(v *RawVoice) { b.deleteVoice(unsafe.Pointer(v)) }

func (b *nativeBinding) DeleteWave(w *RawWave) { b.deleteWave(unsafe.Pointer(w)) }
