package flite_test

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/example/go-flite/internal/flite"
	"github.com/example/go-flite/internal/flite/flitetest"
)

func newTestEngine(t *testing.T) (*flite.Engine, *flitetest.Binding) {
	t.Helper()

	b := flitetest.New()
	return flite.NewEngine(b), b
}

func TestEnsureInitialized_RegistersLanguagesOnce(t *testing.T) {
	e, b := newTestEngine(t)

	for range 5 {
		if err := e.EnsureInitialized(); err != nil {
			t.Fatalf("EnsureInitialized: %v", err)
		}
	}

	if got := b.InitCalls(); got != 1 {
		t.Errorf("flite_init calls = %d; want 1", got)
	}

	want := []string{"eng", "usenglish"}
	if got := b.Languages(); !slices.Equal(got, want) {
		t.Errorf("languages = %v; want %v", got, want)
	}
}

func TestNewEngine_IsLazy(t *testing.T) {
	_, b := newTestEngine(t)

	if got := b.InitCalls(); got != 0 {
		t.Errorf("flite_init calls before first use = %d; want 0", got)
	}
}

func TestEnsureInitialized_ConcurrentCallersInitOnce(t *testing.T) {
	b := flitetest.New()
	b.InitDelay = 20 * time.Millisecond
	e := flite.NewEngine(b)

	const workers = 32

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				errs <- e.EnsureInitialized()
				return
			}
			v, err := e.DefaultVoice()
			if err != nil {
				errs <- err
				return
			}
			// Setup must be complete before any caller proceeds.
			if n := len(b.Languages()); n != 2 {
				t.Errorf("voice created with %d languages registered; want 2", n)
			}
			w, err := e.Speak("hi", v)
			if err == nil {
				_ = w.Close()
			}
			_ = v.Close()
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := b.DefaultVoiceRegistrations(); got != 1 {
		t.Errorf("register_cmu_us_kal calls = %d; want 1", got)
	}
	if got := b.DoubleFrees(); got != 0 {
		t.Errorf("double frees = %d; want 0", got)
	}

	if got := b.InitCalls(); got != 1 {
		t.Errorf("flite_init calls = %d; want 1", got)
	}
	if got := len(b.Languages()); got != 2 {
		t.Errorf("flite_add_lang calls = %d; want 2", got)
	}
}

func TestEnsureInitialized_BootstrapFailureIsSticky(t *testing.T) {
	b := flitetest.New()
	b.InitStatus = -1
	e := flite.NewEngine(b)

	err := e.EnsureInitialized()
	if !errors.Is(err, flite.ErrEngineInit) {
		t.Fatalf("err = %v; want ErrEngineInit", err)
	}

	if _, err := e.DefaultVoice(); !errors.Is(err, flite.ErrEngineInit) {
		t.Errorf("DefaultVoice err = %v; want ErrEngineInit", err)
	}

	if got := b.InitCalls(); got != 1 {
		t.Errorf("flite_init calls = %d; want 1", got)
	}
	if got := b.Languages(); len(got) != 0 {
		t.Errorf("languages registered after failed bootstrap: %v", got)
	}
	if got := b.DefaultVoiceRegistrations(); got != 0 {
		t.Errorf("register_cmu_us_kal calls = %d; want 0", got)
	}
}

func TestEnsureInitialized_AddLangFailure(t *testing.T) {
	b := flitetest.New()
	b.FailAddLang = true
	e := flite.NewEngine(b)

	if err := e.EnsureInitialized(); !errors.Is(err, flite.ErrEngineInit) {
		t.Fatalf("err = %v; want ErrEngineInit", err)
	}
}

func TestSpeak_PackageLevelNilVoice(t *testing.T) {
	_, err := flite.Speak("hello", nil)
	if !errors.Is(err, flite.ErrClosed) {
		t.Errorf("err = %v; want ErrClosed", err)
	}

	_, err = flite.Speak("a\x00b", nil)
	if !errors.Is(err, flite.ErrInvalidString) {
		t.Errorf("err = %v; want ErrInvalidString", err)
	}
}

func TestSpeak_PackageLevelUsesVoiceEngine(t *testing.T) {
	e, b := newTestEngine(t)

	v, err := e.DefaultVoice()
	if err != nil {
		t.Fatalf("DefaultVoice: %v", err)
	}
	defer v.Close()

	w, err := flite.Speak("hello", v)
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	defer w.Close()

	if got := b.SynthesisCalls(); got != 1 {
		t.Errorf("synthesis calls = %d; want 1", got)
	}
}
