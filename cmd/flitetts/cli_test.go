package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-flite/internal/audio"
	"github.com/example/go-flite/internal/config"
	"github.com/example/go-flite/internal/flite"
	"github.com/example/go-flite/internal/flite/flitetest"
)

// useFakeEngine routes every engine the CLI opens through a fake binding.
func useFakeEngine(t *testing.T) *flitetest.Binding {
	t.Helper()

	b := flitetest.New()
	b.Registered = []string{"kal", "slt"}

	orig := openEngine
	openEngine = func(config.Config) (*flite.Engine, error) { return flite.NewEngine(b), nil }
	t.Cleanup(func() { openEngine = orig })

	return b
}

type fakePlayer struct {
	played []audio.PCM
	closed bool
}

func (p *fakePlayer) Play(_ context.Context, pcm audio.PCM) error {
	p.played = append(p.played, pcm)
	return nil
}

func (p *fakePlayer) Close() error {
	p.closed = true
	return nil
}

// runCLI executes the root command in an empty working directory and returns
// what it wrote to stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	t.Chdir(t.TempDir())

	origCfg, origLoaded, origFile := activeCfg, configLoaded, cfgFile
	t.Cleanup(func() { activeCfg, configLoaded, cfgFile = origCfg, origLoaded, origFile })

	var stdout, stderr bytes.Buffer

	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voices.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

// fakeLibraryDir creates empty files under every name DetectLibraries looks
// for, on any platform.
func fakeLibraryDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"flite", "flite_usenglish", "flite_cmulex", "flite_cmu_us_kal"} {
		for _, file := range []string{"lib" + name + ".so", "lib" + name + ".dylib", "lib" + name + ".dll"} {
			if err := os.WriteFile(filepath.Join(dir, file), nil, 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
		}
	}

	return dir
}
