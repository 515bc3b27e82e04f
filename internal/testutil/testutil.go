// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable on machines
// without Flite installed.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    engine := testutil.RequireFliteEngine(t)
//	    ...
//	}
package testutil

import (
	"os"
	"testing"

	"github.com/example/go-flite/internal/flite"
)

// RequireFliteLibrary skips the test unless all four Flite shared libraries
// can be located in FLITE_LIBRARY_DIR or the system library directories.
func RequireFliteLibrary(tb testing.TB) flite.LibraryPaths {
	tb.Helper()

	paths, err := flite.DetectLibraries(flite.LibraryConfig{})
	if err != nil {
		tb.Skipf("flite libraries not available: %v; set FLITE_LIBRARY_DIR to override", err)
	}

	return paths
}

// RequireFliteEngine skips the test unless the process-wide Flite engine can
// be loaded and initialized.
func RequireFliteEngine(tb testing.TB) *flite.Engine {
	tb.Helper()

	RequireFliteLibrary(tb)

	engine, err := flite.DefaultEngine()
	if err != nil {
		tb.Skipf("flite engine not available: %v", err)
	}

	if err := engine.EnsureInitialized(); err != nil {
		tb.Skipf("flite engine failed to initialize: %v", err)
	}

	return engine
}

// RequireVoiceFile skips the test if the .flitevox file at path is missing.
// FLITE_VOICE_DIR, when set, is tried as a prefix for relative paths.
func RequireVoiceFile(tb testing.TB, path string) string {
	tb.Helper()

	candidates := []string{path}
	if dir := os.Getenv("FLITE_VOICE_DIR"); dir != "" && !isAbs(path) {
		candidates = append([]string{dir + string(os.PathSeparator) + path}, candidates...)
	}

	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}

	tb.Skipf("voice file %q not available", path)

	return ""
}

func isAbs(p string) bool {
	return len(p) > 0 && os.IsPathSeparator(p[0])
}
