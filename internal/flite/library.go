package flite

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibraryConfig selects where the Flite shared libraries are loaded from.
type LibraryConfig struct {
	// Dir is searched first. Empty means FLITE_LIBRARY_DIR, then system paths.
	Dir string
}

// LibraryPaths holds the resolved location of each shared library the
// binding needs.
type LibraryPaths struct {
	Core  string // libflite
	Lang  string // libflite_usenglish
	Lex   string // libflite_cmulex
	Voice string // libflite_cmu_us_kal
}

const (
	libCore  = "flite"
	libLang  = "flite_usenglish"
	libLex   = "flite_cmulex"
	libVoice = "flite_cmu_us_kal"
)

var systemLibraryDirs = []string{
	"/usr/lib",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/lib64",
	"/usr/local/lib",
	"/opt/homebrew/lib",
	"/usr/local/opt/flite/lib",
}

// DetectLibraries resolves all four Flite libraries from a single directory.
// The directory is taken from cfg.Dir, then FLITE_LIBRARY_DIR, then the first
// system directory that contains libflite.
func DetectLibraries(cfg LibraryConfig) (LibraryPaths, error) {
	dirs := candidateDirs(cfg)
	if len(dirs) == 0 {
		return LibraryPaths{}, ErrLibraryNotFound
	}

	var lastErr error
	for _, dir := range dirs {
		paths, err := librariesIn(dir)
		if err == nil {
			return paths, nil
		}
		lastErr = err
	}

	return LibraryPaths{}, lastErr
}

func candidateDirs(cfg LibraryConfig) []string {
	if cfg.Dir != "" {
		return []string{cfg.Dir}
	}
	if env := os.Getenv("FLITE_LIBRARY_DIR"); env != "" {
		return []string{env}
	}

	return append([]string(nil), systemLibraryDirs...)
}

func librariesIn(dir string) (LibraryPaths, error) {
	var paths LibraryPaths
	for _, lib := range []struct {
		name string
		dst  *string
	}{
		{libCore, &paths.Core},
		{libLang, &paths.Lang},
		{libLex, &paths.Lex},
		{libVoice, &paths.Voice},
	} {
		p, ok := findLibrary(dir, lib.name)
		if !ok {
			return LibraryPaths{}, fmt.Errorf("%w: lib%s in %s", ErrLibraryNotFound, lib.name, dir)
		}
		*lib.dst = p
	}

	return paths, nil
}

func findLibrary(dir, name string) (string, bool) {
	for _, file := range libraryFileNames(name) {
		p := filepath.Join(dir, file)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}

	return "", false
}

// libraryFileNames lists the file names a shared library may be installed
// under, unversioned first.
func libraryFileNames(name string) []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"lib" + name + ".dylib", "lib" + name + ".1.dylib"}
	case "windows":
		return []string{"lib" + name + ".dll", name + ".dll"}
	default:
		return []string{"lib" + name + ".so", "lib" + name + ".so.1"}
	}
}
