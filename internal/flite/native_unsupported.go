//go:build !(darwin || freebsd || linux)

package flite

// OpenNative is unavailable where purego cannot dlopen shared libraries.
func OpenNative(LibraryPaths) (Binding, error) {
	return nil, ErrUnsupportedPlatform
}

func newPlatformBinding(LibraryConfig) (Binding, error) {
	return nil, ErrUnsupportedPlatform
}
