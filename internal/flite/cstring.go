package flite

import "strings"

// cString returns a NUL-terminated copy of s suitable for passing to the
// native library. field names the argument in the returned *StringError.
func cString(field, s string) (*byte, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, &StringError{Field: field, Offset: i}
	}

	buf := make([]byte, len(s)+1)
	copy(buf, s)

	return &buf[0], nil
}

// GoString reads a NUL-terminated C string. A nil pointer yields "".
func GoString(p *byte) string {
	if p == nil {
		return ""
	}

	n := 0
	for *byteAt(p, n) != 0 {
		n++
	}

	return string(sliceOf(p, n))
}
