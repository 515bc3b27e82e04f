package text

import (
	"errors"
	"strings"
	"unicode"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares raw input text for synthesis.
// Line endings become \n, runs of spaces and tabs collapse to one space,
// surrounding whitespace is trimmed, and empty input is rejected.
func Normalize(s string) (string, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, isBlank), " ")
	}
	s = strings.TrimSpace(strings.Join(lines, "\n"))

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// StripControl removes control characters other than newline and tab,
// including NUL bytes that the engine cannot accept.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func isBlank(r rune) bool { return r == ' ' || r == '\t' }
