package strutil

import (
	"strings"
	"unsafe"
)

// B2S converts a byte slice into a string without copying. The slice must not be
// mutated afterwards for as long as the string is alive.
func B2S(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// S2B converts a string into a byte slice without copying. The returned slice must
// never be written to.
func S2B(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// CmpFold compares two ASCII strings case-insensitively.
func CmpFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}

	return true
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c | 0x20
	}

	return c
}

func LStripWS(str string) string {
	for i := 0; i < len(str); i++ {
		switch str[i] {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

func RStripWS(str string) string {
	for i := len(str); i > 0; i-- {
		switch str[i-1] {
		case ' ', '\t':
		default:
			return str[:i]
		}
	}

	return ""
}

// StripWS strips both leading and trailing spaces and horizontal tabs.
func StripWS(str string) string {
	return RStripWS(LStripWS(str))
}

// CutParams returns the value before the first semicolon, stripped.
func CutParams(value string) string {
	if sep := strings.IndexByte(value, ';'); sep != -1 {
		value = value[:sep]
	}

	return StripWS(value)
}

// Tokens walks over a comma-separated list of tokens, yielding each stripped and
// with parameters cut. Empty elements are skipped.
func Tokens(value string, yield func(token string) bool) {
	for len(value) > 0 {
		var token string
		comma := strings.IndexByte(value, ',')
		if comma == -1 {
			token, value = value, ""
		} else {
			token, value = value[:comma], value[comma+1:]
		}

		if token = CutParams(token); len(token) == 0 {
			continue
		}

		if !yield(token) {
			return
		}
	}
}
