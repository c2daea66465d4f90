package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFileNameLen = 128

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a client-supplied name into a single safe path
// segment. Separators become underscores, control characters are dropped and
// long names are shortened with their extension kept.
func SanitizeFileName(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r) || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), " .")
	if s == "" || strings.Contains(s, "..") {
		return "", ErrInvalidFileName
	}

	if utf8.RuneCountInString(s) > maxFileNameLen {
		ext := path.Ext(s)
		if utf8.RuneCountInString(ext) > maxFileNameLen/4 {
			ext = ""
		}
		runes := []rune(strings.TrimSuffix(s, ext))
		s = string(runes[:maxFileNameLen-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}
