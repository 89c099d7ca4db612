// Package encoding converts the CP949 text embedded in model files and their sidecars.
package encoding

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// ErrInvalidCP949 is returned when a byte sequence is not valid CP949 text.
var ErrInvalidCP949 = errors.New("invalid CP949 byte sequence")

// CP949ToUTF8 decodes CP949 bytes into a UTF-8 string.
// Unlike a lenient decode it fails instead of inserting replacement characters,
// so a corrupt name never silently becomes a different name.
func CP949ToUTF8(data []byte) (string, error) {
	if isASCII(data) {
		return string(data), nil
	}
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(result, utf8.RuneError) {
		return "", ErrInvalidCP949
	}
	return string(result), nil
}

// UTF8ToCP949 encodes a UTF-8 string as CP949 bytes.
func UTF8ToCP949(s string) ([]byte, error) {
	if isASCII([]byte(s)) {
		return []byte(s), nil
	}
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NewCP949Reader returns a reader that decodes CP949 input to UTF-8.
func NewCP949Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, korean.EUCKR.NewDecoder())
}

// IsCP949Label reports whether an XML/HTML charset label names CP949 or one of its aliases.
func IsCP949Label(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "cp949", "euc-kr", "euckr", "ks_c_5601-1987", "windows-949", "uhc":
		return true
	}
	return false
}

// NormalizePath normalizes an asset path for case-insensitive lookup.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
