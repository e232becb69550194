// Package decode turns raw input bytes into text by trying candidate
// encodings in priority order and keeping the first readable result.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrDecode matches any *Error with errors.Is.
var ErrDecode = errors.New("no candidate encoding produced readable text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Attempt is one failed candidate.
type Attempt struct {
	Encoding string
	Err      error
}

// Error is returned when every candidate failed.
type Error struct {
	Attempts []Attempt
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Encoding+": "+a.Err.Error())
	}
	return ErrDecode.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Is(target error) bool {
	return target == ErrDecode
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Result is the decoded text and the name of the encoding that produced it.
type Result struct {
	Text     string
	Encoding string
}

// Open reads path and decodes it. File system errors are returned as-is so
// callers can match fs.ErrNotExist.
func Open(path string, candidates []string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Decode(data, candidates)
}

// Decode tries candidates in order and returns the first success.
func Decode(data []byte, candidates []string) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, &Error{Attempts: []Attempt{{Encoding: "-", Err: errors.New("no candidates configured")}}}
	}

	derr := &Error{}
	for _, name := range candidates {
		text, err := decodeAs(data, name)
		if err != nil {
			derr.Attempts = append(derr.Attempts, Attempt{Encoding: name, Err: err})
			continue
		}
		return Result{Text: text, Encoding: name}, nil
	}
	return Result{}, derr
}

func decodeAs(data []byte, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "utf-8-sig", "utf8-sig", "utf-8-bom":
		return decodeUTF8(bytes.TrimPrefix(data, utf8BOM))
	case "utf-8", "utf8":
		return decodeUTF8(data)
	}

	enc, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("unknown encoding %q", name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if err := readable(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("invalid utf-8 byte sequence")
	}
	if err := readable(data); err != nil {
		return "", err
	}
	return string(data), nil
}

// readable rejects output carrying replacement characters or NUL bytes,
// which single-byte decoders produce instead of failing.
func readable(b []byte) error {
	if bytes.IndexByte(b, 0) >= 0 {
		return errors.New("contains NUL bytes")
	}
	if bytes.ContainsRune(b, utf8.RuneError) {
		return errors.New("contains undecodable bytes")
	}
	return nil
}

func lookup(key string) (encoding.Encoding, bool) {
	switch key {
	case "windows-1251", "cp1251":
		return charmap.Windows1251, true
	case "windows-1252", "cp1252":
		return charmap.Windows1252, true
	case "koi8-r":
		return charmap.KOI8R, true
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, true
	case "iso-8859-5":
		return charmap.ISO8859_5, true
	case "cp866", "ibm866":
		return charmap.CodePage866, true
	case "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), true
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), true
	}
	return nil, false
}
