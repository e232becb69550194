// Package dates parses the date-time text found in source rows.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layouts are the accepted formats in the order they are tried.
// Day and month accept one or two digits.
var Layouts = []string{
	"2.1.2006 15:04",
	"2.1.2006 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
}

// KeyLayout is the compact form used for UIDs and DTSTART/DTEND values.
const KeyLayout = "20060102T150405"

// ErrParse matches any *ParseError with errors.Is.
var ErrParse = errors.New("unrecognized date")

// ParseError carries the offending input.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrParse.Error(), e.Raw)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parser tries a fixed list of layouts; the first match wins.
type Parser struct {
	layouts []string
}

// NewParser returns a Parser over the built-in layouts followed by extra.
func NewParser(extra ...string) *Parser {
	layouts := make([]string, 0, len(Layouts)+len(extra))
	layouts = append(layouts, Layouts...)
	for _, l := range extra {
		if l = strings.TrimSpace(l); l != "" {
			layouts = append(layouts, l)
		}
	}
	return &Parser{layouts: layouts}
}

// Parse returns a zone-naive timestamp (UTC location, wall clock preserved).
func (p *Parser) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Raw: s}
}

// Parse uses the built-in layouts only.
func Parse(s string) (time.Time, error) {
	return defaultParser.Parse(s)
}

var defaultParser = NewParser()

// Key formats t as YYYYMMDDTHHMMSS using its wall clock.
func Key(t time.Time) string {
	return t.Format(KeyLayout)
}
