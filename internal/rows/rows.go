// Package rows reads delimited records and normalizes them into
// subject/start/end text fields.
package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csv2ics/internal/model"
)

var (
	// ErrSkip marks a row that is dropped without being malformed,
	// e.g. a missing start or end value.
	ErrSkip = errors.New("row skipped")

	// ErrHeader is a header line met by the positional strategy. It wraps
	// ErrSkip and is not worth reporting.
	ErrHeader = fmt.Errorf("%w: header line", ErrSkip)

	// ErrRowFormat matches any *FormatError with errors.Is.
	ErrRowFormat = errors.New("malformed row")
)

// FormatError is a row the positional strategy cannot split.
type FormatError struct {
	Line  int
	Cells int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: line %d: not enough columns (%d)", ErrRowFormat.Error(), e.Line, e.Cells)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrRowFormat
}

// Record is one parsed record with the source line it starts on.
type Record struct {
	Line  int
	Cells model.RawRow
	// Err is set when the reader could not parse the line.
	Err error
}

// Fields are the text values pulled out of a row.
type Fields struct {
	Subject string
	Start   string
	End     string
}

// Read splits text into records. Unparseable records are returned with
// Err set so the caller can report them and carry on.
func Read(text string, delim rune) ([]Record, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var out []Record
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				out = append(out, Record{Line: perr.StartLine, Cells: cells, Err: err})
				continue
			}
			return out, err
		}
		line, _ := r.FieldPos(0)
		out = append(out, Record{Line: line, Cells: cells})
	}
}

// Blank reports whether every cell is empty after trimming.
func Blank(row model.RawRow) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Normalizer extracts Fields from a row. It returns an error wrapping
// ErrSkip for rows that should be dropped quietly and ErrRowFormat for
// rows that cannot be split at all.
type Normalizer interface {
	Normalize(row model.RawRow, line int) (Fields, error)
}

// Mapped reads cells through a resolved column mapping.
type Mapped struct {
	Mapping model.ColumnMapping
}

func (m Mapped) Normalize(row model.RawRow, line int) (Fields, error) {
	f := Fields{
		Subject: cell(row, m.Mapping.Subject),
		Start:   cell(row, m.Mapping.Start),
		End:     cell(row, m.Mapping.End),
	}
	if f.Start == "" || f.End == "" {
		return f, fmt.Errorf("%w: line %d: missing start or end date", ErrSkip, line)
	}
	return f, nil
}

// Positional treats the last two cells as start/end and joins the rest
// with commas into the subject.
type Positional struct {
	// HeaderCell reports whether the first cell of the first data record
	// is a header label. Nil disables the check.
	HeaderCell func(string) bool
	// FirstLine is the source line of the first non-blank record. Leading
	// blank lines do not count.
	FirstLine int
}

func (p Positional) Normalize(row model.RawRow, line int) (Fields, error) {
	if line == p.FirstLine && p.HeaderCell != nil && len(row) > 0 && p.HeaderCell(row[0]) {
		return Fields{}, ErrHeader
	}
	if len(row) < 3 {
		return Fields{}, &FormatError{Line: line, Cells: len(row)}
	}

	subject := make([]string, 0, len(row)-2)
	for _, c := range row[:len(row)-2] {
		subject = append(subject, strings.TrimSpace(c))
	}
	return Fields{
		Subject: strings.Join(subject, ","),
		Start:   strings.TrimSpace(row[len(row)-2]),
		End:     strings.TrimSpace(row[len(row)-1]),
	}, nil
}

func cell(row model.RawRow, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
