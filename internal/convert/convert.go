// Package convert runs the CSV to iCalendar pipeline: decode, detect the
// dialect, pick a row strategy, parse dates, assemble and serialize.
package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"csv2ics/internal/columns"
	"csv2ics/internal/config"
	"csv2ics/internal/dates"
	"csv2ics/internal/decode"
	"csv2ics/internal/dialect"
	"csv2ics/internal/ics"
	appLog "csv2ics/internal/log"
	"csv2ics/internal/model"
	"csv2ics/internal/rows"
)

// ErrInputNotFound wraps a missing input path.
var ErrInputNotFound = errors.New("input not found")

// Options configures one Converter.
type Options struct {
	// Timezone is attached to every event; empty writes UTC-literal times.
	Timezone string

	ProdID string
	Method string

	Encodings        []string
	ExtraDateLayouts []string
	Hints            map[model.Role][]string

	// Verify re-parses the produced document before returning it.
	Verify bool

	// Now overrides the DTSTAMP clock.
	Now func() time.Time
}

// OptionsFromConfig maps the file configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timezone:         cfg.Timezone,
		ProdID:           cfg.ProdID,
		Method:           cfg.Method,
		Encodings:        cfg.Encodings,
		ExtraDateLayouts: cfg.ExtraDateLayouts,
		Hints: map[model.Role][]string{
			model.RoleSubject: cfg.Columns.Subject,
			model.RoleStart:   cfg.Columns.Start,
			model.RoleEnd:     cfg.Columns.End,
		},
	}
}

// Result is the outcome of one conversion run.
type Result struct {
	Document  []byte
	Events    []model.CalendarEvent
	Issues    []model.RowIssue
	Encoding  string
	Delimiter rune

	// Mapping is nil when the input had no header.
	Mapping *model.ColumnMapping

	// Zoned is false when times were written as UTC literals, either by
	// request or because the zone could not be loaded.
	Zoned bool
}

// Converter is reusable; every call runs with its own UID counter table.
type Converter struct {
	opts     Options
	resolver *columns.Resolver
	parser   *dates.Parser
}

func New(opts Options) *Converter {
	if len(opts.Encodings) == 0 {
		opts.Encodings = config.DefaultEncodings
	}
	return &Converter{
		opts:     opts,
		resolver: columns.NewResolver(opts.Hints),
		parser:   dates.NewParser(opts.ExtraDateLayouts...),
	}
}

// ConvertFile converts the file at path. The UID namespace is the file's
// base name.
func (c *Converter) ConvertFile(path string) (Result, error) {
	dec, err := decode.Open(path, c.opts.Encodings)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return Result{}, err
	}
	appLog.Debug("input decoded", "path", path, "encoding", dec.Encoding)
	return c.convert(dec, ics.Namespace(path))
}

// ConvertBytes converts in-memory input under the given UID namespace.
func (c *Converter) ConvertBytes(data []byte, namespace string) (Result, error) {
	dec, err := decode.Decode(data, c.opts.Encodings)
	if err != nil {
		return Result{}, err
	}
	return c.convert(dec, namespace)
}

func (c *Converter) convert(dec decode.Result, namespace string) (Result, error) {
	res := Result{
		Encoding:  dec.Encoding,
		Delimiter: dialect.Detect(dec.Text),
	}

	records, err := rows.Read(dec.Text, res.Delimiter)
	if err != nil {
		return res, fmt.Errorf("read records: %w", err)
	}

	lay, err := c.detectLayout(records)
	if err != nil {
		return res, err
	}
	res.Mapping = lay.mapping

	asm := ics.NewAssembler(namespace, c.opts.Timezone)
	if c.opts.Now != nil {
		asm.SetClock(c.opts.Now)
	}
	res.Zoned = asm.Zoned()

	for i, rec := range records {
		if i == lay.header {
			continue
		}
		ev, err := c.processRow(rec, lay.normalizer)
		if err != nil {
			if errors.Is(err, rows.ErrHeader) {
				continue
			}
			res.Issues = append(res.Issues, reportIssue(rec, err))
			continue
		}
		if ev == nil {
			continue
		}
		cev := asm.Assemble(*ev)
		appLog.Debug("event assembled", "line", rec.Line, "uid", cev.UID, "start", cev.Instant(cev.Start))
		res.Events = append(res.Events, cev)
	}

	doc, err := ics.Serialize(res.Events, ics.SerializeOptions{
		ProdID: c.opts.ProdID,
		Method: c.opts.Method,
	})
	if err != nil {
		return res, err
	}
	if c.opts.Verify {
		if err := ics.Verify(doc, len(res.Events)); err != nil {
			return res, err
		}
	}
	res.Document = doc
	return res, nil
}

// processRow returns nil, nil for blank rows.
func (c *Converter) processRow(rec rows.Record, n rows.Normalizer) (*model.ParsedEvent, error) {
	if rec.Err != nil {
		return nil, rec.Err
	}
	if rows.Blank(rec.Cells) {
		return nil, nil
	}

	f, err := n.Normalize(rec.Cells, rec.Line)
	if err != nil {
		return nil, err
	}

	start, err := c.parser.Parse(f.Start)
	if err != nil {
		return nil, err
	}
	end, err := c.parser.Parse(f.End)
	if err != nil {
		return nil, err
	}

	return &model.ParsedEvent{
		Subject: f.Subject,
		Start:   start,
		End:     end,
		Line:    rec.Line,
	}, nil
}

func reportIssue(rec rows.Record, err error) model.RowIssue {
	issue := model.RowIssue{Line: rec.Line, Raw: rec.Cells, Reason: err.Error()}
	appLog.Warn("row skipped", "line", rec.Line, "raw", strings.Join(rec.Cells, " | "), "reason", issue.Reason)
	return issue
}
