package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"csv2ics/internal/dates"
	"csv2ics/internal/model"
)

// ErrEmptyResult is returned instead of writing a calendar without events.
var ErrEmptyResult = errors.New("no events to write")

// SerializeOptions controls the document header.
type SerializeOptions struct {
	ProdID string
	// Method is written as METHOD when non-empty (e.g. "PUBLISH").
	Method string
}

// Serialize renders events, in order, into one VCALENDAR document with
// CRLF line endings and lines folded at 75 octets. SUMMARY values are
// TEXT-escaped by golang-ical.
func Serialize(events []model.CalendarEvent, opts SerializeOptions) ([]byte, error) {
	if len(events) == 0 {
		return nil, ErrEmptyResult
	}
	if opts.ProdID == "" {
		opts.ProdID = "-//" + DefaultNamespace + "//EN"
	}

	cal := &ical.Calendar{}
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetProductId(opts.ProdID)
	if opts.Method != "" {
		cal.SetMethod(ical.Method(opts.Method))
	}

	for _, ev := range events {
		vev := cal.AddEvent(ev.UID)
		vev.SetDtStampTime(ev.DTStamp)
		setDateTime(vev, ical.ComponentPropertyDtStart, ev.Start, ev.TZID)
		setDateTime(vev, ical.ComponentPropertyDtEnd, ev.End, ev.TZID)
		vev.SetSummary(lineBreaks.Replace(ev.Summary))
	}

	var sb strings.Builder
	if err := cal.SerializeTo(&sb, ical.WithNewLineWindows); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// setDateTime writes the naive wall clock, under TZID when zoned and as a
// UTC literal otherwise.
func setDateTime(vev *ical.VEvent, prop ical.ComponentProperty, wall time.Time, tzid string) {
	if tzid != "" {
		vev.SetProperty(prop, wall.Format(dates.KeyLayout), ical.WithTZID(tzid))
		return
	}
	vev.SetProperty(prop, wall.Format(dates.KeyLayout)+"Z")
}

// lineBreaks folds CR and CRLF into LF, the only break TEXT escaping knows.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")
