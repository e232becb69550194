package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "csv2ics/internal/log"
)

// Document is a calendar read back from its serialized form.
type Document struct {
	Version string
	ProdID  string
	Method  string
	Events  []ReadEvent
}

// ReadEvent is one VEVENT as seen by an iCalendar parser.
type ReadEvent struct {
	UID     string
	Summary string
	DTStamp string

	Start   time.Time
	End     time.Time
	StartTZ string
	EndTZ   string
}

// Parse reads an iCalendar payload with golang-ical.
//
//   - DTSTART/DTEND keep their TZID; when the zone database knows it the
//     times carry that location, otherwise they are left in UTC.
//   - Values are returned as the parser yields them; no unescaping is
//     applied on top.
func Parse(body []byte) (Document, error) {
	var doc Document
	if len(body) == 0 {
		return doc, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return doc, err
	}

	for _, p := range cal.CalendarProperties {
		switch strings.ToUpper(p.IANAToken) {
		case "VERSION":
			doc.Version = p.Value
		case "PRODID":
			doc.ProdID = p.Value
		case "METHOD":
			doc.Method = p.Value
		}
	}

	for _, comp := range cal.Events() {
		ev, perr := readVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		doc.Events = append(doc.Events, ev)
	}

	return doc, nil
}

// Verify parses body and checks it holds exactly want events.
func Verify(body []byte, want int) error {
	doc, err := Parse(body)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(doc.Events) != want {
		return fmt.Errorf("verify: parsed %d events, expected %d", len(doc.Events), want)
	}
	return nil
}

func readVEvent(ve *ical.VEvent) (ReadEvent, error) {
	var out ReadEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty("DTSTAMP"); p != nil {
		out.DTStamp = p.Value
	}

	var err error
	if out.Start, out.StartTZ, err = readDateTime(ve.GetProperty(ical.ComponentPropertyDtStart)); err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	if out.End, out.EndTZ, err = readDateTime(ve.GetProperty(ical.ComponentPropertyDtEnd)); err != nil {
		return out, fmt.Errorf("DTEND: %w", err)
	}

	return out, nil
}

func readDateTime(p *ical.IANAProperty) (time.Time, string, error) {
	if p == nil {
		return time.Time{}, "", errors.New("missing")
	}

	tzid := ""
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		tzid = tzs[0]
	}

	v := strings.TrimSpace(p.Value)
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t, tzid, err
	}

	loc := time.UTC
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", v, loc)
	return t, tzid, err
}
