package ics

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"csv2ics/internal/dates"
	appLog "csv2ics/internal/log"
	"csv2ics/internal/model"
)

// DefaultNamespace is the UID domain when the source has no usable name.
const DefaultNamespace = "csv2ics"

// Namespace derives the UID namespace from a source path: its base name
// without extension. Control characters, ':', ';', ',' and backslashes
// are dropped so the name cannot break out of the UID line.
func Namespace(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(strings.Map(uidRune, base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return DefaultNamespace
	}
	return base
}

func uidRune(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	switch r {
	case ':', ';', ',', '\\':
		return -1
	}
	return r
}

// Assembler turns parsed rows into calendar events. It owns the UID
// counter table for one conversion run; use a fresh Assembler per run.
type Assembler struct {
	namespace string
	tzid      string
	loc       *time.Location

	// counts maps a start key to how many events used it so far.
	counts map[string]int

	now func() time.Time
}

// NewAssembler loads tzid from the zone database. An empty tzid, or one
// the database cannot resolve, yields zone-naive events written in the
// UTC-literal form.
func NewAssembler(namespace, tzid string) *Assembler {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	a := &Assembler{
		namespace: namespace,
		counts:    make(map[string]int),
		now:       time.Now,
	}
	if tzid == "" {
		return a
	}
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		appLog.Warn("zone database unavailable, writing UTC-literal times", "tzid", tzid, "err", err)
		return a
	}
	a.tzid = tzid
	a.loc = loc
	return a
}

// SetClock replaces the DTSTAMP clock.
func (a *Assembler) SetClock(now func() time.Time) {
	a.now = now
}

// Zoned reports whether events carry a TZID.
func (a *Assembler) Zoned() bool {
	return a.loc != nil
}

// Assemble builds the event for ev and records its start key.
func (a *Assembler) Assemble(ev model.ParsedEvent) model.CalendarEvent {
	return model.CalendarEvent{
		UID:      a.nextUID(ev.Start),
		DTStamp:  a.now().UTC(),
		Start:    ev.Start,
		End:      ev.End,
		Summary:  ev.Subject,
		TZID:     a.tzid,
		Location: a.loc,
	}
}

// nextUID returns base@ns for the first use of a start key and
// base-N@ns for the Nth.
func (a *Assembler) nextUID(start time.Time) string {
	base := dates.Key(start)
	a.counts[base]++
	n := a.counts[base]
	if n == 1 {
		return base + "@" + a.namespace
	}
	return base + "-" + strconv.Itoa(n) + "@" + a.namespace
}
