package model

import "time"

// RawRow is one record as read from the delimited source, cells untouched.
type RawRow []string

// Role is a logical column role.
type Role string

const (
	RoleSubject Role = "subject"
	RoleStart   Role = "start"
	RoleEnd     Role = "end"
)

// Roles lists the roles every mapping must resolve, in resolution order.
var Roles = []Role{RoleSubject, RoleStart, RoleEnd}

// ColumnMapping maps each role to a physical column index.
// It is built once per input and never mutated afterwards.
type ColumnMapping struct {
	Subject int
	Start   int
	End     int

	// Names holds the header labels the indexes were resolved from.
	// Empty for a positional mapping without header.
	Names map[Role]string

	// Positional is true when the roles were assigned by position
	// because the header names did not resolve.
	Positional bool
}

// ParsedEvent is a validated row: both timestamps parsed, zone not yet attached.
type ParsedEvent struct {
	Subject string
	Start   time.Time
	End     time.Time

	// Line is the 1-based row number in the source file.
	Line int
}

// CalendarEvent is the fully assembled VEVENT content.
//
// Start and End keep the wall clock read from the source; TZID names the
// zone that wall clock belongs to.
type CalendarEvent struct {
	UID     string
	DTStamp time.Time
	Start   time.Time
	End     time.Time
	Summary string

	// TZID is the zone identifier attached to Start/End. Empty means the
	// times are zone-naive and are written with a trailing "Z".
	TZID string

	// Location is the loaded zone for TZID, nil when zone-naive.
	Location *time.Location
}

// Instant returns t interpreted in the event's zone.
func (e CalendarEvent) Instant(t time.Time) time.Time {
	if e.Location == nil {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, e.Location)
}

// RowIssue records a row dropped from the output.
type RowIssue struct {
	Line   int
	Raw    RawRow
	Reason string
}
