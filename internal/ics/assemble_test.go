package ics_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ics/internal/dates"
	"csv2ics/internal/ics"
	"csv2ics/internal/model"
)

var fixedNow = time.Date(2025, 9, 20, 8, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

func parsed(t *testing.T, subject, start, end string) model.ParsedEvent {
	t.Helper()
	s, err := dates.Parse(start)
	require.NoError(t, err)
	e, err := dates.Parse(end)
	require.NoError(t, err)
	return model.ParsedEvent{Subject: subject, Start: s, End: e}
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "190925-wdm", ics.Namespace("/data/190925-wdm.csv"))
	assert.Equal(t, "meetings", ics.Namespace("meetings"))
	assert.Equal(t, "archive.2025", ics.Namespace("archive.2025.csv"))
	assert.Equal(t, ics.DefaultNamespace, ics.Namespace(""))
	assert.Equal(t, "xMETHODCANCEL", ics.Namespace("x\r\nMETHOD:CANCEL"))
	assert.Equal(t, "team a", ics.Namespace("team;,\\ a\t.csv"))
	assert.Equal(t, ics.DefaultNamespace, ics.Namespace("\r\n"))
}

func TestAssembleDuplicateStarts(t *testing.T) {
	a := ics.NewAssembler("base", "")
	a.SetClock(func() time.Time { return fixedNow })

	first := a.Assemble(parsed(t, "A", "01.01.2025 10:00", "01.01.2025 11:00"))
	second := a.Assemble(parsed(t, "B", "01.01.2025 10:00", "01.01.2025 10:30"))
	third := a.Assemble(parsed(t, "C", "2025-01-01 10:00", "2025-01-01 12:00"))
	other := a.Assemble(parsed(t, "D", "02.01.2025 10:00", "02.01.2025 11:00"))

	assert.Equal(t, "20250101T100000@base", first.UID)
	assert.Equal(t, "20250101T100000-2@base", second.UID)
	assert.Equal(t, "20250101T100000-3@base", third.UID)
	assert.Equal(t, "20250102T100000@base", other.UID)
}

func TestAssembleManyIdenticalStartsAreUnique(t *testing.T) {
	a := ics.NewAssembler("ns", "")
	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		ev := a.Assemble(parsed(t, "x", "01.01.2025 10:00", "01.01.2025 11:00"))
		assert.False(t, seen[ev.UID], ev.UID)
		seen[ev.UID] = true
	}
	assert.Len(t, seen, 25)
}

func TestAssemblersDoNotShareCounters(t *testing.T) {
	ev := parsed(t, "x", "01.01.2025 10:00", "01.01.2025 11:00")

	assert.Equal(t, "20250101T100000@ns", ics.NewAssembler("ns", "").Assemble(ev).UID)
	assert.Equal(t, "20250101T100000@ns", ics.NewAssembler("ns", "").Assemble(ev).UID)
}

func TestAssembleZone(t *testing.T) {
	a := ics.NewAssembler("ns", "Europe/Berlin")
	a.SetClock(func() time.Time { return fixedNow })
	require.True(t, a.Zoned())

	ev := a.Assemble(parsed(t, "Standup", "19.09.2025 09:00", "19.09.2025 09:30"))
	assert.Equal(t, "Europe/Berlin", ev.TZID)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Standup", ev.Summary)
	assert.True(t, ev.DTStamp.Equal(time.Date(2025, 9, 20, 6, 30, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, ev.DTStamp.Location())

	// Wall clock is kept; the instant is 09:00 Berlin summer time.
	assert.Equal(t, "20250919T090000", dates.Key(ev.Start))
	assert.True(t, ev.Instant(ev.Start).Equal(time.Date(2025, 9, 19, 7, 0, 0, 0, time.UTC)))
}

func TestAssembleUnknownZoneFallsBack(t *testing.T) {
	a := ics.NewAssembler("ns", "Nowhere/Invalid")
	assert.False(t, a.Zoned())

	ev := a.Assemble(parsed(t, "x", "01.01.2025 10:00", "01.01.2025 11:00"))
	assert.Empty(t, ev.TZID)
	assert.Nil(t, ev.Location)
	assert.Equal(t, ev.Start, ev.Instant(ev.Start))
}
