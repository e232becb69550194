package convert_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ics/internal/convert"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "data/190925-wdm.ics", convert.OutputPath("data/190925-wdm.csv", "", ".ics"))
	assert.Equal(t, "events.ics", convert.OutputPath("events", "", ""))
	assert.Equal(t, "out/cal.ical", convert.OutputPath("in.csv", "out/cal.ical", ".ics"))
	assert.Equal(t, "a.b.ics", convert.OutputPath("a.b.txt", "", ".ics"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.ics")

	require.NoError(t, convert.WriteFile(path, []byte("first")))
	require.NoError(t, convert.WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
