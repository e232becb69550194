package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ics/internal/config"
)

const standupCSV = "Subject,Start,End\nStandup,19.09.2025 09:00,19.09.2025 09:30\nBroken,19.09.2025 10:00,\n"

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	s := NewServer(cfg)
	s.now = func() time.Time { return time.Date(2025, 9, 20, 6, 30, 0, 0, time.UTC) }
	return s.Handler()
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestConvertRawBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/convert?name=wdm", strings.NewReader(standupCSV))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()

	newTestServer(t, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/calendar; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "1", rr.Header().Get("X-Csv2ics-Events"))
	assert.Equal(t, "1", rr.Header().Get("X-Csv2ics-Skipped"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "wdm.ics")

	body := rr.Body.String()
	assert.Contains(t, body, "UID:20250919T090000@wdm\r\n")
	assert.Contains(t, body, "DTSTART;TZID=Europe/Berlin:20250919T090000\r\n")
	assert.Contains(t, body, "DTSTAMP:20250920T063000Z\r\n")
}

func TestConvertNameCannotInjectLines(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/convert?name=x%0D%0AMETHOD%3ACANCEL", strings.NewReader(standupCSV))
	rr := httptest.NewRecorder()

	newTestServer(t, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	assert.Contains(t, body, "UID:20250919T090000@xMETHODCANCEL\r\n")
	assert.NotContains(t, body, "METHOD:CANCEL")
	assert.NotContains(t, rr.Header().Get("Content-Disposition"), "\n")
}

func TestConvertMultipartJSON(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "team.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Team Sync,01.01.2025 10:00,01.01.2025 11:00\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert?format=json&tz=none", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	newTestServer(t, nil).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp convertResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "team", resp.Namespace)
	assert.Equal(t, ",", resp.Delimiter)
	assert.Nil(t, resp.Columns)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "20250101T100000@team", resp.Events[0].UID)
	assert.Empty(t, resp.Events[0].TZID)
	assert.Contains(t, resp.Calendar, "DTSTART:20250101T100000Z")
	assert.Empty(t, resp.Skipped)
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"header only", "Subject,Start,End\n", http.StatusUnprocessableEntity},
		{"columns", "Subject,When\nA,01.01.2025 10:00\n", http.StatusUnprocessableEntity},
		{"undecodable", "\xff\xfe\x00", http.StatusUnsupportedMediaType},
	}

	h := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rr.Code)
			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestConvertTooLarge(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 16 })

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(standupCSV)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestConvertRejectsGet(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/convert", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(standupCSV)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(standupCSV))
	req.SetBasicAuth("u", "p")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Health stays open.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
