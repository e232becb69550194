package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"csv2ics/internal/columns"
	"csv2ics/internal/config"
	"csv2ics/internal/convert"
	"csv2ics/internal/decode"
	"csv2ics/internal/ics"
	appLog "csv2ics/internal/log"
)

// Server exposes the converter over HTTP.
//
//   - GET  /health
//   - POST /api/convert  (raw CSV body or multipart field "file")
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// now overrides DTSTAMP in tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="csv2ics", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves until ctx is canceled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config) error {
	s := NewServer(cfg)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/convert", s.handleConvert)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// convertResponse is the JSON shape for /api/convert?format=json.
type convertResponse struct {
	Namespace string      `json:"namespace"`
	Encoding  string      `json:"encoding"`
	Delimiter string      `json:"delimiter"`
	Events    []eventDTO  `json:"events"`
	Skipped   []issueDTO  `json:"skipped"`
	Calendar  string      `json:"calendar"`
	Columns   *columnsDTO `json:"columns,omitempty"`
}

type eventDTO struct {
	UID     string    `json:"uid"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	TZID    string    `json:"tzid,omitempty"`
}

type issueDTO struct {
	Line   int      `json:"line"`
	Raw    []string `json:"raw"`
	Reason string   `json:"reason"`
}

type columnsDTO struct {
	Subject    int  `json:"subject"`
	Start      int  `json:"start"`
	End        int  `json:"end"`
	Positional bool `json:"positional"`
}

// handleConvert converts an uploaded CSV.
//
// POST /api/convert?name=meetings&tz=Europe/Berlin&format=json
//   - name:   UID namespace (default: upload file name, then "csv2ics")
//   - tz:     zone identifier, overrides config; "none" writes UTC-literal times
//   - format: "ics" (default) or "json"
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, filename, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		appLog.Error("api convert: read upload failed", err, "request_id", reqID)
		writeError(w, http.StatusBadRequest, "cannot read upload")
		return
	}

	q := r.URL.Query()
	namespace := ics.DefaultNamespace
	switch {
	case q.Get("name") != "":
		namespace = ics.Namespace(q.Get("name"))
	case filename != "":
		namespace = ics.Namespace(filename)
	}

	opts := convert.OptionsFromConfig(s.cfg)
	if tz := q.Get("tz"); tz != "" {
		opts.Timezone = tz
		if strings.EqualFold(tz, "none") {
			opts.Timezone = ""
		}
	}
	opts.Verify = true
	if s.now != nil {
		opts.Now = s.now
	}

	res, err := convert.New(opts).ConvertBytes(data, namespace)
	if err != nil {
		status := statusFor(err)
		appLog.Error("api convert failed", err, "request_id", reqID, "status", status)
		writeError(w, status, err.Error())
		return
	}

	appLog.Info("api convert",
		"request_id", reqID,
		"namespace", namespace,
		"events", len(res.Events),
		"skipped", len(res.Issues),
		"encoding", res.Encoding,
	)

	w.Header().Set("X-Csv2ics-Events", strconv.Itoa(len(res.Events)))
	w.Header().Set("X-Csv2ics-Skipped", strconv.Itoa(len(res.Issues)))

	if q.Get("format") == "json" {
		writeJSON(w, http.StatusOK, toResponse(namespace, res))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": namespace + ".ics"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Document)
}

// readUpload returns the multipart "file" part when present, else the raw body.
func readUpload(r *http.Request) ([]byte, string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		return data, "", err
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	return data, hdr.Filename, err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, decode.ErrDecode):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, columns.ErrResolution), errors.Is(err, ics.ErrEmptyResult):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(namespace string, res convert.Result) convertResponse {
	resp := convertResponse{
		Namespace: namespace,
		Encoding:  res.Encoding,
		Delimiter: string(res.Delimiter),
		Events:    make([]eventDTO, 0, len(res.Events)),
		Skipped:   make([]issueDTO, 0, len(res.Issues)),
		Calendar:  string(res.Document),
	}
	for _, ev := range res.Events {
		resp.Events = append(resp.Events, eventDTO{
			UID:     ev.UID,
			Summary: ev.Summary,
			Start:   ev.Instant(ev.Start),
			End:     ev.Instant(ev.End),
			TZID:    ev.TZID,
		})
	}
	for _, is := range res.Issues {
		resp.Skipped = append(resp.Skipped, issueDTO{Line: is.Line, Raw: is.Raw, Reason: is.Reason})
	}
	if m := res.Mapping; m != nil {
		resp.Columns = &columnsDTO{Subject: m.Subject, Start: m.Start, End: m.End, Positional: m.Positional}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
