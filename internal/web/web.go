package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"daybook/internal/catalog"
	"daybook/internal/config"
	"daybook/internal/ics"
	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/notify"
	"daybook/internal/session"
	"daybook/internal/stats"
)

const (
	// PreviewFile is the dashboard capture written under DataDir.
	PreviewFile = "preview.png"

	maxBodyBytes  = 1 << 20
	statsCacheTTL = time.Minute
)

// Server exposes the dashboard and its JSON API.
type Server struct {
	cfg     *config.Config
	session *session.Session
	feed    *notify.Feed
	mux     *http.ServeMux

	// Stats are keyed by catalog version and minute, so any mutation or
	// clock advance misses the cache.
	statsCache *otter.Cache[string, stats.Report]
}

// embeddedStatic contains the dashboard page.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server. feed may be nil, in which case
// /api/notifications always returns an empty list.
func NewServer(cfg *config.Config, sess *session.Session, feed *notify.Feed) *Server {
	s := &Server{
		cfg:     cfg,
		session: sess,
		feed:    feed,
		mux:     http.NewServeMux(),
		statsCache: otter.Must(&otter.Options[string, stats.Report]{
			MaximumSize:      256,
			ExpiryCalculator: otter.ExpiryWriting[string, stats.Report](statsCacheTTL),
		}),
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
	// An empty username or password disables auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="daybook", charset="UTF-8"`)
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

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/activities", s.handleListActivities)
	s.mux.HandleFunc("POST /api/activities", s.handleAddActivity)
	s.mux.HandleFunc("PUT /api/activities/{id}", s.handleUpdateActivity)
	s.mux.HandleFunc("DELETE /api/activities/{id}", s.handleRemoveActivity)
	s.mux.HandleFunc("PUT /api/activities/{id}/alarm", s.handleSetActivityAlarm)

	s.mux.HandleFunc("GET /api/current", s.handleCurrent)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)

	s.mux.HandleFunc("GET /api/alarms", s.handleAlarms)
	s.mux.HandleFunc("PUT /api/alarms", s.handleSetAlarms)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)

	s.mux.HandleFunc("GET /api/schedule.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/schedule.ics", s.handleImport)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded dashboard page. /api/* paths never
// fall through to it.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// handlePreview serves the last dashboard capture from DataDir.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.DataDir, PreviewFile))
}

func (s *Server) handleListActivities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Catalog().List())
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var a model.Activity
	if !decodeBody(w, r, &a) {
		return
	}
	added, err := s.session.Catalog().Add(r.Context(), a)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var a model.Activity
	if !decodeBody(w, r, &a) {
		return
	}
	if a.ID == "" {
		a.ID = id
	}
	if a.ID != id {
		writeError(w, http.StatusBadRequest, "activity id does not match path")
		return
	}
	if err := s.session.Catalog().Update(r.Context(), a); err != nil {
		writeCatalogError(w, err)
		return
	}
	updated, _ := s.session.Catalog().Get(id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRemoveActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Catalog().Remove(r.Context(), r.PathValue("id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleSetActivityAlarm(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `missing "enabled"`)
		return
	}
	a, err := s.session.Catalog().SetAlarm(r.Context(), r.PathValue("id"), *req.Enabled)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleCurrent returns the last applied locator result.
func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	now := s.session.Now()
	key := fmt.Sprintf("%d@%s", s.session.Catalog().Version(), now.Format("2006-01-02T15:04"))

	if rep, ok := s.statsCache.GetIfPresent(key); ok {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	rep := stats.Compute(s.session.Catalog().List(), now)
	s.statsCache.Set(key, rep)
	writeJSON(w, http.StatusOK, rep)
}

type upcomingResponse struct {
	From       time.Time      `json:"from"`
	Days       int            `json:"days"`
	Boundaries []ics.Boundary `json:"boundaries"`
}

// handleUpcoming lists alarm boundaries ahead of now.
//
// GET /api/upcoming?days=2
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.UpcomingDays)
	if days <= 0 {
		days = s.cfg.UpcomingDays
	}
	now := s.session.Now()
	boundaries, err := ics.Upcoming(s.session.Catalog().List(), now, days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if boundaries == nil {
		boundaries = []ics.Boundary{}
	}
	writeJSON(w, http.StatusOK, upcomingResponse{From: now.Truncate(time.Minute), Days: days, Boundaries: boundaries})
}

type alarmsResponse struct {
	Enabled      bool   `json:"enabled"`
	Policy       string `json:"policy"`
	LastFiredKey string `json:"last_fired_key"`
}

func (s *Server) alarmsState() alarmsResponse {
	e := s.session.Alarms()
	return alarmsResponse{
		Enabled:      e.Enabled(),
		Policy:       string(e.Policy()),
		LastFiredKey: e.LastFiredKey(),
	}
}

func (s *Server) handleAlarms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.alarmsState())
}

func (s *Server) handleSetAlarms(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `missing "enabled"`)
		return
	}
	s.session.Alarms().SetEnabled(*req.Enabled)
	appLog.Info("alarms toggled", "enabled", *req.Enabled)
	writeJSON(w, http.StatusOK, s.alarmsState())
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	toasts := []notify.Toast{}
	if s.feed != nil {
		toasts = s.feed.Recent()
	}
	writeJSON(w, http.StatusOK, toasts)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.session.Catalog().List(), s.session.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="daybook.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importResponse struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}

// handleImport merges an ICS payload into the catalog: known ids are
// replaced, new ids are added.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	activities, bad, err := ics.Import(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := importResponse{Skipped: []string{}}
	for _, e := range bad {
		resp.Skipped = append(resp.Skipped, e.Error())
	}

	cat := s.session.Catalog()
	for _, a := range activities {
		if _, exists := cat.Get(a.ID); exists {
			err = cat.Update(r.Context(), a)
			if err == nil {
				resp.Updated++
			}
		} else {
			_, err = cat.Add(r.Context(), a)
			if err == nil {
				resp.Added++
			}
		}
		if err != nil {
			var perr *catalog.PersistenceError
			if errors.As(err, &perr) {
				writeCatalogError(w, err)
				return
			}
			resp.Skipped = append(resp.Skipped, err.Error())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeCatalogError maps catalog failures onto status codes. A persistence
// failure is a 500 even though the change is already live in memory.
func writeCatalogError(w http.ResponseWriter, err error) {
	var perr *catalog.PersistenceError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &perr):
		writeError(w, http.StatusInternalServerError, "change applied but not persisted: "+perr.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
