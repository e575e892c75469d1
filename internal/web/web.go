package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"nannypay/internal/config"
	"nannypay/internal/ics"
	appLog "nannypay/internal/log"
	"nannypay/internal/model"
	"nannypay/internal/payslip"
	"nannypay/internal/report"
	"nannypay/internal/timesheet"
)

// reportCacheTTL bounds how long a computed month is served from memory.
const reportCacheTTL = 30 * time.Second

// Server exposes the monthly report, the timesheet CSV and the payslip.
type Server struct {
	cfg    *config.Config
	svc    *report.Service
	router chi.Router
	now    func() time.Time

	// In-memory cache of built reports keyed by the canonical query, so the
	// results page and the payslip of one month share a single fetch.
	reportsMu sync.Mutex
	reports   map[string]reportCache
}

type reportCache struct {
	rep       *report.Report
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *report.Service) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		router:  chi.NewRouter(),
		now:     time.Now,
		reports: make(map[string]reportCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
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
			w.Header().Set("WWW-Authenticate", `Basic realm="nannypay", charset="UTF-8"`)
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

// StartServer serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, svc *report.Service) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, svc).Handler(),
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
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		r.Use(s.basicAuthMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/results", s.handleResults)
		r.Get("/timesheet.csv", s.handleTimesheet)
		r.Get("/payslip.pdf", s.handlePayslip)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleResults returns the month's days, hours, pay and reimbursements.
//
// GET /api/results?start=&end=&name=&forfait=&isComplementaryHours=
//   - start, end: epoch milliseconds or RFC3339 (or year=&month=)
//   - without any bound, the previous month is used
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep.View())
}

// handleTimesheet streams the attendance sheet as a CSV attachment. Nothing
// but the error is sent when a day has several events.
func (s *Server) handleTimesheet(w http.ResponseWriter, r *http.Request) {
	limits, ok := s.limits(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	name, err := s.svc.ExportCSV(r.Context(), limits, &buf)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePayslip(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.buildReport(w, r)
	if !ok {
		return
	}

	parties := payslip.Parties{}
	if s.cfg != nil {
		parties.Employee = s.cfg.Employee.Name
		parties.Employer = s.cfg.Employee.Employer
	}

	var buf bytes.Buffer
	if err := payslip.Write(&buf, rep, parties); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+payslip.Filename(rep.Month())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// buildReport resolves the request's month and returns its report, from
// cache when fresh. On failure the error response is already written.
func (s *Server) buildReport(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	limits, ok := s.limits(w, r)
	if !ok {
		return nil, false
	}

	key := cacheKey(limits)
	now := s.now()

	s.reportsMu.Lock()
	rc, hit := s.reports[key]
	s.reportsMu.Unlock()
	if hit && now.Sub(rc.updatedAt) < reportCacheTTL {
		return rc.rep, true
	}

	rep, err := s.svc.Build(r.Context(), limits)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}

	s.reportsMu.Lock()
	for k, v := range s.reports {
		if now.Sub(v.updatedAt) >= reportCacheTTL {
			delete(s.reports, k)
		}
	}
	s.reports[key] = reportCache{rep: rep, updatedAt: now}
	s.reportsMu.Unlock()

	return rep, true
}

func (s *Server) limits(w http.ResponseWriter, r *http.Request) (model.CalendarLimits, bool) {
	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" && q.Get("year") == "" && q.Get("month") == "" {
		y, m := report.PreviousMonth(s.now().In(s.svc.Location()))
		q.Set("year", strconv.Itoa(y))
		q.Set("month", strconv.Itoa(int(m)))
	}

	limits, err := report.ParseLimits(q, s.svc.Location())
	if err != nil {
		s.fail(w, r, err)
		return limits, false
	}
	return limits, true
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, report.ErrInvalidLimits):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, timesheet.ErrOverlappingEvents):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ics.ErrAllSourcesFailed):
		status, msg = http.StatusBadGateway, "calendar unavailable"
	case errors.Is(err, context.Canceled):
		return
	}
	appLog.Error("api request failed", err,
		"path", r.URL.Path,
		"status", status,
		"request_id", requestIDFrom(r.Context()),
	)
	writeError(w, status, msg)
}

func cacheKey(l model.CalendarLimits) string {
	v := url.Values{}
	v.Set("start", l.Start.UTC().Format(time.RFC3339Nano))
	v.Set("end", l.End.UTC().Format(time.RFC3339Nano))
	v.Set("name", l.Name)
	if l.Forfait != nil {
		v.Set("forfait", strconv.FormatFloat(*l.Forfait, 'f', -1, 64))
	}
	if l.OvertimeIsPaid {
		v.Set("overtime", "1")
	}
	return v.Encode()
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

type requestIDKey struct{}

// requestID propagates or assigns the X-Request-ID of each request.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		appLog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}
