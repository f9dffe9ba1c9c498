package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/shelter-data-etl/internal/dashboard"
	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/pipeline"
)

// SnapshotReader reads the stored snapshot.
type SnapshotReader interface {
	Shelters(ctx context.Context) ([]domain.ShelterSummary, error)
	Animals(ctx context.Context) ([]domain.AnimalRecord, error)
}

// Runner is the pipeline control surface the API exposes.
type Runner interface {
	sharedobs.ReadinessChecker
	Trigger(ctx context.Context) error
	LastReport() (pipeline.RunReport, bool)
}

const storeUnavailable = "data store unavailable; showing an empty dashboard"

// Server exposes health, readiness, metrics, and the dashboard API.
type Server struct {
	httpServer *http.Server
	store      SnapshotReader
	runner     Runner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the /api/v1 routes.
func NewServer(addr string, store SnapshotReader, runner Runner, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		runner: runner,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(runner))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/dashboard", s.handleDashboard)
		api.Get("/stats", s.handleStats)
		api.Get("/shelters/{name}/animals", s.handleShelterAnimals)
		api.Get("/favorites", s.handleFavorites)
		api.Get("/export.csv", s.handleExportCSV)
		api.Get("/export.xlsx", s.handleExportXLSX)
		api.Post("/refresh", s.handleRefresh)
		api.Get("/runs/last", s.handleLastRun)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type viewResponse struct {
	dashboard.View
	Warning string `json:"warning,omitempty"`
}

type statsResponse struct {
	dashboard.Stats
	Warning string `json:"warning,omitempty"`
}

type animalsResponse struct {
	Animals []domain.AnimalRecord `json:"animals"`
	Warning string                `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// view loads the snapshot and applies the request filter. ok is false when
// a response has already been written.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (v dashboard.View, stale bool, ok bool) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return dashboard.View{}, false, false
	}

	animals, shelters, err := s.snapshot(r.Context())
	if err != nil {
		s.logger.Warn("snapshot read failed", "error", err)
		return dashboard.EmptyView(), true, true
	}
	return dashboard.Apply(animals, shelters, f), false, true
}

func (s *Server) snapshot(ctx context.Context) ([]domain.AnimalRecord, []domain.ShelterSummary, error) {
	shelters, err := s.store.Shelters(ctx)
	if err != nil {
		return nil, nil, err
	}
	animals, err := s.store.Animals(ctx)
	if err != nil {
		return nil, nil, err
	}
	return animals, shelters, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, stale, ok := s.view(w, r)
	if !ok {
		return
	}
	if stale {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, viewResponse{View: v, Warning: storeUnavailable})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, viewResponse{View: v})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	v, stale, ok := s.view(w, r)
	if !ok {
		return
	}
	st := dashboard.ComputeStats(v.Shelters)
	if stale {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, statsResponse{Stats: st, Warning: storeUnavailable})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, statsResponse{Stats: st})
}

func (s *Server) handleShelterAnimals(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	v, stale, ok := s.view(w, r)
	if !ok {
		return
	}
	resp := animalsResponse{Animals: dashboard.ShelterAnimals(v.Animals, name)}
	if stale {
		resp.Warning = storeUnavailable
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ids := splitList(r.URL.Query()["ids"])

	animals, err := s.store.Animals(r.Context())
	if err != nil {
		s.logger.Warn("snapshot read failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, animalsResponse{
			Animals: []domain.AnimalRecord{},
			Warning: storeUnavailable,
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, animalsResponse{Animals: dashboard.Favorites(animals, ids)})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "shelters.csv", "text/csv; charset=utf-8", func(buf *bytes.Buffer, v dashboard.View) error {
		return dashboard.WriteCSV(buf, v.Shelters)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "shelters.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(buf *bytes.Buffer, v dashboard.View) error {
			return dashboard.WriteXLSX(buf, v.Shelters)
		})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, filename, contentType string,
	write func(*bytes.Buffer, dashboard.View) error) {
	v, stale, ok := s.view(w, r)
	if !ok {
		return
	}
	if stale {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: storeUnavailable})
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		s.logger.Error("export failed", "file", filename, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "export failed"})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.runner.Trigger(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		sharedobs.WriteJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.runner.LastReport()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "no completed run"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

// parseFilter reads from, to, q, sido, sigungu, species, and sort. Dates are
// YYYYMMDD or YYYY-MM-DD in Korean time; species may repeat or be comma separated.
func parseFilter(q url.Values) (dashboard.Filter, error) {
	f := dashboard.Filter{
		Query:   q.Get("q"),
		Sido:    q.Get("sido"),
		Sigungu: q.Get("sigungu"),
		Species: splitList(q["species"]),
		Sort:    q.Get("sort"),
	}
	var err error
	if f.From, err = parseDay(q.Get("from")); err != nil {
		return dashboard.Filter{}, errors.New("invalid from date: " + q.Get("from"))
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		return dashboard.Filter{}, errors.New("invalid to date: " + q.Get("to"))
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return dashboard.Filter{}, errors.New("from is after to")
	}
	switch f.Sort {
	case "", dashboard.SortName, dashboard.SortCount, dashboard.SortLongTerm:
	default:
		return dashboard.Filter{}, errors.New("unknown sort: " + f.Sort)
	}
	return f, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	layout := "20060102"
	if strings.Contains(s, "-") {
		layout = time.DateOnly
	}
	return time.ParseInLocation(layout, s, domain.KST)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
