package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/event"
	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
)

const maxEventBytes = 1 << 20

// Searcher runs structured searches.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
}

// EventSink accepts domain events delivered over HTTP.
type EventSink interface {
	DispatchEnvelope(ctx context.Context, env *event.Envelope) error
}

// Rebuilder runs a full index rebuild.
type Rebuilder interface {
	RebuildFullIndex(ctx context.Context, batchSize, maxParallelism int) (indexing.RebuildReport, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search, event ingress and admin API.
type Server struct {
	search   Searcher
	events   EventSink
	rebuild  Rebuilder
	health   HealthChecker
	limits   request.Limits
	validate *validator.Validate
	logger   *zap.Logger

	errorHandlers []errorHandler

	// Background rebuilds outlive the request that started them.
	baseCtx    context.Context
	rebuilding atomic.Bool
	wg         sync.WaitGroup
}

// NewServer creates an HTTP API server. events and rebuild may be nil when
// the process only serves searches.
func NewServer(
	search Searcher,
	events EventSink,
	rebuild Rebuilder,
	health HealthChecker,
	limits request.Limits,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		events:   events,
		rebuild:  rebuild,
		health:   health,
		limits:   limits,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		baseCtx:  context.Background(),
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidEvent, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownEvent, http.StatusBadRequest, codeUnknownEvent),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRebuildInProgress, http.StatusConflict, codeRebuildRunning),
		sentinelHandler(domain.ErrLockNotAcquired, http.StatusServiceUnavailable, codeLockBusy),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, codeSearchUnavailable),
	}
	return s
}

// WithBaseContext sets the parent context of background rebuilds.
func (s *Server) WithBaseContext(ctx context.Context) *Server {
	s.baseCtx = ctx
	return s
}

// Wait blocks until background rebuilds started by this server finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		if s.events != nil {
			r.Post("/events", s.IngestEvent)
		}
		if s.rebuild != nil {
			r.Post("/admin/rebuild", s.StartRebuild)
		}
	})
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeValidationError(w, err)
		return
	}

	filters, err := body.filters()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	req, err := request.New(filters, body.Page, body.PageSize, s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(&page))
}

// IngestEvent handles POST /v1/events. The event is applied synchronously;
// indexing failures are retried and logged downstream, never returned.
func (s *Server) IngestEvent(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	env, err := event.UnmarshalEnvelope(data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.events.DispatchEnvelope(r.Context(), env); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// StartRebuild handles POST /v1/admin/rebuild. The rebuild runs in the
// background with the configured batch size and parallelism.
func (s *Server) StartRebuild(w http.ResponseWriter, r *http.Request) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		s.handleDomainError(w, r, domain.ErrRebuildInProgress)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.rebuilding.Store(false)

		report, err := s.rebuild.RebuildFullIndex(s.baseCtx, 0, 0)
		if err != nil {
			if errors.Is(err, domain.ErrRebuildInProgress) {
				s.logger.Warn("rebuild already running elsewhere")
				return
			}
			s.logger.Error("rebuild failed", zap.Error(err))
			return
		}
		s.logger.Info("rebuild finished",
			zap.Int64("generation", report.Generation),
			zap.Int64("indexed", report.Indexed),
			zap.Duration("duration", report.Duration),
		)
	}()

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "started"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
