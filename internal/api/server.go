package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/config"
	"github.com/JakeFAU/webscraper/internal/metrics"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

const (
	maxEventBytes         = 1 << 20
	defaultRequestTimeout = 120 * time.Second
)

// NotifyRunner runs the verify-and-notify workflow.
type NotifyRunner interface {
	Run(ctx context.Context, ev workflow.Event) (workflow.Event, error)
}

// ArchiveRunner runs the scrape-and-archive workflow.
type ArchiveRunner interface {
	Run(ctx context.Context, ev workflow.Event) (int, error)
}

// IDGenerator fills in event IDs and request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Server wires HTTP handlers to the workflows.
type Server struct {
	router   chi.Router
	handler  http.Handler
	notifier NotifyRunner
	archiver ArchiveRunner
	idGen    IDGenerator
	logger   *zap.Logger
}

// ArchiveResponse is the body returned by POST /v1/archive.
type ArchiveResponse struct {
	EventID    string `json:"eventId"`
	StatusCode int    `json:"statusCode"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	notifier NotifyRunner,
	archiver ArchiveRunner,
	idGen IDGenerator,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		notifier: notifier,
		archiver: archiver,
		idGen:    idGen,
		logger:   logger,
	}
	timeout := time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(idGen))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Use(timeoutMiddleware(timeout))
		r.Post("/notify", s.notify)
		r.Post("/archive", s.archive)
	})

	s.router = r
	// Incoming W3C trace context parents the workflow spans.
	s.handler = otelhttp.NewHandler(r, "webscraper",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
	return s
}

// Handler returns the traced Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Provider clients are built at startup; nothing is probed per request.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) notify(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	out, err := s.notifier.Run(r.Context(), ev)
	if err != nil {
		writeWorkflowError(w, ev.EventID, err)
		return
	}
	payload, err := out.Payload()
	if err != nil {
		s.logger.Error("encode notify response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", "unknown")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	code, err := s.archiver.Run(r.Context(), ev)
	if err != nil {
		writeWorkflowError(w, ev.EventID, err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{EventID: ev.EventID, StatusCode: code})
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (workflow.Event, bool) {
	var ev workflow.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", workflow.Category(workflow.ErrInvalidEvent))
		return workflow.Event{}, false
	}
	if ev.EventID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			s.logger.Error("generate event id", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error", "unknown")
			return workflow.Event{}, false
		}
		ev.EventID = id
	}
	return ev, true
}

// StatusFor maps a workflow error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrMissingBucket):
		return http.StatusInternalServerError
	case errors.Is(err, workflow.ErrIdentity),
		errors.Is(err, workflow.ErrLinkResolution),
		errors.Is(err, workflow.ErrInvalidPattern):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, workflow.ErrTransport),
		errors.Is(err, workflow.ErrDelivery),
		errors.Is(err, workflow.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	EventID  string `json:"eventId,omitempty"`
	Error    string `json:"error"`
	Category string `json:"category"`
}

func writeWorkflowError(w http.ResponseWriter, eventID string, err error) {
	writeJSON(w, StatusFor(err), errorResponse{
		EventID:  eventID,
		Error:    err.Error(),
		Category: workflow.Category(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg, category string) {
	writeJSON(w, status, errorResponse{Error: msg, Category: category})
}
