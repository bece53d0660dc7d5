// Package handler exposes the verification engine over HTTP. Handlers stay
// thin: parse, delegate, translate.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caretrail/internal/platform/metrics"
	"caretrail/internal/platform/middleware"
	"caretrail/internal/visit/engine"
	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
)

// Service is the slice of the engine the HTTP surface needs.
type Service interface {
	CheckIn(ctx context.Context, visitID id.VisitID, fix *models.LocationFix, timestamp time.Time) (*models.VisitRecord, error)
	CheckOut(ctx context.Context, visitID id.VisitID, fix *models.LocationFix, timestamp time.Time) (*models.VisitRecord, error)
	Verify(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error)
	Resolve(ctx context.Context, visitID id.VisitID, target id.VisitStatus, note string) (*models.VisitRecord, error)
	Get(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error)
	ExportAuditTrail(ctx context.Context, visitID id.VisitID) (*engine.AuditExport, error)
}

// Handler handles EVV visit endpoints.
type Handler struct {
	engine       Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(engine Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		engine:       engine,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the visit routes with the standard middleware ring.
func (h *Handler) Register(r chi.Router) {
	visitRouter := chi.NewRouter()
	visitRouter.Use(middleware.Recovery(h.logger))
	visitRouter.Use(middleware.RequestID)
	visitRouter.Use(middleware.RequestTime)
	visitRouter.Use(middleware.Logger(h.logger))
	visitRouter.Use(middleware.Timeout(30 * time.Second))
	visitRouter.Use(middleware.ContentTypeJSON)
	visitRouter.Use(middleware.LatencyMiddleware(h.metrics))
	visitRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	visitRouter.Post("/visits/{visitID}/check-in", h.handleCheckIn)
	visitRouter.Post("/visits/{visitID}/check-out", h.handleCheckOut)
	visitRouter.Post("/visits/{visitID}/verify", h.handleVerify)
	visitRouter.Post("/visits/{visitID}/resolve", h.handleResolve)
	visitRouter.Get("/visits/{visitID}", h.handleGet)
	visitRouter.Get("/visits/{visitID}/audit-export", h.handleAuditExport)

	r.Mount("/", visitRouter)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	h.handlePresenceEvent(w, r, "check_in", h.engine.CheckIn)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	h.handlePresenceEvent(w, r, "check_out", h.engine.CheckOut)
}

// handlePresenceEvent covers check-in and check-out: both take an optional
// location fix and a timestamp.
func (h *Handler) handlePresenceEvent(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	invoke func(ctx context.Context, visitID id.VisitID, fix *models.LocationFix, timestamp time.Time) (*models.VisitRecord, error),
) {
	ctx := r.Context()

	visitID, err := visitIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req presenceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"operation", operation,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	timestamp, fix, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := invoke(ctx, visitID, fix, timestamp)
	if err != nil {
		h.logOperationFailure(ctx, operation, visitID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRecord(record))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visitID, err := visitIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.engine.Verify(ctx, visitID)
	if err != nil {
		h.logOperationFailure(ctx, "verify", visitID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRecord(record))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visitID, err := visitIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := id.ParseVisitStatus(req.TargetStatus)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid target_status %q", req.TargetStatus))
		return
	}

	record, err := h.engine.Resolve(ctx, visitID, target, req.ResolutionNote)
	if err != nil {
		h.logOperationFailure(ctx, "resolve", visitID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRecord(record))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	visitID, err := visitIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.engine.Get(r.Context(), visitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRecord(record))
}

func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visitID, err := visitIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	export, err := h.engine.ExportAuditTrail(ctx, visitID)
	if err != nil {
		h.logOperationFailure(ctx, "audit_export", visitID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *Handler) logOperationFailure(ctx context.Context, operation string, visitID id.VisitID, err error) {
	h.logger.WarnContext(ctx, "visit operation failed",
		"operation", operation,
		"visit_id", visitID.String(),
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

func visitIDFromPath(r *http.Request) (id.VisitID, error) {
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		return id.VisitID{}, dErrors.Wrap(dErrors.CodeBadRequest, err, "invalid visit id")
	}
	return visitID, nil
}
