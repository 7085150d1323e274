// Package handler exposes the certification API over HTTP. Handlers decode
// requests, resolve path ids, and hand off to the service; all decision
// legality lives below.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/certification/models"
	"attest/internal/certification/service"
	"attest/internal/platform/middleware"
	"attest/internal/transport/http/shared"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/requestcontext"
)

// Service is the certification surface the handlers call.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*models.Certification, error)
	Get(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	LockedAndActionable(ctx context.Context, certID id.CertificationID) (bool, error)
	Refresh(ctx context.Context, certID id.CertificationID) (*models.Certification, error)

	Decide(ctx context.Context, certID id.CertificationID, itemID id.ItemID, req service.DecisionRequest) error
	BulkCertify(ctx context.Context, certID id.CertificationID, itemIDs []id.ItemID, template *models.Action) error
	Delegate(ctx context.Context, certID id.CertificationID, itemID id.ItemID, req service.DelegationRequest) error
	DelegateEntity(ctx context.Context, certID id.CertificationID, entityID id.EntityID, req service.DelegationRequest) error
	RevokeDelegation(ctx context.Context, certID id.CertificationID, itemID id.ItemID) error
	Review(ctx context.Context, certID id.CertificationID, itemID id.ItemID) error

	FileChallenge(ctx context.Context, certID id.CertificationID, itemID id.ItemID, comments string) error
	AcceptChallenge(ctx context.Context, certID id.CertificationID, itemID id.ItemID, comments string) error
	RejectChallenge(ctx context.Context, certID id.CertificationID, itemID id.ItemID, comments string) error

	Activate(ctx context.Context, certID id.CertificationID) error
	AdvancePhase(ctx context.Context, certID id.CertificationID) error
	Sign(ctx context.Context, certID id.CertificationID) error
	BulkReassign(ctx context.Context, certID id.CertificationID, req service.ReassignRequest) error
}

// Handler handles certification endpoints.
type Handler struct {
	certifications Service
	logger         *slog.Logger
	jwtValidator   middleware.JWTValidator
}

// New creates a certification Handler.
func New(certifications Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		certifications: certifications,
		logger:         logger,
		jwtValidator:   jwtValidator,
	}
}

// Register mounts the certification routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestClock)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/certifications", h.handleCreate)
	router.Route("/certifications/{certificationID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Get("/actionable", h.handleActionable)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/activate", h.handleActivate)
		r.Post("/advance-phase", h.handleAdvancePhase)
		r.Post("/sign", h.handleSign)
		r.Post("/reassign", h.handleReassign)
		r.Post("/bulk-certify", h.handleBulkCertify)

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Post("/decision", h.handleDecide)
			r.Post("/delegate", h.handleDelegateItem)
			r.Delete("/delegation", h.handleRevokeDelegation)
			r.Post("/review", h.handleReview)
			r.Post("/challenge", h.handleFileChallenge)
			r.Post("/challenge/accept", h.handleAcceptChallenge)
			r.Post("/challenge/reject", h.handleRejectChallenge)
		})
		r.Post("/entities/{entityID}/delegate", h.handleDelegateEntity)
	})

	r.Mount("/", router)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := h.certifications.Create(r.Context(), req.toParams())
	if err != nil {
		h.logError(r, "failed to create certification", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	cert, err := h.certifications.Get(r.Context(), certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleActionable(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	actionable, err := h.certifications.LockedAndActionable(r.Context(), certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"locked_and_actionable": actionable})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	cert, err := h.certifications.Refresh(r.Context(), certID)
	if err != nil {
		h.logError(r, "failed to refresh certification", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	certID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	ctx, err := req.workItemContext(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.certifications.Decide(ctx, certID, itemID, req.toDecision()); err != nil {
		h.logError(r, "decision rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBulkCertify(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	var req bulkCertifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.certifications.BulkCertify(r.Context(), certID, req.ItemIDs, req.template()); err != nil {
		h.logError(r, "bulk certify rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelegateItem(w http.ResponseWriter, r *http.Request) {
	certID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.certifications.Delegate(r.Context(), certID, itemID, req.toDelegation()); err != nil {
		h.logError(r, "delegation rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelegateEntity(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity id"))
		return
	}
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.certifications.DelegateEntity(r.Context(), certID, entityID, req.toDelegation()); err != nil {
		h.logError(r, "entity delegation rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	certID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	if err := h.certifications.RevokeDelegation(r.Context(), certID, itemID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	certID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	if err := h.certifications.Review(r.Context(), certID, itemID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFileChallenge(w http.ResponseWriter, r *http.Request) {
	h.handleChallenge(w, r, h.certifications.FileChallenge)
}

func (h *Handler) handleAcceptChallenge(w http.ResponseWriter, r *http.Request) {
	h.handleChallenge(w, r, h.certifications.AcceptChallenge)
}

func (h *Handler) handleRejectChallenge(w http.ResponseWriter, r *http.Request) {
	h.handleChallenge(w, r, h.certifications.RejectChallenge)
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, certID id.CertificationID, itemID id.ItemID, comments string) error) {

	certID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := op(r.Context(), certID, itemID, req.Comments); err != nil {
		h.logError(r, "challenge operation rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, h.certifications.Activate)
}

func (h *Handler) handleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, h.certifications.AdvancePhase)
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, h.certifications.Sign)
}

func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, certID id.CertificationID) error) {

	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), certID); err != nil {
		h.logError(r, "lifecycle operation rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReassign(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.certifications.BulkReassign(r.Context(), certID, req.toReassign()); err != nil {
		h.logError(r, "reassignment rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) certificationID(w http.ResponseWriter, r *http.Request) (id.CertificationID, bool) {
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certificationID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certification id"))
		return id.CertificationID{}, false
	}
	return certID, true
}

func (h *Handler) itemIDs(w http.ResponseWriter, r *http.Request) (id.CertificationID, id.ItemID, bool) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return id.CertificationID{}, id.ItemID{}, false
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
		return id.CertificationID{}, id.ItemID{}, false
	}
	return certID, itemID, true
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	// Domain rejections are expected traffic; only infrastructure failures
	// are errors.
	level := h.logger.WarnContext
	if !dErrors.Is(err) || dErrors.HasCode(err, dErrors.CodeInternal) {
		level = h.logger.ErrorContext
	}
	level(r.Context(), msg,
		"error", err,
		"actor", requestcontext.Actor(r.Context()),
		"request_id", middleware.GetRequestID(r.Context()),
	)
}
