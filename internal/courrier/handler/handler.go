// Package handler exposes the courrier workflow over HTTP. Handlers parse
// and delegate; every business rule lives in the workflow service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registre/internal/access"
	"registre/internal/courrier/models"
	"registre/internal/courrier/store"
	"registre/internal/identity"
	"registre/internal/transfer"
	"registre/internal/transport/http/shared"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/requestcontext"
)

// Service defines the workflow operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, attrs models.CreateAttrs) (*models.Courrier, error)
	Get(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Courrier, error)
	UpdateDetails(ctx context.Context, courrierID id.CourrierID, patch store.DetailsPatch) (*models.Courrier, error)

	Digitize(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error)
	Encode(ctx context.Context, courrierID id.CourrierID, service, notes string) (*models.Courrier, error)
	Process(ctx context.Context, courrierID id.CourrierID, action models.ProcessAction, notes string) (*models.Courrier, error)
	Validate(ctx context.Context, courrierID id.CourrierID, decision models.Decision, notes string) (*models.Courrier, error)
	Archive(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error)
	Transfer(ctx context.Context, courrierID id.CourrierID, toUserID id.UserID, reason string) (*models.Courrier, error)
	TakeOver(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error)

	Share(ctx context.Context, courrierID id.CourrierID, targetID id.UserID, level access.Level) error
	Unshare(ctx context.Context, courrierID id.CourrierID, targetID id.UserID) error
	ListGrants(ctx context.Context, courrierID id.CourrierID) ([]access.Grant, error)
	CheckAccess(ctx context.Context, courrierID id.CourrierID, userID id.UserID, level access.Level) (bool, error)
	History(ctx context.Context, courrierID id.CourrierID) ([]*transfer.Transfer, error)
	Participants(ctx context.Context, courrierID id.CourrierID) ([]identity.User, error)
}

// Handler handles the courrier endpoints.
type Handler struct {
	workflow Service
	logger   *slog.Logger
}

func New(workflow Service, logger *slog.Logger) *Handler {
	return &Handler{workflow: workflow, logger: logger}
}

// Register mounts the courrier routes. The caller provides the middleware
// chain (auth included); nothing here runs unauthenticated.
func (h *Handler) Register(r chi.Router) {
	r.Route("/courriers", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{courrierID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdateDetails)
			r.Post("/digitize", h.handleDigitize)
			r.Post("/encode", h.handleEncode)
			r.Post("/process", h.handleProcess)
			r.Post("/validate", h.handleValidate)
			r.Post("/archive", h.handleArchive)
			r.Post("/transfer", h.handleTransfer)
			r.Post("/claim", h.handleClaim)
			r.Get("/history", h.handleHistory)
			r.Get("/participants", h.handleParticipants)
			r.Get("/grants", h.handleListGrants)
			r.Get("/access", h.handleCheckAccess)
			r.Put("/grants/{userID}", h.handleGrant)
			r.Delete("/grants/{userID}", h.handleRevoke)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCourrierRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	attrs := models.CreateAttrs{
		Type:      models.Type(req.Type),
		Subject:   req.Subject,
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Date:      req.Date,
		Service:   req.Service,
		Priority:  models.Priority(req.Priority),
		Notes:     req.Notes,
	}
	if req.LinkedTo != "" {
		linkedID, err := id.ParseCourrierID(req.LinkedTo)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		attrs.LinkedTo = &linkedID
	}
	c, err := h.workflow.Create(r.Context(), attrs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Type:     models.Type(q.Get("type")),
		Status:   models.Status(q.Get("status")),
		Service:  q.Get("service"),
		Priority: models.Priority(q.Get("priority")),
	}
	if raw := q.Get("responsible"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		filter.ResponsibleUserID = &userID
	}
	items, err := h.workflow.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"courriers": items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	c, err := h.workflow.Get(r.Context(), courrierID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	var req updateDetailsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	patch := store.DetailsPatch{
		Subject:    req.Subject,
		Notes:      req.Notes,
		Attachment: req.Attachment,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.ProcessingDeadline != nil {
		deadline, err := time.Parse(time.RFC3339, *req.ProcessingDeadline)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "processing_deadline must be RFC 3339"))
			return
		}
		patch.ProcessingDeadline = &deadline
	}
	c, err := h.workflow.UpdateDetails(r.Context(), courrierID, patch)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDigitize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Digitize)
}

func (h *Handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	var req encodeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.workflow.Encode(r.Context(), courrierID, req.Service, req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	var req processRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.workflow.Process(r.Context(), courrierID, models.ProcessAction(req.Action), req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	var req validateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.workflow.Validate(r.Context(), courrierID, models.Decision(req.Decision), req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Archive)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	toUserID, err := id.ParseUserID(req.ToUserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.workflow.Transfer(r.Context(), courrierID, toUserID, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.TakeOver)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	entries, err := h.workflow.History(r.Context(), courrierID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"transfers": entries})
}

func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	users, err := h.workflow.Participants(r.Context(), courrierID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"participants": users})
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	grants, err := h.workflow.ListGrants(r.Context(), courrierID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

// handleCheckAccess answers the rights-panel probe: does a user hold a level
// on this item. The user defaults to the caller.
func (h *Handler) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	userID := requestcontext.UserID(r.Context())
	if raw := r.URL.Query().Get("user"); raw != "" {
		parsed, err := id.ParseUserID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		userID = parsed
	}
	level := access.Level(r.URL.Query().Get("level"))
	allowed, err := h.workflow.CheckAccess(r.Context(), courrierID, userID, level)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	targetID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req grantRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.workflow.Share(r.Context(), courrierID, targetID, access.Level(req.Level)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	targetID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.workflow.Unshare(r.Context(), courrierID, targetID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition factors the body-less transition endpoints.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.CourrierID) (*models.Courrier, error)) {
	courrierID, ok := h.courrierID(w, r)
	if !ok {
		return
	}
	c, err := op(r.Context(), courrierID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) courrierID(w http.ResponseWriter, r *http.Request) (id.CourrierID, bool) {
	courrierID, err := id.ParseCourrierID(chi.URLParam(r, "courrierID"))
	if err != nil {
		shared.WriteError(w, err)
		return id.CourrierID{}, false
	}
	return courrierID, true
}
