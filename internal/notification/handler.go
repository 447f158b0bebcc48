package notification

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registre/internal/transport/http/shared"
	"registre/pkg/requestcontext"
)

// Handler serves the notification feed to polling clients.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the feed endpoint. Runs behind auth: the feed is scoped to
// the authenticated user (their targeted notices plus broadcasts).
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := requestcontext.UserID(r.Context())
	notices, err := h.store.List(r.Context(), &userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read notification feed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notices})
}
