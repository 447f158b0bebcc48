// Package handler exposes the prototype login and the user directory.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registre/internal/identity"
	"registre/internal/transport/http/shared"
	"registre/pkg/requestcontext"
)

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

// Handler handles identity endpoints.
type Handler struct {
	identity *identity.Service
	logger   *slog.Logger
}

func New(svc *identity.Service, logger *slog.Logger) *Handler {
	return &Handler{identity: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated login endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// Register mounts the authenticated directory endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users", h.handleListUsers)
	r.Get("/me", h.handleMe)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	token, user, err := h.identity.Login(r.Context(), req.Email)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}
