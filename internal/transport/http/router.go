// Package httptransport assembles the HTTP surface: the public verification
// and login endpoints, the authenticated /api/v1 API, and the operational
// endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	courrierhandler "registre/internal/courrier/handler"
	"registre/internal/courrier/models"
	identityhandler "registre/internal/identity/handler"
	"registre/internal/notification"
	"registre/internal/platform/middleware"
	"registre/internal/transport/http/shared"
	dErrors "registre/pkg/domain-errors"
)

// Verifier is the public QR-scan lookup.
type Verifier interface {
	Verify(ctx context.Context, rawID, ref string) (*models.PublicView, error)
}

// Deps collects everything the router mounts.
type Deps struct {
	Courrier      *courrierhandler.Handler
	Identity      *identityhandler.Handler
	Notifications *notification.Handler
	Verifier      Verifier
	JWTValidator  middleware.JWTValidator
	Logger        *slog.Logger
	Health        func(ctx context.Context) error
}

type verifyResponse struct {
	Authentic bool               `json:"authentic"`
	Document  *models.PublicView `json:"document,omitempty"`
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public: anyone scanning a document's QR code can check authenticity,
	// and the login endpoint has no token to present yet.
	r.Get("/verify", handleVerify(deps.Verifier))
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Identity.RegisterPublic(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		deps.Courrier.Register(r)
		deps.Identity.Register(r)
		deps.Notifications.Register(r)
	})

	return r
}

// handleVerify answers the QR-code lookup. An unknown document is a normal
// outcome, reported as authentic=false rather than an error.
func handleVerify(verifier Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		view, err := verifier.Verify(r.Context(), q.Get("id"), q.Get("ref"))
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				shared.WriteJSON(w, http.StatusOK, verifyResponse{Authentic: false})
				return
			}
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, verifyResponse{Authentic: true, Document: view})
	}
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
