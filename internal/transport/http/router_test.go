package httptransport_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registre/internal/access"
	"registre/internal/access/adapters"
	courrierhandler "registre/internal/courrier/handler"
	"registre/internal/courrier/models"
	courrierservice "registre/internal/courrier/service"
	"registre/internal/courrier/store"
	"registre/internal/identity"
	identityhandler "registre/internal/identity/handler"
	jwttoken "registre/internal/jwt_token"
	"registre/internal/notification"
	"registre/internal/platform/logger"
	"registre/internal/transfer"
	httptransport "registre/internal/transport/http"
	"registre/pkg/testutil"
)

// RouterSuite exercises the HTTP surface end to end: login, the protected
// API, and the public verification endpoint.
type RouterSuite struct {
	suite.Suite
	router http.Handler

	receptionist identity.User
	agentCabinet identity.User
	director     identity.User

	tokens map[string]string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	log := logger.New()

	users := identity.NewInMemoryUserStore()
	seeded, err := identity.SeedDirectory(ctx, users)
	s.Require().NoError(err)
	s.receptionist, s.agentCabinet, s.director = seeded[0], seeded[1], seeded[3]

	tokens := jwttoken.NewService("test-signing-key", "registre-test", time.Hour)
	identitySvc := identity.NewService(users, tokens)

	records := store.NewInMemory()
	transfers := transfer.NewInMemory()
	grants := access.NewInMemoryGrantStore()
	engine := access.NewEngine(grants, users, adapters.NewLedgerAdapter(transfers))
	notices := notification.NewInMemoryStore()
	workflow := courrierservice.NewWorkflow(records, identitySvc, engine,
		transfer.NewLedger(transfers), notification.NewEmitter(notices))

	s.router = httptransport.NewRouter(httptransport.Deps{
		Courrier:      courrierhandler.New(workflow, log),
		Identity:      identityhandler.New(identitySvc, log),
		Notifications: notification.NewHandler(notices, log),
		Verifier:      workflow,
		JWTValidator:  jwttoken.NewAdapter(tokens),
		Logger:        log,
	})

	s.tokens = make(map[string]string)
	for _, u := range seeded {
		token, err := tokens.GenerateToken(u.ID)
		s.Require().NoError(err)
		s.tokens[u.Email] = token
	}
}

func (s *RouterSuite) authed(req *http.Request, user identity.User) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.tokens[user.Email])
	return req
}

func (s *RouterSuite) createIncoming() *models.Courrier {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/courriers", map[string]any{
		"type":    "INCOMING",
		"subject": "Demande X",
		"sender":  "Société Y",
	})
	rr := testutil.DoRequest(s.router, s.authed(req, s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.Courrier](s.T(), rr)
}

func (s *RouterSuite) TestLoginFlow() {
	s.Run("known email returns a token and the user", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": "reception@ministere.gouv",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[struct {
			Token string        `json:"token"`
			User  identity.User `json:"user"`
		}](s.T(), rr)
		s.NotEmpty(resp.Token)
		s.Equal(identity.RoleReceptionist, resp.User.Role)
	})

	s.Run("unknown email is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": "nobody@ministere.gouv",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *RouterSuite) TestAuthRequired() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/courriers")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/courriers")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *RouterSuite) TestCourrierLifecycleOverHTTP() {
	c := s.createIncoming()
	s.Equal(models.StatusReceived, c.Status)
	s.Regexp(`^ENT-\d{4}-\d{4}$`, c.Ref)
	base := fmt.Sprintf("/api/v1/courriers/%s", c.ID)

	// Digitize by the receptionist.
	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodPost, base+"/digitize"), s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// Encode into the Cabinet service.
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/encode", map[string]string{"service": "Cabinet"})
	rr = testutil.DoRequest(s.router, s.authed(req, s.agentCabinet))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// Process, requesting validation.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/process", map[string]string{"action": "NEEDS_VALIDATION"})
	rr = testutil.DoRequest(s.router, s.authed(req, s.agentCabinet))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// An agent may not validate.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/validate", map[string]string{"decision": "APPROVE"})
	rr = testutil.DoRequest(s.router, s.authed(req, s.agentCabinet))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	// The director approves.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/validate", map[string]string{"decision": "APPROVE"})
	rr = testutil.DoRequest(s.router, s.authed(req, s.director))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	validated := testutil.UnmarshalResponse[models.Courrier](s.T(), rr)
	s.Equal(models.StatusValidated, validated.Status)

	// Archive, then a second archive conflicts.
	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodPost, base+"/archive"), s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodPost, base+"/archive"), s.receptionist))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
}

func (s *RouterSuite) TestTransferAndHistory() {
	c := s.createIncoming()
	base := fmt.Sprintf("/api/v1/courriers/%s", c.ID)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/transfer", map[string]string{
		"to_user_id": s.agentCabinet.ID.String(),
		"reason":     "instruction",
	})
	rr := testutil.DoRequest(s.router, s.authed(req, s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, base+"/history"), s.director))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Transfers []transfer.Transfer `json:"transfers"`
	}](s.T(), rr)
	s.Require().Len(resp.Transfers, 1)
	s.Equal("instruction", resp.Transfers[0].Reason)
}

func (s *RouterSuite) TestGrantEndpoints() {
	c := s.createIncoming()
	base := fmt.Sprintf("/api/v1/courriers/%s", c.ID)
	grantPath := fmt.Sprintf("%s/grants/%s", base, s.agentCabinet.ID)

	// Before the grant the agent cannot read the item.
	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, base), s.agentCabinet))
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, grantPath, map[string]string{"level": "READ"})
	rr = testutil.DoRequest(s.router, s.authed(req, s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, base), s.agentCabinet))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodDelete, grantPath), s.receptionist))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, base), s.agentCabinet))
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
}

func (s *RouterSuite) TestPublicVerify() {
	c := s.createIncoming()

	s.Run("known ref without authentication", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/verify?ref="+c.Ref))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal(true, (*resp)["authentic"])

		document := (*resp)["document"].(map[string]any)
		s.Equal(c.Ref, document["ref"])
		// Redacted: internal fields never leave the public endpoint.
		s.NotContains(document, "sender")
		s.NotContains(document, "notes")
		s.NotContains(document, "responsible_user_id")
	})

	s.Run("unknown ref is not authentic", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/verify?ref=ENT-2025-9999"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal(false, (*resp)["authentic"])
	})

	s.Run("missing parameters are a validation error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/verify"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation")
	})
}

func (s *RouterSuite) TestNotificationsFeed() {
	s.createIncoming()

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/notifications"), s.director))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[struct {
		Notifications []notification.Notification `json:"notifications"`
	}](s.T(), rr)
	s.Require().NotEmpty(resp.Notifications)
	s.Contains(resp.Notifications[0].Message, "Nouveau courrier entrant")
}

func (s *RouterSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}
