package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accounthandler "vigil/internal/account/handler"
	"vigil/internal/account/models"
	accountservice "vigil/internal/account/service"
	accountstore "vigil/internal/account/store"
	"vigil/internal/approval"
	"vigil/internal/auth"
	authhandler "vigil/internal/auth/handler"
	"vigil/internal/challenge"
	"vigil/internal/credentials"
	"vigil/internal/dispatch"
	"vigil/internal/evidence"
	evidencehandler "vigil/internal/evidence/handler"
	"vigil/internal/geo"
	"vigil/internal/notify"
	"vigil/internal/platform/metrics"
	reporthandler "vigil/internal/report/handler"
	reportservice "vigil/internal/report/service"
	reportstore "vigil/internal/report/store"
	"vigil/internal/token"
	httptransport "vigil/internal/transport/http"
	id "vigil/pkg/domain"
)

type capturingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *capturingNotifier) Send(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

// codeFor returns the latest 6-digit code delivered to the target.
func (n *capturingNotifier) codeFor(target string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	pattern := regexp.MustCompile(`\b\d{6}\b`)
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Target == target {
			if code := pattern.FindString(n.messages[i].Body); code != "" {
				return code
			}
		}
	}
	return ""
}

// APISuite drives the public API end to end against in-process stores.
type APISuite struct {
	suite.Suite
	server   *httptest.Server
	notifier *capturingNotifier
	accounts *accountstore.InMemoryStore
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewNop()

	s.accounts = accountstore.NewInMemory()
	s.notifier = &capturingNotifier{}

	tokens := token.NewService("e2e-signing-key", "vigil", token.DefaultTTL)
	gateway := auth.NewGateway(s.accounts, tokens, logger)
	registry := accountservice.NewRegistry(
		s.accounts,
		challenge.NewIssuer(challenge.NewInMemoryStore(), challenge.DefaultTTL),
		s.notifier,
		approval.NewPublisher(approval.NewInMemoryStore()),
		m, logger,
	)
	resolver := dispatch.NewResolver(geo.NewMemoryIndex(s.accounts), dispatch.DefaultRadiusMeters)
	reportSvc := reportservice.NewService(
		reportstore.NewInMemory(), s.accounts, resolver, s.notifier, m, logger)

	router := httptransport.NewRouter(httptransport.Options{
		Logger:  logger,
		Metrics: m,
		JSON: []httptransport.Registrar{
			accounthandler.New(registry, gateway, logger),
			authhandler.New(gateway, token.DefaultTTL, logger),
			reporthandler.New(reportSvc, gateway, logger),
		},
		Raw: []httptransport.Registrar{
			evidencehandler.New(evidence.NewInMemoryStore(), gateway, logger),
		},
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)

	s.seedAdmin()
}

func (s *APISuite) seedAdmin() {
	hash, err := credentials.Hash("admin-password")
	s.Require().NoError(err)
	now := time.Now()
	s.Require().NoError(s.accounts.Create(context.Background(), &models.Account{
		ID:           id.NewAccountID(),
		Name:         "Ops Admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func (s *APISuite) do(method, path, bearer string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func (s *APISuite) login(email, password string) string {
	resp, body := s.do(http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "login body: %v", body)
	tokenStr, _ := body["access_token"].(string)
	s.Require().NotEmpty(tokenStr)
	return tokenStr
}

func (s *APISuite) registerAndVerify(path string, payload map[string]any) string {
	resp, body := s.do(http.MethodPost, path, "", payload)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "register body: %v", body)
	accountID, _ := body["account_id"].(string)
	s.Require().NotEmpty(accountID)

	email := payload["email"].(string)
	code := s.notifier.codeFor(email)
	s.Require().NotEmpty(code, "no verification code delivered to %s", email)

	resp, body = s.do(http.MethodPost, "/verify-otp", "", map[string]string{
		"email": email,
		"code":  code,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "verify body: %v", body)
	return accountID
}

func (s *APISuite) TestFullDispatchFlow() {
	// A responder station registers and verifies; it lands in the approval queue.
	stationID := s.registerAndVerify("/register/responder", map[string]any{
		"name":        "Bandra Station",
		"email":       "station@example.com",
		"password":    "station-pass",
		"contact":     "+91 98111 11111",
		"address":     "Hill Road",
		"city":        "Mumbai",
		"postal_code": "400050",
		"location":    map[string]float64{"longitude": 72.88, "latitude": 19.08},
	})

	// Unapproved responders cannot log in yet.
	resp, body := s.do(http.MethodPost, "/login", "", map[string]string{
		"email": "station@example.com", "password": "station-pass",
	})
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("account_not_approved", body["error"])

	// The admin reviews the queue and approves.
	adminToken := s.login("admin@example.com", "admin-password")
	resp, body = s.do(http.MethodGet, "/accounts/pending", adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	pending, _ := body["accounts"].([]any)
	s.Require().Len(pending, 1)

	resp, _ = s.do(http.MethodPost, "/accounts/"+stationID+"/approve", adminToken,
		map[string]string{"reason": "license verified"})
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/accounts/"+stationID+"/decisions", adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	decisions, _ := body["decisions"].([]any)
	s.Require().Len(decisions, 1)

	// A citizen registers, verifies, logs in, and uploads evidence.
	s.registerAndVerify("/register/citizen", map[string]any{
		"name":     "Asha Rao",
		"email":    "asha@example.com",
		"password": "citizen-pass",
		"contact":  "+91 98222 22222",
	})
	citizenToken := s.login("asha@example.com", "citizen-pass")

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/evidence",
		bytes.NewReader([]byte("jpeg-bytes")))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+citizenToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	evResp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	var evBody map[string]string
	s.Require().NoError(json.NewDecoder(evResp.Body).Decode(&evBody))
	evResp.Body.Close()
	s.Require().Equal(http.StatusCreated, evResp.StatusCode)
	s.Require().NotEmpty(evBody["evidence_ref"])

	// A report near the station gets dispatched to it.
	resp, body = s.do(http.MethodPost, "/reports", citizenToken, map[string]any{
		"description":  "garbage fire near the market",
		"evidence_ref": evBody["evidence_ref"],
		"location":     map[string]float64{"longitude": 72.877, "latitude": 19.076},
		"severity":     "high",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "report body: %v", body)
	s.Equal(stationID, body["assigned_responder_id"])
	s.Equal("new", body["status"])
	reportID, _ := body["id"].(string)

	// A report far away finds no coverage, and nothing is persisted for it.
	resp, body = s.do(http.MethodPost, "/reports", citizenToken, map[string]any{
		"description":  "pothole",
		"evidence_ref": evBody["evidence_ref"],
		"location":     map[string]float64{"longitude": 77.5946, "latitude": 12.9716},
		"severity":     "low",
	})
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("no_coverage", body["error"])

	resp, body = s.do(http.MethodGet, "/reports/mine", citizenToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	mine, _ := body["reports"].([]any)
	s.Require().Len(mine, 1)

	// The responder works the case.
	stationToken := s.login("station@example.com", "station-pass")
	resp, body = s.do(http.MethodGet, "/responder/cases", stationToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	cases, _ := body["reports"].([]any)
	s.Require().Len(cases, 1)

	resp, body = s.do(http.MethodPatch, "/reports/"+reportID+"/status", stationToken,
		map[string]string{"status": "in_progress"})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "transition body: %v", body)
	resp, _ = s.do(http.MethodPatch, "/reports/"+reportID+"/status", stationToken,
		map[string]string{"status": "resolved"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// Re-applying the terminal status conflicts.
	resp, body = s.do(http.MethodPatch, "/reports/"+reportID+"/status", stationToken,
		map[string]string{"status": "resolved"})
	s.Require().Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("invalid_transition", body["error"])

	resp, body = s.do(http.MethodGet, "/responder/stats", stationToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(0, body["active_count"])
	s.EqualValues(1, body["resolved_today_count"])

	// Citizens cannot touch responder surfaces.
	resp, body = s.do(http.MethodGet, "/responder/cases", citizenToken, nil)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("forbidden", body["error"])

	// And unauthenticated requests are rejected outright.
	resp, body = s.do(http.MethodGet, "/reports/mine", "", nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])
}

func (s *APISuite) TestWrongOTPAndReplay() {
	resp, _ := s.do(http.MethodPost, "/register/citizen", "", map[string]any{
		"name":     "Asha Rao",
		"email":    "asha@example.com",
		"password": "citizen-pass",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	code := s.notifier.codeFor("asha@example.com")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	resp, body := s.do(http.MethodPost, "/verify-otp", "", map[string]string{
		"email": "asha@example.com", "code": wrong,
	})
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("mismatch", body["error"])

	resp, _ = s.do(http.MethodPost, "/verify-otp", "", map[string]string{
		"email": "asha@example.com", "code": code,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// The consumed code cannot be replayed.
	resp, body = s.do(http.MethodPost, "/verify-otp", "", map[string]string{
		"email": "asha@example.com", "code": code,
	})
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("not_found", body["error"])
}

func (s *APISuite) TestHealthz() {
	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
}
