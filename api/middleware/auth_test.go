package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/vyronamart/groupbuy-backend/pkg/auth"
	"github.com/vyronamart/groupbuy-backend/pkg/config"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

func middlewareTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func middlewareJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "middleware-secret",
		Issuer:            "groupbuy-test",
		ExpirationMinutes: 15,
	}
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := middlewareJWTConfig()
	participantID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		ParticipantID: participantID,
		Role:          enums.ActorRoleParticipant,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotParticipant, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParticipant = ParticipantIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(cfg, middlewareTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotParticipant != participantID.String() {
		t.Fatalf("expected participant %s, got %s", participantID, gotParticipant)
	}
	if gotRole != string(enums.ActorRoleParticipant) {
		t.Fatalf("expected participant role, got %s", gotRole)
	}
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	resp := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})
	Auth(middlewareJWTConfig(), middlewareTestLogger())(next).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	other := middlewareJWTConfig()
	other.Secret = "attacker-secret"
	token, err := pkgauth.MintAccessToken(other, time.Now(), pkgauth.AccessTokenPayload{
		ParticipantID: uuid.New(),
		Role:          enums.ActorRoleOperator,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})
	Auth(middlewareJWTConfig(), middlewareTestLogger())(next).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRoleBlocksParticipants(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/x/cancel", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleParticipant)))
	resp := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})
	RequireRole(string(enums.ActorRoleOperator), middlewareTestLogger())(next).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireRoleAllowsOperators(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/x/cancel", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleOperator)))
	resp := httptest.NewRecorder()
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })
	RequireRole(string(enums.ActorRoleOperator), middlewareTestLogger())(next).ServeHTTP(resp, req)
	if !ran {
		t.Fatal("expected next to run")
	}
}
