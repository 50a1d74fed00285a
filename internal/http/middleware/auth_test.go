package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
	"github.com/launchsignal/validator-backend/internal/services"
)

const testSecret = "middleware-test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	auth, err := services.NewAuthService(log, testSecret, "")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	var seen uuid.UUID
	r := gin.New()
	r.Use(NewAuthMiddleware(log, auth).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		seen = ctxutil.UserID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestRequireAuthAcceptsBearerHeader(t *testing.T) {
	r, seen := newAuthRouter(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *seen != userID {
		t.Fatalf("handler saw user %s, want %s", *seen, userID)
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	r, seen := newAuthRouter(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+mintToken(t, userID), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *seen != userID {
		t.Fatalf("handler saw user %s, want %s", *seen, userID)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
