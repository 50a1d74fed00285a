package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/services"
)

// stubSessionService serves a single session without comparing owners; the
// handler tests assert what identity the handler forwards, not the lookup.
type stubSessionService struct {
	session *validation.ValidatorSession
}

func (s *stubSessionService) Create(_ context.Context, userID uuid.UUID, _ validation.Profile) (*validation.ValidatorSession, error) {
	return &validation.ValidatorSession{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubSessionService) GetForUser(_ context.Context, _ uuid.UUID, sessionID uuid.UUID) (*validation.ValidatorSession, error) {
	if s.session != nil && s.session.ID == sessionID {
		return s.session, nil
	}
	return nil, services.ErrSessionNotFound
}

// stubJobService records the identity each enqueue was attributed to.
type stubJobService struct {
	enqueuedAs uuid.UUID
}

func (s *stubJobService) EnqueueValidate(_ context.Context, userID uuid.UUID, sessionID uuid.UUID) (*jobtypes.JobRun, error) {
	s.enqueuedAs = userID
	return &jobtypes.JobRun{ID: uuid.New(), OwnerUserID: userID, SessionID: sessionID}, nil
}

func (s *stubJobService) EnqueueRegenerate(_ context.Context, userID uuid.UUID, sessionID uuid.UUID, _ *validation.DimensionID) (*jobtypes.JobRun, error) {
	s.enqueuedAs = userID
	return &jobtypes.JobRun{ID: uuid.New(), OwnerUserID: userID, SessionID: sessionID}, nil
}

func (s *stubJobService) GetForUser(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*jobtypes.JobRun, error) {
	return nil, services.ErrJobNotFound
}

func newSessionRouter(callerID uuid.UUID, sessions *stubSessionService, jobs *stubJobService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSessionHandler(sessions, jobs)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: callerID})
		c.Request = c.Request.WithContext(ctx)
	})
	r.POST("/api/sessions/:id/validate", h.Validate)
	r.POST("/api/sessions/:id/regenerate", h.Regenerate)
	return r
}

// The identity written into the job payload must be the authenticated
// caller's, never whatever the session row carries: the regeneration
// controller authorizes against the payload identity.
func TestRegenerateEnqueuesCallerIdentity(t *testing.T) {
	callerID := uuid.New()
	session := &validation.ValidatorSession{ID: uuid.New(), UserID: uuid.New()}
	jobs := &stubJobService{}
	r := newSessionRouter(callerID, &stubSessionService{session: session}, jobs)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session.ID.String()+"/regenerate",
		strings.NewReader(`{"dimension":"market"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if jobs.enqueuedAs != callerID {
		t.Fatalf("regeneration enqueued as %s, want caller %s", jobs.enqueuedAs, callerID)
	}
}

func TestValidateEnqueuesCallerIdentity(t *testing.T) {
	callerID := uuid.New()
	session := &validation.ValidatorSession{ID: uuid.New(), UserID: uuid.New()}
	jobs := &stubJobService{}
	r := newSessionRouter(callerID, &stubSessionService{session: session}, jobs)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session.ID.String()+"/validate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if jobs.enqueuedAs != callerID {
		t.Fatalf("validation enqueued as %s, want caller %s", jobs.enqueuedAs, callerID)
	}
}
