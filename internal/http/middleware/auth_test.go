// README: Tests for Firebase auth, logging and recovery middleware.
package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"saferoute/internal/http/middleware"
	"saferoute/internal/infra"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c)})
	})
	return r
}

func TestAuth(t *testing.T) {
	walker := &infra.FirebaseToken{UID: "walker123"}
	cases := []struct {
		name     string
		header   string
		verifier *stubVerifier
		want     int
		wantUID  string
	}{
		{"missing header", "", &stubVerifier{token: walker}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Token sometoken", &stubVerifier{token: walker}, http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", &stubVerifier{token: walker}, http.StatusUnauthorized, ""},
		{"rejected token", "Bearer expired", &stubVerifier{err: errors.New("token expired")}, http.StatusUnauthorized, ""},
		{"valid token", "Bearer validtoken", &stubVerifier{token: walker}, http.StatusOK, "walker123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(tc.verifier)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if tc.wantUID != "" && !strings.Contains(w.Body.String(), tc.wantUID) {
				t.Errorf("expected uid %s in body, got %s", tc.wantUID, w.Body.String())
			}
		})
	}
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(middleware.Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("nil map") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if logs.FilterMessage("panic in handler").Len() != 1 {
		t.Errorf("panic not logged: %v", logs.All())
	}
}

func TestLogging_RecordsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(middleware.Logging(zap.New(core)))
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing/42", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["status"] != int64(http.StatusNotFound) || ctx["path"] != "/missing/:id" {
		t.Errorf("logged fields = %v", ctx)
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}
