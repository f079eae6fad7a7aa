package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/session"
)

type fakeAuth struct {
	err       error
	loggedOut bool
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (session.Session, string, error) {
	if f.err != nil {
		return session.Session{}, "", f.err
	}
	return session.Session{UserID: "u-1", CompanyID: "c-1", Role: session.RoleBarber, ExpiresAt: time.Now().Add(time.Hour)}, "signed", nil
}

func (f *fakeAuth) Logout(ctx context.Context, s session.Session) error {
	f.loggedOut = true
	return nil
}

func newUserRouter(auth AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewUserHTTPHandler(auth, nil, time.Second).RegisterPublic(r.Group("/api/v1"))
	return r
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"ok", `{"username":"joao","password":"navalha123"}`, nil, http.StatusOK},
		{"missing password", `{"username":"joao"}`, nil, http.StatusBadRequest},
		{"bad credentials", `{"username":"joao","password":"x"}`, session.ErrInvalidCredentials, http.StatusUnauthorized},
		{"store down", `{"username":"joao","password":"x"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newUserRouter(&fakeAuth{err: tt.err})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), `"token":"signed"`) {
				t.Errorf("token missing from %s", w.Body.String())
			}
		})
	}
}
