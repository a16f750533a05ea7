package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lending-service/internal/service"
	"lending-service/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type verifierMock struct {
	ParseFunc func(ctx context.Context, tok string) (*token.Claims, error)
}

func (m *verifierMock) ParseAndValidateAccess(ctx context.Context, tok string) (*token.Claims, error) {
	return m.ParseFunc(ctx, tok)
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer \"abc.def.ghi\"", "abc.def.ghi", true},
		{"Bearer abc.def.ghi, extra", "abc.def.ghi", true},
		{"Basic xyz", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractBearerToken(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uid := uuid.New()
	v := &verifierMock{ParseFunc: func(ctx context.Context, tok string) (*token.Claims, error) {
		if tok != "good" {
			return nil, errors.New("bad token")
		}
		return &token.Claims{UserID: uid, Role: service.RoleAdmin}, nil
	}}

	r := gin.New()
	r.GET("/me", AuthRequired(v, zap.NewNop()), func(c *gin.Context) {
		id, ok := service.UserIDFromContext(c.Request.Context())
		role, _ := service.RoleFromContext(c.Request.Context())
		if !ok || id != uid || role != service.RoleAdmin {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("header %q: status %d, want %d", tc.header, w.Code, tc.want)
		}
	}
}
