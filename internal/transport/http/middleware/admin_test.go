package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/transport/http/middleware"
)

func adminRouter(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AdminAPIKey(apiKey))
	r.GET("/probe", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAdminAPIKey(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{"valid key", "secret-key", "Bearer secret-key", http.StatusNoContent},
		{"wrong key", "secret-key", "Bearer other-key", http.StatusUnauthorized},
		{"missing header", "secret-key", "", http.StatusUnauthorized},
		{"no bearer prefix", "secret-key", "secret-key", http.StatusUnauthorized},
		{"unconfigured key locks routes", "", "Bearer anything", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := adminRouter(tc.configured)
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
