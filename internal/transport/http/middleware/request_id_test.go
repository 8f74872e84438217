package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/transport/http/middleware"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/probe", func(c *gin.Context) {
		id, _ := c.Get("request_id")
		c.String(http.StatusOK, "%v", id)
	})
	return r
}

func TestRequestIDEchoesCallerValue(t *testing.T) {
	r := requestIDRouter()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Fatalf("expected caller id to be echoed, got %q", got)
	}
	if w.Body.String() != "caller-supplied" {
		t.Fatalf("expected handler to see caller id, got %q", w.Body.String())
	}
}

func TestRequestIDMintsWhenAbsent(t *testing.T) {
	r := requestIDRouter()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatal("expected a generated request id")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a uuid, got %q: %v", got, err)
	}
}
