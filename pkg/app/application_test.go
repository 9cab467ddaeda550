package app

import (
	"bytes"
	"context"
	"errors"
	"lodgr/pkg/config"
	"lodgr/pkg/logger"
	"lodgr/pkg/middleware"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type routes func(*httprouter.Router)

func (f routes) RegisterRoutes(r *httprouter.Router) { f(r) }

func newTestApp(t *testing.T, secret string) *Application {
	t.Helper()

	cfg := &config.Config{
		Port:              "0",
		APISigningSecret:  secret,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
	}

	appRoutes := routes(func(r *httprouter.Router) {
		r.POST("/api/v1/units/:unitId/holds", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	healthRoutes := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})

	a := NewApplication(cfg)
	a.SetApp(appRoutes, healthRoutes)
	t.Cleanup(a.runHooks)
	return a
}

func TestSignatureAppliesToAPIOnly(t *testing.T) {
	const secret = "s3cret"
	a := newTestApp(t, secret)
	body := []byte(`{"startDate":"2024-07-01","endDate":"2024-07-05"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/units/U1/holds", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned request: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/units/U1/holds", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SignatureHeader, middleware.Sign(secret, http.MethodPost, "/api/v1/units/U1/holds", body))
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("signed request: expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health must bypass signing, got %d", rec.Code)
	}
}

func TestUnknownRoutesReturnJSON(t *testing.T) {
	a := newTestApp(t, "")

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %q", ct)
	}

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/units/U1/holds", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestShutdownHooksRunInOrder(t *testing.T) {
	a := newTestApp(t, "")

	var order []string
	a.OnShutdown("router", func(ctx context.Context) error {
		order = append(order, "router")
		return nil
	})
	a.OnShutdown("events", func(ctx context.Context) error {
		order = append(order, "events")
		return errors.New("flush failed")
	})
	a.OnShutdown("mongo", func(ctx context.Context) error {
		order = append(order, "mongo")
		return nil
	})

	a.runHooks()

	if len(order) != 3 || order[0] != "router" || order[1] != "events" || order[2] != "mongo" {
		t.Errorf("unexpected hook order %v", order)
	}
}
