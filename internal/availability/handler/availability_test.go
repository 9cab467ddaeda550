package handler

import (
	"context"
	"encoding/json"
	"lodgr/internal/availability/coordinator"
	"lodgr/internal/availability/router"
	"lodgr/internal/availability/service"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/clock"
	"lodgr/pkg/config"
	apperrors "lodgr/pkg/errors"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type testServer struct {
	handler http.Handler
	clock   *clock.Manual
	units   *router.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clk := clock.NewManual(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	log := logger.Discard()
	units := router.New(router.Config{
		Actor: coordinator.Settings{SweepInterval: time.Hour},
	}, coordinator.Deps{Clock: clk, Log: log}, nil)
	t.Cleanup(func() { _ = units.Close(context.Background()) })

	svc := service.NewAvailabilityService(units, validator.NewHoldValidator(), &config.Config{Log: log})

	r := httprouter.New()
	NewAvailabilityHandler(svc, log).RegisterRoutes(r)

	return &testServer{handler: r, clock: clk, units: units}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("invalid data: %v (%s)", err, rec.Body.String())
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func TestCheckoutDayScenario(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-01","endDate":"2024-07-05","ttlMinutes":15}`)
	expectStatus(t, rec, http.StatusCreated)
	var first model.HoldResponse
	decodeData(t, rec, &first)
	if first.Token == "" || first.StartDate != "2024-07-01" || first.EndDate != "2024-07-05" {
		t.Fatalf("unexpected hold response %+v", first)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-03","endDate":"2024-07-06"}`)
	expectStatus(t, rec, http.StatusConflict)
	if resp := decodeError(t, rec); resp.Code != apperrors.CodeConflict || resp.Details["reason"] != model.ReasonHold {
		t.Errorf("unexpected conflict body %+v", resp)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-05","endDate":"2024-07-08"}`)
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds/"+first.Token+"/confirm", `{"bookingId":"B-1"}`)
	expectStatus(t, rec, http.StatusOK)
	var confirmed model.ConfirmResponse
	decodeData(t, rec, &confirmed)
	if confirmed.StartDate != "2024-07-01" || confirmed.EndDate != "2024-07-05" {
		t.Errorf("unexpected confirm response %+v", confirmed)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds/"+first.Token+"/confirm", `{"bookingId":"B-1"}`)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds/"+first.Token+"/confirm", `{"bookingId":"B-2"}`)
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.do(t, http.MethodGet, "/api/v1/units/U1/holds", "")
	expectStatus(t, rec, http.StatusOK)
	var listed model.HoldsResponse
	decodeData(t, rec, &listed)
	if len(listed.Holds) != 1 || listed.Holds[0].StartDate != "2024-07-05" {
		t.Errorf("expected only the second hold to be active, got %+v", listed.Holds)
	}
}

func TestExpiryOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/units/U7/holds", `{"startDate":"2024-07-01","endDate":"2024-07-03","ttlMinutes":1}`)
	expectStatus(t, rec, http.StatusCreated)
	var hold model.HoldResponse
	decodeData(t, rec, &hold)

	s.clock.Advance(61 * time.Second)

	rec = s.do(t, http.MethodPost, "/api/v1/units/U7/holds/"+hold.Token+"/confirm", `{"bookingId":"B-9"}`)
	expectStatus(t, rec, http.StatusGone)
	if resp := decodeError(t, rec); resp.Code != apperrors.CodeExpired {
		t.Errorf("expected EXPIRED, got %s", resp.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/units/U7/availability", `{"startDate":"2024-07-01","endDate":"2024-07-03"}`)
	expectStatus(t, rec, http.StatusOK)
	var check model.CheckResponse
	decodeData(t, rec, &check)
	if !check.Available {
		t.Error("expired hold must not block availability")
	}
}

func TestCheckReportsCommittedBlock(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/units/U1/availability",
		`{"startDate":"2024-07-01","endDate":"2024-07-05","committedBlocks":[{"startDate":"2024-07-04","endDate":"2024-07-06","kind":"maintenance"}]}`)
	expectStatus(t, rec, http.StatusOK)

	var check model.CheckResponse
	decodeData(t, rec, &check)
	if check.Available || check.Reason != model.ReasonCommittedBlock {
		t.Errorf("unexpected check %+v", check)
	}
}

func TestRelease(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-01","endDate":"2024-07-05"}`)
	expectStatus(t, rec, http.StatusCreated)
	var hold model.HoldResponse
	decodeData(t, rec, &hold)

	for i, want := range []bool{true, false} {
		rec = s.do(t, http.MethodDelete, "/api/v1/units/U1/holds/"+hold.Token, "")
		expectStatus(t, rec, http.StatusOK)
		var released model.ReleaseResponse
		decodeData(t, rec, &released)
		if released.Released != want {
			t.Errorf("release %d: released = %v, want %v", i, released.Released, want)
		}
	}

	rec = s.do(t, http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-02","endDate":"2024-07-04"}`)
	expectStatus(t, rec, http.StatusCreated)
}

func TestMalformedRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown field", http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-01","endDate":"2024-07-05","nights":4}`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"bad date", http.MethodPost, "/api/v1/units/U1/availability", `{"startDate":"01/07/2024","endDate":"2024-07-05"}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"inverted range", http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-05","endDate":"2024-07-01"}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"negative ttl", http.MethodPost, "/api/v1/units/U1/holds", `{"startDate":"2024-07-01","endDate":"2024-07-05","ttlMinutes":-1}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"unit mismatch", http.MethodPost, "/api/v1/units/U1/holds", `{"unitId":"U2","startDate":"2024-07-01","endDate":"2024-07-05"}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"missing booking id", http.MethodPost, "/api/v1/units/U1/holds/tok/confirm", `{}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"missing body", http.MethodPost, "/api/v1/units/U1/holds/tok/confirm", "", http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"half filter", http.MethodGet, "/api/v1/units/U1/holds?startDate=2024-07-01", "", http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"unknown token", http.MethodPost, "/api/v1/units/U1/holds/tok/confirm", `{"bookingId":"B-1"}`, http.StatusNotFound, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, rec, tt.status)
			if resp := decodeError(t, rec); resp.Code != tt.code {
				t.Errorf("expected %s, got %s (%s)", tt.code, resp.Code, resp.Message)
			}
		})
	}

	if n := s.units.Units(); n > 1 {
		t.Errorf("invalid requests should not spawn actors, got %d", n)
	}
}
