package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "lodgr/pkg/errors"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperrors.Expired("hold expired").WithDetails(map[string]any{"token": "t1"}))

	if rec.Code != http.StatusGone {
		t.Errorf("expected 410, got %d", rec.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Code != apperrors.CodeExpired || body.Details["token"] != "t1" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("mongo: connection pool cleared"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mongo") {
		t.Errorf("internal error text leaked: %s", rec.Body.String())
	}
}

func TestWriteCreated_WrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCreated(rec, map[string]string{"token": "t1"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"token":"t1"}}` {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		BookingID string `json:"bookingId"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"bookingId":"B-1"}`, false},
		{"empty", ``, true},
		{"malformed", `{"bookingId":`, true},
		{"unknown field", `{"bookingId":"B-1","extra":1}`, true},
		{"wrong type", `{"bookingId":42}`, true},
		{"trailing object", `{"bookingId":"B-1"}{"bookingId":"B-2"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSON(req, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsAppError(err) {
				t.Errorf("expected AppError, got %T", err)
			}
		})
	}
}
