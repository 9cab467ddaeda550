package service

import (
	"context"
	"errors"
	"fmt"
	"lodgr/internal/availability/coordinator"
	availerrors "lodgr/internal/availability/errors"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/config"
	apperrors "lodgr/pkg/errors"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"net/http"
	"testing"
	"time"
)

// ────────────────────────────────────────────────
// Mock router for testing
// ────────────────────────────────────────────────

type mockUnitRouter struct {
	checkFunc   func(ctx context.Context, unitID string, dr model.DateRange, blocks []model.CommittedBlock) (model.Availability, error)
	holdFunc    func(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error)
	confirmFunc func(ctx context.Context, unitID, token, bookingID string) (model.Hold, error)
	releaseFunc func(ctx context.Context, unitID, token string) (bool, error)
	listFunc    func(ctx context.Context, unitID string, dr *model.DateRange) ([]model.Hold, error)
}

func (m *mockUnitRouter) Check(ctx context.Context, unitID string, dr model.DateRange, blocks []model.CommittedBlock) (model.Availability, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, unitID, dr, blocks)
	}
	return model.Availability{Available: true}, nil
}

func (m *mockUnitRouter) Hold(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
	if m.holdFunc != nil {
		return m.holdFunc(ctx, unitID, dr, ttl, blocks)
	}
	return model.Hold{Token: "tok", UnitID: unitID, Range: dr, Status: model.HoldStatusActive}, nil
}

func (m *mockUnitRouter) Confirm(ctx context.Context, unitID, token, bookingID string) (model.Hold, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, unitID, token, bookingID)
	}
	return model.Hold{}, availerrors.ErrHoldNotFound
}

func (m *mockUnitRouter) Release(ctx context.Context, unitID, token string) (bool, error) {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, unitID, token)
	}
	return false, nil
}

func (m *mockUnitRouter) ListActiveHolds(ctx context.Context, unitID string, dr *model.DateRange) ([]model.Hold, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, unitID, dr)
	}
	return nil, nil
}

func newTestService(units UnitRouter) AvailabilityService {
	cfg := &config.Config{Log: logger.Discard()}
	return NewAvailabilityService(units, validator.NewHoldValidator(), cfg)
}

func intPtr(n int) *int { return &n }

func requireAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code || appErr.HTTPStatus != status {
		t.Fatalf("expected %s/%d, got %s/%d (%s)", code, status, appErr.Code, appErr.HTTPStatus, appErr.Message)
	}
	return appErr
}

func TestHold_TTLDefaultsAndClamping(t *testing.T) {
	tests := []struct {
		name       string
		ttlMinutes *int
		want       time.Duration
	}{
		{"absent", nil, 15 * time.Minute},
		{"within range", intPtr(30), 30 * time.Minute},
		{"above maximum", intPtr(90), 60 * time.Minute},
		{"minimum", intPtr(1), time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Duration
			svc := newTestService(&mockUnitRouter{
				holdFunc: func(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
					got = ttl
					return model.Hold{Token: "tok", Range: dr, ExpiresAt: time.Now().Add(ttl)}, nil
				},
			})

			resp, err := svc.Hold(context.Background(), "U1", &model.HoldRequest{
				StartDate:  "2024-07-01",
				EndDate:    "2024-07-05",
				TTLMinutes: tt.ttlMinutes,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ttl = %s, want %s", got, tt.want)
			}
			if resp.StartDate != "2024-07-01" || resp.EndDate != "2024-07-05" {
				t.Errorf("unexpected range in response: %+v", resp)
			}
		})
	}
}

func TestHold_InvalidInputNeverReachesRouter(t *testing.T) {
	called := false
	svc := newTestService(&mockUnitRouter{
		holdFunc: func(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
			called = true
			return model.Hold{}, nil
		},
	})

	_, err := svc.Hold(context.Background(), "U1", &model.HoldRequest{
		StartDate:  "2024-07-01",
		EndDate:    "2024-07-05",
		TTLMinutes: intPtr(0),
	})
	appErr := requireAppError(t, err, apperrors.CodeValidation, http.StatusUnprocessableEntity)
	if _, ok := appErr.Details["ttlMinutes"]; !ok {
		t.Errorf("expected ttlMinutes in details, got %v", appErr.Details)
	}
	if called {
		t.Error("router must not be called for invalid input")
	}
}

func TestCheck_SanitizesBlocks(t *testing.T) {
	var received []model.CommittedBlock
	svc := newTestService(&mockUnitRouter{
		checkFunc: func(ctx context.Context, unitID string, dr model.DateRange, blocks []model.CommittedBlock) (model.Availability, error) {
			received = blocks
			return model.Availability{Available: false, Reason: model.ReasonCommittedBlock}, nil
		},
	})

	resp, err := svc.Check(context.Background(), " U1 ", &model.CheckRequest{
		StartDate: "2024-07-01",
		EndDate:   "2024-07-05",
		CommittedBlocks: []model.BlockInput{
			{StartDate: "2024-07-03", EndDate: "2024-07-04", Kind: " Maintenance ", Reference: " boiler  repair "},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Available || resp.Reason != model.ReasonCommittedBlock {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(received) != 1 || received[0].Kind != model.BlockKindMaintenance || received[0].Reference != "boiler repair" {
		t.Errorf("blocks not sanitized: %+v", received)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"conflict", &coordinator.ConflictError{Reason: model.ReasonHold}, apperrors.CodeConflict, http.StatusConflict},
		{"not found", availerrors.ErrHoldNotFound, apperrors.CodeNotFound, http.StatusNotFound},
		{"different booking", availerrors.ErrHoldAlreadyConfirmed, apperrors.CodeNotFound, http.StatusNotFound},
		{"expired", availerrors.ErrHoldExpired, apperrors.CodeExpired, http.StatusGone},
		{"unavailable", availerrors.ErrUnavailable, apperrors.CodeUnavailable, http.StatusServiceUnavailable},
		{"retired", availerrors.ErrActorRetired, apperrors.CodeUnavailable, http.StatusServiceUnavailable},
		{"router closed", availerrors.ErrRouterClosed, apperrors.CodeUnavailable, http.StatusServiceUnavailable},
		{"persistence", fmt.Errorf("%w: write concern", availerrors.ErrPersistence), apperrors.CodeUnavailable, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, apperrors.CodeTimeout, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), apperrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockUnitRouter{
				confirmFunc: func(ctx context.Context, unitID, token, bookingID string) (model.Hold, error) {
					return model.Hold{}, tt.err
				},
			})

			_, err := svc.Confirm(context.Background(), "U1", "tok-1", &model.ConfirmRequest{BookingID: "B-1"})
			requireAppError(t, err, tt.code, tt.status)
		})
	}
}

func TestHold_ConflictCarriesReason(t *testing.T) {
	svc := newTestService(&mockUnitRouter{
		holdFunc: func(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
			return model.Hold{}, &coordinator.ConflictError{Reason: model.ReasonCommittedBlock}
		},
	})

	_, err := svc.Hold(context.Background(), "U1", &model.HoldRequest{StartDate: "2024-07-01", EndDate: "2024-07-05"})
	appErr := requireAppError(t, err, apperrors.CodeConflict, http.StatusConflict)
	if appErr.Details["reason"] != model.ReasonCommittedBlock {
		t.Errorf("expected reason in details, got %v", appErr.Details)
	}
}

func TestRelease_UnknownTokenIsNotAnError(t *testing.T) {
	svc := newTestService(&mockUnitRouter{})

	resp, err := svc.Release(context.Background(), "U1", "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Released {
		t.Error("unknown token must report released=false")
	}
}

func TestListHolds_FormatsDates(t *testing.T) {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var filter *model.DateRange
	svc := newTestService(&mockUnitRouter{
		listFunc: func(ctx context.Context, unitID string, dr *model.DateRange) ([]model.Hold, error) {
			filter = dr
			return []model.Hold{{
				Token:  "tok-1",
				UnitID: unitID,
				Range:  model.DateRange{Start: start, End: start.AddDate(0, 0, 3)},
				Status: model.HoldStatusActive,
			}}, nil
		},
	})

	resp, err := svc.ListHolds(context.Background(), "U1", &model.ListHoldsQuery{StartDate: "2024-07-01", EndDate: "2024-07-31"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter == nil || !filter.Start.Equal(start) {
		t.Errorf("filter not passed through: %v", filter)
	}
	if len(resp.Holds) != 1 || resp.Holds[0].EndDate != "2024-07-04" {
		t.Errorf("unexpected holds %+v", resp.Holds)
	}

	resp, err = svc.ListHolds(context.Background(), "U1", &model.ListHoldsQuery{})
	if err != nil || filter != nil {
		t.Errorf("empty query should list everything, got filter %v err %v", filter, err)
	}
	if resp.Holds == nil {
		t.Error("holds must serialize as an array")
	}
}
