package service

import (
	"context"
	"errors"
	"lodgr/internal/availability/coordinator"
	availerrors "lodgr/internal/availability/errors"
	"lodgr/internal/availability/interval"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/config"
	apperrors "lodgr/pkg/errors"
	"lodgr/pkg/model"
	"lodgr/pkg/sanitizer"
	"net/http"
	"time"
)

// UnitRouter is the slice of the actor router the service drives.
type UnitRouter interface {
	Check(ctx context.Context, unitID string, dr model.DateRange, blocks []model.CommittedBlock) (model.Availability, error)
	Hold(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error)
	Confirm(ctx context.Context, unitID, token, bookingID string) (model.Hold, error)
	Release(ctx context.Context, unitID, token string) (bool, error)
	ListActiveHolds(ctx context.Context, unitID string, dr *model.DateRange) ([]model.Hold, error)
}

type AvailabilityService interface {
	Check(ctx context.Context, unitID string, req *model.CheckRequest) (*model.CheckResponse, error)
	Hold(ctx context.Context, unitID string, req *model.HoldRequest) (*model.HoldResponse, error)
	Confirm(ctx context.Context, unitID, token string, req *model.ConfirmRequest) (*model.ConfirmResponse, error)
	Release(ctx context.Context, unitID, token string) (*model.ReleaseResponse, error)
	ListHolds(ctx context.Context, unitID string, q *model.ListHoldsQuery) (*model.HoldsResponse, error)
}

type availabilityService struct {
	units     UnitRouter
	validator *validator.HoldValidator
	cfg       *config.Config
}

func NewAvailabilityService(
	units UnitRouter,
	validator *validator.HoldValidator,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		units:     units,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *availabilityService) Check(ctx context.Context, unitID string, req *model.CheckRequest) (*model.CheckResponse, error) {
	unitID = sanitizer.SanitizeIdentifier(unitID)
	sanitizeBlocks(req.CommittedBlocks)

	check, err := s.validator.ValidateCheck(unitID, req)
	if err != nil {
		return nil, s.invalid("check", unitID, err)
	}

	availability, err := s.units.Check(ctx, unitID, check.Range, check.Blocks)
	if err != nil {
		return nil, s.mapError("check", unitID, err)
	}

	return &model.CheckResponse{
		Available: availability.Available,
		Reason:    availability.Reason,
	}, nil
}

func (s *availabilityService) Hold(ctx context.Context, unitID string, req *model.HoldRequest) (*model.HoldResponse, error) {
	unitID = sanitizer.SanitizeIdentifier(unitID)
	sanitizeBlocks(req.CommittedBlocks)

	check, err := s.validator.ValidateHold(unitID, req)
	if err != nil {
		return nil, s.invalid("hold", unitID, err)
	}

	ttlMinutes := 0
	if req.TTLMinutes != nil {
		ttlMinutes = *req.TTLMinutes
	}
	ttl := coordinator.ClampTTL(ttlMinutes)

	hold, err := s.units.Hold(ctx, unitID, check.Range, ttl, check.Blocks)
	if err != nil {
		return nil, s.mapError("hold", unitID, err)
	}

	s.cfg.Log.Info("Hold created",
		"unit_id", unitID,
		"token", hold.Token,
		"start_date", interval.FormatDate(hold.Range.Start),
		"end_date", interval.FormatDate(hold.Range.End),
		"expires_at", hold.ExpiresAt,
	)

	return &model.HoldResponse{
		Token:     hold.Token,
		ExpiresAt: hold.ExpiresAt,
		StartDate: interval.FormatDate(hold.Range.Start),
		EndDate:   interval.FormatDate(hold.Range.End),
	}, nil
}

func (s *availabilityService) Confirm(ctx context.Context, unitID, token string, req *model.ConfirmRequest) (*model.ConfirmResponse, error) {
	unitID = sanitizer.SanitizeIdentifier(unitID)
	token = sanitizer.SanitizeIdentifier(token)
	req.BookingID = sanitizer.SanitizeIdentifier(req.BookingID)

	if err := s.validator.ValidateConfirm(unitID, token, req); err != nil {
		return nil, s.invalid("confirm", unitID, err)
	}

	hold, err := s.units.Confirm(ctx, unitID, token, req.BookingID)
	if err != nil {
		return nil, s.mapError("confirm", unitID, err, "token", token)
	}

	s.cfg.Log.Info("Hold confirmed",
		"unit_id", unitID,
		"token", token,
		"booking_id", req.BookingID,
	)

	return &model.ConfirmResponse{
		StartDate: interval.FormatDate(hold.Range.Start),
		EndDate:   interval.FormatDate(hold.Range.End),
	}, nil
}

func (s *availabilityService) Release(ctx context.Context, unitID, token string) (*model.ReleaseResponse, error) {
	unitID = sanitizer.SanitizeIdentifier(unitID)
	token = sanitizer.SanitizeIdentifier(token)

	if err := s.validator.ValidateUnitID(unitID); err != nil {
		return nil, s.invalid("release", unitID, err)
	}
	if err := s.validator.ValidateToken(token); err != nil {
		return nil, s.invalid("release", unitID, err)
	}

	released, err := s.units.Release(ctx, unitID, token)
	if err != nil {
		return nil, s.mapError("release", unitID, err, "token", token)
	}

	if released {
		s.cfg.Log.Info("Hold released", "unit_id", unitID, "token", token)
	}
	return &model.ReleaseResponse{Released: released}, nil
}

func (s *availabilityService) ListHolds(ctx context.Context, unitID string, q *model.ListHoldsQuery) (*model.HoldsResponse, error) {
	unitID = sanitizer.SanitizeIdentifier(unitID)

	dr, err := s.validator.ValidateListQuery(unitID, q)
	if err != nil {
		return nil, s.invalid("listHolds", unitID, err)
	}

	holds, err := s.units.ListActiveHolds(ctx, unitID, dr)
	if err != nil {
		return nil, s.mapError("listHolds", unitID, err)
	}

	views := make([]model.HoldView, 0, len(holds))
	for _, h := range holds {
		views = append(views, model.HoldView{
			Token:     h.Token,
			UnitID:    h.UnitID,
			StartDate: interval.FormatDate(h.Range.Start),
			EndDate:   interval.FormatDate(h.Range.End),
			Status:    h.Status,
			CreatedAt: h.CreatedAt,
			ExpiresAt: h.ExpiresAt,
		})
	}
	return &model.HoldsResponse{Holds: views}, nil
}

func sanitizeBlocks(blocks []model.BlockInput) {
	for i := range blocks {
		blocks[i].Kind = model.BlockKind(sanitizer.SanitizeKind(string(blocks[i].Kind)))
		blocks[i].Reference = sanitizer.SanitizeReference(blocks[i].Reference)
	}
}

func (s *availabilityService) invalid(op, unitID string, err error) error {
	s.cfg.Log.Warn("Request validation failed",
		"operation", op,
		"unit_id", unitID,
		"error", err,
	)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Request validation failed", verrs.Details())
	}
	return apperrors.InvalidInput(err.Error())
}

// mapError turns coordinator outcomes into API errors. Expected outcomes
// (conflicts, unknown or expired tokens) are logged at debug.
func (s *availabilityService) mapError(op, unitID string, err error, kv ...any) error {
	attrs := append([]any{"operation", op, "unit_id", unitID, "error", err}, kv...)

	var conflict *coordinator.ConflictError
	switch {
	case errors.As(err, &conflict):
		s.cfg.Log.Debug("Dates unavailable", attrs...)
		return apperrors.Conflict("Dates are no longer available").WithDetails(map[string]any{
			"reason": conflict.Reason,
		})
	case errors.Is(err, availerrors.ErrConflict):
		s.cfg.Log.Debug("Dates unavailable", attrs...)
		return apperrors.Conflict("Dates are no longer available")
	case errors.Is(err, availerrors.ErrHoldNotFound), errors.Is(err, availerrors.ErrHoldAlreadyConfirmed):
		s.cfg.Log.Debug("Hold not found", attrs...)
		return apperrors.NotFound("Hold")
	case errors.Is(err, availerrors.ErrHoldExpired):
		s.cfg.Log.Debug("Hold expired", attrs...)
		return apperrors.Expired("Hold has expired")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.cfg.Log.Warn("Coordinator call timed out", attrs...)
		return apperrors.Timeout("Coordinator did not respond in time")
	case errors.Is(err, availerrors.ErrUnavailable),
		errors.Is(err, availerrors.ErrActorRetired),
		errors.Is(err, availerrors.ErrRouterClosed):
		s.cfg.Log.Error("Unit coordinator unavailable", attrs...)
		return apperrors.Unavailable("Unit coordinator")
	case errors.Is(err, availerrors.ErrPersistence):
		s.cfg.Log.Error("Hold could not be persisted", attrs...)
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "Hold could not be stored, try again", http.StatusServiceUnavailable)
	default:
		s.cfg.Log.Error("Coordinator call failed", attrs...)
		return apperrors.Internal("Failed to process request", err)
	}
}
