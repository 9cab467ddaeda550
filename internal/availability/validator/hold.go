package validator

import (
	"errors"
	"fmt"
	"lodgr/internal/availability/interval"
	"lodgr/pkg/model"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var reUnitID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

// Details renders the errors as field -> message for an error response.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

// HoldValidator checks coordinator requests and converts their dates into
// ranges. Nothing that fails here reaches a unit's actor.
type HoldValidator struct {
	validate *validator.Validate
}

func NewHoldValidator() *HoldValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := interval.ParseDate(fl.Field().String())
		return err == nil
	})

	return &HoldValidator{
		validate: v,
	}
}

// Check is the result of validating a check or hold request.
type Check struct {
	Range  model.DateRange
	Blocks []model.CommittedBlock
}

func (v *HoldValidator) ValidateUnitID(unitID string) error {
	if !reUnitID.MatchString(unitID) {
		return ValidationErrors{{Field: "unitId", Message: "must be 1-128 letters, digits or . _ : -"}}
	}
	return nil
}

func (v *HoldValidator) ValidateCheck(unitID string, req *model.CheckRequest) (Check, error) {
	if err := v.validateRequest(unitID, req.UnitID, req); err != nil {
		return Check{}, err
	}
	return v.buildCheck(req.StartDate, req.EndDate, req.CommittedBlocks)
}

func (v *HoldValidator) ValidateHold(unitID string, req *model.HoldRequest) (Check, error) {
	if err := v.validateRequest(unitID, req.UnitID, req); err != nil {
		return Check{}, err
	}
	return v.buildCheck(req.StartDate, req.EndDate, req.CommittedBlocks)
}

func (v *HoldValidator) ValidateConfirm(unitID, token string, req *model.ConfirmRequest) error {
	if err := v.validateRequest(unitID, req.UnitID, req); err != nil {
		return err
	}
	return v.ValidateToken(token)
}

func (v *HoldValidator) ValidateToken(token string) error {
	if token == "" || len(token) > 64 || strings.ContainsAny(token, " /") {
		return ValidationErrors{{Field: "token", Message: "is not a valid hold token"}}
	}
	return nil
}

// ValidateListQuery returns nil when no filter was given.
func (v *HoldValidator) ValidateListQuery(unitID string, q *model.ListHoldsQuery) (*model.DateRange, error) {
	if err := v.ValidateUnitID(unitID); err != nil {
		return nil, err
	}
	if err := v.validate.Struct(q); err != nil {
		return nil, v.translate(err)
	}

	switch {
	case q.StartDate == "" && q.EndDate == "":
		return nil, nil
	case q.StartDate == "":
		return nil, ValidationErrors{{Field: "startDate", Message: "is required when endDate is set"}}
	case q.EndDate == "":
		return nil, ValidationErrors{{Field: "endDate", Message: "is required when startDate is set"}}
	}

	r, err := interval.ParseRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, rangeError("", err)
	}
	return &r, nil
}

func (v *HoldValidator) validateRequest(pathUnitID, bodyUnitID string, req any) error {
	if err := v.ValidateUnitID(pathUnitID); err != nil {
		return err
	}
	if bodyUnitID != "" && bodyUnitID != pathUnitID {
		return ValidationErrors{{Field: "unitId", Message: "does not match the unit in the path"}}
	}
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *HoldValidator) buildCheck(start, end string, inputs []model.BlockInput) (Check, error) {
	r, err := interval.ParseRange(start, end)
	if err != nil {
		return Check{}, rangeError("", err)
	}

	blocks := make([]model.CommittedBlock, 0, len(inputs))
	var errs ValidationErrors
	for i, in := range inputs {
		br, err := interval.ParseRange(in.StartDate, in.EndDate)
		if err != nil {
			errs = append(errs, rangeError(fmt.Sprintf("committedBlocks[%d].", i), err)...)
			continue
		}
		kind := in.Kind
		if kind == "" {
			kind = model.BlockKindBooking
		}
		blocks = append(blocks, model.CommittedBlock{Range: br, Kind: kind, Reference: in.Reference})
	}
	if len(errs) > 0 {
		return Check{}, errs
	}

	return Check{Range: r, Blocks: blocks}, nil
}

func rangeError(prefix string, err error) ValidationErrors {
	if errors.Is(err, interval.ErrInvalidRange) {
		return ValidationErrors{{Field: prefix + "endDate", Message: "must be after startDate"}}
	}
	return ValidationErrors{{Field: prefix + "startDate", Message: err.Error()}}
}

func (v *HoldValidator) translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the struct name: "HoldRequest.committedBlocks[0].kind"
// becomes "committedBlocks[0].kind".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "calendar_date":
		return "must be a YYYY-MM-DD date"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
