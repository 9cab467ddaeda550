package model

import "time"

// Wire types shared by the coordinator's HTTP handler and its client.
// Dates are YYYY-MM-DD strings.

type BlockInput struct {
	StartDate string    `json:"startDate" validate:"required,calendar_date"`
	EndDate   string    `json:"endDate" validate:"required,calendar_date"`
	Kind      BlockKind `json:"kind,omitempty" validate:"omitempty,oneof=booking maintenance manual"`
	Reference string    `json:"reference,omitempty" validate:"max=128"`
}

type CheckRequest struct {
	UnitID          string       `json:"unitId,omitempty"`
	StartDate       string       `json:"startDate" validate:"required,calendar_date"`
	EndDate         string       `json:"endDate" validate:"required,calendar_date"`
	CommittedBlocks []BlockInput `json:"committedBlocks" validate:"max=1000,dive"`
}

type HoldRequest struct {
	UnitID          string       `json:"unitId,omitempty"`
	StartDate       string       `json:"startDate" validate:"required,calendar_date"`
	EndDate         string       `json:"endDate" validate:"required,calendar_date"`
	TTLMinutes      *int         `json:"ttlMinutes,omitempty" validate:"omitempty,gt=0"`
	CommittedBlocks []BlockInput `json:"committedBlocks" validate:"max=1000,dive"`
}

type ConfirmRequest struct {
	UnitID    string `json:"unitId,omitempty"`
	BookingID string `json:"bookingId" validate:"required,max=128"`
}

// ListHoldsQuery filters listHolds. Both dates or neither.
type ListHoldsQuery struct {
	StartDate string `json:"startDate" validate:"omitempty,calendar_date"`
	EndDate   string `json:"endDate" validate:"omitempty,calendar_date"`
}

type CheckResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type HoldResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
}

type ConfirmResponse struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type ReleaseResponse struct {
	Released bool `json:"released"`
}

type HoldView struct {
	Token     string     `json:"token"`
	UnitID    string     `json:"unitId"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	Status    HoldStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type HoldsResponse struct {
	Holds []HoldView `json:"holds"`
}
