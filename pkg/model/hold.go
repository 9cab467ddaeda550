package model

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusExpired   HoldStatus = "expired"
)

// IsTerminal reports whether no further transition is possible from s.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusConfirmed || s == HoldStatusReleased || s == HoldStatusExpired
}

// DateRange is a half-open stay [Start, End) of calendar dates at UTC midnight.
type DateRange struct {
	Start time.Time `bson:"start_date" json:"startDate"`
	End   time.Time `bson:"end_date" json:"endDate"`
}

type BlockKind string

const (
	BlockKindBooking     BlockKind = "booking"
	BlockKindMaintenance BlockKind = "maintenance"
	BlockKindManual      BlockKind = "manual"
)

// CommittedBlock is an occupied range owned by the relational store. It is
// supplied per request and never modified here.
type CommittedBlock struct {
	Range     DateRange `json:"range"`
	Kind      BlockKind `json:"kind,omitempty"`
	Reference string    `json:"reference,omitempty"`
}

// Hold is a provisional, time-bounded reservation of a unit's date range.
// Token, UnitID and Range never change once the hold exists.
type Hold struct {
	Token     string     `bson:"_id" json:"token"`
	UnitID    string     `bson:"unit_id" json:"unitId"`
	Range     DateRange  `bson:"range" json:"range"`
	Status    HoldStatus `bson:"status" json:"status"`
	BookingID string     `bson:"booking_id,omitempty" json:"bookingId,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	ExpiresAt time.Time  `bson:"expires_at" json:"expiresAt"`
	ClosedAt  time.Time  `bson:"closed_at,omitempty" json:"closedAt,omitempty"`
	PurgeAt   time.Time  `bson:"purge_at" json:"-"`
}

// Availability is the outcome of an availability check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

const (
	ReasonCommittedBlock = "committed_block"
	ReasonHold           = "hold"
)
