package coordinator

import (
	"context"
	"lodgr/pkg/clock"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"time"
)

const (
	DefaultHoldTTL = 15 * time.Minute
	MinHoldTTL     = 1 * time.Minute
	MaxHoldTTL     = 60 * time.Minute

	DefaultSweepInterval     = 30 * time.Second
	DefaultTerminalRetention = 5 * time.Minute
	DefaultPersistTimeout    = 2 * time.Second
)

// ClampTTL maps a requested TTL in minutes onto the allowed window. Zero or
// negative means "use the default".
func ClampTTL(minutes int) time.Duration {
	if minutes <= 0 {
		return DefaultHoldTTL
	}
	ttl := time.Duration(minutes) * time.Minute
	return min(max(ttl, MinHoldTTL), MaxHoldTTL)
}

type Settings struct {
	SweepInterval     time.Duration
	TerminalRetention time.Duration
	PersistTimeout    time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.SweepInterval <= 0 {
		s.SweepInterval = DefaultSweepInterval
	}
	if s.TerminalRetention <= 0 {
		s.TerminalRetention = DefaultTerminalRetention
	}
	if s.PersistTimeout <= 0 {
		s.PersistTimeout = DefaultPersistTimeout
	}
	return s
}

// Journal durably records hold state so a unit can be restored after its
// actor is retired or the process restarts.
type Journal interface {
	Save(ctx context.Context, hold *model.Hold) error
}

type EventType string

const (
	EventHoldCreated   EventType = "hold.created"
	EventHoldConfirmed EventType = "hold.confirmed"
	EventHoldReleased  EventType = "hold.released"
	EventHoldExpired   EventType = "hold.expired"
)

type Event struct {
	Type       EventType
	Hold       model.Hold
	OccurredAt time.Time
}

// Publisher receives hold lifecycle events. Publish must not block.
type Publisher interface {
	Publish(event Event)
}

type Deps struct {
	Clock   clock.Clock
	Journal Journal
	Events  Publisher
	Log     *logger.Logger
}
