// Package coordinator implements the per-unit availability actor. Every unit
// gets one goroutine that owns the unit's hold table; all operations reach it
// through an unbuffered mailbox and run to completion one at a time, so the
// availability test and the insert of a hold can never interleave with
// another request for the same unit.
package coordinator

import (
	"context"
	"fmt"
	availerrors "lodgr/internal/availability/errors"
	"lodgr/internal/availability/interval"
	"lodgr/internal/availability/store"
	"lodgr/pkg/clock"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ConflictError reports why a range is unavailable.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (conflicts with %s)", availerrors.ErrConflict, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return availerrors.ErrConflict
}

type Stats struct {
	UnitID       string    `json:"unitId"`
	ActiveHolds  int       `json:"activeHolds"`
	Tombstones   int       `json:"tombstones"`
	Unsynced     int       `json:"unsynced"`
	LastActivity time.Time `json:"lastActivity"`
}

type command struct {
	fn   func(now time.Time)
	done chan struct{}
}

type Actor struct {
	unitID   string
	store    *store.HoldStore
	clock    clock.Clock
	journal  Journal
	events   Publisher
	log      *logger.Logger
	settings Settings

	mailbox chan command
	done    chan struct{}

	// owned by the run goroutine
	lastActivity time.Time
	retiring     bool
	// latest state per token that the journal has not accepted yet
	unsynced map[string]model.Hold
}

// New builds an actor for unitID seeded with holds recovered from durable
// storage. Call Start to begin processing.
func New(unitID string, deps Deps, settings Settings, restored []model.Hold) *Actor {
	settings = settings.withDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}

	a := &Actor{
		unitID:   unitID,
		store:    store.New(settings.TerminalRetention),
		clock:    deps.Clock,
		journal:  deps.Journal,
		events:   deps.Events,
		log:      deps.Log.With("unit_id", unitID),
		settings: settings,
		mailbox:  make(chan command),
		done:     make(chan struct{}),
		unsynced: make(map[string]model.Hold),
	}
	a.store.OnExpire = a.onExpire

	now := a.clock.Now()
	a.lastActivity = now
	if len(restored) > 0 {
		a.store.Restore(restored, now)
		a.log.Info("Restored unit holds",
			"restored", len(restored),
			"active", a.store.ActiveCount(),
		)
	}
	return a
}

func (a *Actor) UnitID() string {
	return a.unitID
}

func (a *Actor) Start() {
	go a.run()
}

// Done is closed once the actor has stopped processing commands.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

func (a *Actor) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.settings.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-a.mailbox:
			cmd.fn(a.clock.Now())
			close(cmd.done)
			if a.retiring {
				a.log.Debug("Unit coordinator retired")
				return
			}
		case <-ticker.C:
			a.sweep(a.clock.Now())
		}
	}
}

// submit hands fn to the actor goroutine and waits for it to finish. Once the
// actor accepts a command its outcome is always delivered; the context only
// bounds the wait for acceptance.
func (a *Actor) submit(ctx context.Context, fn func(now time.Time)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case a.mailbox <- cmd:
	case <-a.done:
		return availerrors.ErrActorRetired
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

func (a *Actor) Check(ctx context.Context, r model.DateRange, blocks []model.CommittedBlock) (model.Availability, error) {
	var result model.Availability
	err := a.submit(ctx, func(now time.Time) {
		a.lastActivity = now
		result = a.check(now, r, blocks)
	})
	return result, err
}

func (a *Actor) Hold(ctx context.Context, r model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
	var hold model.Hold
	var opErr error
	err := a.submit(ctx, func(now time.Time) {
		a.lastActivity = now
		hold, opErr = a.hold(now, r, ttl, blocks)
	})
	if err != nil {
		return model.Hold{}, err
	}
	return hold, opErr
}

func (a *Actor) Confirm(ctx context.Context, token, bookingID string) (model.Hold, error) {
	var hold model.Hold
	var opErr error
	err := a.submit(ctx, func(now time.Time) {
		a.lastActivity = now
		hold, opErr = a.confirm(now, token, bookingID)
	})
	if err != nil {
		return model.Hold{}, err
	}
	return hold, opErr
}

func (a *Actor) Release(ctx context.Context, token string) (bool, error) {
	var released bool
	err := a.submit(ctx, func(now time.Time) {
		a.lastActivity = now
		released = a.release(now, token)
	})
	return released, err
}

// ListActiveHolds returns unexpired active holds, optionally only those
// overlapping r.
func (a *Actor) ListActiveHolds(ctx context.Context, r *model.DateRange) ([]model.Hold, error) {
	var holds []model.Hold
	err := a.submit(ctx, func(now time.Time) {
		a.lastActivity = now
		holds = a.store.Active(r, now)
	})
	return holds, err
}

// Sweep runs an expiry sweep on the actor's timeline and returns the expired
// tokens. The actor also sweeps on its own ticker.
func (a *Actor) Sweep(ctx context.Context) ([]string, error) {
	var evicted []string
	err := a.submit(ctx, func(now time.Time) {
		evicted = a.sweep(now)
	})
	return evicted, err
}

// RetireIfIdle stops the actor when it has no active holds, has seen no
// request for idleAfter and every state change has reached the journal.
// Retirement is ordered with every other command.
func (a *Actor) RetireIfIdle(ctx context.Context, idleAfter time.Duration) (bool, error) {
	var retired bool
	err := a.submit(ctx, func(now time.Time) {
		if a.store.ActiveCount() > 0 || now.Sub(a.lastActivity) < idleAfter {
			return
		}
		if a.flushUnsynced(); len(a.unsynced) > 0 {
			a.log.Warn("Unit idle but journal is behind, staying resident", "unsynced", len(a.unsynced))
			return
		}
		a.retiring = true
		retired = true
	})
	return retired, err
}

// Stop retires the actor unconditionally. Stopping a retired actor is a no-op.
func (a *Actor) Stop(ctx context.Context) error {
	err := a.submit(ctx, func(time.Time) {
		a.retiring = true
		if a.flushUnsynced(); len(a.unsynced) > 0 {
			a.log.Error("Stopping with hold changes missing from the journal",
				"unsynced", len(a.unsynced),
				"tokens", a.unsyncedTokens(),
			)
		}
	})
	if err == availerrors.ErrActorRetired {
		return nil
	}
	return err
}

func (a *Actor) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := a.submit(ctx, func(time.Time) {
		stats = Stats{
			UnitID:       a.unitID,
			ActiveHolds:  a.store.ActiveCount(),
			Tombstones:   a.store.TombstoneCount(),
			Unsynced:     len(a.unsynced),
			LastActivity: a.lastActivity,
		}
	})
	return stats, err
}

// --- actor goroutine only ---

func (a *Actor) check(now time.Time, r model.DateRange, blocks []model.CommittedBlock) model.Availability {
	for _, b := range blocks {
		if interval.Overlaps(b.Range, r) {
			return model.Availability{Available: false, Reason: model.ReasonCommittedBlock}
		}
	}
	if len(a.store.FindOverlapping(r, now)) > 0 {
		return model.Availability{Available: false, Reason: model.ReasonHold}
	}
	return model.Availability{Available: true}
}

func (a *Actor) hold(now time.Time, r model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
	if availability := a.check(now, r, blocks); !availability.Available {
		a.log.Debug("Hold rejected",
			"start_date", interval.FormatDate(r.Start),
			"end_date", interval.FormatDate(r.End),
			"reason", availability.Reason,
		)
		return model.Hold{}, &ConflictError{Reason: availability.Reason}
	}

	hold := model.Hold{
		Token:     a.newToken(),
		UnitID:    a.unitID,
		Range:     r,
		Status:    model.HoldStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		PurgeAt:   now.Add(ttl + a.settings.TerminalRetention),
	}
	a.store.Insert(hold)

	if err := a.persist(&hold); err != nil {
		a.store.Remove(hold.Token)
		a.log.Error("Failed to persist hold, rolled back", "token", hold.Token, "error", err)

		// the write may still have committed; queue a released record over it
		hold.Status = model.HoldStatusReleased
		hold.ClosedAt = now
		hold.PurgeAt = now.Add(a.settings.TerminalRetention)
		a.unsynced[hold.Token] = hold
		return model.Hold{}, fmt.Errorf("%w: %v", availerrors.ErrPersistence, err)
	}

	a.publish(EventHoldCreated, hold, now)
	a.log.Info("Hold created",
		"token", hold.Token,
		"start_date", interval.FormatDate(r.Start),
		"end_date", interval.FormatDate(r.End),
		"nights", interval.Nights(r),
		"expires_at", hold.ExpiresAt,
	)
	return hold, nil
}

func (a *Actor) confirm(now time.Time, token, bookingID string) (model.Hold, error) {
	existing, ok := a.store.Get(token)
	if !ok {
		return model.Hold{}, availerrors.ErrHoldNotFound
	}

	switch existing.Status {
	case model.HoldStatusConfirmed:
		if existing.BookingID == bookingID {
			return existing, nil
		}
		return model.Hold{}, availerrors.ErrHoldAlreadyConfirmed
	case model.HoldStatusExpired:
		return model.Hold{}, availerrors.ErrHoldExpired
	case model.HoldStatusReleased:
		return model.Hold{}, availerrors.ErrHoldNotFound
	}

	if interval.IsExpired(existing, now) {
		a.store.Expire(token, now)
		return model.Hold{}, availerrors.ErrHoldExpired
	}

	confirmed, _ := a.store.Confirm(token, bookingID, now)
	a.persistOrQueue(confirmed)
	a.publish(EventHoldConfirmed, confirmed, now)
	a.log.Info("Hold confirmed", "token", token, "booking_id", bookingID)
	return confirmed, nil
}

func (a *Actor) release(now time.Time, token string) bool {
	existing, ok := a.store.Get(token)
	if !ok || existing.Status != model.HoldStatusActive {
		return false
	}
	if interval.IsExpired(existing, now) {
		a.store.Expire(token, now)
		return false
	}

	released, _ := a.store.Close(token, model.HoldStatusReleased, now)
	a.persistOrQueue(released)
	a.publish(EventHoldReleased, released, now)
	a.log.Info("Hold released", "token", token)
	return true
}

func (a *Actor) sweep(now time.Time) []string {
	a.flushUnsynced()
	evicted := a.store.SweepExpired(now)
	if len(evicted) > 0 {
		a.log.Debug("Expired holds swept", "count", len(evicted))
	}
	return evicted
}

func (a *Actor) onExpire(hold model.Hold) {
	a.persistOrQueue(hold)
	a.publish(EventHoldExpired, hold, hold.ClosedAt)
	a.log.Info("Hold expired", "token", hold.Token)
}

func (a *Actor) newToken() string {
	for {
		token := uuid.NewString()
		if _, taken := a.store.Get(token); !taken {
			return token
		}
	}
}

func (a *Actor) persist(hold *model.Hold) error {
	if a.journal == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.settings.PersistTimeout)
	defer cancel()
	return a.journal.Save(ctx, hold)
}

// persistOrQueue journals hold and, on failure, keeps it for the next sweep.
// A later state for the same token replaces the queued one.
func (a *Actor) persistOrQueue(hold model.Hold) {
	if err := a.persist(&hold); err != nil {
		a.unsynced[hold.Token] = hold
		a.log.Warn("Failed to persist hold, will retry",
			"token", hold.Token,
			"status", hold.Status,
			"error", err,
		)
		return
	}
	delete(a.unsynced, hold.Token)
}

func (a *Actor) flushUnsynced() {
	if len(a.unsynced) == 0 {
		return
	}
	for token, hold := range a.unsynced {
		if err := a.persist(&hold); err != nil {
			a.log.Warn("Journal retry failed", "pending", len(a.unsynced), "error", err)
			return
		}
		delete(a.unsynced, token)
	}
	a.log.Info("Journal caught up")
}

func (a *Actor) unsyncedTokens() []string {
	tokens := make([]string, 0, len(a.unsynced))
	for token := range a.unsynced {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func (a *Actor) publish(eventType EventType, hold model.Hold, at time.Time) {
	if a.events == nil {
		return
	}
	a.events.Publish(Event{Type: eventType, Hold: hold, OccurredAt: at})
}
