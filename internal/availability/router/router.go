// Package router maps unit ids to their coordinator actors. Actors are created
// on first use, restored from the hold journal, and retired by a janitor once
// idle.
package router

import (
	"context"
	"errors"
	"fmt"
	"lodgr/internal/availability/coordinator"
	availerrors "lodgr/internal/availability/errors"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"sync"
	"time"
)

const (
	DefaultIdleAfter       = 10 * time.Minute
	DefaultJanitorInterval = time.Minute
	DefaultRestoreTimeout  = 5 * time.Second

	maxResolveAttempts = 3
)

// HoldLoader reads back the holds an actor needs on creation: active holds
// and terminal holds still inside their retention window.
type HoldLoader interface {
	FindByUnit(ctx context.Context, unitID string, now time.Time) ([]model.Hold, error)
}

type Config struct {
	IdleAfter       time.Duration
	JanitorInterval time.Duration
	RestoreTimeout  time.Duration
	Actor           coordinator.Settings
}

func (c Config) withDefaults() Config {
	if c.IdleAfter <= 0 {
		c.IdleAfter = DefaultIdleAfter
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = DefaultJanitorInterval
	}
	if c.RestoreTimeout <= 0 {
		c.RestoreTimeout = DefaultRestoreTimeout
	}
	return c
}

type entry struct {
	ready chan struct{}
	actor *coordinator.Actor
	err   error
}

type Router struct {
	cfg    Config
	deps   coordinator.Deps
	loader HoldLoader
	log    *logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config, deps coordinator.Deps, loader HoldLoader) *Router {
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	return &Router{
		cfg:     cfg.withDefaults(),
		deps:    deps,
		loader:  loader,
		log:     deps.Log,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
}

// Start launches the idle janitor.
func (r *Router) Start() {
	r.wg.Add(1)
	go r.janitor()
}

// Resolve returns the running actor for unitID, creating and restoring it on
// first use. Concurrent first calls share a single restore.
func (r *Router) Resolve(ctx context.Context, unitID string) (*coordinator.Actor, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, availerrors.ErrRouterClosed
	}
	if e, ok := r.entries[unitID]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.actor, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &entry{ready: make(chan struct{})}
	r.entries[unitID] = e
	r.mu.Unlock()

	actor, err := r.spawn(ctx, unitID)

	// publish under mu so Close either sees the ready actor or we see closed
	var orphan *coordinator.Actor
	r.mu.Lock()
	if err == nil && r.closed {
		orphan, actor, err = actor, nil, availerrors.ErrRouterClosed
	}
	e.actor, e.err = actor, err
	if err != nil && r.entries[unitID] == e {
		delete(r.entries, unitID)
	}
	close(e.ready)
	r.mu.Unlock()

	if orphan != nil {
		if stopErr := orphan.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			r.log.Warn("Failed to stop unit coordinator spawned during close", "unit_id", unitID, "error", stopErr)
		}
	}
	return actor, err
}

func (r *Router) spawn(ctx context.Context, unitID string) (*coordinator.Actor, error) {
	var restored []model.Hold
	if r.loader != nil {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RestoreTimeout)
		defer cancel()

		holds, err := r.loader.FindByUnit(loadCtx, unitID, r.now())
		if err != nil {
			r.log.Error("Failed to restore unit holds", "unit_id", unitID, "error", err)
			return nil, fmt.Errorf("%w: restore: %v", availerrors.ErrUnavailable, err)
		}
		restored = holds
	}

	actor := coordinator.New(unitID, r.deps, r.cfg.Actor, restored)
	actor.Start()
	r.log.Debug("Unit coordinator started", "unit_id", unitID)
	return actor, nil
}

// With runs fn against the unit's actor. If the actor retires between
// resolution and delivery, the entry is dropped and fn is retried against a
// fresh actor.
func (r *Router) With(ctx context.Context, unitID string, fn func(*coordinator.Actor) error) error {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		actor, err := r.Resolve(ctx, unitID)
		if err != nil {
			return err
		}
		err = fn(actor)
		if !errors.Is(err, availerrors.ErrActorRetired) {
			return err
		}
		r.forget(unitID, actor)
	}
	return availerrors.ErrUnavailable
}

func (r *Router) Check(ctx context.Context, unitID string, dr model.DateRange, blocks []model.CommittedBlock) (model.Availability, error) {
	var result model.Availability
	err := r.With(ctx, unitID, func(a *coordinator.Actor) error {
		var err error
		result, err = a.Check(ctx, dr, blocks)
		return err
	})
	return result, err
}

func (r *Router) Hold(ctx context.Context, unitID string, dr model.DateRange, ttl time.Duration, blocks []model.CommittedBlock) (model.Hold, error) {
	var hold model.Hold
	err := r.With(ctx, unitID, func(a *coordinator.Actor) error {
		var err error
		hold, err = a.Hold(ctx, dr, ttl, blocks)
		return err
	})
	return hold, err
}

func (r *Router) Confirm(ctx context.Context, unitID, token, bookingID string) (model.Hold, error) {
	var hold model.Hold
	err := r.With(ctx, unitID, func(a *coordinator.Actor) error {
		var err error
		hold, err = a.Confirm(ctx, token, bookingID)
		return err
	})
	return hold, err
}

func (r *Router) Release(ctx context.Context, unitID, token string) (bool, error) {
	var released bool
	err := r.With(ctx, unitID, func(a *coordinator.Actor) error {
		var err error
		released, err = a.Release(ctx, token)
		return err
	})
	return released, err
}

func (r *Router) ListActiveHolds(ctx context.Context, unitID string, dr *model.DateRange) ([]model.Hold, error) {
	var holds []model.Hold
	err := r.With(ctx, unitID, func(a *coordinator.Actor) error {
		var err error
		holds, err = a.ListActiveHolds(ctx, dr)
		return err
	})
	return holds, err
}

// Units reports how many actors are currently resident.
func (r *Router) Units() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats collects per-unit stats from every ready actor.
func (r *Router) Stats(ctx context.Context) []coordinator.Stats {
	var stats []coordinator.Stats
	for _, actor := range r.snapshot() {
		s, err := actor.Stats(ctx)
		if err != nil {
			continue
		}
		stats = append(stats, s)
	}
	return stats
}

// Close stops the janitor and every actor. Further calls fail with
// ErrRouterClosed.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	r.wg.Wait()

	var errs []error
	for _, actor := range r.snapshot() {
		if err := actor.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", actor.UnitID(), err))
		}
	}

	r.mu.Lock()
	clear(r.entries)
	r.mu.Unlock()
	return errors.Join(errs...)
}

func (r *Router) janitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.retireIdle()
		}
	}
}

func (r *Router) retireIdle() {
	retired := 0
	for _, actor := range r.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JanitorInterval)
		ok, err := actor.RetireIfIdle(ctx, r.cfg.IdleAfter)
		cancel()
		if ok || errors.Is(err, availerrors.ErrActorRetired) {
			r.forget(actor.UnitID(), actor)
			retired++
		}
	}
	if retired > 0 {
		r.log.Debug("Retired idle unit coordinators", "count", retired)
	}
}

// forget drops unitID's entry, but only while it still points at actor.
func (r *Router) forget(unitID string, actor *coordinator.Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[unitID]
	if !ok {
		return
	}
	select {
	case <-e.ready:
		if e.actor == actor {
			delete(r.entries, unitID)
		}
	default:
	}
}

func (r *Router) snapshot() []*coordinator.Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	actors := make([]*coordinator.Actor, 0, len(r.entries))
	for _, e := range r.entries {
		select {
		case <-e.ready:
			if e.actor != nil {
				actors = append(actors, e.actor)
			}
		default:
		}
	}
	return actors
}

func (r *Router) now() time.Time {
	if r.deps.Clock == nil {
		return time.Now().UTC()
	}
	return r.deps.Clock.Now()
}
