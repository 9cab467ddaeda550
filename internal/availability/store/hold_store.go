// Package store keeps the in-memory hold table of a single unit. It performs
// no I/O and no locking: the owning coordinator actor is its only caller.
package store

import (
	"lodgr/internal/availability/interval"
	"lodgr/pkg/model"
	"slices"
	"sort"
	"time"
)

// HoldStore indexes a unit's active holds by start date and keeps terminal
// holds as tombstones until their retention window ends.
type HoldStore struct {
	retention  time.Duration
	active     map[string]*model.Hold
	byStart    []*model.Hold
	tombstones map[string]*model.Hold

	// OnExpire is invoked for every hold the store moves to expired, whether
	// lazily during a scan or during a sweep.
	OnExpire func(model.Hold)
}

func New(retention time.Duration) *HoldStore {
	return &HoldStore{
		retention:  retention,
		active:     make(map[string]*model.Hold),
		tombstones: make(map[string]*model.Hold),
	}
}

// Insert adds an active hold. The caller guarantees it overlaps no other
// active hold.
func (s *HoldStore) Insert(hold model.Hold) {
	h := hold
	s.active[h.Token] = &h

	idx := sort.Search(len(s.byStart), func(i int) bool {
		return s.byStart[i].Range.Start.After(h.Range.Start)
	})
	s.byStart = slices.Insert(s.byStart, idx, &h)
}

// FindOverlapping returns active, unexpired holds overlapping r. Expired holds
// met on the way are evicted.
func (s *HoldStore) FindOverlapping(r model.DateRange, now time.Time) []model.Hold {
	var found []model.Hold
	var expired []string

	for _, h := range s.byStart {
		if !h.Range.Start.Before(r.End) {
			break
		}
		if !interval.Overlaps(h.Range, r) {
			continue
		}
		if interval.IsExpired(*h, now) {
			expired = append(expired, h.Token)
			continue
		}
		found = append(found, *h)
	}

	for _, token := range expired {
		s.Expire(token, now)
	}
	return found
}

// Get returns the hold for token, active or tombstoned.
func (s *HoldStore) Get(token string) (model.Hold, bool) {
	if h, ok := s.active[token]; ok {
		return *h, true
	}
	if h, ok := s.tombstones[token]; ok {
		return *h, true
	}
	return model.Hold{}, false
}

// Remove drops every trace of token, including its tombstone.
func (s *HoldStore) Remove(token string) {
	s.unindex(token)
	delete(s.tombstones, token)
}

// Close moves an active hold to a terminal status and keeps it as a tombstone
// for the retention window.
func (s *HoldStore) Close(token string, status model.HoldStatus, now time.Time) (model.Hold, bool) {
	h, ok := s.active[token]
	if !ok || !status.IsTerminal() {
		return model.Hold{}, false
	}
	s.unindex(token)

	h.Status = status
	h.ClosedAt = now
	h.PurgeAt = now.Add(s.retention)
	s.tombstones[token] = h
	return *h, true
}

// Confirm closes an active hold as confirmed under bookingID.
func (s *HoldStore) Confirm(token, bookingID string, now time.Time) (model.Hold, bool) {
	h, ok := s.active[token]
	if !ok {
		return model.Hold{}, false
	}
	h.BookingID = bookingID
	return s.Close(token, model.HoldStatusConfirmed, now)
}

// SweepExpired evicts every active hold with ExpiresAt <= now and purges
// tombstones past retention. It returns the tokens it expired.
func (s *HoldStore) SweepExpired(now time.Time) []string {
	var evicted []string
	for _, h := range s.byStart {
		if interval.IsExpired(*h, now) {
			evicted = append(evicted, h.Token)
		}
	}
	for _, token := range evicted {
		s.Expire(token, now)
	}

	for token, h := range s.tombstones {
		if !now.Before(h.PurgeAt) {
			delete(s.tombstones, token)
		}
	}
	return evicted
}

// Active lists unexpired active holds, optionally filtered to those
// overlapping r. It never mutates the store.
func (s *HoldStore) Active(r *model.DateRange, now time.Time) []model.Hold {
	holds := make([]model.Hold, 0, len(s.byStart))
	for _, h := range s.byStart {
		if interval.IsExpired(*h, now) {
			continue
		}
		if r != nil && !interval.Overlaps(h.Range, *r) {
			continue
		}
		holds = append(holds, *h)
	}
	return holds
}

func (s *HoldStore) ActiveCount() int {
	return len(s.active)
}

func (s *HoldStore) TombstoneCount() int {
	return len(s.tombstones)
}

// Restore loads holds recovered from durable storage. Active holds already
// past their TTL are expired immediately; terminal holds past retention are
// dropped.
func (s *HoldStore) Restore(holds []model.Hold, now time.Time) {
	for _, h := range holds {
		switch {
		case h.Status == model.HoldStatusActive:
			s.Insert(h)
			if interval.IsExpired(h, now) {
				s.Expire(h.Token, now)
			}
		case h.Status.IsTerminal() && now.Before(h.PurgeAt):
			hold := h
			s.tombstones[h.Token] = &hold
		}
	}
}

// Expire closes an active hold as expired and fires OnExpire.
func (s *HoldStore) Expire(token string, now time.Time) (model.Hold, bool) {
	closed, ok := s.Close(token, model.HoldStatusExpired, now)
	if ok && s.OnExpire != nil {
		s.OnExpire(closed)
	}
	return closed, ok
}

func (s *HoldStore) unindex(token string) {
	if _, ok := s.active[token]; !ok {
		return
	}
	delete(s.active, token)
	s.byStart = slices.DeleteFunc(s.byStart, func(h *model.Hold) bool {
		return h.Token == token
	})
}
