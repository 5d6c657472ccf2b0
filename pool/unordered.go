package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Readier is anything that can report completion without blocking.
// *Task implements it.
type Readier interface {
	IsReady() bool
}

// HandleSet is a read-only view of a collection of handles.
type HandleSet[H any] interface {
	Len() int
	// Snapshot returns the current members. The returned slice belongs to
	// the caller.
	Snapshot() []H
}

// DrainableSet is a HandleSet whose members can be removed.
type DrainableSet[H any] interface {
	HandleSet[H]
	Remove(h H) bool
}

// Set is an insertion-ordered, concurrency-safe set of handles.
type Set[H comparable] struct {
	mu    sync.Mutex
	slots []slot[H]
	index map[H]int
	dead  int
}

type slot[H comparable] struct {
	h    H
	live bool
}

// NewSet creates a set holding items. Duplicates are dropped.
func NewSet[H comparable](items ...H) *Set[H] {
	s := &Set[H]{index: make(map[H]int, len(items))}
	s.Add(items...)
	return s
}

// Add inserts the handles not already present.
func (s *Set[H]) Add(items ...H) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[H]int, len(items))
	}
	for _, h := range items {
		if _, ok := s.index[h]; ok {
			continue
		}
		s.index[h] = len(s.slots)
		s.slots = append(s.slots, slot[H]{h: h, live: true})
	}
}

// Remove deletes h and reports whether it was present.
func (s *Set[H]) Remove(h H) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[h]
	if !ok {
		return false
	}
	delete(s.index, h)
	s.slots[i] = slot[H]{}
	s.dead++
	if s.dead > len(s.slots)/2 {
		s.compact()
	}
	return true
}

// compact drops removed slots and renumbers the index.
func (s *Set[H]) compact() {
	live := s.slots[:0]
	for _, sl := range s.slots {
		if sl.live {
			s.index[sl.h] = len(live)
			live = append(live, sl)
		}
	}
	clear(s.slots[len(live):])
	s.slots = live
	s.dead = 0
}

// Contains reports whether h is a member.
func (s *Set[H]) Contains(h H) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[h]
	return ok
}

func (s *Set[H]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Set[H]) Snapshot() []H {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]H, 0, len(s.index))
	for _, sl := range s.slots {
		if sl.live {
			out = append(out, sl.h)
		}
	}
	return out
}

// Frozen is a fixed collection of handles. It cannot be drained.
type Frozen[H any] []H

func (f Frozen[H]) Len() int { return len(f) }

func (f Frozen[H]) Snapshot() []H { return slices.Clone(f) }

// JoinUnordered waits until every handle in set is ready, in whatever order
// they finish. Each completion counts as one unit of progress and, unless
// disabled, is followed by the reclaim pass. When no handle is ready the join
// sleeps for the poll interval before scanning again.
//
// With WithDrain(true) finished handles are also removed from set, which must
// then implement DrainableSet; otherwise ErrInvalidArgument is returned.
// Without drain the membership of set is left untouched.
//
// Task failures are not reported here; query the handles for results.
func JoinUnordered[H Readier](ctx context.Context, set HandleSet[H], opts ...JoinOption) error {
	if set == nil {
		return fmt.Errorf("%w: nil handle set", ErrInvalidArgument)
	}

	cfg := newJoinConfig(nil, opts...)
	if cfg.description == "" {
		cfg.description = "unordered join"
	}

	var drain DrainableSet[H]
	if cfg.drain {
		d, ok := set.(DrainableSet[H])
		if !ok {
			return fmt.Errorf("%w: drain requested but %T cannot remove handles", ErrInvalidArgument, set)
		}
		drain = d
	}

	pending := set.Snapshot()
	tr := newTracker(cfg, len(pending))

	timer := time.NewTimer(cfg.pollInterval)
	defer timer.Stop()

	for len(pending) > 0 {
		finished := 0
		kept := pending[:0]
		for _, h := range pending {
			if !h.IsReady() {
				kept = append(kept, h)
				continue
			}
			if drain != nil {
				drain.Remove(h)
			}
			tr.add(1)
			if cfg.reclaim {
				cfg.reclaimer()
			}
			finished++
		}
		pending = kept

		if len(pending) == 0 || finished > 0 {
			continue
		}

		timer.Reset(cfg.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cfg.logger.WithField("total", tr.total).Debug("unordered join finished")
	return nil
}
