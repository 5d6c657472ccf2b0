package pool

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

// flag is a handle that becomes ready once set.
type flag struct {
	ready chan struct{}
}

func newFlag() *flag { return &flag{ready: make(chan struct{})} }

func (f *flag) IsReady() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (f *flag) set() { close(f.ready) }

func TestJoinUnordered_Drain(t *testing.T) {
	d := NewDispatcher()
	set := d.SpawnAll(context.Background(), descriptors(increment, incrementArgs(1, 2, 3, 4, 5)))

	sink := &recordingSink{}
	reclaims := 0
	err := JoinUnordered[*Task](context.Background(), set,
		WithDrain(true), WithPollInterval(testPoll), WithProgress(sink), noReclaim(&reclaims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Len() != 0 {
		t.Errorf("expected drained set, %d handles left", set.Len())
	}
	if reclaims != 5 {
		t.Errorf("expected one reclaim pass per task, got %d", reclaims)
	}

	updates := sink.snapshot()
	checkMonotonic(t, updates, 5)
	if len(updates) != 5 || updates[4] != 5 {
		t.Errorf("expected one progress unit per task, got %v", updates)
	}
}

func TestJoinUnordered_NoDrainKeepsMembership(t *testing.T) {
	d := NewDispatcher()
	set := d.SpawnAll(context.Background(), descriptors(increment, incrementArgs(1, 2, 3)))
	before := set.Snapshot()

	err := JoinUnordered[*Task](context.Background(), set, WithPollInterval(testPoll), WithReclaim(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Len() != len(before) {
		t.Fatalf("expected %d handles, got %d", len(before), set.Len())
	}
	for i, h := range before {
		if !set.Contains(h) {
			t.Errorf("handle %d removed", i)
		}
		v, err := h.Result()
		if err != nil || v != i+2 {
			t.Errorf("handle %d: expected %d, got %v (err %v)", i, i+2, v, err)
		}
	}
}

func TestJoinUnordered_FrozenCannotDrain(t *testing.T) {
	handles := Frozen[*flag]{newFlag()}

	err := JoinUnordered[*flag](context.Background(), handles, WithDrain(true))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestJoinUnordered_OutOfOrderCompletion(t *testing.T) {
	flags := []*flag{newFlag(), newFlag(), newFlag()}
	set := NewSet(flags...)

	done := make(chan error, 1)
	go func() {
		done <- JoinUnordered[*flag](context.Background(), set,
			WithDrain(true), WithPollInterval(time.Millisecond), WithReclaim(false))
	}()

	flags[2].set()
	time.Sleep(10 * time.Millisecond)
	if set.Contains(flags[2]) {
		t.Error("expected finished handle to be drained")
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 pending handles, got %d", set.Len())
	}

	flags[0].set()
	flags[1].set()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("join did not finish")
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d", set.Len())
	}
}

func TestJoinUnordered_Frozen(t *testing.T) {
	f := newFlag()
	f.set()

	if err := JoinUnordered[*flag](context.Background(), Frozen[*flag]{f}, WithReclaim(false)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJoinUnordered_Empty(t *testing.T) {
	if err := JoinUnordered[*flag](context.Background(), NewSet[*flag](), WithDrain(true)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJoinUnordered_ContextCancelled(t *testing.T) {
	set := NewSet(newFlag())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := JoinUnordered[*flag](ctx, set, WithDrain(true), WithPollInterval(testPoll), WithReclaim(false))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if set.Len() != 1 {
		t.Errorf("expected pending handle to stay, got %d", set.Len())
	}
}

func TestSet(t *testing.T) {
	a, b := newFlag(), newFlag()
	s := NewSet(a, b, a)

	if s.Len() != 2 {
		t.Fatalf("expected duplicates to be dropped, got %d", s.Len())
	}
	if !s.Remove(a) {
		t.Error("expected Remove to report a present handle")
	}
	if s.Remove(a) {
		t.Error("expected Remove to report a missing handle")
	}

	snap := s.Snapshot()
	snap[0] = nil
	if !s.Contains(b) {
		t.Error("snapshot mutation leaked into the set")
	}
}

func TestSet_OrderSurvivesCompaction(t *testing.T) {
	s := NewSet[int]()
	for i := range 10 {
		s.Add(i)
	}
	for _, i := range []int{0, 2, 3, 5, 7, 8} {
		s.Remove(i)
	}
	s.Add(2, 11)

	want := []int{1, 4, 6, 9, 2, 11}
	if got := s.Snapshot(); !slices.Equal(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
	if s.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", s.Len(), len(want))
	}
	for _, i := range want {
		if !s.Contains(i) {
			t.Errorf("expected %d to be a member", i)
		}
	}
}

func TestSet_LargeDrain(t *testing.T) {
	const n = 100_000
	s := NewSet[int]()
	for i := range n {
		s.Add(i)
	}

	start := time.Now()
	for i := range n {
		if !s.Remove(i) {
			t.Fatalf("expected %d to be present", i)
		}
	}
	if s.Len() != 0 || len(s.Snapshot()) != 0 {
		t.Errorf("expected an empty set, got %d members", s.Len())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("draining %d handles took %v", n, elapsed)
	}
}
