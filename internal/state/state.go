package state

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// State is the persisted form of the shared state.
type State struct {
	WateringNeeded bool `json:"watering_needed" yaml:"watering_needed"`
}

// Default returns the state of a fresh installation: no watering needed.
func Default() State {
	return State{}
}

// SharedState guards a State behind a single exclusive lock.
//
// The lock is a weighted semaphore of size one so acquisition can be
// abandoned when the caller's context is cancelled.
type SharedState struct {
	lock  *semaphore.Weighted
	state State
}

// NewShared wraps an initial state, typically the one loaded at startup.
func NewShared(initial State) *SharedState {
	return &SharedState{
		lock:  semaphore.NewWeighted(1),
		state: initial,
	}
}

func (s *SharedState) acquire(ctx context.Context) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	}
	return nil
}

func (s *SharedState) release() {
	s.lock.Release(1)
}

// WateringNeeded reads the flag.
func (s *SharedState) WateringNeeded(ctx context.Context) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()
	return s.state.WateringNeeded, nil
}

// MarkWateringNeeded sets the flag to true.
//
// Setting an already-set flag is a no-op; changed reports whether the
// flag actually flipped.
func (s *SharedState) MarkWateringNeeded(ctx context.Context) (changed bool, err error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	changed = !s.state.WateringNeeded
	s.state.WateringNeeded = true
	return changed, nil
}

// ConsumeWateringNeeded reads the flag and hands it to deliver while the
// lock is held. The flag is reset to false only if deliver returns nil;
// otherwise it is left unchanged and deliver's error is returned.
//
// needed is the value observed before any reset.
func (s *SharedState) ConsumeWateringNeeded(ctx context.Context, deliver func(needed bool) error) (needed bool, err error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	needed = s.state.WateringNeeded
	if err := deliver(needed); err != nil {
		return needed, err
	}
	s.state.WateringNeeded = false
	return needed, nil
}

// Snapshot returns a copy of the state for persistence or reporting.
func (s *SharedState) Snapshot(ctx context.Context) (State, error) {
	if err := s.acquire(ctx); err != nil {
		return State{}, err
	}
	defer s.release()
	return s.state, nil
}
