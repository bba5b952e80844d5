package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const pollInterval = 50 * time.Millisecond

// tracker records what the hub published, as seen from the outside.
type tracker struct {
	mu        sync.Mutex
	settings  map[string]string
	responses []string
}

func newTracker() *tracker {
	return &tracker{settings: make(map[string]string)}
}

// observe classifies one received message. Settings are keyed by name so a
// reconnect that republishes them does not inflate the count.
func (t *tracker) observe(topic, payload string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case strings.HasPrefix(topic, "settings/"):
		t.settings[strings.TrimPrefix(topic, "settings/")] = payload
	case strings.HasSuffix(topic, "/response"):
		t.responses = append(t.responses, payload)
	}
}

func (t *tracker) settingsCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.settings)
}

func (t *tracker) responseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.responses)
}

// responsesSince returns the responses after the first seen ones.
func (t *tracker) responsesSince(seen int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seen >= len(t.responses) {
		return nil
	}
	return append([]string(nil), t.responses[seen:]...)
}

// waitSettings blocks until at least want distinct settings arrived.
func (t *tracker) waitSettings(ctx context.Context, want int, timeout time.Duration) error {
	return poll(ctx, timeout, func() bool { return t.settingsCount() >= want },
		func() error { return fmt.Errorf("received %d of %d settings", t.settingsCount(), want) })
}

// waitResponses blocks until n responses arrived after the first seen ones
// and returns exactly those n.
func (t *tracker) waitResponses(ctx context.Context, seen, n int, timeout time.Duration) ([]string, error) {
	err := poll(ctx, timeout, func() bool { return len(t.responsesSince(seen)) >= n },
		func() error { return fmt.Errorf("received %d of %d responses", len(t.responsesSince(seen)), n) })
	if err != nil {
		return nil, err
	}
	return t.responsesSince(seen)[:n], nil
}

func poll(ctx context.Context, timeout time.Duration, done func() bool, describe func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !done() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", describe(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
