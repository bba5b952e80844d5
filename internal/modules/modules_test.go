package modules

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/terratap-core/internal/module"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
)

var (
	_ module.Module = (*SensorModule)(nil)
	_ module.Module = (*WateringModule)(nil)
)

type published struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// mockPublisher records publishes and fails any whose topic equals failOn.
type mockPublisher struct {
	mu       sync.Mutex
	messages []published
	failOn   string
}

func (p *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn != "" && topic == p.failOn {
		return errors.New("mock publish failure")
	}
	p.messages = append(p.messages, published{topic, string(payload), qos, retained})
	return nil
}

func (p *mockPublisher) published() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

type event struct {
	Module string
	Event  string
	Needed bool
}

type mockRecorder struct {
	mu     sync.Mutex
	events []event
}

func (r *mockRecorder) RecordWateringEvent(module, ev string, needed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{module, ev, needed})
}

func wateringNeeded(t *testing.T, s *state.SharedState) bool {
	t.Helper()
	needed, err := s.WateringNeeded(context.Background())
	if err != nil {
		t.Fatalf("WateringNeeded() error = %v", err)
	}
	return needed
}

func TestSensorSettings(t *testing.T) {
	tests := []struct {
		name      string
		checkTime settings.ClockTime
		want      map[string]string
	}{
		{
			name:      "five minutes early",
			checkTime: settings.MustClockTime(3, 0),
			want:      map[string]string{"check_time": "02:55", "check_duration": "30"},
		},
		{
			name:      "wraps past midnight",
			checkTime: settings.MustClockTime(0, 2),
			want:      map[string]string{"check_time": "23:57", "check_duration": "30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.Default()
			s.CheckTime = tt.checkTime
			m := NewSensor(s, state.NewShared(state.Default()))

			got, err := m.Settings()
			if err != nil {
				t.Fatalf("Settings() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWateringSettings(t *testing.T) {
	m := NewWatering(settings.Default(), state.NewShared(state.Default()), &mockPublisher{})

	got, err := m.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	want := map[string]string{"check_time": "03:00", "open_duration": "300"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
}

func TestTopicsAndNames(t *testing.T) {
	shared := state.NewShared(state.Default())
	sensor := NewSensor(settings.Default(), shared)
	watering := NewWatering(settings.Default(), shared, &mockPublisher{})

	if sensor.Topic() != "home/sensor" || sensor.Name() != "sensor" {
		t.Errorf("sensor Topic/Name = %q/%q", sensor.Topic(), sensor.Name())
	}
	if watering.Topic() != "home/watering" || watering.Name() != "watering" {
		t.Errorf("watering Topic/Name = %q/%q", watering.Topic(), watering.Name())
	}
	if watering.ResponseTopic() != "home/watering/watering_needed/response" {
		t.Errorf("ResponseTopic() = %q", watering.ResponseTopic())
	}
}

func TestSensorHandle(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    bool
	}{
		{"true sets flag", "home/sensor/watering_needed", "true", true},
		{"case insensitive", "home/sensor/watering_needed", "TrUe", true},
		{"maybe ignored", "home/sensor/watering_needed", "maybe", false},
		{"false ignored", "home/sensor/watering_needed", "false", false},
		{"empty ignored", "home/sensor/watering_needed", "", false},
		{"invalid utf8 ignored", "home/sensor/watering_needed", "\xff\xfe", false},
		{"other topic ignored", "home/sensor/moisture", "true", false},
		{"sub topic ignored", "home/sensor/watering_needed/extra", "true", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := state.NewShared(state.Default())
			rec := &mockRecorder{}
			m := NewSensor(settings.Default(), shared, WithRecorder(rec))

			m.Handle(context.Background(), tt.topic, tt.payload)

			if got := wateringNeeded(t, shared); got != tt.want {
				t.Errorf("watering_needed = %v, want %v", got, tt.want)
			}
			if tt.want && len(rec.events) != 1 {
				t.Errorf("recorded %d events, want 1", len(rec.events))
			}
			if !tt.want && len(rec.events) != 0 {
				t.Errorf("recorded %v, want none", rec.events)
			}
		})
	}
}

func TestSensorHandle_AlreadySet(t *testing.T) {
	shared := state.NewShared(state.State{WateringNeeded: true})
	m := NewSensor(settings.Default(), shared)

	m.Handle(context.Background(), "home/sensor/watering_needed", "true")

	if !wateringNeeded(t, shared) {
		t.Error("watering_needed = false, want true")
	}
}

func TestWateringHandle(t *testing.T) {
	const responseTopic = "home/watering/watering_needed/response"

	tests := []struct {
		name        string
		initial     bool
		failPublish bool
		wantMsgs    []published
		wantNeeded  bool
	}{
		{
			name:       "needed is answered and cleared",
			initial:    true,
			wantMsgs:   []published{{responseTopic, "true", module.QoSExactlyOnce, false}},
			wantNeeded: false,
		},
		{
			name:       "not needed is answered",
			initial:    false,
			wantMsgs:   []published{{responseTopic, "false", module.QoSExactlyOnce, false}},
			wantNeeded: false,
		},
		{
			name:        "failed publish keeps flag",
			initial:     true,
			failPublish: true,
			wantMsgs:    nil,
			wantNeeded:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := state.NewShared(state.State{WateringNeeded: tt.initial})
			pub := &mockPublisher{}
			if tt.failPublish {
				pub.failOn = responseTopic
			}
			rec := &mockRecorder{}
			m := NewWatering(settings.Default(), shared, pub, WithRecorder(rec))

			m.Handle(context.Background(), "home/watering/watering_needed", "")

			if diff := cmp.Diff(tt.wantMsgs, pub.published()); diff != "" {
				t.Errorf("published mismatch (-want +got):\n%s", diff)
			}
			if got := wateringNeeded(t, shared); got != tt.wantNeeded {
				t.Errorf("watering_needed = %v, want %v", got, tt.wantNeeded)
			}

			var wantEvents []event
			if !tt.failPublish {
				wantEvents = []event{{"watering", EventFlagConsumed, tt.initial}}
			}
			if diff := cmp.Diff(wantEvents, rec.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWateringHandle_IgnoresOtherTopics(t *testing.T) {
	shared := state.NewShared(state.State{WateringNeeded: true})
	pub := &mockPublisher{}
	m := NewWatering(settings.Default(), shared, pub)

	// Its own response arrives through the home/watering/# subscription.
	m.Handle(context.Background(), "home/watering/watering_needed/response", "true")
	m.Handle(context.Background(), "home/watering/valve", "open")

	if got := pub.published(); len(got) != 0 {
		t.Errorf("published %v, want nothing", got)
	}
	if !wateringNeeded(t, shared) {
		t.Error("watering_needed = false, want true")
	}
}

func TestSensorThenWatering(t *testing.T) {
	ctx := context.Background()
	shared := state.NewShared(state.Default())
	pub := &mockPublisher{}
	sensor := NewSensor(settings.Default(), shared)
	watering := NewWatering(settings.Default(), shared, pub)

	watering.Handle(ctx, "home/watering/watering_needed", "")
	sensor.Handle(ctx, "home/sensor/watering_needed", "true")
	watering.Handle(ctx, "home/watering/watering_needed", "")
	watering.Handle(ctx, "home/watering/watering_needed", "")

	var payloads []string
	for _, msg := range pub.published() {
		payloads = append(payloads, msg.Payload)
	}
	if diff := cmp.Diff([]string{"false", "true", "false"}, payloads); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestWateringHandle_ConcurrentQueries(t *testing.T) {
	shared := state.NewShared(state.State{WateringNeeded: true})
	pub := &mockPublisher{}
	m := NewWatering(settings.Default(), shared, pub)

	const queries = 8
	var wg sync.WaitGroup
	for range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Handle(context.Background(), "home/watering/watering_needed", "")
		}()
	}
	wg.Wait()

	trues := 0
	msgs := pub.published()
	for _, msg := range msgs {
		if msg.Payload == "true" {
			trues++
		}
	}
	if len(msgs) != queries || trues != 1 {
		t.Errorf("got %d responses with %d \"true\", want %d with exactly 1", len(msgs), trues, queries)
	}
}
