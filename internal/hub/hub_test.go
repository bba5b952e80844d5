package hub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/nerrad567/terratap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/terratap-core/internal/module"
	"github.com/nerrad567/terratap-core/internal/modules"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type publish struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

type subscribe struct {
	Topic string
	QoS   byte
}

// fakeTransport records calls and fails any topic listed in failOn.
type fakeTransport struct {
	mu         sync.Mutex
	publishes  []publish
	subscribes []subscribe
	handlers   map[string]mqtt.MessageHandler
	failOn     map[string]bool
}

func newFakeTransport(failOn ...string) *fakeTransport {
	t := &fakeTransport{
		handlers: make(map[string]mqtt.MessageHandler),
		failOn:   make(map[string]bool),
	}
	for _, topic := range failOn {
		t.failOn[topic] = true
	}
	return t
}

func (t *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn[topic] {
		return errors.New("fake publish failure")
	}
	t.publishes = append(t.publishes, publish{topic, string(payload), qos, retained})
	return nil
}

func (t *fakeTransport) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn[topic] {
		return errors.New("fake subscribe failure")
	}
	t.subscribes = append(t.subscribes, subscribe{topic, qos})
	t.handlers[topic] = handler
	return nil
}

func (t *fakeTransport) published() []publish {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]publish(nil), t.publishes...)
}

func (t *fakeTransport) subscribed() []subscribe {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]subscribe(nil), t.subscribes...)
}

// deliver plays the broker: it hands a message to the handler subscribed
// under pattern.
func (t *fakeTransport) deliver(pattern, topic, payload string) error {
	t.mu.Lock()
	handler := t.handlers[pattern]
	t.mu.Unlock()
	if handler == nil {
		return errors.New("no subscription for " + pattern)
	}
	return handler(topic, []byte(payload))
}

type call struct {
	Module  string
	Topic   string
	Payload string
}

// callLog is shared by fake modules so ordering across modules is visible.
type callLog struct {
	mu    sync.Mutex
	calls []call
}

func (l *callLog) add(c call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) snapshot() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]call(nil), l.calls...)
}

type fakeModule struct {
	module.Base
	label    string
	settings map[string]string
	err      error
	log      *callLog
}

func newFakeModule(label, topic string, fields map[string]string, log *callLog) *fakeModule {
	return &fakeModule{Base: module.NewBase(topic), label: label, settings: fields, log: log}
}

func (m *fakeModule) Settings() (map[string]string, error) {
	return m.settings, m.err
}

func (m *fakeModule) Handle(_ context.Context, topic, payload string) {
	if m.log != nil {
		m.log.add(call{m.label, topic, payload})
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRegister(t *testing.T) {
	reg := NewRegistry()

	a := newFakeModule("a", "home/sensor", map[string]string{"check_time": "02:55", "check_duration": "30"}, nil)
	b := newFakeModule("b", "home/watering", map[string]string{"check_time": "03:00", "open_duration": "300"}, nil)

	for _, m := range []module.Module{a, b} {
		if err := reg.Register(m); err != nil {
			t.Fatalf("Register(%s) error = %v", m.Topic(), err)
		}
	}

	want := map[string]string{
		"home/sensor/check_time":      "02:55",
		"home/sensor/check_duration":  "30",
		"home/watering/check_time":    "03:00",
		"home/watering/open_duration": "300",
	}
	if diff := cmp.Diff(want, reg.Configs()); diff != "" {
		t.Errorf("Configs() mismatch (-want +got):\n%s", diff)
	}
	if got := len(reg.Modules()); got != 2 {
		t.Errorf("len(Modules()) = %d, want 2", got)
	}
}

func TestRegister_SameTopicKeepsBoth(t *testing.T) {
	reg := NewRegistry()
	first := newFakeModule("first", "home/sensor", map[string]string{"check_time": "01:00"}, nil)
	second := newFakeModule("second", "home/sensor", map[string]string{"check_time": "02:00"}, nil)

	_ = reg.Register(first)
	_ = reg.Register(second)

	if got := len(reg.Modules()); got != 2 {
		t.Errorf("len(Modules()) = %d, want 2", got)
	}
	if got := reg.Configs()["home/sensor/check_time"]; got != "02:00" {
		t.Errorf("colliding key = %q, want the later registration %q", got, "02:00")
	}
}

func TestRegister_Errors(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(nil); !errors.Is(err, ErrNilModule) {
		t.Errorf("Register(nil) error = %v, want ErrNilModule", err)
	}

	broken := newFakeModule("broken", "home/broken", nil, nil)
	broken.err = module.ErrFlatten
	if err := reg.Register(broken); !errors.Is(err, module.ErrFlatten) {
		t.Errorf("Register() error = %v, want ErrFlatten", err)
	}
	if len(reg.Modules()) != 0 {
		t.Error("failed registration should not add the module")
	}
}

func TestConfigs_ReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(newFakeModule("a", "home/a", map[string]string{"x": "1"}, nil))

	reg.Configs()["home/a/x"] = "changed"

	if got := reg.Configs()["home/a/x"]; got != "1" {
		t.Errorf("Configs() leaked internal map, got %q", got)
	}
}

func TestInitialize(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(newFakeModule("a", "home/a", map[string]string{
		"plain":  "30",
		"quoted": `"02:55"`,
		"empty":  "",
	}, nil))
	_ = reg.Register(newFakeModule("b", "home/b", map[string]string{"open": "300"}, nil))

	tr := newFakeTransport()
	reg.Initialize(tr, func(string, []byte) error { return nil })

	got := tr.published()
	sort.Slice(got, func(i, j int) bool { return got[i].Topic < got[j].Topic })
	want := []publish{
		{"settings/home/a/plain", "30", module.QoSExactlyOnce, true},
		{"settings/home/a/quoted", "02:55", module.QoSExactlyOnce, true},
		{"settings/home/b/open", "300", module.QoSExactlyOnce, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("published mismatch (-want +got):\n%s", diff)
	}

	wantSubs := []subscribe{
		{"home/a/#", module.QoSExactlyOnce},
		{"home/b/#", module.QoSExactlyOnce},
	}
	if diff := cmp.Diff(wantSubs, tr.subscribed()); diff != "" {
		t.Errorf("subscribed mismatch (-want +got):\n%s", diff)
	}

	if got := testutil.ToFloat64(reg.Metrics().SettingsPublished); got != 3 {
		t.Errorf("settings_published_total = %v, want 3", got)
	}
}

func TestInitialize_FailuresAreNotFatal(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(newFakeModule("a", "home/a", map[string]string{"x": "1", "y": "2"}, nil))
	_ = reg.Register(newFakeModule("b", "home/b", map[string]string{"z": "3"}, nil))

	tr := newFakeTransport("settings/home/a/x", "home/a/#")
	reg.Initialize(tr, func(string, []byte) error { return nil })

	if got := len(tr.published()); got != 2 {
		t.Errorf("published %d settings, want 2", got)
	}
	if diff := cmp.Diff([]subscribe{{"home/b/#", module.QoSExactlyOnce}}, tr.subscribed()); diff != "" {
		t.Errorf("subscribed mismatch (-want +got):\n%s", diff)
	}

	errs := reg.Metrics().TransportErrors
	if got := testutil.ToFloat64(errs.WithLabelValues("publish")); got != 1 {
		t.Errorf("publish errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(errs.WithLabelValues("subscribe")); got != 1 {
		t.Errorf("subscribe errors = %v, want 1", got)
	}
}

func TestDispatch(t *testing.T) {
	log := &callLog{}
	reg := NewRegistry()
	_ = reg.Register(newFakeModule("water", "home/water", nil, log))
	_ = reg.Register(newFakeModule("watering", "home/watering", nil, log))
	_ = reg.Register(newFakeModule("sensor", "home/sensor", nil, log))
	_ = reg.Register(newFakeModule("sensor-again", "home/sensor", nil, log))

	ctx := context.Background()
	reg.Dispatch(ctx, "home/watering/watering_needed", "")
	reg.Dispatch(ctx, "prefix/home/sensor/x", "true")
	reg.Dispatch(ctx, "home/light/on", "1")

	want := []call{
		// Substring matching: "home/water" also matches "home/watering/...".
		{"water", "home/watering/watering_needed", ""},
		{"watering", "home/watering/watering_needed", ""},
		// The match need not be a prefix; duplicate topics both run.
		{"sensor", "prefix/home/sensor/x", "true"},
		{"sensor-again", "prefix/home/sensor/x", "true"},
	}
	if diff := cmp.Diff(want, log.snapshot()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestInbox(t *testing.T) {
	inbox := NewInbox(1)
	dropped := 0
	inbox.SetOnDrop(func() { dropped++ })

	if err := inbox.Message("a", []byte("1")); err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if err := inbox.Message("b", []byte("2")); !errors.Is(err, ErrInboxFull) {
		t.Errorf("Message() on full inbox error = %v, want ErrInboxFull", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}

	ev := <-inbox.Events()
	if diff := cmp.Diff(Event{Kind: EventMessage, Topic: "a", Payload: "1"}, ev); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}

	inbox.Close()
	inbox.Close()
	if err := inbox.Message("c", nil); !errors.Is(err, ErrInboxClosed) {
		t.Errorf("Message() after Close error = %v, want ErrInboxClosed", err)
	}

	// Fill the buffer, then Connected must return because the inbox is closed.
	inbox.events <- Event{Kind: EventMessage}
	inbox.Connected()
}

func TestRun(t *testing.T) {
	log := &callLog{}
	reg := NewRegistry(WithMetrics(NewMetrics(prometheus.NewRegistry())))
	_ = reg.Register(newFakeModule("a", "home/a", map[string]string{"x": "1"}, log))

	tr := newFakeTransport()
	inbox := NewInbox(DefaultInboxSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx, tr, inbox) }()

	inbox.Connected()
	eventually(t, func() bool { return len(tr.subscribed()) == 1 })

	if err := tr.deliver("home/a/#", "home/a/ping", "hello"); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	eventually(t, func() bool { return len(log.snapshot()) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := testutil.ToFloat64(reg.Metrics().Connects); got != 1 {
		t.Errorf("connects_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.Metrics().Dispatches.WithLabelValues("a")); got != 1 {
		t.Errorf("dispatches_total{module=a} = %v, want 1", got)
	}
}

func TestRun_NoDispatchAfterCancel(t *testing.T) {
	log := &callLog{}
	reg := NewRegistry()
	_ = reg.Register(newFakeModule("a", "home/a", nil, log))

	inbox := NewInbox(DefaultInboxSize)
	for range 10 {
		_ = inbox.Message("home/a/x", []byte("late"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := reg.Run(ctx, newFakeTransport(), inbox); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if got := log.snapshot(); len(got) != 0 {
		t.Errorf("dispatched %v after cancellation", got)
	}
}

func TestRun_WateringFlow(t *testing.T) {
	shared := state.NewShared(state.Default())
	tr := newFakeTransport()

	reg := NewRegistry()
	_ = reg.Register(modules.NewSensor(settings.Default(), shared))
	_ = reg.Register(modules.NewWatering(settings.Default(), shared, tr))

	inbox := NewInbox(DefaultInboxSize)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx, tr, inbox) }()
	defer func() {
		cancel()
		<-done
	}()

	inbox.Connected()
	eventually(t, func() bool { return len(tr.subscribed()) == 2 })

	responses := func() []string {
		var out []string
		for _, p := range tr.published() {
			if p.Topic == "home/watering/watering_needed/response" {
				out = append(out, p.Payload)
			}
		}
		return out
	}

	_ = tr.deliver("home/sensor/#", "home/sensor/watering_needed", "true")
	// Two queries back to back: the flag is consumed by the first.
	_ = tr.deliver("home/watering/#", "home/watering/watering_needed", "")
	_ = tr.deliver("home/watering/#", "home/watering/watering_needed", "")
	eventually(t, func() bool { return len(responses()) == 2 })

	if diff := cmp.Diff([]string{"true", "false"}, responses()); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}

	settingsCount := 0
	for _, p := range tr.published() {
		if p.Retained {
			settingsCount++
		}
	}
	if settingsCount != 4 {
		t.Errorf("retained settings = %d, want 4", settingsCount)
	}
}
