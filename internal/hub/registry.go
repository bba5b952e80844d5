package hub

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/terratap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/terratap-core/internal/module"
)

// Transport is what the hub needs from the pub/sub client.
type Transport interface {
	module.Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging interface the hub uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the collectors the registry updates.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Registry owns the registered modules and the union of their settings.
//
// Register is called during startup only; after that the registry is
// read by the event loop and needs no locking.
type Registry struct {
	modules []module.Module
	configs map[string]string
	topics  mqtt.Topics
	logger  Logger
	metrics *Metrics
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		configs: make(map[string]string),
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return r
}

// Register appends m and merges its settings into the configs map under
// "<topic>/<field>". Modules sharing a topic are both kept; on a key
// collision the later registration wins.
func (r *Registry) Register(m module.Module) error {
	if m == nil {
		return ErrNilModule
	}

	fields, err := m.Settings()
	if err != nil {
		return fmt.Errorf("registering %s: %w", m.Topic(), err)
	}

	r.modules = append(r.modules, m)
	for field, value := range fields {
		r.configs[r.topics.Join(m.Topic(), field)] = value
	}

	r.logger.Debug("module registered", "module", m.Name(), "topic", m.Topic(), "settings", len(fields))
	return nil
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []module.Module {
	return append([]module.Module(nil), r.modules...)
}

// Configs returns a copy of the namespaced settings.
func (r *Registry) Configs() map[string]string {
	return maps.Clone(r.configs)
}

// Metrics returns the registry's collectors.
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// Initialize publishes every non-empty setting retained with QoS 2 to
// "settings/<key>", then subscribes to "<topic>/#" for every module with
// handler. Failures are logged and counted; Initialize never fails.
func (r *Registry) Initialize(t Transport, handler mqtt.MessageHandler) {
	for key, value := range r.configs {
		if value == "" {
			continue
		}
		value = strings.Trim(value, `"`)

		topic := r.topics.Setting(key)
		if err := t.Publish(topic, []byte(value), module.QoSExactlyOnce, true); err != nil {
			r.metrics.TransportErrors.WithLabelValues("publish").Inc()
			r.logger.Error("publishing setting failed", "topic", topic, "error", err)
			continue
		}
		r.metrics.SettingsPublished.Inc()
		r.logger.Debug("setting published", "topic", topic, "value", value)
	}

	for _, m := range r.modules {
		pattern := r.topics.Wildcard(m.Topic())
		if err := t.Subscribe(pattern, module.QoSExactlyOnce, handler); err != nil {
			r.metrics.TransportErrors.WithLabelValues("subscribe").Inc()
			r.logger.Error("subscribing failed", "topic", pattern, "error", err)
			continue
		}
		r.logger.Debug("subscribed", "topic", pattern, "module", m.Name())
	}
}

// Dispatch calls Handle on every module whose topic is a substring of
// topic, in registration order, waiting for each before the next.
func (r *Registry) Dispatch(ctx context.Context, topic, payload string) {
	for _, m := range r.modules {
		if !strings.Contains(topic, m.Topic()) {
			continue
		}
		r.metrics.Dispatches.WithLabelValues(m.Name()).Inc()
		m.Handle(ctx, topic, payload)
	}
}
