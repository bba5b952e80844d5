package modules

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/terratap-core/internal/module"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
)

const (
	// SensorTopic is the prefix owned by the sensor module.
	SensorTopic = "home/sensor"

	// NeededField is the sub-topic both modules exchange the flag on.
	NeededField = "watering_needed"

	// sensorLead is how far ahead of the configured check time the sensor runs.
	sensorLead = 5 * time.Minute
)

// SensorModule raises the watering-needed flag when the sensor reports dry soil.
type SensorModule struct {
	module.Base `json:"-"`

	CheckTime     settings.ClockTime `json:"check_time"`
	CheckDuration uint64             `json:"check_duration"`

	shared *state.SharedState
	opts   options
	// neededTopic is the exact topic the sensor reports on.
	neededTopic string
}

// NewSensor derives a sensor module from the operator settings.
func NewSensor(s settings.Settings, shared *state.SharedState, opts ...Option) *SensorModule {
	return &SensorModule{
		Base:          module.NewBase(SensorTopic),
		CheckTime:     s.CheckTime.Add(-sensorLead),
		CheckDuration: s.CheckDuration,
		shared:        shared,
		opts:          applyOptions(opts),
		neededTopic:   SensorTopic + "/" + NeededField,
	}
}

// Settings implements module.Module.
func (m *SensorModule) Settings() (map[string]string, error) {
	return module.Flatten(m)
}

// Handle implements module.Module.
func (m *SensorModule) Handle(ctx context.Context, topic, payload string) {
	if topic != m.neededTopic {
		return
	}

	if !utf8.ValidString(payload) || !strings.EqualFold(payload, "true") {
		m.opts.logger.Debug("ignoring sensor payload", "topic", topic, "payload", payload)
		return
	}

	changed, err := m.shared.MarkWateringNeeded(ctx)
	if err != nil {
		m.opts.logger.Error("setting watering needed failed", "error", err)
		return
	}

	m.opts.logger.Info("watering needed", "watering_needed", true, "changed", changed)
	m.opts.recorder.RecordWateringEvent(m.Name(), EventFlagSet, true)
}
