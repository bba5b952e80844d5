package modules

import (
	"context"
	"strconv"

	"github.com/nerrad567/terratap-core/internal/module"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
)

// WateringTopic is the prefix owned by the watering module.
const WateringTopic = "home/watering"

// WateringModule answers watering-needed queries and clears the flag once
// the answer has been handed to the transport.
type WateringModule struct {
	module.Base `json:"-"`

	CheckTime    settings.ClockTime `json:"check_time"`
	OpenDuration uint64             `json:"open_duration"`

	shared        *state.SharedState
	publisher     module.Publisher
	opts          options
	queryTopic    string
	responseTopic string
}

// NewWatering derives a watering module from the operator settings.
func NewWatering(s settings.Settings, shared *state.SharedState, pub module.Publisher, opts ...Option) *WateringModule {
	return &WateringModule{
		Base:          module.NewBase(WateringTopic),
		CheckTime:     s.CheckTime,
		OpenDuration:  s.OpenDuration,
		shared:        shared,
		publisher:     pub,
		opts:          applyOptions(opts),
		queryTopic:    WateringTopic + "/" + NeededField,
		responseTopic: WateringTopic + "/" + NeededField + "/response",
	}
}

// ResponseTopic is where answers to watering-needed queries are published.
func (m *WateringModule) ResponseTopic() string {
	return m.responseTopic
}

// Settings implements module.Module.
func (m *WateringModule) Settings() (map[string]string, error) {
	return module.Flatten(m)
}

// Handle implements module.Module. The payload of a query is ignored.
func (m *WateringModule) Handle(ctx context.Context, topic, _ string) {
	if topic != m.queryTopic {
		return
	}

	needed, err := m.shared.ConsumeWateringNeeded(ctx, func(needed bool) error {
		return m.publisher.Publish(m.responseTopic, []byte(strconv.FormatBool(needed)), module.QoSExactlyOnce, false)
	})
	if err != nil {
		m.opts.logger.Error("answering watering query failed, flag kept",
			"topic", m.responseTopic,
			"error", err,
		)
		return
	}

	m.opts.logger.Debug("watering needed reset", "answered", needed)
	m.opts.recorder.RecordWateringEvent(m.Name(), EventFlagConsumed, needed)
}
