package module

import (
	"context"
	"strings"
)

// Delivery intents for Publish, matching MQTT QoS levels.
const (
	QoSAtMostOnce  byte = 0
	QoSAtLeastOnce byte = 1
	QoSExactlyOnce byte = 2
)

// Module is a unit of hub behaviour bound to a topic prefix.
type Module interface {
	// Topic is the prefix the module owns, e.g. "home/sensor".
	Topic() string

	// Name is a short label for logs; by convention the last topic segment.
	Name() string

	// Settings returns the module's own fields as flat key/value pairs.
	// Keys are not namespaced; the registry prefixes them with Topic().
	Settings() (map[string]string, error)

	// Handle processes one message routed to the module. It has no
	// return value: failures are logged by the module and never abort
	// dispatch to other modules.
	Handle(ctx context.Context, topic, payload string)
}

// Publisher is the transport primitive modules use to send messages.
//
// A nil error means the transport accepted the publish; it says nothing
// about delivery to subscribers.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Base carries a module's topic and provides the default Name.
// Embed it with a `json:"-"` tag so it stays out of the settings.
type Base struct {
	topic string
}

// NewBase returns a Base for the given topic prefix.
func NewBase(topic string) Base {
	return Base{topic: topic}
}

// Topic returns the module's topic prefix.
func (b Base) Topic() string {
	return b.topic
}

// Name returns the last segment of the topic.
func (b Base) Name() string {
	return NameFromTopic(b.topic)
}

// NameFromTopic returns the last "/"-separated segment of topic, or ""
// for an empty topic.
func NameFromTopic(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
