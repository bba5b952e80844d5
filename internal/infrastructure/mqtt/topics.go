package mqtt

// Topic prefixes for the TerraTap namespace.
const (
	// TopicPrefixHome is the base for all module topics.
	TopicPrefixHome = "home"

	// TopicPrefixSettings is the base for retained module settings.
	TopicPrefixSettings = "settings"

	// TopicPrefixSystem is the base for hub status topics.
	TopicPrefixSystem = "terratap/system"

	// topicResponseSuffix is appended to a query topic to form its reply topic.
	topicResponseSuffix = "response"
)

// Topics provides builders for TerraTap MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Module("sensor")                      // "home/sensor"
//	topics.Join("home/sensor", "watering_needed") // "home/sensor/watering_needed"
//	topics.Setting("home/sensor/check_time")      // "settings/home/sensor/check_time"
type Topics struct{}

// Join appends a sub-topic to a prefix.
func (Topics) Join(prefix, ending string) string {
	return prefix + "/" + ending
}

// Module returns the topic prefix owned by a module.
//
// Example: home/watering
func (t Topics) Module(name string) string {
	return t.Join(TopicPrefixHome, name)
}

// Setting returns the retained topic for a namespaced settings key.
//
// Example: settings/home/watering/open_duration
func (t Topics) Setting(key string) string {
	return t.Join(TopicPrefixSettings, key)
}

// Response returns the reply topic for a query topic.
//
// Example: home/watering/watering_needed/response
func (t Topics) Response(topic string) string {
	return t.Join(topic, topicResponseSuffix)
}

// Wildcard returns a pattern matching every sub-topic of prefix.
//
// Pattern: home/sensor/#
func (t Topics) Wildcard(prefix string) string {
	return t.Join(prefix, "#")
}

// SystemStatus returns the hub status topic (online/offline, LWT).
//
// Example: terratap/system/status
func (t Topics) SystemStatus() string {
	return t.Join(TopicPrefixSystem, "status")
}

// AllSettings returns a pattern matching every published setting.
//
// Pattern: settings/#
func (t Topics) AllSettings() string {
	return t.Wildcard(TopicPrefixSettings)
}

// AllTopics returns a pattern matching all traffic on the broker.
//
// Pattern: #
func (Topics) AllTopics() string {
	return "#"
}
