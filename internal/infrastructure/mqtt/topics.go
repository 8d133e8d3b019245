package mqtt

// Topic layout:
//
//	informer/system/status        retained client status (online/offline + LWT)
//	informer/event/<type>         run outcome events, mirroring the HA bus
//	informer/command/generate     inbound generate commands
const (
	topicPrefix = "informer"

	// StatusTopic carries the retained online/offline status.
	StatusTopic = topicPrefix + "/system/status"

	// CommandTopic receives generate commands for MQTT-first installations.
	CommandTopic = topicPrefix + "/command/generate"
)

// EventTopic returns the topic for a run outcome event type, e.g.
// informer/event/hud_informer_complete.
func EventTopic(eventType string) string {
	return topicPrefix + "/event/" + eventType
}
