package mqtt

import (
	"encoding/json"
	"fmt"
)

// Publish sends a payload to a topic.
//
// Parameters:
//   - topic: Destination topic
//   - payload: Raw payload, at most 1MB
//   - qos: Quality of service (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: ErrNotConnected, ErrInvalidTopic, or ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishEvent publishes a JSON-encoded run outcome event on its event
// topic, using the configured QoS, unretained.
//
// Parameters:
//   - eventType: Bus event type, e.g. hud_informer_complete
//   - payload: JSON-encodable event data
//
// Returns:
//   - error: Encode failure or any Publish error
func (c *Client) PublishEvent(eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}
	return c.Publish(EventTopic(eventType), raw, byte(c.cfg.QoS), false)
}
