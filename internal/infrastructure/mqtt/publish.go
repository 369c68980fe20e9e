package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Publish sends a payload to the broker with the given QoS.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed when publishing: %s", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: qos %d", ErrInvalidQoS, qos)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: publish to %s timed out after %v", ErrPublishFailed, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// EventSink adapts the client to the registry's event fan-out. Each event
// is published as JSON to thermocloud/event/<kind>. Publish failures are
// reported through onError rather than returned since event delivery is
// best-effort.
type EventSink struct {
	client  *Client
	qos     byte
	onError func(event string, err error)
}

// NewEventSink wraps client for event publishing at the given QoS.
func NewEventSink(client *Client, qos byte) *EventSink {
	return &EventSink{client: client, qos: qos}
}

// SetOnError registers a callback for publish failures.
func (s *EventSink) SetOnError(callback func(event string, err error)) {
	s.onError = callback
}

// Publish implements the event sink contract.
func (s *EventSink) Publish(event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.fail(event, fmt.Errorf("marshal event payload: %w", err))
		return
	}
	topic := "thermocloud/event/" + event
	if err := s.client.Publish(topic, s.qos, false, body); err != nil {
		s.fail(event, err)
	}
}

func (s *EventSink) fail(event string, err error) {
	if s.onError != nil {
		s.onError(event, err)
	}
}
