package thermo

// Event kinds published by the services. Payloads are small maps safe to
// serialise for both the WebSocket feed and the MQTT event topics.
const (
	EventThermometerCreated    = "thermometer.created"
	EventThermometerRegistered = "thermometer.registered"
	EventThermometerUpdated    = "thermometer.updated"
	EventThermometerDeleted    = "thermometer.deleted"
	EventReadingRecorded       = "reading.recorded"
)

// EventSink receives domain events after a state transition commits.
// Implementations must not block; delivery is best-effort and carries no
// registry invariants.
type EventSink interface {
	Publish(event string, payload any)
}

// noopSink discards events.
type noopSink struct{}

func (noopSink) Publish(string, any) {}

// multiSink fans events out to several sinks.
type multiSink []EventSink

func (m multiSink) Publish(event string, payload any) {
	for _, sink := range m {
		sink.Publish(event, payload)
	}
}

// MultiSink combines sinks into one. Nil sinks are skipped.
func MultiSink(sinks ...EventSink) EventSink {
	var active multiSink
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	if len(active) == 0 {
		return noopSink{}
	}
	return active
}
