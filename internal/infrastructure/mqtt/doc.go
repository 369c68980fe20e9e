// Package mqtt provides the outbound MQTT event feed for the registry.
//
// The registry publishes domain events (thermometer lifecycle, recorded
// readings) to thermocloud/event/<kind> topics so that dashboards and
// downstream consumers can react without polling the HTTP API. The broker
// is optional: when disabled, events simply fan out to the remaining
// sinks. Inbound MQTT sensor ingestion is deliberately not supported;
// readings enter through the authenticated API only.
package mqtt
