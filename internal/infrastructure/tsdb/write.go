package tsdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordReading writes a single temperature reading to InfluxDB.
//
// The write is non-blocking; points are batched and flushed by the
// client. Dropped writes while disconnected are acceptable because the
// relational store already holds the reading.
func (c *Client) RecordReading(thermometerID string, degreesC float64, recordedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"thermometer_id": thermometerID,
		},
		map[string]interface{}{
			"degrees_c": degreesC,
		},
		recordedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements that do not fit
// RecordReading, tagged and timestamped by the caller.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
