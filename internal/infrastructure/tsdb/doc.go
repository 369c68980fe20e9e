// Package tsdb mirrors temperature readings into InfluxDB for
// time-series queries and dashboards.
//
// The mirror is optional and strictly secondary: every reading is
// committed to SQLite first, and a failed or dropped InfluxDB write
// never fails the originating API request. Writes go through the
// non-blocking batched WriteAPI; async errors surface via SetOnError.
package tsdb
