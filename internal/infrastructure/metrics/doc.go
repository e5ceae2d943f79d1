// Package metrics writes entity state telemetry to InfluxDB.
//
// Every numeric entity state update republished by the connector can also be
// recorded as a time-series point. Writes are non-blocking and batched; the
// connector never waits on InfluxDB in the publish path, and write failures
// are surfaced asynchronously through an error callback.
//
// The integration is optional: when disabled in configuration the connector
// runs without it.
package metrics
