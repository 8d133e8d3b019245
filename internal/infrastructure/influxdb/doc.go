// Package influxdb provides InfluxDB connectivity for run telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring tailored to the
// generation pipeline.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Per-step pipeline metrics (duration, outcome, fallback usage)
//   - Token consumption per model and per run
//   - Run summaries (end-to-end duration, artifacts produced)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // telemetry is optional; log and continue
//	}
//	defer client.Close()
//
//	client.WriteRunSummary(outcome)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback set with SetOnError. Connection and health check errors are
// returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead when runs are frequent.
package influxdb
