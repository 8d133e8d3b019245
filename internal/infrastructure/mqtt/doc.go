// Package mqtt is the informer's optional MQTT surface, for installations
// that prefer broker traffic over Home Assistant bus events.
//
// The client publishes a retained online/offline status on
// informer/system/status (with an LWT for crash detection), mirrors run
// outcome events onto informer/event/<type>, and can subscribe to
// informer/command/generate so dashboards can trigger a run without stdin
// access. Delivery failures are the caller's to log; they never fail a run.
package mqtt
