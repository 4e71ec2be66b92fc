// Package bus adapts the MQTT transport to the ingestion pipeline.
//
// The adapter subscribes to the six inbound topic families (button
// press, button status, registration, heartbeat, telemetry, wearable
// acknowledgement), parses payloads, and drives the pipeline:
//
//	ensure device → derive intent → lifecycle transition
//
// with notification fan-out and UI broadcast hanging off lifecycle
// hooks rather than the adapter itself.
//
// The subscriber loop never dies on a bad message: malformed payloads
// are logged and dropped, unknown devices are auto-provisioned, and
// duplicate presses are suppressed by sequence-number dedupe where the
// firmware supplies one.
package bus
