// Package device implements the field-device registry.
//
// Every physical or virtual endpoint on the vessel bus (call buttons,
// crew wearables, repeaters, companion apps) has a Device record keyed
// by its stable external identifier. Devices are created on first
// contact (auto-provision) or through the pairing flow, updated on
// every heartbeat and telemetry message, and never deleted without
// explicit operator action.
//
// The package has three layers:
//
//   - Repository: persistence interface with a SQLite implementation.
//     EnsureDevice is an atomic insert-or-update so concurrent first
//     contacts for the same identifier never create duplicates.
//   - Registry: thread-safe wrapper adding an in-memory cache and the
//     lookups the notification router needs (wearables by crew member,
//     all crew wearables).
//   - PairingTracker: time-bounded cache of devices currently in
//     pairing mode, with sweep-on-access eviction.
package device
