// Package notify decides who hears about a service request and what
// they hear.
//
// Targeting follows three rules, in order:
//
//  1. An assigned request goes exactly to the assigned crew member's
//     wearables, duty status ignored. Explicit assignment always wins.
//  2. An unassigned emergency goes to every crew wearable, on-duty or
//     not.
//  3. Anything else goes to the wearables of on-duty crew only.
//
// An empty target set is logged and skipped; no recipients is not a
// failure. The router also echoes lightweight acknowledgement commands
// back to the originating device so its LED and sound feedback track
// server state. Everything here is best-effort: delivery failures are
// logged and never surfaced to the lifecycle transition that triggered
// them.
package notify
