// Package intent classifies raw device events into typed service
// intents.
//
// Field devices send only what their firmware knows: a button id and a
// gesture. The mapping from that pair to a request category and
// priority lives here, in one ordered rule table, so firmware stays
// simple and request semantics stay unambiguous.
//
// Derivation is a pure function with no I/O and no state; it is safe
// to call concurrently and trivially testable.
package intent
