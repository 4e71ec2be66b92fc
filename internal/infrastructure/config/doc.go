// Package config loads and validates Steward Core configuration.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// STEWARD_* environment variable overrides. The loaded Config is passed
// by value into each subsystem; nothing reads configuration globally.
package config
