package main

import (
	"os"
	"testing"
	"time"

	"github.com/saltline/steward-core/internal/request"
)

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("STEWARD_CONFIG")
	defer os.Setenv("STEWARD_CONFIG", originalEnv)

	os.Unsetenv("STEWARD_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("STEWARD_CONFIG")
	defer os.Setenv("STEWARD_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("STEWARD_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRequestTimings verifies the analytics durations: response time is
// creation to acceptance, completion time is acceptance to completion,
// not total elapsed time.
func TestRequestTimings(t *testing.T) {
	created := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	accepted := created.Add(90 * time.Second)
	completed := accepted.Add(5 * time.Minute)

	req := &request.Request{
		CreatedAt:   created,
		AcceptedAt:  &accepted,
		CompletedAt: &completed,
	}

	response, completion := requestTimings(req)
	if response != 90 {
		t.Errorf("response = %v seconds, want 90", response)
	}
	if completion != 300 {
		t.Errorf("completion = %v seconds, want 300", completion)
	}
}
