package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/saltline/steward-core/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheckNotConnected(t *testing.T) {
	c := &Client{}

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWriteHelpersNoOpWhenDisconnected(t *testing.T) {
	// A zero-value client is disconnected; writes must not panic even
	// though no write API exists.
	c := &Client{}

	battery, signal := 50, -70
	c.WriteDeviceTelemetry("btn-01", "button", &battery, &signal)
	c.WriteRequestTiming("req-01", "call", "normal", 12.5, 90.0)
	c.WriteRequestEvent("req-01", "call", "normal", "completed")
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1})
	c.Flush()
}

func TestCloseNilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
