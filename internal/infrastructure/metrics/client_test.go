package metrics

import (
	"errors"
	"testing"

	"github.com/hausbridge/fleet-connector/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.MetricsConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachableServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	cfg := config.MetricsConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1", // nothing listens here
		Token:   "test-token",
		Org:     "test",
		Bucket:  "test",
	}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteEntityStateWhenDisconnected(t *testing.T) {
	c := &Client{}

	// Must not panic with a nil writeAPI when disconnected.
	c.WriteEntityState("dev-1", "temperature", "state", 21.5)
	c.WriteFleetSize(3, 2)
	c.Flush()
}
