package tor

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests EmbeddedTor constructor.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("creates with default timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultStartupTimeout, embedded.startupTimeout)
		}
		if embedded.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		embedded := NewEmbeddedTor(WithStartupTimeout(5*time.Minute), WithLogger(logger))
		if embedded.startupTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", embedded.startupTimeout)
		}
		if embedded.logger != logger {
			t.Error("expected custom logger")
		}
	})

	t.Run("ignores non-positive timeout and nil logger", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(WithStartupTimeout(0), WithLogger(nil))
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout, got %v", embedded.startupTimeout)
		}
		if embedded.logger == nil {
			t.Error("expected default logger")
		}
	})
}

// TestEmbeddedTorMethods tests EmbeddedTor methods without starting Tor.
func TestEmbeddedTorMethods(t *testing.T) {
	t.Parallel()

	t.Run("addresses are empty before start", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.SocksAddr() != "" || embedded.ControlAddr() != "" {
			t.Error("expected empty addresses before start")
		}
		if embedded.IsRunning() {
			t.Error("expected IsRunning to be false before start")
		}
	})

	t.Run("Stop is safe to call on unstarted instance", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if err := embedded.Stop(); err != nil {
			t.Errorf("expected no error stopping unstarted instance, got %v", err)
		}
		if err := embedded.Stop(); err != nil {
			t.Errorf("expected no error on second stop, got %v", err)
		}
	})

	t.Run("NewClient fails when not running", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		_, err := embedded.NewClient(WithTimeout(30 * time.Second))
		if !errors.Is(err, ErrNotRunning) {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
	})
}
