package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/orderflow/pkg/config"
)

func TestExecutePassesThroughResults(t *testing.T) {
	b := New("payments", config.CircuitBreakerConfig{ConsecutiveFailures: 2, Timeout: time.Minute}, nil)

	got, err := Execute(b, func() (string, error) { return "tx-1", nil })
	if err != nil || got != "tx-1" {
		t.Fatalf("unexpected result %q %v", got, err)
	}

	boom := errors.New("gateway timeout")
	if _, err := Execute(b, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("production", config.CircuitBreakerConfig{ConsecutiveFailures: 2, Timeout: time.Minute}, nil)
	boom := errors.New("down")
	for i := 0; i < 2; i++ {
		_, _ = Execute(b, func() (bool, error) { return false, boom })
	}
	if b.State() != "open" {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	called := false
	_, err := Execute(b, func() (bool, error) {
		called = true
		return true, nil
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if called {
		t.Fatal("open breaker must not call through")
	}
}

func TestExecuteWithNilBreaker(t *testing.T) {
	got, err := Execute[int](nil, func() (int, error) { return 3, nil })
	if err != nil || got != 3 {
		t.Fatalf("nil breaker should call through, got %d %v", got, err)
	}
}
