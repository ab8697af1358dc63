package earthengine

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker placed in front of the
// REST client.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// NewBreaker builds the breaker used by Client.WithBreaker. It returns nil
// when the settings disable it.
func NewBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker[[]byte] {
	if s.ConsecutiveFailures == 0 {
		return nil
	}

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful:  countsAsSuccess,
		OnStateChange: s.OnStateChange,
	})
}

// StateName renders a breaker state for logs and metrics.
func StateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
