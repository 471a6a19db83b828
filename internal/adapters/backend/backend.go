// Package backend holds HTTP clients for the external speech and
// translation capabilities. Every call is bounded by the caller's
// context and guarded by a circuit breaker so a hung or failing
// provider cannot stall unrelated rooms.
package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

var ErrProviderUnavailable = errors.New("provider unavailable")

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("module", "backend").Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// drainBody reads a bounded response body for inclusion in errors.
func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, drainBody(resp.Body))
}
