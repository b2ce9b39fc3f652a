package heapd

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/heapd/wire"
)

// CircuitBreaker guards the requests sent to one server.
// *gobreaker.CircuitBreaker[*wire.Response] satisfies it.
type CircuitBreaker interface {
	Execute(req func() (*wire.Response, error)) (*wire.Response, error)
	State() gobreaker.State
}

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker function
// building gobreaker breakers. A breaker opens after at least 3 requests
// with a failure ratio of 60% or more.
//
// Only errors that break the connection count as failures. ERR replies and
// rejected tokens do not. Neither does a context that ends before the request
// is sent.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return !wire.ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[*wire.Response](settings)
	}
}
