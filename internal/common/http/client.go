// internal/common/http/client.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("backend circuit breaker open")

var errServerStatus = errors.New("server error status")

// BreakerSettings configures the transport circuit breaker.
type BreakerSettings struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OnStateChange       func(name string, from, to string)
}

// Client is an http.Client behind a circuit breaker. Transport errors and 5xx
// responses count as failures; 4xx responses do not.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(timeout time.Duration, settings BreakerSettings) *Client {
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	name := settings.Name
	if name == "" {
		name = "backend"
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if settings.OnStateChange != nil {
				settings.OnStateChange(name, from.String(), to.String())
			}
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: cb,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})

	switch {
	case err == nil:
		return result.(*http.Response), nil
	case errors.Is(err, errServerStatus):
		return result.(*http.Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	default:
		return nil, err
	}
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

// State reports the breaker state (closed, half-open, open).
func (c *Client) State() string {
	return c.breaker.State().String()
}
