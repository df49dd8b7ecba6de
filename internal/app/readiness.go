package app

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BuildReadinessChecks turns the named pingers into readiness checks, skipping nil entries
// so optional dependencies that are not configured do not fail readiness.
func BuildReadinessChecks(deps map[string]Pinger, order ...string) []httpserver.ReadinessCheck {
	checks := make([]httpserver.ReadinessCheck, 0, len(order))
	for _, name := range order {
		p, ok := deps[name]
		if !ok || p == nil {
			continue
		}
		checks = append(checks, httpserver.ReadinessCheck{
			Name: name,
			Check: func(ctx context.Context) error {
				if err := p.Ping(ctx); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				return nil
			},
		})
	}
	return checks
}
