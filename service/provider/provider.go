// Package provider defines the pluggable source of approval decisions. A
// provider must always complete within its own bound; a timeout is not a
// distinct decision kind but is expressed by returning Deny directly.
package provider

import (
	"context"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
)

// Provider solicits a decision for one approval request. Implementations own
// their timeout; the broker has no separate timeout concept.
type Provider interface {
	Decide(ctx context.Context, request *action.Request) (action.Decision, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, request *action.Request) (action.Decision, error)

// Decide implements Provider.
func (f Func) Decide(ctx context.Context, request *action.Request) (action.Decision, error) {
	return f(ctx, request)
}

// AutoApprove returns a provider that approves every request; useful for
// tests and fully trusted sessions.
func AutoApprove() Provider {
	return Func(func(context.Context, *action.Request) (action.Decision, error) {
		return action.Approve, nil
	})
}

// AutoDeny returns a provider that denies every request.
func AutoDeny() Provider {
	return Func(func(context.Context, *action.Request) (action.Decision, error) {
		return action.Deny, nil
	})
}
