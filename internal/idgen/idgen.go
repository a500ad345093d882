// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Callers should treat the returned identifiers as opaque strings.
package idgen

import "github.com/google/uuid"

// NewFunc produces a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new unique identifier.
func New() string { return NewFunc() }

// Short returns the first 8 characters of a new identifier, enough to key a
// single in-process approval exchange.
func Short() string {
	id := NewFunc()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
