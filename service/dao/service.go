// Package dao defines a minimal generic persistence contract used by the
// broker's in-memory stores. Keeping the contract abstract lets tests swap a
// recording implementation and leaves room for durable backends without
// touching broker code.
package dao

import (
	"context"
	"errors"
)

var (
	// ErrNilEntity is returned when a nil record is saved.
	ErrNilEntity = errors.New("entity cannot be nil")
	// ErrNotFound is returned when no record exists under the given key.
	ErrNotFound = errors.New("entity not found")
)

// Service is a generic store of *T records keyed by a comparable K.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context) ([]*T, error)
}
