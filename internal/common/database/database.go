// Package database opens the connections behind the persistent memory
// backends.
package database

import (
	"context"
	"time"
)

const pingTimeout = 5 * time.Second

// Backend is a live connection the readiness probe can check.
type Backend interface {
	Kind() string
	Ping(ctx context.Context) error
	Close() error
}

// None stands in for the in-process store, which has nothing to connect to.
type None struct{}

func (None) Kind() string { return "volatile" }
func (None) Ping(ctx context.Context) error { return nil }
func (None) Close() error { return nil }
