// Package store holds the persistent key/value slots the list is
// written to. A slot stores one opaque blob per key and overwrites it
// on every Set.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing was ever stored under key.
var ErrNotFound = errors.New("store: key not found")

// Slot is a persistent key/value location.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
