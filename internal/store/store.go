package store

import (
	"context"
	"errors"
)

// Sentinel errors for local storage.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrWriteFailed = errors.New("local store write failed")
	ErrStoreClosed = errors.New("store closed")
)

// KV is the local persistent key-value collaborator shared by every
// component in the session. Implementations must serialize all writers to a
// given key; the store offers no native transactions, so interleaved
// read-modify-write sequences would otherwise lose updates.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Enumerate returns every stored key with the given prefix, sorted.
	Enumerate(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
