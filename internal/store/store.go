// Package store provides durable client-side storage for session and preference keys.
package store

import (
	"context"
)

// Documented storage keys. Each is read and written independently.
const (
	KeyAuthToken  = "authToken"
	KeyUserEmail  = "userEmail"
	KeyMenuOpen   = "menuOpen"
	KeyLanguage   = "language"
	KeyFontLoaded = "fontLoaded"
)

// Storage defines the interface for persisting client state by key.
type Storage interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set creates or replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
