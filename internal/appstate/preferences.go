package appstate

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/teamconsole/internal/store"
)

const persistTimeout = 5 * time.Second

// Load builds the initial state from persisted preferences. Missing or
// unreadable keys fall back to Initial().
func Load(ctx context.Context, storage store.Storage) State {
	s := Initial()

	if v, ok := readKey(ctx, storage, store.KeyLanguage); ok && v != "" {
		s.Language = v
	}
	if v, ok := readKey(ctx, storage, store.KeyMenuOpen); ok {
		s.MenuOpen, _ = strconv.ParseBool(v)
	}
	if v, ok := readKey(ctx, storage, store.KeyFontLoaded); ok {
		s.FontLoaded, _ = strconv.ParseBool(v)
	}
	return s
}

func readKey(ctx context.Context, storage store.Storage, key string) (string, bool) {
	v, ok, err := storage.Get(ctx, key)
	if err != nil {
		slog.Warn("Failed to read preference", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

// PersistPreferences returns a listener that writes menuOpen, language and
// fontLoaded whenever they differ from the last written values.
func PersistPreferences(storage store.Storage, initial State) Listener {
	var mu sync.Mutex
	last := initial
	return func(s State) {
		mu.Lock()
		defer mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if s.MenuOpen != last.MenuOpen {
			writeKey(ctx, storage, store.KeyMenuOpen, strconv.FormatBool(s.MenuOpen))
		}
		if s.Language != last.Language {
			writeKey(ctx, storage, store.KeyLanguage, s.Language)
		}
		if s.FontLoaded != last.FontLoaded {
			writeKey(ctx, storage, store.KeyFontLoaded, strconv.FormatBool(s.FontLoaded))
		}
		last = s
	}
}

func writeKey(ctx context.Context, storage store.Storage, key, value string) {
	if err := storage.Set(ctx, key, value); err != nil {
		slog.Warn("Failed to persist preference", "key", key, "error", err)
	}
}
