package api

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called for every conversation the sweeper closes.
type CleanupCallback func(conversationID string)

// StartSweeper runs the server's periodic housekeeping: idle conversations are
// closed along with their sockets, and stale rate limit entries and CSRF
// tokens are dropped.
// A zero ttl leaves conversations alone.
func (s *Server) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	startSweeper(ctx, s.Repo, interval, ttl, s.Sessions.CloseConversation, func() {
		s.LoginLimiter.Evict()
		s.CSRF.Evict()
	})
}

func startSweeper(ctx context.Context, repo *MemoryRepository, interval, ttl time.Duration, onCleanup CleanupCallback, evict func()) {
	if interval <= 0 {
		slog.Warn("Sweeper disabled, interval must be positive", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if ttl > 0 {
					sweepConversations(repo, ttl, onCleanup)
				}
				if evict != nil {
					evict()
				}
			case <-ctx.Done():
				slog.Info("Sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepConversations(repo *MemoryRepository, ttl time.Duration, onCleanup CleanupCallback) int {
	expired := repo.CloseExpiredConversations(ttl)
	if len(expired) == 0 {
		return 0
	}

	for _, id := range expired {
		slog.Info("Closing idle conversation", "conversation_id", id)
		if onCleanup != nil {
			onCleanup(id)
		}
	}
	slog.Info("Conversation sweep completed", "closed", len(expired))
	return len(expired)
}
