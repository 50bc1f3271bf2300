package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/route"
)

// Synchronizer guarantees a backend thread record exists for a relay
// target. Idempotent but not atomic: two concurrent ensures for the same
// new thread may both observe "not found" and both issue a create; the
// backend deduplicates on the channel-identifier key. The contract here is
// at most one create per event that observed not-found, not one per thread
// globally.
type Synchronizer struct {
	backend Backend
	logger  *slog.Logger
}

func NewSynchronizer(log *slog.Logger, be Backend) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		backend: be,
		logger:  log.With(slog.String("component", "thread_sync")),
	}
}

// Ensure looks the target's thread up and creates it when absent. A lookup
// failure is treated as "already synchronized": the bias is toward
// under-creating rather than duplicate-creating, so only the create call
// itself can return an error.
func (s *Synchronizer) Ensure(ctx context.Context, target route.Target, meta backend.ThreadMeta) error {
	exists, err := s.backend.ThreadExists(ctx, target.ThreadID)
	if err != nil {
		s.logger.Warn("thread existence check failed, assuming synchronized",
			slog.String("thread_id", target.ThreadID),
			slog.Any("error", err),
		)
		return nil
	}
	if exists {
		return nil
	}
	if err := s.backend.CreateThread(ctx, target.ThreadID, target.ForumID, meta); err != nil {
		return fmt.Errorf("ensure thread %s: %w", target.ThreadID, err)
	}
	return nil
}
