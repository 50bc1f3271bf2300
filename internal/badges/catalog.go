// Package badges maintains the cached catalog of grantable site badges
// used for slash-command autocomplete.
package badges

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/neststoplabs/mbtbridge/internal/backend"
)

// Lister fetches the badge catalog from the site API.
type Lister interface {
	ListBadges(ctx context.Context) ([]backend.Badge, error)
}

// Catalog holds badge names for autocomplete, refreshed on a cron schedule.
// Reads and the scheduled refresh run concurrently; the name slice is
// replaced atomically under the lock.
type Catalog struct {
	logger   *slog.Logger
	lister   Lister
	cronSpec string

	mu    sync.RWMutex
	names []string

	cron *cron.Cron
}

func NewCatalog(log *slog.Logger, lister Lister, cronSpec string) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		logger:   log.With(slog.String("component", "badge_catalog")),
		lister:   lister,
		cronSpec: cronSpec,
	}
}

// Start performs an initial refresh and schedules periodic ones. A failed
// initial fetch is logged, not fatal; autocomplete retries lazily.
func (c *Catalog) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial badge refresh failed", slog.Any("error", err))
	}
	if c.cronSpec == "" {
		return nil
	}
	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.cronSpec, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Refresh(refreshCtx); err != nil {
			c.logger.Warn("scheduled badge refresh failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the refresh schedule.
func (c *Catalog) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// Refresh replaces the cached names with the current catalog.
func (c *Catalog) Refresh(ctx context.Context) error {
	badges, err := c.lister.ListBadges(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		if b.BadgeName != "" {
			names = append(names, b.BadgeName)
		}
	}
	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	c.logger.Info("badge catalog refreshed", slog.Int("count", len(names)))
	return nil
}

// Choices returns badge names containing the query, case-insensitively,
// capped at limit. An empty cache triggers a lazy refresh first.
func (c *Catalog) Choices(ctx context.Context, query string, limit int) []string {
	c.mu.RLock()
	empty := len(c.names) == 0
	c.mu.RUnlock()
	if empty {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("lazy badge refresh failed", slog.Any("error", err))
		}
	}

	query = strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	matches := make([]string, 0, limit)
	for _, name := range c.names {
		if query != "" && !strings.Contains(strings.ToLower(name), query) {
			continue
		}
		matches = append(matches, name)
		if len(matches) >= limit {
			break
		}
	}
	return matches
}
