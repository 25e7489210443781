package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres NOTIFY channel the schema triggers fire
// on every insert/update/delete. The payload is the table name.
const NotifyChannel = "submissions_changed"

// Listener is a background task that turns Postgres change notifications
// into cache invalidations, so reads served from the cache go stale for
// at most one notification round-trip after an out-of-band write.
type Listener struct {
	pool  *pgxpool.Pool
	cache *Cache

	// RetryDelay is the wait before re-acquiring a connection after a
	// listen error.
	RetryDelay time.Duration
}

// NewListener creates a listener bound to a pool and a cache.
func NewListener(pool *pgxpool.Pool, cache *Cache) *Listener {
	return &Listener{
		pool:       pool,
		cache:      cache,
		RetryDelay: 5 * time.Second,
	}
}

// Run blocks listening for notifications until ctx is cancelled.
// Intended to be started as a goroutine from the composition root.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("realtime listener disconnected", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.RetryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}
	slog.Info("realtime listener subscribed", "channel", NotifyChannel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		table := notification.Payload
		slog.Debug("change notification", "table", table)
		if ValidTable(table) {
			l.cache.InvalidateTable(table)
		} else {
			// Unknown payload: drop the whole cache rather than guess.
			l.cache.InvalidateMatching(func(string) bool { return true })
		}
	}
}
