package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartCollector starts a background goroutine that periodically refreshes
// gauge metrics from the connection pool and the database.
func StartCollector(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	collect(ctx, pool)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collect(ctx, pool)
		}
	}
}

func collect(ctx context.Context, pool *pgxpool.Pool) {
	stats := pool.Stat()
	DatabaseConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DatabaseConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DatabaseConnections.WithLabelValues("max_open").Set(float64(stats.MaxConns()))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var users, entries int64
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&users); err == nil {
		UsersTotal.Set(float64(users))
	} else {
		slog.Debug("failed to count users for metrics", "error", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM vault_entries`).Scan(&entries); err == nil {
		EntriesTotal.Set(float64(entries))
	} else {
		slog.Debug("failed to count entries for metrics", "error", err)
	}
}
