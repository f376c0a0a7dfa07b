package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Locker built on session-level advisory locks. Only the
// holder pins a pooled connection, because advisory locks belong to the
// session that took them. Waiters poll with pg_try_advisory_lock and hand
// their connection back between attempts, so the holder can always get a
// second connection for its own queries as long as the pool has two.
type Postgres struct {
	pool          *pgxpool.Pool
	retryInterval time.Duration
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, retryInterval: 25 * time.Millisecond}
}

func (p *Postgres) Lock(ctx context.Context, key string) (func(), error) {
	for {
		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection: %w", err)
		}

		var ok bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil {
			// The session state is unknown; do not hand it back to the pool.
			conn.Conn().Close(context.Background())
			conn.Release()
			return nil, fmt.Errorf("advisory lock %s: %w", key, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()

				if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
					slog.Error("advisory unlock", "key", key, "error", err)
					conn.Conn().Close(context.Background())
				}
				conn.Release()
			}, nil
		}
		conn.Release()

		timer := time.NewTimer(p.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
