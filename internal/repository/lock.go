package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1)`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1)`
)

// lockConn is the subset of *pgxpool.Conn the locker needs. Advisory locks
// are session scoped, so lock and unlock must run on the same connection.
type lockConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
	// Discard closes the session so the server drops any lock it still holds.
	Discard(ctx context.Context) error
}

type poolLockConn struct {
	*pgxpool.Conn
}

// Discard closes the underlying connection. The pool destroys closed
// connections on Release instead of reusing them.
func (c poolLockConn) Discard(ctx context.Context) error {
	return c.Conn.Conn().Close(ctx)
}

type Locker struct {
	acquire func(ctx context.Context) (lockConn, error)
}

func NewLocker(pool *pgxpool.Pool) *Locker {
	if pool == nil {
		return &Locker{}
	}
	return &Locker{acquire: func(ctx context.Context) (lockConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return poolLockConn{conn}, nil
	}}
}

// TryAdvisoryLock attempts to take a postgres advisory lock and returns a
// release func when it succeeds.
func (l *Locker) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if l == nil || l.acquire == nil {
		return nil, false, ErrNotConfigured
	}

	conn, err := l.acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// A pooled session would keep the lock, so end it instead.
			_ = conn.Discard(ctxUnlock)
		}
		conn.Release()
	}
	return unlock, true, nil
}
