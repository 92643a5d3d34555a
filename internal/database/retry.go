package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/carevault/access-server-go/internal/config"
)

// Call runs a store operation under a bounded per-call timeout and retries it
// once after a short backoff when the failure is clearly a connection-level
// one. Every repository method goes through here.
func Call(ctx context.Context, fn func(ctx context.Context) error) error {
	err := attempt(ctx, fn)
	if err == nil || !retryable(ctx, err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(config.DBRetryBackoff):
	}

	return attempt(ctx, fn)
}

func attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, config.DBCallTimeout)
	defer cancel()
	return fn(callCtx)
}

// retryable is an allow-list. A statement that timed out mid-flight may have
// landed on the server, so replaying it is only safe when the failure shows
// the connection or server never took the work: bad connections, network
// errors, postgres connection/resource/shutdown classes, and
// deadlock/serialization rollbacks. Everything else, sql.ErrNoRows and
// constraint violations included, goes straight back to the caller.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	// context.DeadlineExceeded satisfies net.Error; a per-call timeout is an
	// ambiguous outcome, never a retry.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
		switch pqErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}
