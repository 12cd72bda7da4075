// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ErrUnavailable marks a failure of the backing store that a caller may
// retry later. Match it with errors.Is.
var ErrUnavailable = errors.New("store unavailable")

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsTransient reports whether err is worth retrying: the connection dropped
// before the statement was sent, the server is shedding load or restarting,
// or a serialization conflict aborted the transaction.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsTransactionRollback(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}
	return false
}

// Unavailable wraps err so that errors.Is(result, ErrUnavailable) holds.
func Unavailable(operation string, err error) error {
	return oops.Code("STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrUnavailable, err))
}

// Retrier reruns store calls that fail transiently.
type Retrier struct {
	attempts uint64
	base     time.Duration
}

// NewRetrier returns a Retrier making at most attempts calls. Values below
// one are treated as one.
func NewRetrier(attempts int, base time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	return &Retrier{attempts: uint64(attempts), base: base}
}

// Do calls fn until it succeeds, fails permanently, or the attempts run
// out. The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(r.attempts-1, retry.NewExponential(r.base))
	//nolint:wrapcheck // callers classify the error
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// DoInsert is Do for an insert keyed by a caller-chosen primary key. A
// transient failure can arrive after the server committed the row, so a
// unique violation on a later attempt means an earlier one landed and is
// reported as success.
func (r *Retrier) DoInsert(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	return r.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if attempt > 1 && IsUniqueViolation(err) {
			return nil
		}
		return err
	})
}
