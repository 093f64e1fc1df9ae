package dbx

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the ledger cares about.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
)

// Classify maps a driver error onto the common taxonomy. The returned error
// matches both the sentinel and the original error with errors.Is/As.
// Errors that already carry a sentinel, nil, and errors it does not
// recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if sentinel := sentinelFor(err); sentinel != nil && !errors.Is(err, sentinel) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func sentinelFor(err error) error {
	// Cancellation belongs to the caller and is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return common.ErrDuplicateIdentity
		case pgErr.Code == codeForeignKeyViolation:
			return common.ErrForeignKeyViolation
		case pgErr.Code == codeSerializationFailure, pgErr.Code == codeDeadlockDetected:
			return common.ErrConflict
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCrashShutdown,
			pgErr.Code == codeCannotConnectNow:
			return common.ErrStorageUnavailable
		}
		return nil
	}

	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return common.ErrStorageUnavailable
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return common.ErrStorageUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.ErrStorageUnavailable
	}

	return nil
}

// IsRetryable reports whether err is worth another attempt with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, common.ErrConflict) || errors.Is(err, common.ErrStorageUnavailable)
}
