package errors

// Driver-specific helpers mapping mysql/postgres/mssql errors to project ErrorCodes.
// The replication loop uses IsTransient to decide whether a change stays
// unprocessed for retry; everything else maps through DBErrorCode.

import (
	"context"
	stderrs "errors"
	"io"
	"net"
	"syscall"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// SQLSTATE codes shared by postgres and (mostly) mysql
const (
	sqlstateUniqueViolation      = "23505"
	sqlstateForeignKeyViolation  = "23503"
	sqlstateNotNullViolation     = "23502"
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateCannotConnectNow     = "57P03"
)

// MySQL/MSSQL vendor error numbers
const (
	myErrDuplicateEntry  = 1062
	myErrLockDeadlock    = 1213
	myErrLockWaitTimeout = 1205

	msErrDuplicateKey = 2627
	msErrUniqueIndex  = 2601
	msErrDeadlock     = 1205
)

// DBErrorCode maps any driver error to an ErrorCode with an ok flag
// !ok means err wasn't a recognized driver error; caller may fall back to generic handling
func DBErrorCode(err error) (ErrorCode, bool) {
	root := Root(err)

	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case sqlstateUniqueViolation:
			return ErrorCodeDuplicateKey, true
		case sqlstateForeignKeyViolation, sqlstateNotNullViolation:
			return ErrorCodeValidation, true
		case sqlstateSerializationFailure, sqlstateDeadlockDetected, sqlstateCannotConnectNow:
			return ErrorCodeUnavailable, true
		}
		return ErrorCodeDB, true
	}

	var myErr *gomysql.MySQLError
	if stderrs.As(root, &myErr) {
		switch myErr.Number {
		case myErrDuplicateEntry:
			return ErrorCodeDuplicateKey, true
		case myErrLockDeadlock, myErrLockWaitTimeout:
			return ErrorCodeUnavailable, true
		}
		return ErrorCodeDB, true
	}

	var msErr mssql.Error
	if stderrs.As(root, &msErr) {
		switch msErr.Number {
		case msErrDuplicateKey, msErrUniqueIndex:
			return ErrorCodeDuplicateKey, true
		case msErrDeadlock:
			return ErrorCodeUnavailable, true
		}
		return ErrorCodeDB, true
	}

	return ErrorCodeUnknown, false
}

// IsDuplicateKey reports whether the error is a unique constraint violation on any backend
func IsDuplicateKey(err error) bool {
	c, ok := DBErrorCode(err)
	return ok && c == ErrorCodeDuplicateKey
}

// IsTransient reports whether the error is worth retrying on a later sweep:
// connection-level failures, deadlocks, or serialization faults
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if c, ok := DBErrorCode(err); ok && c == ErrorCodeUnavailable {
		return true
	}
	root := Root(err)
	if stderrs.Is(root, io.EOF) || stderrs.Is(root, syscall.ECONNREFUSED) || stderrs.Is(root, syscall.ECONNRESET) {
		return true
	}
	if stderrs.Is(root, context.DeadlineExceeded) {
		return true
	}
	if stderrs.Is(root, gomysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return stderrs.As(root, &netErr)
}

// WrapDB wraps a raw driver error with its mapped code (DB when unrecognized)
func WrapDB(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}
