package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Error taxonomy shared by every persistence operation. Callers match with
// errors.Is; the HTTP surface maps these onto status codes and the message
// consumer logs them before acknowledging.
var (
	ErrConnectivity    = errors.New("store unreachable or pool exhausted")
	ErrConflict        = errors.New("already exists")
	ErrPaymentRequired = errors.New("subscription inactive")
	ErrNotFound        = errors.New("not found")
)

const uniqueViolation = "23505"

// MapError translates driver-level failures into the shared taxonomy.
// Anything it does not recognize passes through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	return err
}
