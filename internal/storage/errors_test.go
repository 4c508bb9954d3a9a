package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
}

func TestMapErrorUniqueViolation(t *testing.T) {
	pqErr := &pq.Error{Code: "23505", Constraint: "words_user_id_word_key"}

	mapped := MapError(pqErr)
	assert.ErrorIs(t, mapped, ErrConflict)
	assert.Contains(t, mapped.Error(), "words_user_id_word_key")
}

func TestMapErrorWrappedUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert word: %w", &pq.Error{Code: "23505"})
	assert.ErrorIs(t, MapError(err), ErrConflict)
}

func TestMapErrorNoRows(t *testing.T) {
	assert.ErrorIs(t, MapError(sql.ErrNoRows), ErrNotFound)
}

func TestMapErrorDeadline(t *testing.T) {
	assert.ErrorIs(t, MapError(context.DeadlineExceeded), ErrConnectivity)
}

func TestMapErrorPassthrough(t *testing.T) {
	err := errors.New("something else")
	assert.Equal(t, err, MapError(err))
}

func TestMapErrorOtherPQCode(t *testing.T) {
	pqErr := &pq.Error{Code: "23503"} // foreign key violation
	assert.NotErrorIs(t, MapError(pqErr), ErrConflict)
}
