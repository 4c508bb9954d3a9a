package word

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordvault-go/internal/storage"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := storage.NewPoolWithDB(sqlx.NewDb(db, "sqlmock"), time.Second, logger)
	return NewService(pool, storage.NewGuard(), logger), mock
}

func TestNormalizeWords(t *testing.T) {
	got := normalizeWords("The quick Fox jumps over THE lazy fox")
	assert.Equal(t, []string{"the", "quick", "fox", "jumps", "over", "lazy"}, got)
}

func TestNormalizeWordsLowercasesWithoutFolding(t *testing.T) {
	// LOWER() in SQL keeps ß, so the Go side must not fold it to "ss".
	assert.Equal(t, []string{"straße"}, normalizeWords("Straße"))
	assert.Equal(t, []string{"straße", "strasse"}, normalizeWords("Straße STRASSE"))
}

func TestNormalizeWordsEmpty(t *testing.T) {
	assert.Empty(t, normalizeWords(""))
	assert.Empty(t, normalizeWords("   \t\n"))
}

func TestStatsFillTotal(t *testing.T) {
	s := Stats{Nouns: 3, Verbs: 2, Adjectives: 1, Adverbs: 0, Others: 4}
	s.fillTotal()
	assert.Equal(t, 10, s.Total)
}

func TestStatsZeroCategories(t *testing.T) {
	s := Stats{}
	s.fillTotal()
	assert.Equal(t, 0, s.Total)
}

func TestAddWordInactiveSubscription(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT is_active FROM users`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

	_, err := svc.AddWord(context.Background(), Word{UserID: 42, Word: "serendipity"})
	assert.ErrorIs(t, err, storage.ErrPaymentRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWordDuplicateConflict(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT is_active FROM users`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO words`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "words_user_id_word_key"})

	_, err := svc.AddWord(context.Background(), Word{UserID: 42, Word: "serendipity"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestAddWordInsertsChildren(t *testing.T) {
	svc, mock := newMockService(t)

	ctxText := "found by happy accident"
	audio := "https://cdn.example.com/serendipity.ogg"
	w := Word{
		UserID:       42,
		Word:         "serendipity",
		Translations: map[string]string{"счастливая случайность": "noun"},
		Context:      &ctxText,
		AudioURL:     &audio,
	}

	mock.ExpectQuery(`SELECT is_active FROM users`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO words`).
		WithArgs(int64(42), "serendipity", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO translations`).
		WithArgs(int64(7), "счастливая случайность", "noun").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO contexts`).
		WithArgs(int64(42), int64(7), ctxText).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audios`).
		WithArgs(int64(42), int64(7), audio).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := svc.AddWord(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameWordMissing(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, is_public FROM words .+ FOR UPDATE`).
		WithArgs(int64(42), "serendipty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_public"}))
	mock.ExpectRollback()

	err := svc.RenameWord(context.Background(), 42, "serendipty", "serendipity")
	assert.ErrorIs(t, err, ErrWordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameWordReplacesRow(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, is_public FROM words .+ FOR UPDATE`).
		WithArgs(int64(42), "serendipty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_public"}).AddRow(int64(7), true))
	mock.ExpectExec(`DELETE FROM words WHERE id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO words`).
		WithArgs(int64(42), "serendipity", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.RenameWord(context.Background(), 42, "serendipty", "serendipity"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
