package word

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wordvault-go/internal/metrics"
	"wordvault-go/internal/storage"
)

var ErrWordNotFound = errors.New("word not found")

// Service implements the word persistence operations. Writes that could
// race on the same user's word set go through the per-user lock in guard;
// aggregate statistics reads are serialized by the stats lock.
type Service struct {
	pool   *storage.Pool
	guard  *storage.Guard
	logger *slog.Logger
}

func NewService(pool *storage.Pool, guard *storage.Guard, logger *slog.Logger) *Service {
	return &Service{pool: pool, guard: guard, logger: logger}
}

// AddWord inserts the word row, then the translations, context and audio
// child rows. The word insert fails with Conflict if the user already has
// this word, and with PaymentRequired if their subscription is inactive.
// Child inserts are sequential and deliberately not part of one transaction
// with the word row: a failure partway through leaves the word committed
// with some child rows missing.
func (s *Service) AddWord(ctx context.Context, w Word) (int64, error) {
	defer metrics.ObserveWrite("add_word", time.Now())
	var wordID int64
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		var active bool
		if err := conn.GetContext(ctx, &active,
			"SELECT is_active FROM users WHERE user_id = $1", w.UserID); err != nil {
			return fmt.Errorf("check subscription for user %d: %w", w.UserID, storage.MapError(err))
		}
		if !active {
			return fmt.Errorf("add word for user %d: %w", w.UserID, storage.ErrPaymentRequired)
		}

		if err := conn.GetContext(ctx, &wordID, `
			INSERT INTO words (user_id, word, is_public)
			VALUES ($1, $2, $3)
			RETURNING id`,
			w.UserID, w.Word, w.IsPublic); err != nil {
			return fmt.Errorf("insert word %q for user %d: %w", w.Word, w.UserID, storage.MapError(err))
		}

		for translation, partOfSpeech := range w.Translations {
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO translations (word_id, translation, part_of_speech)
				VALUES ($1, $2, $3)`,
				wordID, translation, partOfSpeech); err != nil {
				return fmt.Errorf("insert translation for word %d: %w", wordID, storage.MapError(err))
			}
		}

		if w.Context != nil {
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO contexts (user_id, word_id, context)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, word_id) DO UPDATE
				SET context = EXCLUDED.context`,
				w.UserID, wordID, *w.Context); err != nil {
				return fmt.Errorf("insert context for word %d: %w", wordID, storage.MapError(err))
			}
		}

		if w.AudioURL != nil {
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO audios (user_id, word_id, audio_url)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, word_id) DO UPDATE
				SET audio_url = EXCLUDED.audio_url`,
				w.UserID, wordID, *w.AudioURL); err != nil {
				return fmt.Errorf("insert audio for word %d: %w", wordID, storage.MapError(err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("word added", "user_id", w.UserID, "word", w.Word, "word_id", wordID)
	return wordID, nil
}

// DeleteWord removes a word by id. Child rows cascade.
func (s *Service) DeleteWord(ctx context.Context, userID, wordID int64) (bool, error) {
	defer metrics.ObserveWrite("delete_word", time.Now())
	var deleted bool
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx,
			"DELETE FROM words WHERE user_id = $1 AND id = $2", userID, wordID)
		if err != nil {
			return fmt.Errorf("delete word %d for user %d: %w", wordID, userID, storage.MapError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete word %d for user %d: %w", wordID, userID, err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// RenameWord replaces oldWord with newWord for one user: the old row is
// deleted and a fresh row inserted in a single transaction, serialized by
// the per-user lock so two concurrent renames cannot duplicate or lose the
// word. The new row starts over at NEW.
func (s *Service) RenameWord(ctx context.Context, userID int64, oldWord, newWord string) error {
	defer metrics.ObserveWrite("rename_word", time.Now())
	s.guard.Users.Lock(userID)
	defer s.guard.Users.Unlock(userID)

	return s.pool.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var old struct {
			ID       int64 `db:"id"`
			IsPublic bool  `db:"is_public"`
		}
		err := tx.GetContext(ctx, &old,
			"SELECT id, is_public FROM words WHERE user_id = $1 AND word = $2 FOR UPDATE",
			userID, oldWord)
		if err != nil {
			if mapped := storage.MapError(err); errors.Is(mapped, storage.ErrNotFound) {
				return fmt.Errorf("rename %q for user %d: %w", oldWord, userID, ErrWordNotFound)
			}
			return fmt.Errorf("rename %q for user %d: %w", oldWord, userID, storage.MapError(err))
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM words WHERE id = $1", old.ID); err != nil {
			return fmt.Errorf("rename %q for user %d: %w", oldWord, userID, storage.MapError(err))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO words (user_id, word, is_public)
			VALUES ($1, $2, $3)`,
			userID, newWord, old.IsPublic); err != nil {
			return fmt.Errorf("rename %q to %q for user %d: %w", oldWord, newWord, userID, storage.MapError(err))
		}
		return nil
	})
}

func (s *Service) WordExists(ctx context.Context, userID int64, word string) (bool, error) {
	var found bool
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &found,
			"SELECT EXISTS(SELECT 1 FROM words WHERE user_id = $1 AND word = $2)", userID, word)
	})
	if err != nil {
		return false, storage.MapError(err)
	}
	return found, nil
}

// QueryWords lists a user's words with nickname, context and translations,
// ordered by word text.
func (s *Service) QueryWords(ctx context.Context, userID int64) ([]Word, error) {
	var words []Word
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		if err := conn.SelectContext(ctx, &words, `
			SELECT w.id, w.user_id, p.nickname, w.word,
			       w.is_public, w.word_state, w.created_at, c.context
			FROM words w
			LEFT JOIN contexts c ON w.id = c.word_id
			LEFT JOIN profiles p ON p.user_id = w.user_id
			WHERE w.user_id = $1
			ORDER BY w.word`, userID); err != nil {
			return fmt.Errorf("query words for user %d: %w", userID, storage.MapError(err))
		}
		return s.attachTranslations(ctx, conn, words)
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}

func (s *Service) attachTranslations(ctx context.Context, conn *sqlx.Conn, words []Word) error {
	if len(words) == 0 {
		return nil
	}

	ids := make([]int64, len(words))
	byID := make(map[int64]*Word, len(words))
	for i := range words {
		ids[i] = words[i].ID
		byID[words[i].ID] = &words[i]
	}

	var rows []Translation
	if err := conn.SelectContext(ctx, &rows, `
		SELECT word_id, translation, part_of_speech
		FROM translations
		WHERE word_id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load translations: %w", storage.MapError(err))
	}

	for _, t := range rows {
		w := byID[t.WordID]
		if w.Translations == nil {
			w.Translations = make(map[string]string)
		}
		w.Translations[t.Translation] = t.PartOfSpeech
	}
	return nil
}

// SearchPublic lists all users' public entries for one word text. Only
// entries whose owner has a nickname are visible.
func (s *Service) SearchPublic(ctx context.Context, word string) ([]PublicWord, error) {
	var hits []PublicWord
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &hits, `
			SELECT p.nickname, w.user_id, w.word, w.created_at
			FROM words w
			JOIN profiles p ON w.user_id = p.user_id
			WHERE w.word = $1 AND w.is_public = TRUE`, word)
	})
	if err != nil {
		return nil, fmt.Errorf("search public word %q: %w", word, storage.MapError(err))
	}
	return hits, nil
}

// Lowercasing, not case folding: the match in MarkRepeated runs against
// LOWER(word) in SQL, and folding diverges from lowercasing for words like
// "Straße".
var lower = cases.Lower(language.Und)

// normalizeWords splits a message into distinct lowercased words, keeping
// first-seen order.
func normalizeWords(message string) []string {
	seen := make(map[string]struct{})
	var normalized []string
	for _, w := range strings.Fields(message) {
		lowered := lower.String(w)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		normalized = append(normalized, lowered)
	}
	return normalized
}

// MarkRepeated promotes every NEW word of the named user that appears in
// message to REPEATED, in one statement. Matching is case-insensitive.
func (s *Service) MarkRepeated(ctx context.Context, nickname, message string) (bool, error) {
	defer metrics.ObserveWrite("mark_repeated", time.Now())
	normalized := normalizeWords(message)
	if len(normalized) == 0 {
		return false, nil
	}

	var updated bool
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE words
			SET word_state = $3
			WHERE user_id = (
			    SELECT p.user_id FROM profiles p WHERE p.nickname = $1 LIMIT 1
			)
			AND word_state = $4
			AND LOWER(word) = ANY($2)`,
			nickname, pq.Array(normalized), StateRepeated, StateNew)
		if err != nil {
			return fmt.Errorf("mark repeated for %q: %w", nickname, storage.MapError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		updated = n > 0
		return nil
	})
	return updated, err
}

// ReviewOutcome applies one review result to a word, moving it one rung up
// or down the ladder in a single conditional update keyed on (user_id, word).
// The SQL mirrors Next.
func (s *Service) ReviewOutcome(ctx context.Context, userID int64, word string, correct bool) error {
	defer metrics.ObserveWrite("review_outcome", time.Now())
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			UPDATE words
			SET word_state = CASE
			    WHEN $3 = TRUE THEN
			        CASE word_state
			            WHEN 'NEW' THEN 'REPEATED'
			            WHEN 'REPEATED' THEN 'REINFORCED'
			            WHEN 'REINFORCED' THEN 'LEARNED'
			            ELSE word_state
			        END
			    ELSE
			        CASE word_state
			            WHEN 'REPEATED' THEN 'NEW'
			            WHEN 'REINFORCED' THEN 'REPEATED'
			            WHEN 'LEARNED' THEN 'REINFORCED'
			            ELSE word_state
			        END
			END
			WHERE user_id = $1 AND word = $2`,
			userID, word, correct)
		if err != nil {
			return fmt.Errorf("review outcome for user %d word %q: %w", userID, word, storage.MapError(err))
		}
		return nil
	})
}

// DueForReview returns, per user, the distinct words whose age has crossed
// their state's threshold. LEARNED words are permanently excluded.
func (s *Service) DueForReview(ctx context.Context, now time.Time) ([]DueWords, error) {
	var due []DueWords
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &due, `
			SELECT user_id, ARRAY_AGG(DISTINCT word) AS words
			FROM words
			WHERE word_state != 'LEARNED'
			  AND word IS NOT NULL
			  AND $1 - created_at >= CASE word_state
			      WHEN 'NEW' THEN INTERVAL '1 days'
			      WHEN 'REPEATED' THEN INTERVAL '5 days'
			      WHEN 'REINFORCED' THEN INTERVAL '14 days'
			  END
			GROUP BY user_id`, now)
	})
	if err != nil {
		return nil, fmt.Errorf("due for review: %w", storage.MapError(err))
	}
	return due, nil
}

// UserStats computes per-part-of-speech counts for one user under the
// aggregate statistics lock, so concurrent scans do not interleave.
func (s *Service) UserStats(ctx context.Context, userID int64) (*Stats, error) {
	s.guard.Stats.Lock()
	defer s.guard.Stats.Unlock()

	stats := &Stats{}
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, stats, `
			SELECT
			    COUNT(*) FILTER (WHERE t.part_of_speech = 'noun')      AS nouns,
			    COUNT(*) FILTER (WHERE t.part_of_speech = 'verb')      AS verbs,
			    COUNT(*) FILTER (WHERE t.part_of_speech = 'adjective') AS adjectives,
			    COUNT(*) FILTER (WHERE t.part_of_speech = 'adverb')    AS adverbs,
			    COUNT(*) FILTER (WHERE t.part_of_speech NOT IN
			        ('noun', 'verb', 'adjective', 'adverb'))           AS others
			FROM words w
			JOIN translations t ON t.word_id = w.id
			WHERE w.user_id = $1`, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("stats for user %d: %w", userID, storage.MapError(err))
	}
	stats.fillTotal()
	return stats, nil
}

// WordsLastWeek counts words created in the last seven days.
func (s *Service) WordsLastWeek(ctx context.Context, userID int64) (int, error) {
	s.guard.Stats.Lock()
	defer s.guard.Stats.Unlock()

	var count int
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM words WHERE user_id = $1 AND created_at >= $2",
			userID, time.Now().AddDate(0, 0, -7))
	})
	if err != nil {
		return 0, fmt.Errorf("weekly stats for user %d: %w", userID, storage.MapError(err))
	}
	return count, nil
}
