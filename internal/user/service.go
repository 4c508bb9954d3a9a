package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"wordvault-go/internal/metrics"
	"wordvault-go/internal/storage"
)

// Service implements the user-facing persistence operations: idempotent
// upserts keyed on user_id plus point reads. Every write inserts the natural
// key and overwrites application-owned columns on conflict.
type Service struct {
	pool   *storage.Pool
	logger *slog.Logger
}

func NewService(pool *storage.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

func (s *Service) UpsertUser(ctx context.Context, u User) error {
	defer metrics.ObserveWrite("upsert_user", time.Now())
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO users (user_id, username, first_name, camefrom, language, fluency, topics, lang_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO UPDATE
			SET username   = EXCLUDED.username,
			    first_name = EXCLUDED.first_name,
			    camefrom   = EXCLUDED.camefrom,
			    language   = EXCLUDED.language,
			    fluency    = EXCLUDED.fluency,
			    topics     = EXCLUDED.topics,
			    lang_code  = EXCLUDED.lang_code`,
			u.UserID, u.Username, u.FirstName, u.CameFrom, u.Language, u.Fluency, u.Topics, u.LangCode,
		)
		if err != nil {
			return fmt.Errorf("upsert user %d: %w", u.UserID, storage.MapError(err))
		}
		s.logger.Info("user created/updated", "user_id", u.UserID)
		return nil
	})
}

func (s *Service) UpsertProfile(ctx context.Context, p Profile) error {
	defer metrics.ObserveWrite("upsert_profile", time.Now())
	if p.Status == "" {
		p.Status = DefaultStatus
	}
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO profiles (user_id, nickname, email, birthday, dating, gender, intro, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO UPDATE
			SET nickname = EXCLUDED.nickname,
			    email    = EXCLUDED.email,
			    birthday = EXCLUDED.birthday,
			    dating   = EXCLUDED.dating,
			    gender   = EXCLUDED.gender,
			    intro    = EXCLUDED.intro,
			    status   = EXCLUDED.status`,
			p.UserID, p.Nickname, p.Email, p.Birthday, p.Dating, p.Gender, p.Intro, p.Status,
		)
		if err != nil {
			return fmt.Errorf("upsert profile %d: %w", p.UserID, storage.MapError(err))
		}
		s.logger.Debug("profile saved", "user_id", p.UserID, "nickname", p.Nickname)
		return nil
	})
}

func (s *Service) UpsertLocation(ctx context.Context, l Location) error {
	defer metrics.ObserveWrite("upsert_location", time.Now())
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO locations (user_id, latitude, longitude, city, country, timezone)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE
			SET latitude  = EXCLUDED.latitude,
			    longitude = EXCLUDED.longitude,
			    city      = EXCLUDED.city,
			    country   = EXCLUDED.country,
			    timezone  = EXCLUDED.timezone`,
			l.UserID, l.Latitude, l.Longitude, l.City, l.Country, l.Timezone,
		)
		if err != nil {
			return fmt.Errorf("upsert location %d: %w", l.UserID, storage.MapError(err))
		}
		s.logger.Info("location saved", "user_id", l.UserID)
		return nil
	})
}

func (s *Service) CreatePayment(ctx context.Context, p Payment) error {
	defer metrics.ObserveWrite("create_payment", time.Now())
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO payments (id, user_id, amount, period, trial, is_active, until, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.UserID, p.Amount, p.Period, p.Trial, p.IsActive, p.Until, p.Currency,
		)
		if err != nil {
			return fmt.Errorf("create payment for user %d: %w", p.UserID, storage.MapError(err))
		}
		s.logger.Info("payment created", "user_id", p.UserID, "period", p.Period)
		return nil
	})
}

func (s *Service) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &found, query, arg)
	})
	if err != nil {
		return false, storage.MapError(err)
	}
	return found, nil
}

func (s *Service) UserExists(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)", userID)
}

func (s *Service) ProfileExists(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM profiles WHERE user_id = $1)", userID)
}

func (s *Service) LocationExists(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM locations WHERE user_id = $1)", userID)
}

func (s *Service) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM profiles WHERE nickname = $1)", nickname)
}

// GetUser returns the base account row, or nil when absent.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	u := &User{}
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, u, "SELECT * FROM users WHERE user_id = $1", userID)
	})
	if err != nil {
		if mapped := storage.MapError(err); errors.Is(mapped, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, storage.MapError(err))
	}
	return u, nil
}

// GetProfile returns the profile row, or nil when absent.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	p := &Profile{}
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, p, "SELECT * FROM profiles WHERE user_id = $1", userID)
	})
	if err != nil {
		if mapped := storage.MapError(err); errors.Is(mapped, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile %d: %w", userID, storage.MapError(err))
	}
	return p, nil
}

// GetInfo returns the user joined with their profile, or nil when the user
// is absent.
func (s *Service) GetInfo(ctx context.Context, userID int64) (*Info, error) {
	info := &Info{}
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, info, `
			SELECT u.*,
			       p.nickname, p.email, p.birthday,
			       p.dating, p.gender, p.intro, p.status
			FROM users u
			LEFT JOIN profiles p ON u.user_id = p.user_id
			WHERE u.user_id = $1`, userID)
	})
	if err != nil {
		if mapped := storage.MapError(err); errors.Is(mapped, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user info %d: %w", userID, storage.MapError(err))
	}
	return info, nil
}

// GetLocation returns the city/country pair, or nil when absent.
func (s *Service) GetLocation(ctx context.Context, userID int64) (*Location, error) {
	l := &Location{}
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.GetContext(ctx, l, "SELECT * FROM locations WHERE user_id = $1", userID)
	})
	if err != nil {
		if mapped := storage.MapError(err); errors.Is(mapped, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location %d: %w", userID, storage.MapError(err))
	}
	return l, nil
}

func (s *Service) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT COALESCE((SELECT blocked FROM users WHERE user_id = $1), FALSE)", userID)
}

// MarkBlocked flags a user who can no longer be reached; blocked users stop
// receiving writes that require an active subscription.
func (s *Service) MarkBlocked(ctx context.Context, userID int64) error {
	defer metrics.ObserveWrite("mark_blocked", time.Now())
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx,
			"UPDATE users SET is_active = FALSE, blocked = TRUE WHERE user_id = $1", userID)
		if err != nil {
			return fmt.Errorf("mark user %d blocked: %w", userID, storage.MapError(err))
		}
		s.logger.Info("user marked as blocked", "user_id", userID)
		return nil
	})
}

// UsersForNotification lists non-blocked users with their last notification
// timestamps.
func (s *Service) UsersForNotification(ctx context.Context) ([]NotificationTarget, error) {
	var targets []NotificationTarget
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &targets,
			"SELECT DISTINCT user_id, last_notified FROM users WHERE blocked = FALSE")
	})
	if err != nil {
		return nil, fmt.Errorf("users for notification: %w", storage.MapError(err))
	}
	return targets, nil
}

func (s *Service) TouchNotified(ctx context.Context, userID int64, at time.Time) error {
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx,
			"UPDATE users SET last_notified = $1 WHERE user_id = $2", at, userID)
		if err != nil {
			return fmt.Errorf("touch notified %d: %w", userID, storage.MapError(err))
		}
		return nil
	})
}
