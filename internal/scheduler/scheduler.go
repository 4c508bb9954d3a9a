package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

// UserSource is the slice of the user service the sweep needs.
type UserSource interface {
	UsersForNotification(ctx context.Context) ([]user.NotificationTarget, error)
	TouchNotified(ctx context.Context, userID int64, at time.Time) error
}

// WordSource selects the words due for review.
type WordSource interface {
	DueForReview(ctx context.Context, now time.Time) ([]word.DueWords, error)
}

// Scheduler periodically computes which users have words due for review and
// records that they were notified. Delivery itself belongs to the bot layer,
// which polls off these timestamps.
type Scheduler struct {
	sched  *gocron.Scheduler
	users  UserSource
	words  WordSource
	logger *slog.Logger
}

func New(users UserSource, words WordSource, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sched:  gocron.NewScheduler(time.UTC),
		users:  users,
		words:  words,
		logger: logger,
	}
}

func (s *Scheduler) Start(interval time.Duration) error {
	if _, err := s.sched.Every(interval).Do(s.sweep); err != nil {
		return err
	}
	s.sched.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.sched.Stop()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()
	due, err := s.words.DueForReview(ctx, now)
	if err != nil {
		s.logger.Error("review sweep: selecting due words", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	dueByUser := make(map[int64]int, len(due))
	for _, d := range due {
		dueByUser[d.UserID] = len(d.Words)
	}

	targets, err := s.users.UsersForNotification(ctx)
	if err != nil {
		s.logger.Error("review sweep: selecting users", "error", err)
		return
	}

	for _, t := range targets {
		count, ok := dueByUser[t.UserID]
		if !ok {
			continue
		}
		s.logger.Info("user has words due for review",
			"user_id", t.UserID, "due", count, "last_notified", t.LastNotified)
		if err := s.users.TouchNotified(ctx, t.UserID, now); err != nil {
			s.logger.Error("review sweep: touching notified", "user_id", t.UserID, "error", err)
		}
	}
}
