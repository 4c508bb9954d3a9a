package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

// UserStore is the slice of the user service the purpose handlers need.
type UserStore interface {
	UpsertUser(ctx context.Context, u user.User) error
	UpsertProfile(ctx context.Context, p user.Profile) error
	UpsertLocation(ctx context.Context, l user.Location) error
	CreatePayment(ctx context.Context, p user.Payment) error
}

// WordStore is the slice of the word service the purpose handlers need.
type WordStore interface {
	AddWord(ctx context.Context, w word.Word) (int64, error)
}

// Handlers bridges purpose tags to the persistence operations.
type Handlers struct {
	users  UserStore
	words  WordStore
	logger *slog.Logger
}

func NewHandlers(users UserStore, words WordStore, logger *slog.Logger) *Handlers {
	return &Handlers{users: users, words: words, logger: logger}
}

// RegisterAll binds every purpose tag. Exactly one handler per tag; the
// registry turns a duplicate into a startup error.
func (h *Handlers) RegisterAll(r *Registry) error {
	bindings := []struct {
		purpose Purpose
		handler Handler
	}{
		{PurposeAddUser, h.AddUser},
		{PurposeAddProfile, h.AddProfile},
		{PurposeAddLocation, h.AddLocation},
		{PurposeAddWord, h.AddWord},
		{PurposeCreatePayment, h.CreatePayment},
	}
	for _, b := range bindings {
		if err := r.Register(b.purpose, b.handler); err != nil {
			return fmt.Errorf("register handlers: %w", err)
		}
	}
	return nil
}

// AddUser upserts the account and opens the default trial payment window.
func (h *Handlers) AddUser(ctx context.Context, env Envelope) error {
	var u user.User
	if err := env.Payload("user", &u); err != nil {
		return err
	}
	if err := h.users.UpsertUser(ctx, u); err != nil {
		return err
	}
	if err := h.users.CreatePayment(ctx, user.NewTrialPayment(u.UserID)); err != nil {
		return err
	}
	h.logger.Info("new user processed", "user_id", u.UserID)
	return nil
}

func (h *Handlers) AddProfile(ctx context.Context, env Envelope) error {
	var p user.Profile
	if err := env.Payload("profile", &p); err != nil {
		return err
	}
	return h.users.UpsertProfile(ctx, p)
}

func (h *Handlers) AddLocation(ctx context.Context, env Envelope) error {
	var l user.Location
	if err := env.Payload("location", &l); err != nil {
		return err
	}
	return h.users.UpsertLocation(ctx, l)
}

func (h *Handlers) AddWord(ctx context.Context, env Envelope) error {
	var w word.Word
	if err := env.Payload("word", &w); err != nil {
		return err
	}
	_, err := h.words.AddWord(ctx, w)
	return err
}

func (h *Handlers) CreatePayment(ctx context.Context, env Envelope) error {
	var p user.Payment
	if err := env.Payload("payment", &p); err != nil {
		return err
	}
	return h.users.CreatePayment(ctx, p)
}
