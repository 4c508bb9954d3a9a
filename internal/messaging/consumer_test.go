package messaging

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wordvault-go/internal/storage"
	"wordvault-go/internal/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func delivery(acker *fakeAcker, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  1,
		Body:         []byte(body),
	}
}

func TestHandleSuccessAcks(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	registry := NewRegistry()
	require.NoError(t, handlers.RegisterAll(registry))

	users.On("UpsertUser", mock.Anything, mock.AnythingOfType("user.User")).Return(nil)
	users.On("CreatePayment", mock.Anything, mock.AnythingOfType("user.Payment")).Return(nil)

	acker := &fakeAcker{}
	consumer := NewConsumer(registry, testLogger())
	consumer.Handle(context.Background(), delivery(acker,
		`{"purpose":"ADD_USER","user":"{\"user_id\":1,\"username\":\"a\",\"first_name\":\"A\",\"camefrom\":\"ads\",\"language\":\"en\",\"fluency\":3,\"topics\":[\"travel\"],\"lang_code\":\"en\"}"}`))

	assert.Equal(t, 1, acker.acked)
	assert.Equal(t, 0, acker.nacked)
	users.AssertExpectations(t)
}

func TestHandleUnknownPurposeIsInert(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	registry := NewRegistry()
	require.NoError(t, handlers.RegisterAll(registry))

	acker := &fakeAcker{}
	consumer := NewConsumer(registry, testLogger())
	consumer.Handle(context.Background(), delivery(acker,
		`{"purpose":"NOT_A_REAL_PURPOSE","user":"{}"}`))

	// Acked, and no store call was made.
	assert.Equal(t, 1, acker.acked)
	users.AssertNotCalled(t, "UpsertUser", mock.Anything, mock.Anything)
	words.AssertNotCalled(t, "AddWord", mock.Anything, mock.Anything)
}

func TestHandleMalformedBodyStillAcks(t *testing.T) {
	registry := NewRegistry()
	acker := &fakeAcker{}
	consumer := NewConsumer(registry, testLogger())

	consumer.Handle(context.Background(), delivery(acker, `garbage`))

	assert.Equal(t, 1, acker.acked)
}

func TestHandleFailingHandlerStillAcks(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	registry := NewRegistry()
	require.NoError(t, handlers.RegisterAll(registry))

	words.On("AddWord", mock.Anything, mock.AnythingOfType("word.Word")).
		Return(int64(0), storage.ErrPaymentRequired)

	acker := &fakeAcker{}
	consumer := NewConsumer(registry, testLogger())
	consumer.Handle(context.Background(), delivery(acker,
		`{"purpose":"ADD_WORD","word":"{\"user_id\":9,\"word\":\"fox\"}"}`))

	assert.Equal(t, 1, acker.acked, "broker must never be asked to redeliver")
	assert.Equal(t, 0, acker.nacked)
	words.AssertExpectations(t)
}

func TestRunStopsOnClosedStream(t *testing.T) {
	registry := NewRegistry()
	consumer := NewConsumer(registry, testLogger())

	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	err := consumer.Run(context.Background(), deliveries)
	assert.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	registry := NewRegistry()
	consumer := NewConsumer(registry, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consumer.Run(ctx, make(chan amqp.Delivery))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddUserHandlerCreatesTrialPayment(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	users.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u user.User) bool {
		return u.UserID == 1 && u.Username == "a"
	})).Return(nil)
	users.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p user.Payment) bool {
		return p.UserID == 1 &&
			p.Period == "trial" &&
			p.Amount == 199.00 &&
			p.Currency == "RUB" &&
			p.Trial && p.IsActive
	})).Return(nil)

	env, err := DecodeEnvelope([]byte(
		`{"purpose":"ADD_USER","user":"{\"user_id\":1,\"username\":\"a\",\"first_name\":\"A\",\"camefrom\":\"ads\",\"language\":\"en\",\"fluency\":3,\"topics\":[\"travel\"],\"lang_code\":\"en\"}"}`))
	require.NoError(t, err)

	require.NoError(t, handlers.AddUser(context.Background(), env))
	users.AssertExpectations(t)
}

func TestAddUserHandlerStopsWhenUpsertFails(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	users.On("UpsertUser", mock.Anything, mock.Anything).Return(errors.New("boom"))

	env, err := DecodeEnvelope([]byte(
		`{"purpose":"ADD_USER","user":"{\"user_id\":1,\"username\":\"a\",\"first_name\":\"A\",\"camefrom\":\"ads\",\"language\":\"en\",\"fluency\":3,\"topics\":[],\"lang_code\":\"en\"}"}`))
	require.NoError(t, err)

	require.Error(t, handlers.AddUser(context.Background(), env))
	users.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestAddProfileHandlerParsesBirthday(t *testing.T) {
	users := new(MockUserStore)
	words := new(MockWordStore)
	handlers := NewHandlers(users, words, testLogger())

	users.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p user.Profile) bool {
		return p.UserID == 5 &&
			p.Nickname == "lexi" &&
			p.Birthday.Year() == 2002 &&
			p.Birthday.Month() == 1 &&
			p.Birthday.Day() == 3
	})).Return(nil)

	// Birthday arrives as dd-mm-yyyy, the way the bot sends it.
	env, err := DecodeEnvelope([]byte(
		`{"purpose":"ADD_PROFILE","profile":"{\"user_id\":5,\"nickname\":\"lexi\",\"email\":\"l@e.x\",\"birthday\":\"03-01-2002\",\"gender\":\"f\",\"intro\":\"hi\",\"dating\":false,\"status\":\"rookie\"}"}`))
	require.NoError(t, err)

	require.NoError(t, handlers.AddProfile(context.Background(), env))
	users.AssertExpectations(t)
}
