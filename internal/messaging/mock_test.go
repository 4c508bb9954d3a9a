package messaging

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) UpsertUser(ctx context.Context, u user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) UpsertProfile(ctx context.Context, p user.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockUserStore) UpsertLocation(ctx context.Context, l user.Location) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockUserStore) CreatePayment(ctx context.Context, p user.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockWordStore is a mock implementation of WordStore
type MockWordStore struct {
	mock.Mock
}

func (m *MockWordStore) AddWord(ctx context.Context, w word.Word) (int64, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(int64), args.Error(1)
}

// fakeAcker records acknowledgements without a live broker channel.
type fakeAcker struct {
	acked  int
	nacked int
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked++
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.nacked++
	return nil
}
