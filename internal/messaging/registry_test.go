package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, env Envelope) error { return nil }

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PurposeAddUser, noopHandler))

	h, ok := r.Resolve(PurposeAddUser)
	assert.True(t, ok)
	assert.NotNil(t, h)
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	h, ok := r.Resolve("NOT_A_REAL_PURPOSE")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PurposeCreatePayment, noopHandler))

	err := r.Register(PurposeCreatePayment, noopHandler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREATE_PAYMENT_PURPOSE")

	// The first registration is untouched.
	_, ok := r.Resolve(PurposeCreatePayment)
	assert.True(t, ok)
}
