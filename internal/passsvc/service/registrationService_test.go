package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	svc := newFixture(t).registrations
	ctx := context.Background()

	res, err := svc.Register(ctx, "dev1", "pass.demo", "abc123", "push1")
	require.NoError(t, err)
	assert.Equal(t, Registered, res)

	res, err = svc.Register(ctx, "dev1", "pass.demo", "abc123", "push2")
	require.NoError(t, err)
	assert.Equal(t, AlreadyRegistered, res)

	// the second push token is ignored
	tokens, err := svc.PushTokensForSerial(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"push1"}, tokens)

	regs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestRegisterRejectsEmptyKey(t *testing.T) {
	svc := newFixture(t).registrations
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "pass.demo", "abc123", "push1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Unregister(ctx, "dev1", "")
	assert.ErrorAs(t, err, &verr)

	_, err = svc.HasAnyRegistration(ctx, "")
	assert.ErrorAs(t, err, &verr)
}

func TestRegistrationLookups(t *testing.T) {
	svc := newFixture(t).registrations
	ctx := context.Background()

	_, _ = svc.Register(ctx, "dev1", "pass.demo", "b", "push1")
	_, _ = svc.Register(ctx, "dev1", "pass.demo", "a", "push1")
	_, _ = svc.Register(ctx, "dev1", "pass.other", "c", "push1")
	_, _ = svc.Register(ctx, "dev2", "pass.demo", "a", "push2")

	serials, err := svc.SerialNumbersForDevice(ctx, "dev1", "pass.demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, serials)

	ok, _ := svc.HasRegistration(ctx, "dev2", "a")
	assert.True(t, ok)
	ok, _ = svc.HasRegistration(ctx, "dev2", "b")
	assert.False(t, ok)

	tokens, _ := svc.PushTokensForSerial(ctx, "a")
	assert.ElementsMatch(t, []string{"push1", "push2"}, tokens)

	deleted, err := svc.Unregister(ctx, "dev2", "a")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, _ = svc.Unregister(ctx, "dev2", "a")
	assert.False(t, deleted)

	ok, _ = svc.HasAnyRegistration(ctx, "dev2")
	assert.False(t, ok)
}
