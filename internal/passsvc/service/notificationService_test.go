package service

import (
	"context"
	"testing"

	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pass := f.addPass(t, "abc123", "tok1")

	_, _ = f.registrations.Register(ctx, "dev1", "pass.demo", "abc123", "good-1")
	_, _ = f.registrations.Register(ctx, "dev2", "pass.demo", "abc123", "bad")
	_, _ = f.registrations.Register(ctx, "dev3", "pass.demo", "abc123", "good-2")
	// same token on a second device is pushed once
	_, _ = f.registrations.Register(ctx, "dev4", "pass.demo", "abc123", "good-1")
	f.transport.fail["bad"] = true

	report, err := f.notifier.Notify(ctx, pass.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Delivered)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].Token)
	assert.ElementsMatch(t, []string{"good-1", "good-2"}, f.transport.Tokens())

	for _, d := range f.transport.delivered {
		assert.Equal(t, push.EmptyPayload, d.Payload)
		assert.Equal(t, "pass.demo", d.Topic)
	}
}

func TestNotifyUnknownPass(t *testing.T) {
	f := newFixture(t)

	_, err := f.notifier.Notify(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifyWithoutRegistrations(t *testing.T) {
	f := newFixture(t)
	pass := f.addPass(t, "abc123", "tok1")

	report, err := f.notifier.Notify(context.Background(), pass.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, f.transport.Tokens())
}
