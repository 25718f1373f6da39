package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/pass-services/internal/comm"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	got []push.Delivery
	err error
}

func (f *fakeTransport) Open(ctx context.Context) error { return nil }
func (f *fakeTransport) Close() error                   { return nil }

func (f *fakeTransport) Deliver(ctx context.Context, d push.Delivery) error {
	f.got = append(f.got, d)
	return f.err
}

func pushMessage(t *testing.T, m comm.PushMessage) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

func TestDeliver(t *testing.T) {
	tr := &fakeTransport{}
	b := NewBroker(nil, tr, time.Second)

	res := b.deliver(pushMessage(t, comm.PushMessage{Token: "abc", Topic: "pass.demo", Payload: json.RawMessage(`{}`)}))
	assert.True(t, res.OK)
	require.Len(t, tr.got, 1)
	assert.Equal(t, "abc", tr.got[0].Token)
	assert.Equal(t, "pass.demo", tr.got[0].Topic)
	assert.Equal(t, push.EmptyPayload, tr.got[0].Payload)
}

func TestDeliverFailures(t *testing.T) {
	tr := &fakeTransport{err: errors.New("BadDeviceToken")}
	b := NewBroker(nil, tr, time.Second)

	res := b.deliver(pushMessage(t, comm.PushMessage{Token: "abc"}))
	assert.False(t, res.OK)
	assert.Equal(t, "BadDeviceToken", res.Error)
	// no retry
	assert.Len(t, tr.got, 1)

	res = b.deliver(pushMessage(t, comm.PushMessage{}))
	assert.False(t, res.OK)
	assert.Len(t, tr.got, 1)

	res = b.deliver([]byte("{"))
	assert.False(t, res.OK)
}
