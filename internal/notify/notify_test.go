package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubChannel struct {
	name   string
	err    error
	gotCtx context.Context
}

func (c *stubChannel) Name() string { return c.name }
func (c *stubChannel) Send(ctx context.Context, _ Message) error {
	c.gotCtx = ctx
	return c.err
}

func testDispatcher(channels ...Channel) *Dispatcher {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewDispatcher(log, time.Second, channels...)
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	first := &stubChannel{name: "email", err: errors.New("smtp refused")}
	second := &stubChannel{name: "sms"}
	d := testDispatcher(first, second)

	report := d.Dispatch(context.Background(), Message{Subject: "s"})
	assert.Equal(t, []Delivery{{Channel: "email", OK: false}, {Channel: "sms", OK: true}}, report)
	assert.NotNil(t, second.gotCtx, "later channels still run after a failure")
}

func TestDispatchBoundsEachSend(t *testing.T) {
	ch := &stubChannel{name: "email"}
	d := testDispatcher(ch)

	d.Dispatch(context.Background(), Message{})
	_, hasDeadline := ch.gotCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestAnySucceeded(t *testing.T) {
	assert.False(t, AnySucceeded(nil))
	assert.False(t, AnySucceeded([]Delivery{{Channel: "email"}}))
	assert.True(t, AnySucceeded([]Delivery{{Channel: "email"}, {Channel: "sms", OK: true}}))
}

func TestConfigured(t *testing.T) {
	assert.False(t, testDispatcher().Configured())
	assert.True(t, testDispatcher(&stubChannel{name: "email"}).Configured())
}
