// Package notify abstracts outbound user notification. Concrete channels
// hand messages to the broker; delivery workers drain the queues out of
// band. Each dispatch is bounded by an explicit timeout so a hung broker
// cannot stall the calling endpoint.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one notification to a single user.
type Message struct {
	Email    string `json:"email,omitempty"`
	MobileNo string `json:"mobile_no,omitempty"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// Delivery records the per-channel outcome of a dispatch.
type Delivery struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
}

// Channel is a single delivery medium (email, SMS).
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// Dispatcher fans a message out to every configured channel and reports
// which ones accepted it. Channel failures are logged and reflected in the
// report; they never abort the remaining channels.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	log      *logrus.Logger
}

func NewDispatcher(log *logrus.Logger, timeout time.Duration, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, timeout: timeout, log: log}
}

// Configured reports whether any channel is set up.
func (d *Dispatcher) Configured() bool { return len(d.channels) > 0 }

// Dispatch sends m on every channel, each bounded by the dispatcher
// timeout, and returns the per-channel outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) []Delivery {
	report := make([]Delivery, 0, len(d.channels))
	for _, ch := range d.channels {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := ch.Send(sendCtx, m)
		cancel()
		if err != nil {
			d.log.WithError(err).WithField("channel", ch.Name()).Warn("notification dispatch failed")
		}
		report = append(report, Delivery{Channel: ch.Name(), OK: err == nil})
	}
	return report
}

// AnySucceeded reports whether at least one channel accepted the message.
func AnySucceeded(report []Delivery) bool {
	for _, d := range report {
		if d.OK {
			return true
		}
	}
	return false
}
