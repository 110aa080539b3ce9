// Package queue contains the background workers that drain the
// notification queues. In production a real mail/SMS gateway sits here;
// this worker records each delivery to logs/notify.log so the dispatch
// path is observable end to end.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/notify"
)

// StartNotifyConsumer connects to RabbitMQ, declares the notification
// queues (durable), and consumes both. It runs a reconnect loop with
// exponential backoff and keeps going through processing errors, rejecting
// the offending message so the server continues operating.
func StartNotifyConsumer(log *logrus.Logger) {
	url := notify.BrokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("notify-consumer: dial failed; retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.WithError(err).Warn("notify-consumer: consume loop ended; reconnecting")
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("notify-consumer: set QoS failed")
	}

	for _, queue := range []string{notify.EmailQueue, notify.SMSQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", queue, err)
		}
	}

	emails, err := ch.Consume(notify.EmailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", notify.EmailQueue, err)
	}
	smses, err := ch.Consume(notify.SMSQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", notify.SMSQueue, err)
	}

	handle := func(channel string, d amqp.Delivery) {
		if err := recordDelivery(channel, d.Body); err != nil {
			log.WithError(err).Warn("notify-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			return
		}
		_ = d.Ack(false)
	}

	for {
		select {
		case d, ok := <-emails:
			if !ok {
				return errors.New("email deliveries channel closed")
			}
			handle("email", d)
		case d, ok := <-smses:
			if !ok {
				return errors.New("sms deliveries channel closed")
			}
			handle("sms", d)
		}
	}
}

func recordDelivery(channel string, body []byte) error {
	var m notify.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notify.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	to := m.Email
	if channel == "sms" {
		to = m.MobileNo
	}
	line := fmt.Sprintf("[%s] %s -> %s | subject=%q\n",
		time.Now().UTC().Format(time.RFC3339), channel, to, m.Subject)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
