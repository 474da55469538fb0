package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const mailQueueName = "mail.send"

// Message kinds carried on the mail.send queue.
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// Message is the queue payload for one outbound mail.
type Message struct {
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Publisher pushes mail messages onto the mail.send queue. A fresh
// connection is dialed per publish; mail volume here is a handful of
// messages per signup or reset, not a throughput concern. Errors are
// logged and returned so callers can treat delivery as best-effort.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// EnqueueVerification queues the confirm-your-email message.
func (p *Publisher) EnqueueVerification(ctx context.Context, email, username, token string) error {
	return p.publish(ctx, Message{Kind: KindVerification, To: email, Username: username, Token: token})
}

// EnqueuePasswordReset queues the reset message.
func (p *Publisher) EnqueuePasswordReset(ctx context.Context, email, token string) error {
	return p.publish(ctx, Message{Kind: KindPasswordReset, To: email, Token: token})
}

func (p *Publisher) publish(ctx context.Context, msg Message) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("mail-queue: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("mail-queue: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare. Durable so queued mail survives broker restarts.
	if _, err := ch.QueueDeclare(mailQueueName, true, false, false, false, nil); err != nil {
		log.Printf("mail-queue: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", mailQueueName, false, false, pub); err != nil {
		log.Printf("mail-queue: publish failed: %v", err)
		return err
	}
	return nil
}

// StartConsumer connects to RabbitMQ, declares the mail.send queue and
// delivers each message through the Mailer. It runs a reconnect loop with
// exponential backoff and never returns under normal operation; a message
// that cannot be handled is rejected without requeue so a poison payload
// cannot spin the consumer.
func StartConsumer(url string, m *Mailer) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, m); err != nil {
			log.Printf("mail-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, m *Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("mail-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(mailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(mailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, m); err != nil {
			log.Printf("mail-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, m *Mailer) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	switch msg.Kind {
	case KindVerification:
		return m.SendVerification(msg.To, msg.Username, msg.Token)
	case KindPasswordReset:
		return m.SendPasswordReset(msg.To, msg.Token)
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}
