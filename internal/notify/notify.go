// Package notify publishes review lifecycle events to RabbitMQ so
// out-of-process consumers (mailers, push senders) can react to proof
// submissions and decisions. Publishing is best effort: a broker outage
// never fails the request that triggered the event.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const exchangeName = "notifications"

// Routing keys of the review event stream.
const (
	KeyProofSubmitted = "proof.submitted"
	KeyProofReviewed  = "proof.reviewed"
)

// ProofEvent describes one change in a proof's review lifecycle. Kind
// distinguishes subscription proofs from slot proofs.
type ProofEvent struct {
	Kind           string    `json:"kind"` // "subscription" or "slot"
	ProofID        string    `json:"proof_id"`
	SubjectID      string    `json:"subject_id"` // invoice or slot id
	CounterpartyID string    `json:"counterparty_id"`
	State          string    `json:"state"`
	Comment        *string   `json:"comment,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ReviewQueues lists the queues bound to the review event stream.
func ReviewQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.proof-submitted", RoutingKey: KeyProofSubmitted},
		{QueueName: "notification.proof-reviewed", RoutingKey: KeyProofReviewed},
	}
}

// Connect dials the broker, retrying on failure.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "notify.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel opens a channel and declares the exchange, queues and
// bindings of the review event stream.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "notify.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err = ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(q.QueueName, q.RoutingKey, exchangeName, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}

// Publisher sends review events over an open channel.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish sends one event with the given routing key.
func (p *Publisher) Publish(routingKey string, event ProofEvent) error {
	const op = "notify.Publish"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
