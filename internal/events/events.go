// Package events publishes ledger changes for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// Event names, also used as routing keys
const (
	TransactionCreated = "transaction.created"
	TransactionDeleted = "transaction.deleted"
)

// TransactionEvent is the message body published for a ledger change
type TransactionEvent struct {
	Event           string                 `json:"event"`
	TransactionID   string                 `json:"transactionId"`
	UserID          string                 `json:"userId"`
	WalletID        string                 `json:"walletId"`
	Type            models.TransactionType `json:"transactionType"`
	Amount          decimal.Decimal        `json:"amount"`
	BalanceAfter    decimal.Decimal        `json:"balanceAfter"`
	TransactionDate time.Time              `json:"transactionDate"`
	OccurredAt      time.Time              `json:"occurredAt"`
}

// NewTransactionEvent describes tx under the given event name
func NewTransactionEvent(event string, tx *models.Transaction, at time.Time) TransactionEvent {
	return TransactionEvent{
		Event:           event,
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		WalletID:        tx.WalletID,
		Type:            tx.Type,
		Amount:          tx.Amount,
		BalanceAfter:    tx.BalanceAfter,
		TransactionDate: tx.TransactionDate,
		OccurredAt:      at,
	}
}

// Publisher delivers transaction events
type Publisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishTransaction(ctx context.Context, event TransactionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,  // exchange
		event.Event, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.TransactionID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Event, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Noop drops every event
type Noop struct{}

func (Noop) PublishTransaction(context.Context, TransactionEvent) error { return nil }
func (Noop) Close() error                                               { return nil }
