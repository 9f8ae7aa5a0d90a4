package ledgerxgo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

var _ Notifier = (*AMQPNotifier)(nil)

// operationEvent is the message body published for each committed operation.
type operationEvent struct {
	OperationID     string          `json:"operationID"`
	Type            OperationType   `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	ClientID        string          `json:"clientID"`
	AccountID       string          `json:"accountID"`
	SourceAccountID string          `json:"sourceAccountID,omitempty"`
	Principal       string          `json:"principal"`
	Counterparty    string          `json:"counterparty,omitempty"`
}

func newOperationEvent(rcpt Receipt) operationEvent {
	op := rcpt.Operation
	ev := operationEvent{
		OperationID: op.ID.String(),
		Type:        op.Type,
		Amount:      op.Amount,
		Date:        op.Date.Format(pdfDateLayout),
		ClientID:    op.ClientID.String(),
		AccountID:   op.AccountID.String(),
		Principal:   rcpt.Principal.Name,
	}
	if op.SourceAccountID != nil {
		ev.SourceAccountID = op.SourceAccountID.String()
	}
	if rcpt.Counterparty != nil {
		ev.Counterparty = rcpt.Counterparty.Name
	}
	return ev
}

// AMQPNotifier publishes receipts to a topic exchange with routing key
// "operation.<type>" for a downstream statement/email service.
type AMQPNotifier struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPNotifier{
		exchange: exchange,
		conn:     conn,
		channel:  ch,
	}, nil
}

func (a *AMQPNotifier) Notify(ctx context.Context, rcpt Receipt) error {
	body, err := json.Marshal(newOperationEvent(rcpt))
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel == nil || a.channel.IsClosed() {
		return errors.New("amqp channel closed")
	}
	return a.channel.PublishWithContext(ctx,
		a.exchange,
		"operation."+string(rcpt.Operation.Type),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.channel != nil {
		errs = append(errs, a.channel.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	return errors.Join(errs...)
}
