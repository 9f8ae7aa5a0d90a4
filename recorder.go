package ledgerxgo

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks . Notifier

// Notifier generates the receipt/statement side effect of a committed operation.
type Notifier interface {
	Notify(ctx context.Context, rcpt Receipt) error
}

// Recorder appends operations inside the money-moving transaction and, once
// the transaction has committed, publishes them to the notification sink.
type Recorder struct {
	notifier Notifier
	timeout  time.Duration
	log      *zerolog.Logger
}

func NewRecorder(n Notifier, log *zerolog.Logger) *Recorder {
	if n == nil {
		n = NopNotifier{}
	}
	return &Recorder{
		notifier: n,
		timeout:  10 * time.Second,
		log:      log,
	}
}

// Record inserts the operation through tx. It is only durable if tx commits.
func (r *Recorder) Record(
	ctx context.Context,
	tx Tx,
	typ OperationType,
	amount decimal.Decimal,
	date time.Time,
	clientID, target snowflake.ID,
	source *snowflake.ID,
) (*Operation, error) {
	if !typ.Valid() {
		return nil, ErrBadRequest{Fields: map[string]string{"type": fmt.Sprintf("unknown operation type %q", typ)}}
	}
	op := &Operation{
		Type:            typ,
		Amount:          amount,
		Date:            OperationDate(date),
		ClientID:        clientID,
		AccountID:       target,
		SourceAccountID: source,
	}
	if err := tx.InsertOperation(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Publish hands rcpt to the sink. Sink errors and panics are logged and
// swallowed; the operation has already been committed.
func (r *Recorder) Publish(ctx context.Context, rcpt Receipt) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logSinkFailure(ErrSinkFailure{
				OperationID: rcpt.Operation.ID.Int64(),
				Err:         fmt.Errorf("panic: %v", rec),
			})
		}
	}()

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.notifier.Notify(nctx, rcpt); err != nil {
		r.logSinkFailure(ErrSinkFailure{OperationID: rcpt.Operation.ID.Int64(), Err: err})
	}
}

func (r *Recorder) logSinkFailure(err ErrSinkFailure) {
	r.log.Err(err).
		Int64("operation", err.OperationID).
		Msg("notification sink failed")
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Receipt) error {
	return nil
}
