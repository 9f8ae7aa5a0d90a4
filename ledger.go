package ledgerxgo

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger moves money between accounts. Each call commits the balance writes
// and the operation record together or not at all.
type Ledger struct {
	engine   *BalanceEngine
	recorder *Recorder
	now      func() time.Time
	log      *zerolog.Logger
}

func NewLedger(engine *BalanceEngine, recorder *Recorder, log *zerolog.Logger) *Ledger {
	return &Ledger{
		engine:   engine,
		recorder: recorder,
		now:      time.Now,
		log:      log,
	}
}

type posting struct {
	acctID snowflake.ID
	delta  decimal.Decimal
}

type movement struct {
	typ      OperationType
	actor    Actor
	amount   decimal.Decimal
	postings []posting
	target   snowflake.ID
	source   *snowflake.ID
}

func (l *Ledger) Deposit(ctx context.Context, actor Actor, acctID snowflake.ID, amount decimal.Decimal) (*Operation, error) {
	return l.move(ctx, movement{
		typ:      OpDeposit,
		actor:    actor,
		amount:   amount,
		postings: []posting{{acctID, amount}},
		target:   acctID,
	})
}

// Withdraw debits the account. The balance may go negative unless the
// overdraft guard is configured.
func (l *Ledger) Withdraw(ctx context.Context, actor Actor, acctID snowflake.ID, amount decimal.Decimal) (*Operation, error) {
	return l.move(ctx, movement{
		typ:      OpWithdraw,
		actor:    actor,
		amount:   amount,
		postings: []posting{{acctID, amount.Neg()}},
		target:   acctID,
	})
}

// Transfer debits src and credits dst. src == dst is accepted; it nets to zero
// and still records one transfer.
func (l *Ledger) Transfer(ctx context.Context, actor Actor, src, dst snowflake.ID, amount decimal.Decimal) (*Operation, error) {
	return l.move(ctx, movement{
		typ:    OpTransfer,
		actor:  actor,
		amount: amount,
		postings: []posting{
			{src, amount.Neg()},
			{dst, amount},
		},
		target: dst,
		source: &src,
	})
}

func (l *Ledger) move(ctx context.Context, m movement) (*Operation, error) {
	if err := validateAmount(m.amount); err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(m.postings))
	for _, p := range m.postings {
		ids = append(ids, p.acctID)
	}

	var (
		op           *Operation
		counterparty *Account
	)
	err := l.engine.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		accts, err := tx.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}
		// postings are applied in order so the debit precedes the credit
		for _, p := range m.postings {
			if err = l.engine.apply(accts[p.acctID], p.delta); err != nil {
				return err
			}
		}
		for _, id := range distinct(ids) {
			if err = tx.SaveBalance(ctx, accts[id]); err != nil {
				return err
			}
		}
		op, err = l.recorder.Record(ctx, tx, m.typ, m.amount, l.now(), m.actor.Client.ID, m.target, m.source)
		if err != nil {
			return err
		}
		if m.source != nil {
			cp := *accts[m.target]
			counterparty = &cp
		}
		return nil
	})
	if err != nil {
		l.log.Err(err).
			Str("type", string(m.typ)).
			Str("amount", m.amount.String()).
			Msg("operation aborted")
		return nil, err
	}

	l.log.Info().
		Int64("operation", op.ID.Int64()).
		Str("type", string(op.Type)).
		Str("amount", op.Amount.String()).
		Int64("account", op.AccountID.Int64()).
		Msg("operation committed")

	l.recorder.Publish(ctx, Receipt{
		Operation:    *op,
		Principal:    Principal{Name: m.actor.Client.Username},
		Counterparty: counterparty,
	})
	return op, nil
}

func distinct(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
