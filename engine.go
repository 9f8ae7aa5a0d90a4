package ledgerxgo

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// amountPlaces is the precision money is stored with. Amounts carrying more
// fractional digits are rejected instead of rounded.
const amountPlaces = 2

// BalanceEngine applies signed deltas to account balances. Every mutation runs
// inside a store transaction holding the account's mutation rights, and
// conflicting or timed out attempts are retried a bounded number of times.
type BalanceEngine struct {
	repo Repository
	cfg  LedgerConfig
	log  *zerolog.Logger
}

func NewBalanceEngine(repo Repository, cfg LedgerConfig, log *zerolog.Logger) *BalanceEngine {
	return &BalanceEngine{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// ApplyDelta credits (positive delta) or debits (negative delta) the account
// and returns its new balance.
func (e *BalanceEngine) ApplyDelta(ctx context.Context, acctID snowflake.ID, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateDelta(delta); err != nil {
		return decimal.Decimal{}, err
	}

	var bal decimal.Decimal
	err := e.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		accts, err := tx.LockAccounts(ctx, acctID)
		if err != nil {
			return err
		}
		acct := accts[acctID]
		if err = e.apply(acct, delta); err != nil {
			return err
		}
		if err = tx.SaveBalance(ctx, acct); err != nil {
			return err
		}
		bal = acct.Balance
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return bal, nil
}

// apply mutates acct in memory. Nothing is visible until the enclosing
// transaction commits.
func (e *BalanceEngine) apply(acct *Account, delta decimal.Decimal) error {
	next := acct.Balance.Add(delta)
	if e.cfg.OverdraftGuard && delta.IsNegative() && next.IsNegative() {
		return ErrInvalidAmount{Amount: delta.Neg(), Reason: "insufficient balance"}
	}
	acct.Balance = next
	return nil
}

// Atomically runs fn in a store transaction. Version conflicts and per-attempt
// store timeouts roll back and retry with exponential backoff; any other error
// is returned as is. Exhausted retries surface as ErrTransient. fn receives
// the attempt's context, which carries the store timeout.
func (e *BalanceEngine) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := e.attemptContext(ctx)
		defer cancel()

		err := e.repo.RunInTx(actx, fn)
		if err == nil {
			return nil
		}
		if retryable(ctx, err) {
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("balance write conflicted, retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, e.backoff(ctx))
	if err != nil && retryable(ctx, err) {
		return ErrTransient{Err: err}
	}
	return err
}

func (e *BalanceEngine) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.StoreTimeout)
}

func (e *BalanceEngine) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if e.cfg.RetryBaseDelay > 0 {
		b.InitialInterval = e.cfg.RetryBaseDelay
	}
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, e.cfg.MaxRetries), ctx)
}

// retryable reports conflicts and timeouts of a single attempt. A deadline on
// the caller's own context is final.
func retryable(ctx context.Context, err error) bool {
	if errors.Is(err, ErrConcurrentModification) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
}

func validateDelta(delta decimal.Decimal) error {
	if delta.IsZero() {
		return ErrInvalidAmount{Amount: delta, Reason: "must not be zero"}
	}
	if !delta.Equal(delta.Truncate(amountPlaces)) {
		return ErrInvalidAmount{Amount: delta, Reason: "more than 2 decimal places"}
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount{Amount: amount, Reason: "must be positive"}
	}
	return validateDelta(amount)
}
