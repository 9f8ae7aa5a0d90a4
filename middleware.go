package ledgerxgo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

// Chain wraps svc so that the first middleware is the outermost.
func Chain(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

var (
	_ Service = (*validationMiddleware)(nil)
)

// validationMiddleware rejects malformed requests before they reach the
// ledger.
type validationMiddleware struct {
	next Service
}

func NewValidationMiddleware() Middleware {
	return func(svc Service) Service {
		return &validationMiddleware{
			next: svc,
		}
	}
}

func requirePrincipal(principal string, fields map[string]string) {
	if principal == "" {
		fields["principal"] = "missing"
	}
}

func checkAmount(amount decimal.Decimal, fields map[string]string) {
	if err := validateAmount(amount); err != nil {
		fields["amount"] = err.(ErrInvalidAmount).Reason
	}
}

func badRequest(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return ErrBadRequest{Fields: fields}
}

func (v *validationMiddleware) CreateAccount(ctx context.Context, req CreateAccountReq) (*Account, error) {
	fields := map[string]string{}
	requirePrincipal(req.Principal, fields)
	if req.Name == "" {
		fields["name"] = "missing"
	}
	if err := badRequest(fields); err != nil {
		return nil, err
	}
	return v.next.CreateAccount(ctx, req)
}

func (v *validationMiddleware) Accounts(ctx context.Context, req AccountsReq) (*Page[Account], error) {
	if err := req.Page.Validate(); err != nil {
		return nil, err
	}
	return v.next.Accounts(ctx, req)
}

func (v *validationMiddleware) DeleteAccount(ctx context.Context, req DeleteAccountReq) error {
	fields := map[string]string{}
	requirePrincipal(req.Principal, fields)
	if err := badRequest(fields); err != nil {
		return err
	}
	return v.next.DeleteAccount(ctx, req)
}

func (v *validationMiddleware) Deposit(ctx context.Context, req ChargeReq) (*Operation, error) {
	fields := map[string]string{}
	requirePrincipal(req.Principal, fields)
	checkAmount(req.Amount, fields)
	if err := badRequest(fields); err != nil {
		return nil, err
	}
	return v.next.Deposit(ctx, req)
}

func (v *validationMiddleware) Withdraw(ctx context.Context, req ChargeReq) (*Operation, error) {
	fields := map[string]string{}
	requirePrincipal(req.Principal, fields)
	checkAmount(req.Amount, fields)
	if err := badRequest(fields); err != nil {
		return nil, err
	}
	return v.next.Withdraw(ctx, req)
}

func (v *validationMiddleware) Transfer(ctx context.Context, req TransferReq) (*Operation, error) {
	fields := map[string]string{}
	requirePrincipal(req.Principal, fields)
	checkAmount(req.Amount, fields)
	if req.To == 0 {
		fields["to"] = "missing"
	}
	if err := badRequest(fields); err != nil {
		return nil, err
	}
	return v.next.Transfer(ctx, req)
}

func (v *validationMiddleware) Balance(ctx context.Context, req BalanceReq) (*decimal.Decimal, error) {
	return v.next.Balance(ctx, req)
}

func (v *validationMiddleware) Operation(ctx context.Context, req OperationReq) (*Operation, error) {
	return v.next.Operation(ctx, req)
}

func (v *validationMiddleware) Operations(ctx context.Context, req OperationsReq) ([]Operation, error) {
	return v.next.Operations(ctx, req)
}

func (v *validationMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	return v.next.Statement(ctx, w, req)
}

func (v *validationMiddleware) ReconcileAudits(ctx context.Context, req AuditPageReq) (*Page[BenefitAudit], error) {
	if err := (PageReq{Page: req.Page, Size: req.Size}).Validate(); err != nil {
		return nil, err
	}
	return v.next.ReconcileAudits(ctx, req)
}

//
// Rate limiting middlewares
//

// limitMiddleware limits the number of in-flight requests to the service by using
// a weighted semaphore, i.e., x/sync/semaphore.Semaphore with an acquisition timeout.
// As limits are static and servers may be deployed to a heterogeneous set of machines,
// hence, having to manually tune limits for each server, this solution is something
// likely implemented very differently in a real-world application, but it is a good
// example of load shedding.
type limitMiddleware struct {
	next    Service
	limits  *ServiceLimits
	timeout time.Duration
}

var (
	_ Service = (*limitMiddleware)(nil)
)

// ServiceLimits groups methods by the resource they contend for.
type ServiceLimits struct {
	Money *semaphore.Weighted
	Read  *semaphore.Weighted
	Admin *semaphore.Weighted
}

func NewServiceLimits(n int64) *ServiceLimits {
	return &ServiceLimits{
		Money: semaphore.NewWeighted(n),
		Read:  semaphore.NewWeighted(n),
		Admin: semaphore.NewWeighted(max(n/4, 1)),
	}
}

func NewLimitMiddleware(limits *ServiceLimits, timeout time.Duration) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:    next,
			limits:  limits,
			timeout: timeout,
		}
	}
}

// acquire returns the release func, or ErrTooBusy if no token frees up in time.
func (l *limitMiddleware) acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	actx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := sem.Acquire(actx, 1); err != nil {
		return nil, ErrTooBusy
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) CreateAccount(ctx context.Context, req CreateAccountReq) (*Account, error) {
	release, err := l.acquire(ctx, l.limits.Admin)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.CreateAccount(ctx, req)
}

func (l *limitMiddleware) Accounts(ctx context.Context, req AccountsReq) (*Page[Account], error) {
	release, err := l.acquire(ctx, l.limits.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Accounts(ctx, req)
}

func (l *limitMiddleware) DeleteAccount(ctx context.Context, req DeleteAccountReq) error {
	release, err := l.acquire(ctx, l.limits.Admin)
	if err != nil {
		return err
	}
	defer release()
	return l.next.DeleteAccount(ctx, req)
}

func (l *limitMiddleware) Deposit(ctx context.Context, req ChargeReq) (*Operation, error) {
	release, err := l.acquire(ctx, l.limits.Money)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Deposit(ctx, req)
}

func (l *limitMiddleware) Withdraw(ctx context.Context, req ChargeReq) (*Operation, error) {
	release, err := l.acquire(ctx, l.limits.Money)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Withdraw(ctx, req)
}

func (l *limitMiddleware) Transfer(ctx context.Context, req TransferReq) (*Operation, error) {
	release, err := l.acquire(ctx, l.limits.Money)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Transfer(ctx, req)
}

func (l *limitMiddleware) Balance(ctx context.Context, req BalanceReq) (*decimal.Decimal, error) {
	release, err := l.acquire(ctx, l.limits.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Balance(ctx, req)
}

func (l *limitMiddleware) Operation(ctx context.Context, req OperationReq) (*Operation, error) {
	release, err := l.acquire(ctx, l.limits.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Operation(ctx, req)
}

func (l *limitMiddleware) Operations(ctx context.Context, req OperationsReq) ([]Operation, error) {
	release, err := l.acquire(ctx, l.limits.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Operations(ctx, req)
}

func (l *limitMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	release, err := l.acquire(ctx, l.limits.Read)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(ctx, w, req)
}

func (l *limitMiddleware) ReconcileAudits(ctx context.Context, req AuditPageReq) (*Page[BenefitAudit], error) {
	release, err := l.acquire(ctx, l.limits.Admin)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.ReconcileAudits(ctx, req)
}

type ServiceBreaker struct {
	Deposit   *gobreaker.TwoStepCircuitBreaker[*Operation]
	Withdraw  *gobreaker.TwoStepCircuitBreaker[*Operation]
	Transfer  *gobreaker.TwoStepCircuitBreaker[*Operation]
	Reconcile *gobreaker.TwoStepCircuitBreaker[*Page[BenefitAudit]]
}

func breakerSettings(name string, log *zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= 10 && c.TotalFailures*2 >= c.Requests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
}

func NewServiceBreaker(log *zerolog.Logger) *ServiceBreaker {
	return &ServiceBreaker{
		Deposit:   gobreaker.NewTwoStepCircuitBreaker[*Operation](breakerSettings("deposit", log)),
		Withdraw:  gobreaker.NewTwoStepCircuitBreaker[*Operation](breakerSettings("withdraw", log)),
		Transfer:  gobreaker.NewTwoStepCircuitBreaker[*Operation](breakerSettings("transfer", log)),
		Reconcile: gobreaker.NewTwoStepCircuitBreaker[*Page[BenefitAudit]](breakerSettings("reconcile", log)),
	}
}

// circuitBreakMiddleware is a middleware that implements the circuit breaker pattern.
// It works in conjunction with limitMiddleware to limit the number of in-flight
// requests to the service when the circuit is not in `closed` state, i.e., the service
// is experiencing heavy load and is struggling to release tokens from the limit
// semaphores within request deadline. Client errors do not count as failures.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func allow(allowFn func() (func(bool), error)) (func(error), error) {
	done, err := allowFn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooBusy, err)
	}
	return func(err error) { done(err == nil || isClientError(err)) }, nil
}

func (c *circuitBreakMiddleware) CreateAccount(ctx context.Context, req CreateAccountReq) (*Account, error) {
	return c.next.CreateAccount(ctx, req)
}

func (c *circuitBreakMiddleware) Accounts(ctx context.Context, req AccountsReq) (*Page[Account], error) {
	return c.next.Accounts(ctx, req)
}

func (c *circuitBreakMiddleware) DeleteAccount(ctx context.Context, req DeleteAccountReq) error {
	return c.next.DeleteAccount(ctx, req)
}

func (c *circuitBreakMiddleware) Deposit(ctx context.Context, req ChargeReq) (*Operation, error) {
	done, err := allow(c.brkrs.Deposit.Allow)
	if err != nil {
		return nil, err
	}
	op, err := c.next.Deposit(ctx, req)
	done(err)
	return op, err
}

func (c *circuitBreakMiddleware) Withdraw(ctx context.Context, req ChargeReq) (*Operation, error) {
	done, err := allow(c.brkrs.Withdraw.Allow)
	if err != nil {
		return nil, err
	}
	op, err := c.next.Withdraw(ctx, req)
	done(err)
	return op, err
}

func (c *circuitBreakMiddleware) Transfer(ctx context.Context, req TransferReq) (*Operation, error) {
	done, err := allow(c.brkrs.Transfer.Allow)
	if err != nil {
		return nil, err
	}
	op, err := c.next.Transfer(ctx, req)
	done(err)
	return op, err
}

func (c *circuitBreakMiddleware) Balance(ctx context.Context, req BalanceReq) (*decimal.Decimal, error) {
	return c.next.Balance(ctx, req)
}

func (c *circuitBreakMiddleware) Operation(ctx context.Context, req OperationReq) (*Operation, error) {
	return c.next.Operation(ctx, req)
}

func (c *circuitBreakMiddleware) Operations(ctx context.Context, req OperationsReq) ([]Operation, error) {
	return c.next.Operations(ctx, req)
}

func (c *circuitBreakMiddleware) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	return c.next.Statement(ctx, w, req)
}

func (c *circuitBreakMiddleware) ReconcileAudits(ctx context.Context, req AuditPageReq) (*Page[BenefitAudit], error) {
	done, err := allow(c.brkrs.Reconcile.Allow)
	if err != nil {
		return nil, err
	}
	page, err := c.next.ReconcileAudits(ctx, req)
	done(err)
	return page, err
}
