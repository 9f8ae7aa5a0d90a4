package ledgerxgo

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks . Service

type CreateAccountReq struct {
	Name      string `json:"name"`
	Details   string `json:"details"`
	Principal string `json:"-"`
}

type AccountsReq struct {
	Page      PageReq
	Principal string
}

type DeleteAccountReq struct {
	AcctID    snowflake.ID
	Principal string
}

type ChargeReq struct {
	Amount    decimal.Decimal `json:"amount"`
	AcctID    snowflake.ID    `json:"-"`
	Principal string          `json:"-"`
}

type TransferReq struct {
	Amount    decimal.Decimal `json:"amount"`
	To        snowflake.ID    `json:"to"`
	From      snowflake.ID    `json:"-"`
	Principal string          `json:"-"`
}

type BalanceReq struct {
	AcctID    snowflake.ID
	Principal string
}

type OperationReq struct {
	OpID      snowflake.ID
	Principal string
}

type OperationsReq struct {
	Principal string
}

type StatementReq struct {
	AcctID    snowflake.ID
	Principal string
}

type AuditPageReq struct {
	Page      int
	Size      int
	Principal string
}

type Service interface {
	CreateAccount(ctx context.Context, req CreateAccountReq) (*Account, error)
	Accounts(ctx context.Context, req AccountsReq) (*Page[Account], error)
	DeleteAccount(ctx context.Context, req DeleteAccountReq) error
	Deposit(ctx context.Context, req ChargeReq) (*Operation, error)
	Withdraw(ctx context.Context, req ChargeReq) (*Operation, error)
	Transfer(ctx context.Context, req TransferReq) (*Operation, error)
	Balance(ctx context.Context, req BalanceReq) (*decimal.Decimal, error)
	Operation(ctx context.Context, req OperationReq) (*Operation, error)
	Operations(ctx context.Context, req OperationsReq) ([]Operation, error)
	Statement(ctx context.Context, w io.Writer, req StatementReq) error
	ReconcileAudits(ctx context.Context, req AuditPageReq) (*Page[BenefitAudit], error)
}

var (
	_ Service = (*serviceImpl)(nil)
)

func NewService(repo Repository, audits AuditRepository, notifier Notifier, cfg *Config, log *zerolog.Logger) *serviceImpl {
	engine := NewBalanceEngine(repo, cfg.Ledger, log)
	recorder := NewRecorder(notifier, log)
	return &serviceImpl{
		repo:       repo,
		ledger:     NewLedger(engine, recorder, log),
		reconciler: NewAuditReconciler(audits, MissingRevisionPolicy(cfg.Audit.MissingRevision), log),
		log:        log,
	}
}

type serviceImpl struct {
	repo       Repository
	ledger     *Ledger
	reconciler *AuditReconciler
	log        *zerolog.Logger
}

// Reconciler exposes the audit reconciler for scheduled runs.
func (s *serviceImpl) Reconciler() *AuditReconciler {
	return s.reconciler
}

// resolve maps the principal to its client and role once per call.
func (s *serviceImpl) resolve(ctx context.Context, principal string) (Actor, error) {
	if principal == "" {
		return Actor{}, ErrBadRequest{Fields: map[string]string{"principal": "missing"}}
	}
	c, err := s.repo.GetClientByUsername(ctx, principal)
	if err != nil {
		return Actor{}, err
	}
	return Actor{Client: *c, Role: c.Role}, nil
}

func (s *serviceImpl) CreateAccount(ctx context.Context, req CreateAccountReq) (*Account, error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	owner := actor.Client.ID
	acct := &Account{
		ClientID: &owner,
		Balance:  decimal.Zero,
		Name:     req.Name,
		Details:  req.Details,
	}
	if err = s.repo.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("account", acct.ID.Int64()).
		Str("principal", req.Principal).
		Msg("account created")
	return acct, nil
}

// Accounts pages every account for admins and the caller's own otherwise.
func (s *serviceImpl) Accounts(ctx context.Context, req AccountsReq) (*Page[Account], error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	var owner *snowflake.ID
	if !actor.IsAdmin() {
		owner = &actor.Client.ID
	}
	return s.repo.ListAccounts(ctx, owner, req.Page)
}

func (s *serviceImpl) DeleteAccount(ctx context.Context, req DeleteAccountReq) error {
	if _, err := s.resolve(ctx, req.Principal); err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, req.AcctID); err != nil {
		return err
	}
	s.log.Info().
		Int64("account", req.AcctID.Int64()).
		Str("principal", req.Principal).
		Msg("account deleted")
	return nil
}

func (s *serviceImpl) Deposit(ctx context.Context, req ChargeReq) (*Operation, error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	return s.ledger.Deposit(ctx, actor, req.AcctID, req.Amount)
}

func (s *serviceImpl) Withdraw(ctx context.Context, req ChargeReq) (*Operation, error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	return s.ledger.Withdraw(ctx, actor, req.AcctID, req.Amount)
}

func (s *serviceImpl) Transfer(ctx context.Context, req TransferReq) (*Operation, error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, actor, req.From, req.To, req.Amount)
}

func (s *serviceImpl) Balance(ctx context.Context, req BalanceReq) (*decimal.Decimal, error) {
	if _, err := s.resolve(ctx, req.Principal); err != nil {
		return nil, err
	}
	acct, err := s.repo.GetAccount(ctx, req.AcctID)
	if err != nil {
		return nil, err
	}
	return &acct.Balance, nil
}

func (s *serviceImpl) Operation(ctx context.Context, req OperationReq) (*Operation, error) {
	if _, err := s.resolve(ctx, req.Principal); err != nil {
		return nil, err
	}
	return s.repo.GetOperation(ctx, req.OpID)
}

// Operations lists every operation for admins and the caller's own otherwise.
func (s *serviceImpl) Operations(ctx context.Context, req OperationsReq) ([]Operation, error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return s.repo.ListOperations(ctx, nil)
	}
	return s.repo.ListOperations(ctx, &actor.Client.ID)
}

func (s *serviceImpl) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	if _, err := s.resolve(ctx, req.Principal); err != nil {
		return err
	}
	acct, err := s.repo.GetAccount(ctx, req.AcctID)
	if err != nil {
		return err
	}
	ops, err := s.repo.ListAccountOperations(ctx, req.AcctID)
	if err != nil {
		return err
	}
	return RenderStatement(w, acct, ops)
}

func (s *serviceImpl) ReconcileAudits(ctx context.Context, req AuditPageReq) (*Page[BenefitAudit], error) {
	actor, err := s.resolve(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.reconciler.Reconcile(ctx, req.Page, req.Size)
}
