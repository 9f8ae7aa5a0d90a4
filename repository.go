package ledgerxgo

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,Tx,AuditRepository

type Repository interface {
	CreateAccount(ctx context.Context, acct *Account) error
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	// ListAccounts pages all accounts, or only the client's when clientID is set.
	ListAccounts(ctx context.Context, clientID *snowflake.ID, page PageReq) (*Page[Account], error)
	// DeleteAccount detaches the owning client before removing the account.
	DeleteAccount(ctx context.Context, id snowflake.ID) error
	GetOperation(ctx context.Context, id snowflake.ID) (*Operation, error)
	// ListOperations lists all operations, or only the client's when clientID is set.
	ListOperations(ctx context.Context, clientID *snowflake.ID) ([]Operation, error)
	ListAccountOperations(ctx context.Context, acctID snowflake.ID) ([]Operation, error)
	GetClientByUsername(ctx context.Context, username string) (*Client, error)
	// RunInTx commits every write made through tx if fn returns nil, none otherwise.
	// fn receives ctx and must use it for every call on tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the money-moving unit of work.
type Tx interface {
	// LockAccounts takes exclusive mutation rights on the accounts in ascending id
	// order and returns them keyed by id. Duplicate ids are locked once.
	LockAccounts(ctx context.Context, ids ...snowflake.ID) (map[snowflake.ID]*Account, error)
	// SaveBalance writes acct.Balance if acct.Version still matches the stored one.
	SaveBalance(ctx context.Context, acct *Account) error
	InsertOperation(ctx context.Context, op *Operation) error
}

type AuditRepository interface {
	// ListAuditsNeedingAttribution returns rows whose user is empty or differs
	// from the user of their revision, in ascending id order.
	ListAuditsNeedingAttribution(ctx context.Context) ([]BenefitAudit, error)
	GetRevision(ctx context.Context, rev int64) (*RevisionInfo, error)
	SaveAudit(ctx context.Context, audit *BenefitAudit) error
	PageAudits(ctx context.Context, page PageReq) (*Page[BenefitAudit], error)
}
