package ledgerxgo

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OpDeposit  OperationType = "deposit"
	OpWithdraw OperationType = "withdraw"
	OpTransfer OperationType = "transfer"
)

func (t OperationType) Valid() bool {
	switch t {
	case OpDeposit, OpWithdraw, OpTransfer:
		return true
	}
	return false
}

// Role is resolved once from the Client record when a request enters the service.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "ADMIN"
	}
	return "USER"
}

func ParseRole(s string) Role {
	if s == "ADMIN" || s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

type Client struct {
	ID       snowflake.ID `json:"id"`
	Username string       `json:"username"`
	Role     Role         `json:"-"`
}

// Account is a balance-bearing record. Version increments on every committed
// balance write and guards against lost updates.
type Account struct {
	ID       snowflake.ID    `json:"id"`
	ClientID *snowflake.ID   `json:"clientID,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Name     string          `json:"name"`
	Details  string          `json:"details"`
	Version  int64           `json:"-"`
}

// Operation is the append-only record of a committed money movement.
// AccountID is the target: the account itself for deposits and withdrawals,
// the destination for transfers.
type Operation struct {
	ID              snowflake.ID    `json:"id"`
	Type            OperationType   `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	ClientID        snowflake.ID    `json:"clientID"`
	AccountID       snowflake.ID    `json:"accountID"`
	SourceAccountID *snowflake.ID   `json:"sourceAccountID,omitempty"`
}

// Principal is an already authenticated identity.
type Principal struct {
	Name string
}

// Actor is a Principal resolved against the store.
type Actor struct {
	Client Client
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type BenefitAudit struct {
	ID        int64  `json:"id"`
	Rev       int64  `json:"rev"`
	RevType   int    `json:"revType"`
	BenefitID int64  `json:"benefitID"`
	Name      string `json:"name"`
	User      string `json:"user"`
}

type RevisionInfo struct {
	Rev       int64     `json:"rev"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

type PageReq struct {
	Page int
	Size int
}

func (p PageReq) Offset() int {
	return p.Page * p.Size
}

func (p PageReq) Validate() error {
	fields := map[string]string{}
	if p.Page < 0 {
		fields["page"] = "must not be negative"
	}
	if p.Size <= 0 {
		fields["size"] = "must be positive"
	} else if p.Page > math.MaxInt/p.Size {
		// Offset must not overflow
		fields["page"] = "out of range"
	}
	if len(fields) > 0 {
		return ErrBadRequest{Fields: fields}
	}
	return nil
}

type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// Receipt is what the notification sink receives for a committed operation.
type Receipt struct {
	Operation    Operation
	Principal    Principal
	Counterparty *Account
}

// OperationDate truncates t to the calendar date in UTC.
func OperationDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
