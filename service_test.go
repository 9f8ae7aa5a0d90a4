package ledgerxgo_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/ledgerxgo"
	"github.com/arhyth/ledgerxgo/mocks"
)

var (
	seedAcct1 = snowflake.ParseInt64(1) // user1, 334.50
	seedAcct2 = snowflake.ParseInt64(2) // user, 33345.40
	seedAcct3 = snowflake.ParseInt64(3) // user1, 33.30
)

func testConfig() *ledgerxgo.Config {
	cfg := &ledgerxgo.Config{}
	cfg.Ledger = testLedgerConfig()
	cfg.Audit.MissingRevision = string(ledgerxgo.MissingRevisionSkip)
	return cfg
}

// newSeededService returns a service over a store loaded from testdata/seed.yml.
func newSeededService(t *testing.T) (ledgerxgo.Service, *ledgerxgo.MemStore) {
	t.Helper()
	fx, err := ledgerxgo.LoadFixture(filepath.Join("testdata", "seed.yml"))
	require.Nil(t, err)
	node, err := snowflake.NewNode(5)
	require.Nil(t, err)
	store := ledgerxgo.NewMemStore(node)
	require.Nil(t, fx.SeedMemStore(context.Background(), store))
	log := zerolog.Nop()
	return ledgerxgo.NewService(store, store, nil, testConfig(), &log), store
}

func TestServiceAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("users see their own accounts", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		page, err := svc.Accounts(ctx, ledgerxgo.AccountsReq{Page: ledgerxgo.PageReq{Page: 0, Size: 10}, Principal: "user1"})
		reqrd.Nil(err)
		as.Equal(2, page.Total)
		for _, a := range page.Items {
			as.NotEqual(seedAcct2, a.ID)
		}
	})

	t.Run("admins see every account", func(tt *testing.T) {
		as := assert.New(tt)
		svc, _ := newSeededService(tt)

		page, err := svc.Accounts(ctx, ledgerxgo.AccountsReq{Page: ledgerxgo.PageReq{Page: 0, Size: 10}, Principal: "admin"})
		as.Nil(err)
		as.Equal(3, page.Total)
	})

	t.Run("unknown principals are not found", func(tt *testing.T) {
		as := assert.New(tt)
		svc, _ := newSeededService(tt)

		_, err := svc.Accounts(ctx, ledgerxgo.AccountsReq{Page: ledgerxgo.PageReq{Page: 0, Size: 10}, Principal: "mallory"})
		as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
	})

	t.Run("created accounts start empty and belong to the caller", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		acct, err := svc.CreateAccount(ctx, ledgerxgo.CreateAccountReq{Name: "savings", Principal: "user"})
		reqrd.Nil(err)
		as.True(acct.Balance.IsZero())
		reqrd.NotNil(acct.ClientID)
		as.Equal(snowflake.ParseInt64(2), *acct.ClientID)

		bal, err := svc.Balance(ctx, ledgerxgo.BalanceReq{AcctID: acct.ID, Principal: "user"})
		reqrd.Nil(err)
		as.True(bal.IsZero())
	})

	t.Run("deleted accounts are gone", func(tt *testing.T) {
		as := assert.New(tt)
		svc, _ := newSeededService(tt)

		as.Nil(svc.DeleteAccount(ctx, ledgerxgo.DeleteAccountReq{AcctID: seedAcct3, Principal: "user1"}))
		_, err := svc.Balance(ctx, ledgerxgo.BalanceReq{AcctID: seedAcct3, Principal: "user1"})
		as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
	})
}

func TestServiceMoney(t *testing.T) {
	ctx := context.Background()

	t.Run("transfer updates both balances", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		op, err := svc.Transfer(ctx, ledgerxgo.TransferReq{
			Amount:    decimal.RequireFromString("34.50"),
			From:      seedAcct1,
			To:        seedAcct2,
			Principal: "user1",
		})
		reqrd.Nil(err)
		as.Equal(ledgerxgo.OpTransfer, op.Type)
		as.Equal(seedAcct2, op.AccountID)

		bal, err := svc.Balance(ctx, ledgerxgo.BalanceReq{AcctID: seedAcct1, Principal: "user1"})
		reqrd.Nil(err)
		as.Equal("300.00", bal.StringFixed(2))
		bal, err = svc.Balance(ctx, ledgerxgo.BalanceReq{AcctID: seedAcct2, Principal: "user"})
		reqrd.Nil(err)
		as.Equal("33379.90", bal.StringFixed(2))
	})

	t.Run("withdraw is recorded as a withdrawal", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		op, err := svc.Withdraw(ctx, ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(3), AcctID: seedAcct3, Principal: "user1"})
		reqrd.Nil(err)
		got, err := svc.Operation(ctx, ledgerxgo.OperationReq{OpID: op.ID, Principal: "user1"})
		reqrd.Nil(err)
		as.Equal(ledgerxgo.OpWithdraw, got.Type)
	})

	t.Run("operations are scoped to the caller unless admin", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		_, err := svc.Deposit(ctx, ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: seedAcct1, Principal: "user1"})
		reqrd.Nil(err)
		_, err = svc.Deposit(ctx, ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: seedAcct2, Principal: "user"})
		reqrd.Nil(err)

		own, err := svc.Operations(ctx, ledgerxgo.OperationsReq{Principal: "user1"})
		reqrd.Nil(err)
		as.Len(own, 1)
		all, err := svc.Operations(ctx, ledgerxgo.OperationsReq{Principal: "admin"})
		reqrd.Nil(err)
		as.Len(all, 2)
	})

	t.Run("statements render as PDF", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		_, err := svc.Deposit(ctx, ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(10), AcctID: seedAcct1, Principal: "user1"})
		reqrd.Nil(err)
		buf := new(bytes.Buffer)
		reqrd.Nil(svc.Statement(ctx, buf, ledgerxgo.StatementReq{AcctID: seedAcct1, Principal: "user1"}))
		as.True(bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})
}

func TestServiceReconcileAudits(t *testing.T) {
	ctx := context.Background()

	t.Run("admins reconcile and page the audits", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		svc, _ := newSeededService(tt)

		page, err := svc.ReconcileAudits(ctx, ledgerxgo.AuditPageReq{Page: 0, Size: 10, Principal: "admin"})
		reqrd.Nil(err)
		reqrd.Len(page.Items, 2)
		as.Equal("admin", page.Items[0].User)
		as.Equal("user", page.Items[1].User)
	})

	t.Run("non-admins are forbidden and nothing is written", func(tt *testing.T) {
		as := assert.New(tt)
		svc, store := newSeededService(tt)

		_, err := svc.ReconcileAudits(ctx, ledgerxgo.AuditPageReq{Page: 0, Size: 10, Principal: "user"})
		as.ErrorIs(err, ledgerxgo.ErrForbidden)
		pending, err := store.ListAuditsNeedingAttribution(ctx)
		as.Nil(err)
		as.Len(pending, 2)
	})

	t.Run("the role comes from the stored client", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		audits := mocks.NewMockAuditRepository(ctrl)
		log := zerolog.Nop()
		svc := ledgerxgo.NewService(repo, audits, nil, testConfig(), &log)

		repo.EXPECT().
			GetClientByUsername(gomock.Any(), "root").
			Return(&ledgerxgo.Client{ID: snowflake.ParseInt64(1), Username: "root", Role: ledgerxgo.RoleAdmin}, nil)
		audits.EXPECT().ListAuditsNeedingAttribution(gomock.Any()).Return([]ledgerxgo.BenefitAudit{}, nil)
		audits.EXPECT().
			PageAudits(gomock.Any(), ledgerxgo.PageReq{Page: 0, Size: 5}).
			Return(&ledgerxgo.Page[ledgerxgo.BenefitAudit]{Items: []ledgerxgo.BenefitAudit{}, Size: 5}, nil)

		page, err := svc.ReconcileAudits(ctx, ledgerxgo.AuditPageReq{Page: 0, Size: 5, Principal: "root"})
		as.Nil(err)
		as.Empty(page.Items)
	})
}
