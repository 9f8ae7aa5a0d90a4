package ledgerxgo_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/ledgerxgo"
)

var (
	testDBConnStr string
)

func init() {
	testDBConnStr = os.Getenv("TEST_DB_CONN_STR")
}

func newTestPostgres(t *testing.T) *ledgerxgo.PostgresEndpoint {
	t.Helper()
	if testDBConnStr == "" {
		t.Skip("TEST_DB_CONN_STR not set")
	}
	reqrd := require.New(t)

	cfg := &ledgerxgo.Config{}
	cfg.Database.ConnectionString = testDBConnStr
	lh, err := ledgerxgo.NewLocalHelper(cfg, "testdata")
	reqrd.Nil(err)
	teardown, err := lh.InitDB()
	reqrd.Nil(err)
	t.Cleanup(teardown)

	fx, err := ledgerxgo.LoadFixture("testdata/seed.yml")
	reqrd.Nil(err)
	reqrd.Nil(lh.Seed(fx))

	node, err := snowflake.NewNode(111)
	reqrd.Nil(err)
	log := zerolog.Nop()
	endpt, err := ledgerxgo.NewPostgresEndpoint(testDBConnStr, node, &log)
	reqrd.Nil(err)
	t.Cleanup(endpt.Close)
	return endpt
}

func TestPostgres(t *testing.T) {
	endpt := newTestPostgres(t)
	ctx := context.Background()
	log := zerolog.Nop()
	ldgr := newTestLedger(endpt, testLedgerConfig(), nil)
	user1 := ledgerxgo.Actor{Client: ledgerxgo.Client{ID: snowflake.ParseInt64(3), Username: "user1"}}

	t.Run("Clients", func(tt *testing.T) {
		as := assert.New(tt)
		admin, err := endpt.GetClientByUsername(ctx, "admin")
		as.Nil(err)
		as.Equal(ledgerxgo.RoleAdmin, admin.Role)
		_, err = endpt.GetClientByUsername(ctx, "mallory")
		as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
	})

	t.Run("Transfer", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)

		op, err := ldgr.Transfer(ctx, user1, seedAcct1, seedAcct2, decimal.RequireFromString("34.50"))
		reqrd.Nil(err)
		as.Equal("300.00", balanceOf(tt, endpt, seedAcct1).StringFixed(2))
		as.Equal("33379.90", balanceOf(tt, endpt, seedAcct2).StringFixed(2))

		got, err := endpt.GetOperation(ctx, op.ID)
		reqrd.Nil(err)
		as.Equal(ledgerxgo.OpTransfer, got.Type)
		as.Equal(seedAcct2, got.AccountID)
		reqrd.NotNil(got.SourceAccountID)
		as.Equal(seedAcct1, *got.SourceAccountID)

		ops, err := endpt.ListAccountOperations(ctx, seedAcct1)
		reqrd.Nil(err)
		as.Len(ops, 1)
	})

	t.Run("Transfer to a missing account rolls back", func(tt *testing.T) {
		as := assert.New(tt)
		before := balanceOf(tt, endpt, seedAcct3)

		_, err := ldgr.Transfer(ctx, user1, seedAcct3, snowflake.ParseInt64(999), decimal.NewFromInt(1))
		as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
		as.True(before.Equal(balanceOf(tt, endpt, seedAcct3)))
	})

	t.Run("Concurrent transfers", func(tt *testing.T) {
		as := assert.New(tt)
		total := balanceOf(tt, endpt, seedAcct1).Add(balanceOf(tt, endpt, seedAcct3))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := ldgr.Transfer(ctx, user1, seedAcct1, seedAcct3, decimal.NewFromInt(1))
				as.Nil(err)
			}()
			go func() {
				defer wg.Done()
				_, err := ldgr.Transfer(ctx, user1, seedAcct3, seedAcct1, decimal.NewFromInt(1))
				as.Nil(err)
			}()
		}
		wg.Wait()
		as.True(total.Equal(balanceOf(tt, endpt, seedAcct1).Add(balanceOf(tt, endpt, seedAcct3))))
	})

	t.Run("Accounts", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)

		owner := snowflake.ParseInt64(3)
		page, err := endpt.ListAccounts(ctx, &owner, ledgerxgo.PageReq{Page: 0, Size: 10})
		reqrd.Nil(err)
		as.Equal(2, page.Total)

		acct := &ledgerxgo.Account{ClientID: &owner, Balance: decimal.Zero, Name: "scratch"}
		reqrd.Nil(endpt.CreateAccount(ctx, acct))
		reqrd.Nil(endpt.DeleteAccount(ctx, acct.ID))
		_, err = endpt.GetAccount(ctx, acct.ID)
		as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
	})

	t.Run("Audit reconciliation", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		rec := ledgerxgo.NewAuditReconciler(endpt, ledgerxgo.MissingRevisionSkip, &log)

		n, err := rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(2, n)
		n, err = rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(0, n)

		page, err := rec.Reconcile(ctx, 0, 10)
		reqrd.Nil(err)
		reqrd.Len(page.Items, 2)
		as.Equal("admin", page.Items[0].User)
		as.Equal("user", page.Items[1].User)
	})
}
