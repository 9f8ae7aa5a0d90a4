package ledgerxgo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/ledgerxgo"
)

func TestFixture(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the in-memory store", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		fx, err := ledgerxgo.LoadFixture(filepath.Join("testdata", "seed.yml"))
		reqrd.Nil(err)
		as.Len(fx.Clients, 3)

		node, err := snowflake.NewNode(3)
		reqrd.Nil(err)
		store := ledgerxgo.NewMemStore(node)
		reqrd.Nil(fx.SeedMemStore(ctx, store))

		admin, err := store.GetClientByUsername(ctx, "admin")
		reqrd.Nil(err)
		as.Equal(ledgerxgo.RoleAdmin, admin.Role)
		user1, err := store.GetClientByUsername(ctx, "user1")
		reqrd.Nil(err)
		as.Equal(ledgerxgo.RoleUser, user1.Role)

		acct, err := store.GetAccount(ctx, snowflake.ParseInt64(2))
		reqrd.Nil(err)
		as.True(decimal.RequireFromString("33345.40").Equal(acct.Balance))
		reqrd.NotNil(acct.ClientID)
		as.Equal(snowflake.ParseInt64(2), *acct.ClientID)

		owned, err := store.ListAccounts(ctx, &user1.ID, ledgerxgo.PageReq{Page: 0, Size: 10})
		reqrd.Nil(err)
		as.Equal(2, owned.Total)

		pending, err := store.ListAuditsNeedingAttribution(ctx)
		reqrd.Nil(err)
		as.Len(pending, 2)
	})

	t.Run("fails on a missing file", func(tt *testing.T) {
		_, err := ledgerxgo.LoadFixture(filepath.Join("testdata", "absent.yml"))
		assert.NotNil(tt, err)
	})
}
