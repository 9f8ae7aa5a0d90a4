package ledgerxgo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/ledgerxgo"
	"github.com/arhyth/ledgerxgo/mocks"
)

func TestValidationMWDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects zero, negative and over-precise amounts", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		for _, amt := range []string{"0", "-1", "0.001", "10.125"} {
			op, err := v.Deposit(ctx, ledgerxgo.ChargeReq{
				Amount:    decimal.RequireFromString(amt),
				AcctID:    acctA,
				Principal: "alice",
			})
			br := ledgerxgo.ErrBadRequest{}
			as.ErrorAs(err, &br, amt)
			as.Contains(br.Fields, "amount", amt)
			as.Nil(op)
		}
	})

	t.Run("rejects a missing principal", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		_, err := v.Deposit(ctx, ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: acctA})
		br := ledgerxgo.ErrBadRequest{}
		as.ErrorAs(err, &br)
		as.Contains(br.Fields, "principal")
	})

	t.Run("passes valid requests through", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		req := ledgerxgo.ChargeReq{Amount: decimal.RequireFromString("0.01"), AcctID: acctA, Principal: "alice"}
		svc.EXPECT().Deposit(gomock.Any(), req).Return(&ledgerxgo.Operation{}, nil).Times(1)
		_, err := v.Deposit(ctx, req)
		as.Nil(err)
	})
}

func TestValidationMWTransfer(t *testing.T) {
	t.Run("requires a target account", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		_, err := v.Transfer(context.Background(), ledgerxgo.TransferReq{
			Amount:    decimal.NewFromInt(5),
			From:      acctA,
			Principal: "alice",
		})
		br := ledgerxgo.ErrBadRequest{}
		as.ErrorAs(err, &br)
		as.Contains(br.Fields, "to")
	})
}

func TestValidationMWCreateAccount(t *testing.T) {
	t.Run("requires a name", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		acct, err := v.CreateAccount(context.Background(), ledgerxgo.CreateAccountReq{Principal: "alice"})
		as.ErrorAs(err, &ledgerxgo.ErrBadRequest{})
		as.Nil(acct)
	})

	t.Run("rejects a bad audit page", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := ledgerxgo.NewValidationMiddleware()(svc)

		_, err := v.ReconcileAudits(context.Background(), ledgerxgo.AuditPageReq{Page: -1, Size: 10, Principal: "admin"})
		as.ErrorAs(err, &ledgerxgo.ErrBadRequest{})
		_, err = v.ReconcileAudits(context.Background(), ledgerxgo.AuditPageReq{Page: (1 << 62) + 1, Size: 2, Principal: "admin"})
		as.ErrorAs(err, &ledgerxgo.ErrBadRequest{})
	})
}

func TestLimitMW(t *testing.T) {
	t.Run("returns ErrTooBusy when no token frees up in time", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		limits := ledgerxgo.NewServiceLimits(1)
		l := ledgerxgo.NewLimitMiddleware(limits, 10*time.Millisecond)(svc)

		as.Nil(limits.Money.Acquire(context.Background(), 1))
		_, err := l.Withdraw(context.Background(), ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: acctA, Principal: "alice"})
		as.ErrorIs(err, ledgerxgo.ErrTooBusy)

		// reads draw from their own pool
		bal := decimal.NewFromInt(1)
		svc.EXPECT().Balance(gomock.Any(), gomock.Any()).Return(&bal, nil)
		_, err = l.Balance(context.Background(), ledgerxgo.BalanceReq{AcctID: acctA, Principal: "alice"})
		as.Nil(err)

		limits.Money.Release(1)
		svc.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(&ledgerxgo.Operation{}, nil)
		_, err = l.Withdraw(context.Background(), ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: acctA, Principal: "alice"})
		as.Nil(err)
	})
}

func TestCircuitBreakMW(t *testing.T) {
	log := zerolog.Nop()
	req := ledgerxgo.TransferReq{Amount: decimal.NewFromInt(1), From: acctA, To: acctB, Principal: "alice"}

	t.Run("opens after repeated server errors", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		c := ledgerxgo.NewCircuitBreakMiddleware(ledgerxgo.NewServiceBreaker(&log))(svc)

		svc.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, ledgerxgo.ErrInternalServer).Times(10)
		for i := 0; i < 10; i++ {
			_, err := c.Transfer(context.Background(), req)
			as.ErrorIs(err, ledgerxgo.ErrInternalServer)
		}
		_, err := c.Transfer(context.Background(), req)
		as.ErrorIs(err, ledgerxgo.ErrTooBusy)
	})

	t.Run("client errors do not count as failures", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		c := ledgerxgo.NewCircuitBreakMiddleware(ledgerxgo.NewServiceBreaker(&log))(svc)

		notFound := ledgerxgo.ErrNotFound{Kind: "account", ID: acctB.Int64()}
		svc.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, notFound).Times(11)
		for i := 0; i < 11; i++ {
			_, err := c.Transfer(context.Background(), req)
			as.ErrorAs(err, &ledgerxgo.ErrNotFound{})
		}
	})

	t.Run("breakers are kept per operation", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		c := ledgerxgo.NewCircuitBreakMiddleware(ledgerxgo.NewServiceBreaker(&log))(svc)

		svc.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")).Times(10)
		for i := 0; i < 10; i++ {
			c.Transfer(context.Background(), req)
		}
		svc.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(&ledgerxgo.Operation{}, nil)
		_, err := c.Deposit(context.Background(), ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: acctA, Principal: "alice"})
		as.Nil(err)
	})
}

func TestChain(t *testing.T) {
	t.Run("validation runs before the inner middlewares", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		log := zerolog.Nop()
		limits := ledgerxgo.NewServiceLimits(1)
		chained := ledgerxgo.Chain(svc,
			ledgerxgo.NewValidationMiddleware(),
			ledgerxgo.NewLimitMiddleware(limits, 10*time.Millisecond),
			ledgerxgo.NewCircuitBreakMiddleware(ledgerxgo.NewServiceBreaker(&log)),
		)

		// with the money pool drained, only validation can answer
		as.Nil(limits.Money.Acquire(context.Background(), 1))
		_, err := chained.Deposit(context.Background(), ledgerxgo.ChargeReq{Amount: decimal.Zero, AcctID: snowflake.ParseInt64(1), Principal: "alice"})
		as.ErrorAs(err, &ledgerxgo.ErrBadRequest{})
		_, err = chained.Deposit(context.Background(), ledgerxgo.ChargeReq{Amount: decimal.NewFromInt(1), AcctID: snowflake.ParseInt64(1), Principal: "alice"})
		as.ErrorIs(err, ledgerxgo.ErrTooBusy)
	})
}
