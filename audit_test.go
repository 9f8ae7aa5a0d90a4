package ledgerxgo_test

import (
	"context"
	"math"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/ledgerxgo"
	"github.com/arhyth/ledgerxgo/mocks"
)

func newAuditStore(t *testing.T, audits ...ledgerxgo.BenefitAudit) *ledgerxgo.MemStore {
	t.Helper()
	node, err := snowflake.NewNode(8)
	require.Nil(t, err)
	store := ledgerxgo.NewMemStore(node)
	store.AddRevision(ledgerxgo.RevisionInfo{Rev: 7, User: "alice"})
	store.AddRevision(ledgerxgo.RevisionInfo{Rev: 9, User: "bob"})
	for _, a := range audits {
		store.AddAudit(a)
	}
	return store
}

func allAudits(t *testing.T, store *ledgerxgo.MemStore) []ledgerxgo.BenefitAudit {
	t.Helper()
	page, err := store.PageAudits(context.Background(), ledgerxgo.PageReq{Page: 0, Size: 100})
	require.Nil(t, err)
	return page.Items
}

func TestAuditReconcilerRun(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	t.Run("copies the revision user onto the audit row", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		store := newAuditStore(tt, ledgerxgo.BenefitAudit{ID: 1, Rev: 7, BenefitID: 3, Name: "Gym"})
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		n, err := rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(1, n)
		audits := allAudits(tt, store)
		reqrd.Len(audits, 1)
		as.Equal("alice", audits[0].User)
		as.Equal("Gym", audits[0].Name)
	})

	t.Run("a second run writes nothing", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		store := newAuditStore(tt,
			ledgerxgo.BenefitAudit{ID: 1, Rev: 7},
			ledgerxgo.BenefitAudit{ID: 2, Rev: 9},
		)
		rec := ledgerxgo.NewAuditReconciler(store, "", &log)

		n, err := rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(2, n)
		first := allAudits(tt, store)

		n, err = rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(0, n)
		as.Equal(first, allAudits(tt, store))
	})

	t.Run("rewrites a stale user", func(tt *testing.T) {
		as := assert.New(tt)
		store := newAuditStore(tt, ledgerxgo.BenefitAudit{ID: 1, Rev: 9, User: "alice"})
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		n, err := rec.Run(ctx)
		as.Nil(err)
		as.Equal(1, n)
		as.Equal("bob", allAudits(tt, store)[0].User)
	})

	t.Run("skips rows whose revision is missing", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		store := newAuditStore(tt,
			ledgerxgo.BenefitAudit{ID: 1, Rev: 7},
			ledgerxgo.BenefitAudit{ID: 2, Rev: 404},
		)
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		n, err := rec.Run(ctx)
		reqrd.Nil(err)
		as.Equal(1, n)
		audits := allAudits(tt, store)
		as.Equal("alice", audits[0].User)
		as.Empty(audits[1].User)
	})

	t.Run("fails before writing when a revision is missing", func(tt *testing.T) {
		as := assert.New(tt)
		store := newAuditStore(tt,
			ledgerxgo.BenefitAudit{ID: 1, Rev: 7},
			ledgerxgo.BenefitAudit{ID: 2, Rev: 404},
		)
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionFail, &log)

		n, err := rec.Run(ctx)
		as.Equal(0, n)
		nf := ledgerxgo.ErrNotFound{}
		as.ErrorAs(err, &nf)
		as.Equal("revision", nf.Kind)
		as.Equal(int64(404), nf.ID)
		for _, a := range allAudits(tt, store) {
			as.Empty(a.User)
		}
	})

	t.Run("looks up each revision once", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockAuditRepository(ctrl)
		rec := ledgerxgo.NewAuditReconciler(repo, ledgerxgo.MissingRevisionSkip, &log)

		repo.EXPECT().
			ListAuditsNeedingAttribution(gomock.Any()).
			Return([]ledgerxgo.BenefitAudit{{ID: 1, Rev: 7}, {ID: 2, Rev: 7}, {ID: 3, Rev: 7}}, nil)
		repo.EXPECT().
			GetRevision(gomock.Any(), int64(7)).
			Return(&ledgerxgo.RevisionInfo{Rev: 7, User: "alice"}, nil).
			Times(1)
		repo.EXPECT().
			SaveAudit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a *ledgerxgo.BenefitAudit) error {
				as.Equal("alice", a.User)
				return nil
			}).
			Times(3)

		n, err := rec.Run(ctx)
		as.Nil(err)
		as.Equal(3, n)
	})
}

func TestAuditReconcilerReconcile(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	t.Run("returns the requested page after attributing", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		store := newAuditStore(tt,
			ledgerxgo.BenefitAudit{ID: 1, Rev: 7},
			ledgerxgo.BenefitAudit{ID: 2, Rev: 9},
			ledgerxgo.BenefitAudit{ID: 3, Rev: 7},
		)
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		page, err := rec.Reconcile(ctx, 1, 2)
		reqrd.Nil(err)
		as.Equal(3, page.Total)
		as.Equal(1, page.Page)
		as.Equal(2, page.Size)
		reqrd.Len(page.Items, 1)
		as.Equal(int64(3), page.Items[0].ID)
		as.Equal("alice", page.Items[0].User)
	})

	t.Run("a page past the end is empty", func(tt *testing.T) {
		as := assert.New(tt)
		store := newAuditStore(tt, ledgerxgo.BenefitAudit{ID: 1, Rev: 7})
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		page, err := rec.Reconcile(ctx, 5, 10)
		as.Nil(err)
		as.Empty(page.Items)
		as.Equal(1, page.Total)
	})

	t.Run("rejects a non-positive page size", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockAuditRepository(ctrl)
		rec := ledgerxgo.NewAuditReconciler(repo, ledgerxgo.MissingRevisionSkip, &log)

		_, err := rec.Reconcile(ctx, 0, 0)
		as.ErrorAs(err, &ledgerxgo.ErrBadRequest{})
	})

	t.Run("rejects a page whose offset overflows", func(tt *testing.T) {
		as := assert.New(tt)
		store := newAuditStore(tt, ledgerxgo.BenefitAudit{ID: 1, Rev: 7})
		rec := ledgerxgo.NewAuditReconciler(store, ledgerxgo.MissingRevisionSkip, &log)

		_, err := rec.Reconcile(ctx, (1<<62)+1, 2)
		br := ledgerxgo.ErrBadRequest{}
		as.ErrorAs(err, &br)
		as.Contains(br.Fields, "page")
		// nothing was attributed
		as.Empty(allAudits(tt, store)[0].User)
	})
}

func TestPageReqValidate(t *testing.T) {
	t.Run("bounds the offset", func(tt *testing.T) {
		as := assert.New(tt)

		as.Nil(ledgerxgo.PageReq{Page: math.MaxInt / 10, Size: 10}.Validate())
		as.ErrorAs(ledgerxgo.PageReq{Page: math.MaxInt/10 + 1, Size: 10}.Validate(), &ledgerxgo.ErrBadRequest{})
		as.ErrorAs(ledgerxgo.PageReq{Page: math.MaxInt, Size: math.MaxInt}.Validate(), &ledgerxgo.ErrBadRequest{})
		as.Nil(ledgerxgo.PageReq{Page: 0, Size: math.MaxInt}.Validate())
	})
}
