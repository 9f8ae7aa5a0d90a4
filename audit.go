package ledgerxgo

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// MissingRevisionPolicy decides what happens to an audit row whose revision
// does not exist.
type MissingRevisionPolicy string

const (
	MissingRevisionSkip MissingRevisionPolicy = "skip"
	MissingRevisionFail MissingRevisionPolicy = "fail"
)

// AuditReconciler copies the acting user of each revision onto the benefit
// audit rows written under it.
type AuditReconciler struct {
	repo   AuditRepository
	policy MissingRevisionPolicy
	log    *zerolog.Logger
}

func NewAuditReconciler(repo AuditRepository, policy MissingRevisionPolicy, log *zerolog.Logger) *AuditReconciler {
	if policy == "" {
		policy = MissingRevisionSkip
	}
	return &AuditReconciler{
		repo:   repo,
		policy: policy,
		log:    log,
	}
}

// Reconcile attributes every pending audit row and returns the requested page
// of the whole collection.
func (r *AuditReconciler) Reconcile(ctx context.Context, page, size int) (*Page[BenefitAudit], error) {
	preq := PageReq{Page: page, Size: size}
	if err := preq.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.Run(ctx); err != nil {
		return nil, err
	}
	return r.repo.PageAudits(ctx, preq)
}

// Run rewrites only rows whose user is missing or stale and returns how many
// were written. Rows already attributed are not touched, so a second run is a
// no-op. With MissingRevisionFail, every revision is resolved before the first
// write.
func (r *AuditReconciler) Run(ctx context.Context) (int, error) {
	pending, err := r.repo.ListAuditsNeedingAttribution(ctx)
	if err != nil {
		return 0, err
	}

	revs := make(map[int64]*RevisionInfo)
	resolved := make([]BenefitAudit, 0, len(pending))
	for _, audit := range pending {
		rev, ok := revs[audit.Rev]
		if !ok {
			rev, err = r.repo.GetRevision(ctx, audit.Rev)
			if err != nil && !errors.As(err, &ErrNotFound{}) {
				return 0, err
			}
			revs[audit.Rev] = rev
		}
		if rev == nil {
			if r.policy == MissingRevisionFail {
				return 0, ErrNotFound{Kind: "revision", ID: audit.Rev}
			}
			r.log.Warn().
				Int64("audit", audit.ID).
				Int64("rev", audit.Rev).
				Msg("revision not found, audit row left unattributed")
			continue
		}
		audit.User = rev.User
		resolved = append(resolved, audit)
	}

	for i := range resolved {
		if err = r.repo.SaveAudit(ctx, &resolved[i]); err != nil {
			return i, err
		}
	}
	if len(resolved) > 0 {
		r.log.Info().Int("rows", len(resolved)).Msg("audit rows attributed")
	}
	return len(resolved), nil
}
