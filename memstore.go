package ledgerxgo

import (
	"context"
	"sort"
	"sync"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/sync/semaphore"
)

var (
	_ Repository      = (*MemStore)(nil)
	_ AuditRepository = (*MemStore)(nil)
	_ Tx              = (*memTx)(nil)
)

// MemStore is an in-process Repository. Money-moving transactions lock
// accounts with one weighted semaphore per account, stage their writes and
// apply them at a single commit point.
type MemStore struct {
	node *snowflake.Node

	mu        sync.RWMutex
	accounts  map[snowflake.ID]Account
	acctOrder []snowflake.ID
	ops       []Operation
	clients   map[string]Client
	audits    []BenefitAudit
	revisions map[int64]RevisionInfo

	locksMu sync.Mutex
	locks   map[snowflake.ID]*semaphore.Weighted
}

func NewMemStore(node *snowflake.Node) *MemStore {
	return &MemStore{
		node:      node,
		accounts:  make(map[snowflake.ID]Account),
		clients:   make(map[string]Client),
		revisions: make(map[int64]RevisionInfo),
		locks:     make(map[snowflake.ID]*semaphore.Weighted),
	}
}

func (s *MemStore) AddClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.Username] = c
}

func (s *MemStore) AddRevision(rev RevisionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[rev.Rev] = rev
}

func (s *MemStore) AddAudit(a BenefitAudit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.audits {
		if s.audits[i].ID == a.ID {
			s.audits[i] = a
			return
		}
	}
	s.audits = append(s.audits, a)
	sort.Slice(s.audits, func(i, j int) bool { return s.audits[i].ID < s.audits[j].ID })
}

func (s *MemStore) CreateAccount(ctx context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.ID == 0 {
		acct.ID = s.node.Generate()
	}
	if _, ok := s.accounts[acct.ID]; ok {
		return ErrBadRequest{Fields: map[string]string{"id": "already exists"}}
	}
	s.accounts[acct.ID] = *acct
	s.acctOrder = append(s.acctOrder, acct.ID)
	return nil
}

func (s *MemStore) GetAccount(ctx context.Context, id snowflake.ID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound{Kind: "account", ID: id.Int64()}
	}
	return &acct, nil
}

func (s *MemStore) ListAccounts(ctx context.Context, clientID *snowflake.ID, page PageReq) (*Page[Account], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []Account
	for _, id := range s.acctOrder {
		acct := s.accounts[id]
		if clientID != nil && (acct.ClientID == nil || *acct.ClientID != *clientID) {
			continue
		}
		all = append(all, acct)
	}
	return paginate(all, page), nil
}

// DeleteAccount detaches the owner, removes the account and drops its lock.
func (s *MemStore) DeleteAccount(ctx context.Context, id snowflake.ID) error {
	sem, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer sem.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return ErrNotFound{Kind: "account", ID: id.Int64()}
	}
	acct.ClientID = nil
	s.accounts[id] = acct
	delete(s.accounts, id)
	for i, oid := range s.acctOrder {
		if oid == id {
			s.acctOrder = append(s.acctOrder[:i], s.acctOrder[i+1:]...)
			break
		}
	}

	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
	return nil
}

func (s *MemStore) GetOperation(ctx context.Context, id snowflake.ID) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, op := range s.ops {
		if op.ID == id {
			return &op, nil
		}
	}
	return nil, ErrNotFound{Kind: "operation", ID: id.Int64()}
}

func (s *MemStore) ListOperations(ctx context.Context, clientID *snowflake.ID) ([]Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Operation{}
	for _, op := range s.ops {
		if clientID != nil && op.ClientID != *clientID {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func (s *MemStore) ListAccountOperations(ctx context.Context, acctID snowflake.ID) ([]Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Operation{}
	for _, op := range s.ops {
		if op.AccountID == acctID || (op.SourceAccountID != nil && *op.SourceAccountID == acctID) {
			out = append(out, op)
		}
	}
	return out, nil
}

func (s *MemStore) GetClientByUsername(ctx context.Context, username string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[username]
	if !ok {
		return nil, ErrNotFound{Kind: "client"}
	}
	return &c, nil
}

func (s *MemStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		store:    s,
		accounts: make(map[snowflake.ID]*Account),
		balances: make(map[snowflake.ID]Account),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemStore) lockFor(id snowflake.ID) *semaphore.Weighted {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	sem, ok := s.locks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.locks[id] = sem
	}
	return sem
}

// acquire takes the lock for id. A waiter whose lock was dropped by
// DeleteAccount releases it and takes the current one.
func (s *MemStore) acquire(ctx context.Context, id snowflake.ID) (*semaphore.Weighted, error) {
	for {
		sem := s.lockFor(id)
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		s.locksMu.Lock()
		cur := s.locks[id]
		s.locksMu.Unlock()
		if cur == sem {
			return sem, nil
		}
		sem.Release(1)
	}
}

func (s *MemStore) ListAuditsNeedingAttribution(ctx context.Context) ([]BenefitAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []BenefitAudit{}
	for _, a := range s.audits {
		rev, ok := s.revisions[a.Rev]
		if a.User == "" || !ok || rev.User != a.User {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemStore) GetRevision(ctx context.Context, rev int64) (*RevisionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.revisions[rev]
	if !ok {
		return nil, ErrNotFound{Kind: "revision", ID: rev}
	}
	return &r, nil
}

func (s *MemStore) SaveAudit(ctx context.Context, audit *BenefitAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.audits {
		if s.audits[i].ID == audit.ID {
			s.audits[i] = *audit
			return nil
		}
	}
	return ErrNotFound{Kind: "audit", ID: audit.ID}
}

func (s *MemStore) PageAudits(ctx context.Context, page PageReq) (*Page[BenefitAudit], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.audits, page), nil
}

type memTx struct {
	store    *MemStore
	held     []*semaphore.Weighted
	accounts map[snowflake.ID]*Account
	balances map[snowflake.ID]Account
	ops      []Operation
}

func (tx *memTx) LockAccounts(ctx context.Context, ids ...snowflake.ID) (map[snowflake.ID]*Account, error) {
	sorted := distinct(ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[snowflake.ID]*Account, len(sorted))
	for _, id := range sorted {
		if acct, ok := tx.accounts[id]; ok {
			out[id] = acct
			continue
		}
		sem, err := tx.store.acquire(ctx, id)
		if err != nil {
			return nil, err
		}
		tx.held = append(tx.held, sem)

		acct, err := tx.store.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		tx.accounts[id] = acct
		out[id] = acct
	}
	return out, nil
}

func (tx *memTx) SaveBalance(ctx context.Context, acct *Account) error {
	if _, ok := tx.accounts[acct.ID]; !ok {
		return ErrBadRequest{Fields: map[string]string{"account": "not locked in this transaction"}}
	}
	tx.balances[acct.ID] = *acct
	return nil
}

func (tx *memTx) InsertOperation(ctx context.Context, op *Operation) error {
	op.ID = tx.store.node.Generate()
	tx.ops = append(tx.ops, *op)
	return nil
}

// commit is the single point where staged writes become visible.
func (tx *memTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, staged := range tx.balances {
		cur, ok := s.accounts[id]
		if !ok {
			return ErrNotFound{Kind: "account", ID: id.Int64()}
		}
		if cur.Version != staged.Version {
			return ErrConcurrentModification
		}
	}
	for id, staged := range tx.balances {
		cur := s.accounts[id]
		cur.Balance = staged.Balance
		cur.Version++
		s.accounts[id] = cur
	}
	s.ops = append(s.ops, tx.ops...)
	return nil
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Release(1)
	}
	tx.held = nil
}

func paginate[T any](all []T, page PageReq) *Page[T] {
	out := &Page[T]{
		Items: []T{},
		Page:  page.Page,
		Size:  page.Size,
		Total: len(all),
	}
	start := page.Offset()
	if start >= len(all) {
		return out
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	out.Items = append(out.Items, all[start:end]...)
	return out
}
