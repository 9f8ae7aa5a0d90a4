package ledgerxgo

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var (
	pgInsertAcctSQL = `
		INSERT INTO accounts (id, client_id, balance, name, details)
		VALUES ($1, $2, $3, $4, $5);
	`

	pgSelectAcctSQL = `
		SELECT id, client_id, balance, name, details, version
		FROM accounts
		WHERE id = $1;
	`

	pgListAcctsSQL = `
		SELECT id, client_id, balance, name, details, version
		FROM accounts
		WHERE ($1::BIGINT IS NULL OR client_id = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3;
	`

	pgCountAcctsSQL = `
		SELECT count(*)
		FROM accounts
		WHERE ($1::BIGINT IS NULL OR client_id = $1);
	`

	pgDetachAcctSQL = `
		UPDATE accounts
		SET client_id = NULL
		WHERE id = $1;
	`

	pgDeleteAcctSQL = `
		DELETE FROM accounts
		WHERE id = $1;
	`

	pgSelectForUpdateAcctsSQL = `
		SELECT id, client_id, balance, name, details, version
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE;
	`

	pgUpdateBalanceSQL = `
		UPDATE accounts
		SET balance = $1, version = version + 1
		WHERE id = $2 AND version = $3;
	`

	pgInsertOpSQL = `
		INSERT INTO operations (id, typ, amount, op_date, client_id, account_id, source_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	pgOpColumns = `id, typ, amount, op_date, client_id, account_id, source_account_id`

	pgSelectOpSQL = `
		SELECT ` + pgOpColumns + `
		FROM operations
		WHERE id = $1;
	`

	pgListOpsSQL = `
		SELECT ` + pgOpColumns + `
		FROM operations
		WHERE ($1::BIGINT IS NULL OR client_id = $1)
		ORDER BY id;
	`

	pgListAcctOpsSQL = `
		SELECT ` + pgOpColumns + `
		FROM operations
		WHERE account_id = $1 OR source_account_id = $1
		ORDER BY id;
	`

	pgSelectClientSQL = `
		SELECT id, username, role
		FROM clients
		WHERE username = $1;
	`

	pgPendingAuditsSQL = `
		SELECT a.id, a.rev, a.revtype, a.benefit_id, a.name, COALESCE(a.username, '')
		FROM benefit_aud a
		LEFT JOIN revinfo r ON r.rev = a.rev
		WHERE a.username IS NULL
			OR a.username = ''
			OR r.rev IS NULL
			OR r.username IS DISTINCT FROM a.username
		ORDER BY a.id;
	`

	pgSelectRevSQL = `
		SELECT rev, revtstmp, username
		FROM revinfo
		WHERE rev = $1;
	`

	pgUpdateAuditSQL = `
		UPDATE benefit_aud
		SET username = $1
		WHERE id = $2;
	`

	pgPageAuditsSQL = `
		SELECT id, rev, revtype, benefit_id, name, COALESCE(username, '')
		FROM benefit_aud
		ORDER BY id
		LIMIT $1 OFFSET $2;
	`

	pgCountAuditsSQL = `SELECT count(*) FROM benefit_aud;`
)

// Postgres error codes treated as lost races.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

type PostgresEndpoint struct {
	pool *pgxpool.Pool
	node *snowflake.Node
	log  *zerolog.Logger
}

var (
	_ Repository      = (*PostgresEndpoint)(nil)
	_ AuditRepository = (*PostgresEndpoint)(nil)
	_ Tx              = (*pgTx)(nil)
)

func NewPostgresEndpoint(connStr string, node *snowflake.Node, log *zerolog.Logger) (*PostgresEndpoint, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	endpt := &PostgresEndpoint{
		pool: pool,
		node: node,
		log:  log,
	}
	return endpt, err
}

func (pg *PostgresEndpoint) Close() {
	pg.pool.Close()
}

func (pg *PostgresEndpoint) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	conn, err := pg.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			pg.log.Err(rerr).Msg("transaction rollback fail")
		}
	}()

	if err = fn(ctx, &pgTx{tx: tx, node: pg.node}); err != nil {
		return pgError(err)
	}
	return pgError(tx.Commit(ctx))
}

func (pg *PostgresEndpoint) CreateAccount(ctx context.Context, acct *Account) error {
	if acct.ID == 0 {
		acct.ID = pg.node.Generate()
	}
	_, err := pg.pool.Exec(ctx, pgInsertAcctSQL,
		acct.ID.Int64(), nullableID(acct.ClientID), acct.Balance, acct.Name, acct.Details)
	return err
}

func (pg *PostgresEndpoint) GetAccount(ctx context.Context, id snowflake.ID) (*Account, error) {
	acct, err := scanAccount(pg.pool.QueryRow(ctx, pgSelectAcctSQL, id.Int64()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound{Kind: "account", ID: id.Int64()}
	}
	return acct, err
}

func (pg *PostgresEndpoint) ListAccounts(ctx context.Context, clientID *snowflake.ID, page PageReq) (*Page[Account], error) {
	cid := nullableID(clientID)
	out := &Page[Account]{Items: []Account{}, Page: page.Page, Size: page.Size}
	if err := pg.pool.QueryRow(ctx, pgCountAcctsSQL, cid).Scan(&out.Total); err != nil {
		return nil, err
	}

	rows, err := pg.pool.Query(ctx, pgListAcctsSQL, cid, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, *acct)
	}
	return out, rows.Err()
}

func (pg *PostgresEndpoint) DeleteAccount(ctx context.Context, id snowflake.ID) error {
	tx, err := pg.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	tag, err := tx.Exec(ctx, pgDetachAcctSQL, id.Int64())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{Kind: "account", ID: id.Int64()}
	}
	if _, err = tx.Exec(ctx, pgDeleteAcctSQL, id.Int64()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (pg *PostgresEndpoint) GetOperation(ctx context.Context, id snowflake.ID) (*Operation, error) {
	op, err := scanOperation(pg.pool.QueryRow(ctx, pgSelectOpSQL, id.Int64()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound{Kind: "operation", ID: id.Int64()}
	}
	return op, err
}

func (pg *PostgresEndpoint) ListOperations(ctx context.Context, clientID *snowflake.ID) ([]Operation, error) {
	return pg.queryOperations(ctx, pgListOpsSQL, nullableID(clientID))
}

func (pg *PostgresEndpoint) ListAccountOperations(ctx context.Context, acctID snowflake.ID) ([]Operation, error) {
	return pg.queryOperations(ctx, pgListAcctOpsSQL, acctID.Int64())
}

func (pg *PostgresEndpoint) queryOperations(ctx context.Context, sql string, args ...any) ([]Operation, error) {
	rows, err := pg.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := []Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

func (pg *PostgresEndpoint) GetClientByUsername(ctx context.Context, username string) (*Client, error) {
	var (
		id   int64
		role string
		c    Client
	)
	err := pg.pool.QueryRow(ctx, pgSelectClientSQL, username).Scan(&id, &c.Username, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound{Kind: "client"}
		}
		return nil, err
	}
	c.ID = snowflake.ParseInt64(id)
	c.Role = ParseRole(role)
	return &c, nil
}

func (pg *PostgresEndpoint) ListAuditsNeedingAttribution(ctx context.Context) ([]BenefitAudit, error) {
	rows, err := pg.pool.Query(ctx, pgPendingAuditsSQL)
	if err != nil {
		return nil, err
	}
	return collectAudits(rows)
}

func (pg *PostgresEndpoint) GetRevision(ctx context.Context, rev int64) (*RevisionInfo, error) {
	var (
		ri   RevisionInfo
		user *string
	)
	err := pg.pool.QueryRow(ctx, pgSelectRevSQL, rev).Scan(&ri.Rev, &ri.Timestamp, &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound{Kind: "revision", ID: rev}
		}
		return nil, err
	}
	if user != nil {
		ri.User = *user
	}
	return &ri, nil
}

func (pg *PostgresEndpoint) SaveAudit(ctx context.Context, audit *BenefitAudit) error {
	tag, err := pg.pool.Exec(ctx, pgUpdateAuditSQL, audit.User, audit.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{Kind: "audit", ID: audit.ID}
	}
	return nil
}

func (pg *PostgresEndpoint) PageAudits(ctx context.Context, page PageReq) (*Page[BenefitAudit], error) {
	out := &Page[BenefitAudit]{Page: page.Page, Size: page.Size}
	if err := pg.pool.QueryRow(ctx, pgCountAuditsSQL).Scan(&out.Total); err != nil {
		return nil, err
	}
	rows, err := pg.pool.Query(ctx, pgPageAuditsSQL, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	items, err := collectAudits(rows)
	if err != nil {
		return nil, err
	}
	out.Items = items
	return out, nil
}

type pgTx struct {
	tx   pgx.Tx
	node *snowflake.Node
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...snowflake.ID) (map[snowflake.ID]*Account, error) {
	want := distinct(ids)
	raw := make([]int64, 0, len(want))
	for _, id := range want {
		raw = append(raw, id.Int64())
	}

	rows, err := t.tx.Query(ctx, pgSelectForUpdateAcctsSQL, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[snowflake.ID]*Account, len(want))
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[acct.ID] = acct
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range want {
		if _, ok := out[id]; !ok {
			return nil, ErrNotFound{Kind: "account", ID: id.Int64()}
		}
	}
	return out, nil
}

func (t *pgTx) SaveBalance(ctx context.Context, acct *Account) error {
	tag, err := t.tx.Exec(ctx, pgUpdateBalanceSQL, acct.Balance, acct.ID.Int64(), acct.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (t *pgTx) InsertOperation(ctx context.Context, op *Operation) error {
	op.ID = t.node.Generate()
	_, err := t.tx.Exec(ctx, pgInsertOpSQL,
		op.ID.Int64(),
		string(op.Type),
		op.Amount,
		op.Date,
		op.ClientID.Int64(),
		op.AccountID.Int64(),
		nullableID(op.SourceAccountID),
	)
	return err
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		id, version int64
		clientID    *int64
		acct        Account
	)
	if err := row.Scan(&id, &clientID, &acct.Balance, &acct.Name, &acct.Details, &version); err != nil {
		return nil, err
	}
	acct.ID = snowflake.ParseInt64(id)
	acct.Version = version
	if clientID != nil {
		cid := snowflake.ParseInt64(*clientID)
		acct.ClientID = &cid
	}
	return &acct, nil
}

func scanOperation(row pgx.Row) (*Operation, error) {
	var (
		id, clientID, acctID int64
		srcID                *int64
		typ                  string
		op                   Operation
	)
	if err := row.Scan(&id, &typ, &op.Amount, &op.Date, &clientID, &acctID, &srcID); err != nil {
		return nil, err
	}
	op.ID = snowflake.ParseInt64(id)
	op.Type = OperationType(typ)
	op.ClientID = snowflake.ParseInt64(clientID)
	op.AccountID = snowflake.ParseInt64(acctID)
	if srcID != nil {
		src := snowflake.ParseInt64(*srcID)
		op.SourceAccountID = &src
	}
	return &op, nil
}

func collectAudits(rows pgx.Rows) ([]BenefitAudit, error) {
	defer rows.Close()
	out := []BenefitAudit{}
	for rows.Next() {
		var a BenefitAudit
		if err := rows.Scan(&a.ID, &a.Rev, &a.RevType, &a.BenefitID, &a.Name, &a.User); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullableID(id *snowflake.ID) *int64 {
	if id == nil {
		return nil
	}
	v := id.Int64()
	return &v
}

// pgError maps lost serialization races to ErrConcurrentModification so the
// engine retries them.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return ErrConcurrentModification
		}
	}
	return err
}
