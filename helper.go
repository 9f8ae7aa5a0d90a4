package ledgerxgo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is the seed data loaded by the seeder and by the in-memory store.
type Fixture struct {
	Clients []struct {
		ID       int64  `yaml:"id"`
		Username string `yaml:"username"`
		Role     string `yaml:"role"`
	} `yaml:"clients"`
	Accounts []struct {
		ID      int64  `yaml:"id"`
		Client  string `yaml:"client"`
		Balance string `yaml:"balance"`
		Name    string `yaml:"name"`
		Details string `yaml:"details"`
	} `yaml:"accounts"`
	Revisions []struct {
		Rev  int64  `yaml:"rev"`
		User string `yaml:"user"`
	} `yaml:"revisions"`
	Audits []struct {
		ID        int64  `yaml:"id"`
		Rev       int64  `yaml:"rev"`
		RevType   int    `yaml:"revtype"`
		BenefitID int64  `yaml:"benefit_id"`
		Name      string `yaml:"name"`
	} `yaml:"audits"`
}

func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fx Fixture
	if err = yaml.NewDecoder(f).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return &fx, nil
}

func (fx *Fixture) clientIDs() map[string]snowflake.ID {
	ids := make(map[string]snowflake.ID, len(fx.Clients))
	for _, c := range fx.Clients {
		ids[c.Username] = snowflake.ParseInt64(c.ID)
	}
	return ids
}

func (fx *Fixture) accounts() ([]Account, error) {
	owners := fx.clientIDs()
	out := make([]Account, 0, len(fx.Accounts))
	for _, a := range fx.Accounts {
		bal, err := decimal.NewFromString(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %d balance: %w", a.ID, err)
		}
		acct := Account{
			ID:      snowflake.ParseInt64(a.ID),
			Balance: bal,
			Name:    a.Name,
			Details: a.Details,
		}
		if cid, ok := owners[a.Client]; ok {
			acct.ClientID = &cid
		}
		out = append(out, acct)
	}
	return out, nil
}

// SeedMemStore loads the fixture into s.
func (fx *Fixture) SeedMemStore(ctx context.Context, s *MemStore) error {
	for _, c := range fx.Clients {
		s.AddClient(Client{ID: snowflake.ParseInt64(c.ID), Username: c.Username, Role: ParseRole(c.Role)})
	}
	accts, err := fx.accounts()
	if err != nil {
		return err
	}
	for i := range accts {
		if err = s.CreateAccount(ctx, &accts[i]); err != nil {
			return err
		}
	}
	for _, r := range fx.Revisions {
		s.AddRevision(RevisionInfo{Rev: r.Rev, User: r.User})
	}
	for _, a := range fx.Audits {
		s.AddAudit(BenefitAudit{ID: a.ID, Rev: a.Rev, RevType: a.RevType, BenefitID: a.BenefitID, Name: a.Name})
	}
	return nil
}

// LocalHelper prepares a Postgres database for local runs and integration tests.
type LocalHelper struct {
	Conn *pgx.Conn
	Dir  string
}

func NewLocalHelper(cfg *Config, dir string) (*LocalHelper, error) {
	conn, err := pgx.Connect(context.Background(), cfg.Database.ConnectionString)
	if err != nil {
		return nil, err
	}
	return &LocalHelper{
		Conn: conn,
		Dir:  dir,
	}, nil
}

func (lh *LocalHelper) InitDB() (func(), error) {
	if err := lh.execFile("init_db.sql"); err != nil {
		return nil, err
	}
	return lh.teardownDB(), nil
}

// Seed inserts the fixture. Rows that already exist are left as they are.
func (lh *LocalHelper) Seed(fx *Fixture) error {
	ctx := context.Background()
	tx, err := lh.Conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range fx.Clients {
		batch.Queue(`INSERT INTO clients (id, username, role) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`,
			c.ID, c.Username, ParseRole(c.Role).String())
	}
	accts, err := fx.accounts()
	if err != nil {
		return err
	}
	for _, a := range accts {
		batch.Queue(`INSERT INTO accounts (id, client_id, balance, name, details) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING;`,
			a.ID.Int64(), nullableID(a.ClientID), a.Balance, a.Name, a.Details)
	}
	for _, r := range fx.Revisions {
		batch.Queue(`INSERT INTO revinfo (rev, username) VALUES ($1, $2) ON CONFLICT DO NOTHING;`, r.Rev, r.User)
	}
	for _, a := range fx.Audits {
		batch.Queue(`INSERT INTO benefit_aud (id, rev, revtype, benefit_id, name) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING;`,
			a.ID, a.Rev, a.RevType, a.BenefitID, a.Name)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (lh *LocalHelper) execFile(name string) error {
	bits, err := os.ReadFile(filepath.Join(lh.Dir, name))
	if err != nil {
		return err
	}
	_, err = lh.Conn.Exec(context.Background(), string(bits))
	return err
}

func (lh *LocalHelper) teardownDB() func() {
	return func() {
		defer lh.Conn.Close(context.Background())

		if err := lh.execFile("teardown_db.sql"); err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup exec teardown sql: %s", err.Error())
		}
	}
}
