package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// PostgresStore persists domain records and ledger entries in PostgreSQL.
// Commit runs the record update and the ledger inserts inside one database
// transaction, which carries the store's all-or-nothing contract.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the registry tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS domains (
			name        TEXT PRIMARY KEY,
			address     TEXT NOT NULL UNIQUE,
			bump        SMALLINT NOT NULL,
			owner_wallet TEXT NOT NULL,
			endpoint    TEXT NOT NULL DEFAULT '',
			is_listed   BOOLEAN NOT NULL DEFAULT FALSE,
			price       TEXT,
			created_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			version     BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS domains_owner_idx ON domains (lower(owner_wallet));
		CREATE INDEX IF NOT EXISTS domains_listed_idx ON domains (is_listed) WHERE is_listed;

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id          BIGSERIAL PRIMARY KEY,
			from_wallet TEXT NOT NULL,
			to_wallet   TEXT NOT NULL,
			amount      TEXT NOT NULL,
			memo        TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate registry schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name domain.DomainName) (*Domain, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT name, address, bump, owner_wallet, endpoint, is_listed, price,
		       created_at, expires_at, updated_at, version
		FROM domains WHERE name = $1
	`, name.String())
	return scanDomain(row)
}

func (s *PostgresStore) Create(ctx context.Context, d *Domain) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO domains (name, address, bump, owner_wallet, endpoint, is_listed, price,
		                     created_at, expires_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO NOTHING
	`, d.Name.String(), d.Address, int16(d.Bump), d.Owner.String(), d.Endpoint,
		d.IsListed, priceColumn(d), d.CreatedAt, d.ExpiresAt, d.UpdatedAt, int64(d.Version))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert domain")
	}
	if tag.RowsAffected() == 0 {
		return dErrors.Newf(dErrors.CodeDuplicateName, "domain %q already registered", d.Name)
	}
	return nil
}

func (s *PostgresStore) Commit(ctx context.Context, updated *Domain, expectedVersion uint64, transfers []Transfer) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin commit")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE domains
		SET owner_wallet = $1, endpoint = $2, is_listed = $3, price = $4,
		    expires_at = $5, updated_at = $6, version = version + 1
		WHERE name = $7 AND version = $8
	`, updated.Owner.String(), updated.Endpoint, updated.IsListed, priceColumn(updated),
		updated.ExpiresAt, updated.UpdatedAt, updated.Name.String(), int64(expectedVersion))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update domain")
	}
	if tag.RowsAffected() == 0 {
		// Either the record vanished or someone committed ahead of us.
		// Distinguish for the caller: a loser must fail cleanly, not mask a
		// missing record.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM domains WHERE name = $1)`,
			updated.Name.String()).Scan(&exists); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check domain existence")
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	for _, t := range transfers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ledger_entries (from_wallet, to_wallet, amount, memo)
			VALUES ($1, $2, $3, $4)
		`, t.From.String(), t.To.String(), t.Amount.String(), t.Memo); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "insert ledger entry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit registry transaction")
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.WalletAddress) ([]*Domain, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, address, bump, owner_wallet, endpoint, is_listed, price,
		       created_at, expires_at, updated_at, version
		FROM domains WHERE lower(owner_wallet) = $1
	`, owner.Canonical())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list domains by owner")
	}
	defer rows.Close()
	return collectDomains(rows)
}

func (s *PostgresStore) ListForSale(ctx context.Context) ([]*Domain, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, address, bump, owner_wallet, endpoint, is_listed, price,
		       created_at, expires_at, updated_at, version
		FROM domains WHERE is_listed
	`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list domains for sale")
	}
	defer rows.Close()
	return collectDomains(rows)
}

// priceColumn renders the price for storage: NULL when unlisted keeps the
// "price present iff listed" invariant visible in the schema.
func priceColumn(d *Domain) *string {
	if d.Price.IsZero() {
		return nil
	}
	p := d.Price.String()
	return &p
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*Domain, error) {
	var (
		d       Domain
		name    string
		owner   string
		bump    int16
		price   *string
		version int64
		created, expires, updated time.Time
	)
	err := row.Scan(&name, &d.Address, &bump, &owner, &d.Endpoint, &d.IsListed, &price,
		&created, &expires, &updated, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan domain row")
	}
	d.Name = domain.DomainName(name)
	d.Owner = domain.WalletAddress(owner)
	d.Bump = uint8(bump)
	d.CreatedAt = created
	d.ExpiresAt = expires
	d.UpdatedAt = updated
	d.Version = uint64(version)
	if price != nil {
		amt, err := domain.ParseAmount(*price)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored price is not a valid amount")
		}
		d.Price = amt
	}
	return &d, nil
}

func collectDomains(rows pgx.Rows) ([]*Domain, error) {
	var out []*Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate domain rows")
	}
	return out, nil
}
