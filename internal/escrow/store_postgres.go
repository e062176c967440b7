package escrow

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

// PostgresStore persists escrow records in PostgreSQL. The status column is
// only ever written through the compare-and-set UPDATE, so the database is
// the arbiter of concurrent transitions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the escrow table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escrows (
			id              UUID PRIMARY KEY,
			buyer_wallet    TEXT NOT NULL,
			seller_wallet   TEXT,
			seller_agent    TEXT NOT NULL,
			amount          TEXT NOT NULL,
			status          TEXT NOT NULL,
			service_details TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			expires_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL,
			CHECK (expires_at > created_at)
		);
		CREATE INDEX IF NOT EXISTS escrows_buyer_idx ON escrows (lower(buyer_wallet));
		CREATE INDEX IF NOT EXISTS escrows_seller_idx ON escrows (lower(seller_wallet));
		CREATE INDEX IF NOT EXISTS escrows_overdue_idx ON escrows (expires_at)
			WHERE status NOT IN ('released', 'refunded', 'expired');
	`)
	if err != nil {
		return fmt.Errorf("migrate escrow schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, e *Escrow) error {
	var seller *string
	if !e.SellerWallet.IsZero() {
		v := e.SellerWallet.String()
		seller = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO escrows (id, buyer_wallet, seller_wallet, seller_agent, amount, status,
		                     service_details, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID.String(), e.BuyerWallet.String(), seller, e.SellerAgent.String(),
		e.Amount.String(), string(e.Status), e.ServiceDetails, e.CreatedAt, e.ExpiresAt, e.UpdatedAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert escrow")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.EscrowID) (*Escrow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, buyer_wallet, seller_wallet, seller_agent, amount, status,
		       service_details, created_at, expires_at, updated_at
		FROM escrows WHERE id = $1
	`, id.String())
	return scanEscrow(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id domain.EscrowID, observed, next Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE escrows SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, string(next), time.Now(), id.String(), string(observed))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update escrow status")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM escrows WHERE id = $1)`,
			id.String()).Scan(&exists); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check escrow existence")
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (s *PostgresStore) ListByWallet(ctx context.Context, wallet domain.WalletAddress) ([]*Escrow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, buyer_wallet, seller_wallet, seller_agent, amount, status,
		       service_details, created_at, expires_at, updated_at
		FROM escrows
		WHERE lower(buyer_wallet) = $1 OR lower(seller_wallet) = $1
	`, wallet.Canonical())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list escrows by wallet")
	}
	defer rows.Close()
	return collectEscrows(rows)
}

func (s *PostgresStore) ListOverdue(ctx context.Context, limit int) ([]*Escrow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, buyer_wallet, seller_wallet, seller_agent, amount, status,
		       service_details, created_at, expires_at, updated_at
		FROM escrows
		WHERE expires_at < now() AND status NOT IN ('released', 'refunded', 'expired')
		ORDER BY expires_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list overdue escrows")
	}
	defer rows.Close()
	return collectEscrows(rows)
}

func scanEscrow(row interface{ Scan(dest ...any) error }) (*Escrow, error) {
	var (
		e      Escrow
		id     string
		buyer  string
		seller *string
		agent  string
		amount string
		status string
	)
	err := row.Scan(&id, &buyer, &seller, &agent, &amount, &status,
		&e.ServiceDetails, &e.CreatedAt, &e.ExpiresAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan escrow row")
	}
	eid, err := domain.ParseEscrowID(id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored escrow id is invalid")
	}
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored amount is invalid")
	}
	e.ID = eid
	e.BuyerWallet = domain.WalletAddress(buyer)
	if seller != nil {
		e.SellerWallet = domain.WalletAddress(*seller)
	}
	e.SellerAgent = domain.DomainName(agent)
	e.Amount = amt
	e.Status = Status(status)
	return &e, nil
}

func collectEscrows(rows pgx.Rows) ([]*Escrow, error) {
	var out []*Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate escrow rows")
	}
	return out, nil
}
