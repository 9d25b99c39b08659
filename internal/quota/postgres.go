package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"echodao-backend/internal/model"

	_ "github.com/lib/pq"
)

const createCreationsTable = `
CREATE TABLE IF NOT EXISTS proposal_creations (
	id           SERIAL PRIMARY KEY,
	user_address VARCHAR(42) NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	proposal_id  BIGINT,
	tx_hash      VARCHAR(66),
	amount_wei   NUMERIC(78, 0) NOT NULL,
	fee_paid_wei NUMERIC(78, 0) NOT NULL,
	is_free      BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS proposal_creations_user_idx ON proposal_creations (user_address);`

// PostgresStore keeps one row per creation in proposal_creations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects, pings and makes sure the table exists.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, func() error, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, errors.New("failed to open postgres: " + err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, errors.New("failed to connect to postgres: " + err.Error())
	}

	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCreationsTable); err != nil {
		return fmt.Errorf("failed to create proposal_creations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Records(ctx context.Context, user string) ([]model.CreationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT created_at, proposal_id, tx_hash, amount_wei, fee_paid_wei, is_free FROM proposal_creations WHERE user_address = $1 ORDER BY created_at",
		user)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposal_creations: %w", err)
	}
	defer rows.Close()

	var records []model.CreationRecord
	for rows.Next() {
		var (
			r          model.CreationRecord
			proposalID sql.NullInt64
			txHash     sql.NullString
			amount     string
			fee        string
		)
		if err := rows.Scan(&r.CreatedAt, &proposalID, &txHash, &amount, &fee, &r.IsFree); err != nil {
			return nil, fmt.Errorf("failed to scan proposal_creations: %w", err)
		}
		if proposalID.Valid {
			id := uint64(proposalID.Int64)
			r.ProposalID = &id
		}
		r.TxHash = txHash.String
		r.Amount = parseWei(amount)
		r.FeePaid = parseWei(fee)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, user string, record model.CreationRecord) error {
	var proposalID sql.NullInt64
	if record.ProposalID != nil {
		proposalID = sql.NullInt64{Int64: int64(*record.ProposalID), Valid: true}
	}
	txHash := sql.NullString{String: record.TxHash, Valid: record.TxHash != ""}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO proposal_creations (user_address, created_at, proposal_id, tx_hash, amount_wei, fee_paid_wei, is_free) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		user, record.CreatedAt, proposalID, txHash, weiString(record.Amount), weiString(record.FeePaid), record.IsFree)
	if err != nil {
		return fmt.Errorf("failed to insert into proposal_creations: %w", err)
	}
	return nil
}
