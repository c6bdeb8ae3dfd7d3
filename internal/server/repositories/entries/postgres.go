package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
)

type queries struct {
	upsert string
	update string
	get    string
	delete string
	list   string
}

var postgresQueries = queries{
	upsert: `INSERT INTO vault_entries (username, label, algorithm, nonce, ciphertext)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username, label)
		DO UPDATE SET
			algorithm = EXCLUDED.algorithm,
			nonce = EXCLUDED.nonce,
			ciphertext = EXCLUDED.ciphertext,
			updated_at = CURRENT_TIMESTAMP`,
	update: `UPDATE vault_entries
		SET algorithm = $3, nonce = $4, ciphertext = $5, updated_at = CURRENT_TIMESTAMP
		WHERE username = $1 AND label = $2`,
	get: `SELECT algorithm, nonce, ciphertext FROM vault_entries
		WHERE username = $1 AND label = $2`,
	delete: `DELETE FROM vault_entries WHERE username = $1 AND label = $2`,
	list:   `SELECT label FROM vault_entries WHERE username = $1 ORDER BY seq`,
}

// repository holds the dialect-independent logic; the dialect types only
// differ in their query text.
type repository struct {
	db dbx.DBTX
	q  queries
}

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	repository
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{repository{db: db, q: postgresQueries}}
}

// Upsert inserts the entry or replaces the sealed payload of an existing one.
// An existing entry keeps its position in the listing order.
func (r *repository) Upsert(ctx context.Context, e *models.VaultEntry) error {
	_, err := r.db.ExecContext(ctx, r.q.upsert, e.UserName, e.Label, e.Algorithm, e.Nonce, e.Ciphertext)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, e *models.VaultEntry) error {
	res, err := r.db.ExecContext(ctx, r.q.update, e.UserName, e.Label, e.Algorithm, e.Nonce, e.Ciphertext)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *repository) Get(ctx context.Context, userName, label string) (*models.VaultEntry, error) {
	e := &models.VaultEntry{UserName: userName, Label: label}
	err := r.db.QueryRowContext(ctx, r.q.get, userName, label).Scan(&e.Algorithm, &e.Nonce, &e.Ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *repository) Delete(ctx context.Context, userName, label string) error {
	res, err := r.db.ExecContext(ctx, r.q.delete, userName, label)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *repository) ListLabels(ctx context.Context, userName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.q.list, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to select labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
