package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, salt, kdf_time, kdf_memory_kib, kdf_threads, master_key_verifier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (username) DO NOTHING`

	return create(ctx, r.db, query, user)
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, master_key_verifier, salt, kdf_time, kdf_memory_kib, kdf_threads
		 FROM users WHERE username = $1`

	return getByLogin(ctx, r.db, query, userName)
}

// create and getByLogin hold the dialect-independent part; only the
// placeholders differ between PostgreSQL and SQLite.
func create(ctx context.Context, db dbx.DBTX, query string, user *models.User) (*models.User, error) {
	res, err := db.ExecContext(ctx, query, user.ID, user.UserName, user.Salt,
		user.KDFTime, user.KDFMemoryKiB, user.KDFThreads, user.Verifier)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrorAlreadyExists
	}

	return user, nil
}

func getByLogin(ctx context.Context, db dbx.DBTX, query, userName string) (*models.User, error) {
	user := &models.User{}
	err := db.QueryRowContext(ctx, query, userName).
		Scan(&user.ID, &user.UserName, &user.Verifier, &user.Salt,
			&user.KDFTime, &user.KDFMemoryKiB, &user.KDFThreads)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
