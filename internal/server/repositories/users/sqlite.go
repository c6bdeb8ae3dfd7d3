package users

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/google/uuid"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, salt, kdf_time, kdf_memory_kib, kdf_threads, master_key_verifier)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO NOTHING`

	return create(ctx, r.db, query, user)
}

func (r *SQLiteRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, master_key_verifier, salt, kdf_time, kdf_memory_kib, kdf_threads
		 FROM users WHERE username = ?`

	return getByLogin(ctx, r.db, query, userName)
}
