package vault

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
)

// SQLBackend keeps entries in the vault_entries table next to the users.
type SQLBackend struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSQLBackend(db *sql.DB, m repomanager.RepositoryManager) *SQLBackend {
	return &SQLBackend{db: db, repomanager: m}
}

func toModel(username, label string, s cryptox.Sealed) *models.VaultEntry {
	return &models.VaultEntry{
		UserName:   username,
		Label:      label,
		Algorithm:  s.Algorithm,
		Nonce:      s.Nonce,
		Ciphertext: s.Ciphertext,
	}
}

func fromModel(e *models.VaultEntry) cryptox.Sealed {
	return cryptox.Sealed{Algorithm: e.Algorithm, Nonce: e.Nonce, Ciphertext: e.Ciphertext}
}

func (b *SQLBackend) Put(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	return b.repomanager.Entries(b.db).Upsert(ctx, toModel(username, label, entry))
}

func (b *SQLBackend) Update(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	return b.repomanager.Entries(b.db).Update(ctx, toModel(username, label, entry))
}

func (b *SQLBackend) Get(ctx context.Context, username, label string) (cryptox.Sealed, error) {
	e, err := b.repomanager.Entries(b.db).Get(ctx, username, label)
	if err != nil {
		return cryptox.Sealed{}, err
	}
	return fromModel(e), nil
}

func (b *SQLBackend) Delete(ctx context.Context, username, label string) error {
	return b.repomanager.Entries(b.db).Delete(ctx, username, label)
}

func (b *SQLBackend) List(ctx context.Context, username string) ([]string, error) {
	return b.repomanager.Entries(b.db).ListLabels(ctx, username)
}
