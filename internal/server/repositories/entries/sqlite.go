package entries

import "github.com/dmitrijs2005/passvault/internal/dbx"

var sqliteQueries = queries{
	upsert: `INSERT INTO vault_entries (username, label, algorithm, nonce, ciphertext)
		VALUES (?1, ?2, ?3, ?4, ?5)
		ON CONFLICT (username, label)
		DO UPDATE SET
			algorithm = excluded.algorithm,
			nonce = excluded.nonce,
			ciphertext = excluded.ciphertext,
			updated_at = CURRENT_TIMESTAMP`,
	update: `UPDATE vault_entries
		SET algorithm = ?3, nonce = ?4, ciphertext = ?5, updated_at = CURRENT_TIMESTAMP
		WHERE username = ?1 AND label = ?2`,
	get: `SELECT algorithm, nonce, ciphertext FROM vault_entries
		WHERE username = ?1 AND label = ?2`,
	delete: `DELETE FROM vault_entries WHERE username = ?1 AND label = ?2`,
	list:   `SELECT label FROM vault_entries WHERE username = ?1 ORDER BY seq`,
}

// SQLiteRepository implements entry storage for the embedded SQLite driver.
type SQLiteRepository struct {
	repository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{repository{db: db, q: sqliteQueries}}
}
