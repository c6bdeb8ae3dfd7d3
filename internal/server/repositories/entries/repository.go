// Package entries persists sealed vault entries keyed by (username, label).
package entries

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository stores vault entries. Update, Get and Delete return
// common.ErrorNotFound when the (username, label) pair does not exist.
// ListLabels returns labels in insertion order.
type Repository interface {
	Upsert(ctx context.Context, entry *models.VaultEntry) error
	Update(ctx context.Context, entry *models.VaultEntry) error
	Get(ctx context.Context, userName, label string) (*models.VaultEntry, error)
	Delete(ctx context.Context, userName, label string) error
	ListLabels(ctx context.Context, userName string) ([]string, error)
}
