// Package services contains server-side business logic. This file implements
// UserService, which handles registration and master-password authentication.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/security"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
)

// UserService provides authentication-related operations:
// - Register: create users with a fresh salt and a key verifier
// - Authenticate: re-derive the key and compare verifiers
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	deriver     *cryptox.Deriver
	dummySalt   []byte
}

// NewUserService constructs a UserService over the given database.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, d *cryptox.Deriver) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		deriver:     d,
		dummySalt:   d.NewSalt(),
	}
}

// Register stores a new user. The derived key itself is never persisted, only
// its verifier. A taken username yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username string, password []byte) error {
	salt := s.deriver.NewSalt()
	key, err := s.deriver.Derive(password, salt)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	defer key.Zero()

	p := s.deriver.Params()
	user := &models.User{
		UserName:     username,
		Salt:         salt,
		KDFTime:      p.Time,
		KDFMemoryKiB: p.MemoryKiB,
		KDFThreads:   p.Threads,
		Verifier:     cryptox.MakeVerifier(key),
	}
	repo := s.repomanager.Users(s.db)
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// Authenticate returns the user's derived key when password matches.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized, and
// an unknown user still pays for one derivation so both paths take about
// the same time.
func (s *UserService) Authenticate(ctx context.Context, username string, password []byte) (security.Secret, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if k, derr := s.deriver.Derive(password, s.dummySalt); derr == nil {
				k.Zero()
			}
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	// costs recorded at registration win over the current settings
	key, err := cryptox.DeriveWith(userParams(user), password, user.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !cryptox.CheckVerifier(user.Verifier, key) {
		key.Zero()
		return nil, common.ErrorUnauthorized
	}
	return key, nil
}

func userParams(u *models.User) cryptox.Params {
	return cryptox.Params{
		Time:      u.KDFTime,
		MemoryKiB: u.KDFMemoryKiB,
		Threads:   u.KDFThreads,
		SaltLen:   len(u.Salt),
	}
}
