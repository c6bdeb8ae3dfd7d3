package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewSQLiteDB(t))
	ctx := context.Background()

	created, err := r.Create(ctx, &models.User{UserName: "alice", Salt: []byte("salt"),
		KDFTime: 2, KDFMemoryKiB: 4096, KDFThreads: 3, Verifier: []byte("ver")})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := r.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, []byte("salt"), got.Salt)
	assert.Equal(t, []byte("ver"), got.Verifier)
	assert.Equal(t, uint32(2), got.KDFTime)
	assert.Equal(t, uint32(4096), got.KDFMemoryKiB)
	assert.Equal(t, uint8(3), got.KDFThreads)
}

func TestSQLiteRepository_Duplicate(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewSQLiteDB(t))
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{UserName: "alice", Salt: []byte("s1"), Verifier: []byte("v1")})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.User{UserName: "alice", Salt: []byte("s2"), Verifier: []byte("v2")})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := r.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), got.Salt, "first registration must survive")
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewSQLiteDB(t))

	_, err := r.GetUserByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteRepository_UsernameIsCaseSensitive(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewSQLiteDB(t))
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{UserName: "alice", Salt: []byte("s"), Verifier: []byte("v")})
	require.NoError(t, err)
	_, err = r.Create(ctx, &models.User{UserName: "Alice", Salt: []byte("s"), Verifier: []byte("v")})
	require.NoError(t, err)
}
