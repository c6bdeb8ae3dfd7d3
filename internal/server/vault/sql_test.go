package vault

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLStore(t *testing.T, usernames ...string) *Store {
	t.Helper()
	db := repotest.NewSQLiteDB(t)
	m := repomanager.NewSQLiteRepositoryManager()
	for _, u := range usernames {
		_, err := m.Users(db).Create(context.Background(), &models.User{UserName: u, Salt: []byte("s"), Verifier: []byte("v")})
		require.NoError(t, err)
	}
	return NewStore(NewSQLBackend(db, m))
}

func sealed(ct string) cryptox.Sealed {
	return cryptox.Sealed{Algorithm: cryptox.AlgorithmAESGCM, Nonce: []byte("0123456789ab"), Ciphertext: []byte(ct)}
}

// backendContract runs the behaviour every Backend must share.
func backendContract(t *testing.T, s *Store) {
	ctx := context.Background()

	labels, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, labels)

	_, err = s.Get(ctx, "alice", "github")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "alice", "github", sealed("x")), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "alice", "github"), ErrNotFound)

	require.NoError(t, s.Put(ctx, "alice", "github", sealed("one")))
	require.NoError(t, s.Put(ctx, "alice", "email", sealed("two")))
	require.NoError(t, s.Put(ctx, "alice", "github", sealed("three")))

	got, err := s.Get(ctx, "alice", "github")
	require.NoError(t, err)
	assert.Equal(t, sealed("three"), got)

	require.NoError(t, s.Update(ctx, "alice", "email", sealed("four")))
	got, err = s.Get(ctx, "alice", "email")
	require.NoError(t, err)
	assert.Equal(t, []byte("four"), got.Ciphertext)

	labels, err = s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "email"}, labels)

	require.NoError(t, s.Delete(ctx, "alice", "github"))
	_, err = s.Get(ctx, "alice", "github")
	assert.ErrorIs(t, err, ErrNotFound)

	labels, err = s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, labels)

	// bob never sees alice's entries
	_, err = s.Get(ctx, "bob", "email")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLBackend_Contract(t *testing.T) {
	backendContract(t, newSQLStore(t, "alice", "bob"))
}
