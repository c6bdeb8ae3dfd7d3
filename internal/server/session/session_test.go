package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/security"
	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestNew_StartsLoggedIn(t *testing.T) {
	s := New("alice", security.Secret([]byte("0123456789abcdef0123456789abcdef")))

	assert.True(t, s.LoggedIn())
	assert.Equal(t, "alice", s.Username)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.Key().IsZero())
}

func TestEnd_WipesKeyOnce(t *testing.T) {
	key := security.Secret([]byte("0123456789abcdef"))
	s := New("alice", key)

	assert.True(t, s.End())
	assert.False(t, s.LoggedIn())
	assert.True(t, key.IsZero())
	assert.Nil(t, s.Key())

	assert.False(t, s.End(), "second End must be a no-op")
}

func TestEnd_ConcurrentCallsEndOnce(t *testing.T) {
	s := New("alice", security.Secret([]byte("k")))
	ended := atomic.NewInt32(0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.End() {
				ended.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ended.Load())
}

func TestSessionsHaveDistinctIDs(t *testing.T) {
	a := New("alice", security.Secret([]byte("k")))
	b := New("alice", security.Secret([]byte("k")))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestKeyNeverFormatted(t *testing.T) {
	s := New("alice", security.Secret([]byte("top-secret-key")))
	out := fmt.Sprintf("%v %+v", s, s)
	assert.NotContains(t, out, "top-secret-key")
	assert.NotContains(t, out, "116 111 112")
	assert.Contains(t, out, "user=alice")
}
