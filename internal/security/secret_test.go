package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	s := Secret([]byte("super-secret-key"))

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%x", "%q"} {
		assert.Equal(t, "[SECRET]", fmt.Sprintf(verb, s), verb)
	}
	assert.Equal(t, "[SECRET]", s.String())

	b, err := json.Marshal(struct{ Key Secret }{Key: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Key":"[SECRET]"}`, string(b))

	txt, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[SECRET]", string(txt))
}

func TestSecret_TextLogHandlerRedacts(t *testing.T) {
	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("login", "key", Secret("super-secret-key"))

	assert.Contains(t, buf.String(), "key=[SECRET]")
	assert.NotContains(t, buf.String(), "super-secret-key")
}

func TestSecret_Zero(t *testing.T) {
	s := Secret([]byte{1, 2, 3})
	assert.False(t, s.IsZero())

	s.Zero()
	assert.True(t, s.IsZero())
	assert.Equal(t, Secret{0, 0, 0}, s)

	var empty Secret
	assert.NotPanics(t, empty.Zero)
	assert.True(t, empty.IsZero())
}

func TestSecret_UsePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := Secret([]byte{1}).Use(func([]byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}
