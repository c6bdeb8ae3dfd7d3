package passgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ClassesAndLength(t *testing.T) {
	g := New()

	tests := []struct {
		name string
		opts Options
	}{
		{name: "letters only", opts: Options{Length: 12}},
		{name: "digits", opts: Options{Length: 16, HasDigits: true}},
		{name: "special", opts: Options{Length: 20, HasSpecial: true}},
		{name: "all classes at minimum length", opts: Options{Length: MinLength, HasDigits: true, HasSpecial: true}},
		{name: "max length", opts: Options{Length: MaxLength, HasDigits: true, HasSpecial: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// repeat to catch a class being dropped by chance
			for i := 0; i < 50; i++ {
				pw, err := g.Generate(tt.opts)
				require.NoError(t, err)
				require.Len(t, pw, tt.opts.Length)

				assert.True(t, strings.ContainsAny(pw, letters))
				assert.Equal(t, tt.opts.HasDigits, strings.ContainsAny(pw, digits), pw)
				assert.Equal(t, tt.opts.HasSpecial, strings.ContainsAny(pw, special), pw)
			}
		})
	}
}

func TestGenerate_InvalidLength(t *testing.T) {
	g := New()
	for _, n := range []int{-1, 0, MinLength - 1, MaxLength + 1} {
		_, err := g.Generate(Options{Length: n})
		assert.ErrorIs(t, err, ErrInvalidLength, n)
	}
}

func TestGenerate_Distinct(t *testing.T) {
	g := New()
	a, err := g.Generate(Options{Length: 32, HasDigits: true})
	require.NoError(t, err)
	b, err := g.Generate(Options{Length: 32, HasDigits: true})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_RandomSourceFailure(t *testing.T) {
	_, err := NewWithReader(failingReader{}).Generate(Options{Length: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}
