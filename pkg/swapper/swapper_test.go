package swapper_test

import (
	"strconv"
	"testing"

	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/swapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intSwapper struct{}

func (intSwapper) ToPersisted(v int) (string, error) {
	return strconv.Itoa(v), nil
}

func (intSwapper) FromPersisted(s string) (int, error) {
	return strconv.Atoi(s)
}

func TestRegisterLookup(t *testing.T) {
	assert := assert.New(t)

	reg := swapper.NewRegistry()
	require.NoError(t, swapper.Register[int, string](reg, "int", intSwapper{}))

	s, err := swapper.Lookup[int, string](reg, "int")
	require.NoError(t, err)

	p, err := s.ToPersisted(42)
	assert.NoError(err)
	assert.Equal("42", p)

	v, err := s.FromPersisted("7")
	assert.NoError(err)
	assert.Equal(7, v)

	assert.Equal([]swapper.Kind{"int"}, reg.Kinds())
}

func TestRegisterTwice(t *testing.T) {
	reg := swapper.NewRegistry()
	require.NoError(t, swapper.Register[int, string](reg, "int", intSwapper{}))

	err := swapper.Register[int, string](reg, "int", intSwapper{})
	assert.True(t, rwerror.Is(err, rwerror.RW_INVALID_CONFIG))
}

func TestLookupUnknownKind(t *testing.T) {
	reg := swapper.NewRegistry()

	_, err := swapper.Lookup[int, string](reg, "missing")
	assert.True(t, rwerror.Is(err, rwerror.RW_UNKNOWN_KIND))
}

func TestLookupTypeMismatch(t *testing.T) {
	reg := swapper.NewRegistry()
	require.NoError(t, swapper.Register[int, string](reg, "int", intSwapper{}))

	_, err := swapper.Lookup[string, int](reg, "int")
	assert.True(t, rwerror.Is(err, rwerror.RW_UNKNOWN_KIND))
}
