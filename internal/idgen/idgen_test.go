package idgen

import (
	"errors"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shortPattern = regexp.MustCompile(`^[0-9A-Z]{4}$`)

func TestShortPolicyFormat(t *testing.T) {
	g, err := New(PolicyShort, 0)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		id, err := g.Generate(nil)
		require.NoError(t, err)
		assert.Regexp(t, shortPattern, id)
	}
}

func TestShortPolicyRetriesUntilFree(t *testing.T) {
	// 同一种子生成的序列可预测，先取出前三个再把它们标记为占用
	sampler := NewWithSource(10, rand.NewSource(42))
	first, _ := sampler.Generate(nil)
	second, _ := sampler.Generate(nil)
	third, _ := sampler.Generate(nil)

	g := NewWithSource(10, rand.NewSource(42))
	calls := 0
	id, err := g.Generate(func(id string) (bool, error) {
		calls++
		return id == first || id == second, nil
	})
	require.NoError(t, err)
	assert.Equal(t, third, id)
	assert.Equal(t, 3, calls)
}

func TestShortPolicyInSet(t *testing.T) {
	g := NewWithSource(5, rand.NewSource(7))
	existing := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		id, err := g.Generate(InSet(existing))
		require.NoError(t, err)
		_, dup := existing[id]
		require.False(t, dup, "duplicate id %s", id)
		existing[id] = struct{}{}
	}
}

func TestShortPolicyExhausted(t *testing.T) {
	g := NewWithSource(3, rand.NewSource(1))
	_, err := g.Generate(func(string) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestTakenErrorAborts(t *testing.T) {
	boom := errors.New("store down")
	g := NewWithSource(3, rand.NewSource(1))
	_, err := g.Generate(func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestUUIDPolicy(t *testing.T) {
	g, err := New(PolicyUUID, 0)
	require.NoError(t, err)

	calls := 0
	id, err := g.Generate(func(string) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, 1, calls)

	_, err = g.Generate(func(string) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestUnsupportedPolicy(t *testing.T) {
	_, err := New(Policy("sequential"), 0)
	assert.Error(t, err)
}
