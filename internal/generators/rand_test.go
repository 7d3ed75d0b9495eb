package generators

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomIntInclusiveBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := RandomInt(r, 2, 5)
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 5)
		seen[n] = true
	}
	// Both endpoints are reachable
	assert.True(t, seen[2])
	assert.True(t, seen[5])
}

func TestRandomIntSwappedBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	n := RandomInt(r, 5, 2)
	assert.GreaterOrEqual(t, n, 2)
	assert.LessOrEqual(t, n, 5)
}

func TestRandomNonZeroInt(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := RandomNonZeroInt(r, 3)
		assert.NotZero(t, n)
		assert.GreaterOrEqual(t, n, -3)
		assert.LessOrEqual(t, n, 3)
		seen[n] = true
	}
	assert.True(t, seen[-3])
	assert.True(t, seen[3])
}

func TestPick(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	pool := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		assert.Contains(t, pool, Pick(r, pool))
	}
}

func TestPickEmptyPanics(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	assert.Panics(t, func() { Pick(r, []string{}) })
}

func TestShuffleOptionsKeepsMembers(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	options := []string{"1", "2", "3", "4"}
	shuffled := append([]string(nil), options...)
	ShuffleOptions(r, shuffled)
	assert.ElementsMatch(t, options, shuffled)
}
