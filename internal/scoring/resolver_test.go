package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExactID(t *testing.T) {
	test := buildTest(
		singleChoice("Delhi", 4, 1),
		singleChoice("Mumbai", 4, 1),
	)

	q, ok := Resolve(test, test.Questions[1].ID)
	assert.True(t, ok)
	assert.Equal(t, 1, q.Position)
}

func TestResolveTrailingIndexFallback(t *testing.T) {
	test := buildTest(
		singleChoice("Delhi", 4, 1),
		singleChoice("Mumbai", 4, 1),
		singleChoice("Chennai", 4, 1),
	)

	// Identifier synthesized by an older client: wrong prefix, but the
	// trailing index is positional and 0-based.
	q, ok := Resolve(test, fmt.Sprintf("question_%s_2", test.ID))
	assert.True(t, ok)
	assert.Equal(t, 2, q.Position)
}

func TestResolveOutOfRangeIndex(t *testing.T) {
	test := buildTest(singleChoice("Delhi", 4, 1))

	_, ok := Resolve(test, "q_whatever_5")
	assert.False(t, ok)

	_, ok = Resolve(test, "q_whatever_-1")
	assert.False(t, ok)
}

func TestResolveGarbageIDs(t *testing.T) {
	test := buildTest(singleChoice("Delhi", 4, 1))

	for _, id := range []string{"", "nounderscore", "trailing_", "q_x_notanumber"} {
		_, ok := Resolve(test, id)
		assert.False(t, ok, "id %q should not resolve", id)
	}
}
