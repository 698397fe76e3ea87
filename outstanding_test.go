package corectx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutstandingCounterZeroTransitionFiresOnZero(t *testing.T) {
	zeroed := false
	c := newOutstandingCounter(nil, func() { zeroed = true })

	tok := c.NewToken()
	require.True(t, c.Live())
	require.False(t, zeroed)

	tok.Release()
	require.False(t, c.Live())
	require.True(t, zeroed)
}

func TestOutstandingCounterReleaseIsIdempotent(t *testing.T) {
	n := 0
	c := newOutstandingCounter(nil, func() { n++ })
	tok := c.NewToken()
	tok.Release()
	tok.Release()
	require.Equal(t, 1, n)
}

func TestOutstandingCounterAdoptsParentOnFirstToken(t *testing.T) {
	parentZeroed := false
	parent := newOutstandingCounter(nil, func() { parentZeroed = true })
	child := newOutstandingCounter(parent, func() {})

	require.False(t, parent.Live())
	tok := child.NewToken()
	require.True(t, parent.Live(), "child's first token must lazily adopt a parent token")

	tok.Release()
	require.True(t, parentZeroed)
	require.False(t, parent.Live())
}
