package corectx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterExceptionAscendsToParentWhenLocalDeclines(t *testing.T) {
	root := newRootContext()
	child := Create[struct{}](root)

	require.NoError(t, Add(root, &fakeFilter{swallow: true}))
	require.NoError(t, Add(child, &fakeFilter{swallow: false}))

	swallowed := child.filterException(errors.New("boom"))
	require.True(t, swallowed)
}

func TestFilterExceptionUnhandledReturnsFalse(t *testing.T) {
	root := newRootContext()
	swallowed := root.filterException(errors.New("boom"))
	require.False(t, swallowed)
}

func TestCallProtectedSwallowsRecoveredPanicViaFilter(t *testing.T) {
	root := newRootContext()
	require.NoError(t, Add(root, &fakeFilter{swallow: true}))

	err := callProtected(root, func() { panic("boom") })
	require.NoError(t, err)
}

func TestCallProtectedReturnsUserExceptionWhenUnhandled(t *testing.T) {
	root := newRootContext()
	err := callProtected(root, func() { panic("boom") })
	require.Error(t, err)
	var ue *UserException
	require.True(t, errors.As(err, &ue))
}
