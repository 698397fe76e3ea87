package corectx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifyWhenAutowiredFiresOnExistingValue(t *testing.T) {
	root := newRootContext()
	require.NoError(t, Add(root, &widget{name: "already-there"}))

	fired := false
	NotifyWhenAutowired[*widget](root, func() { fired = true })
	require.True(t, fired)
}

func TestNotifyWhenAutowiredFiresOnLaterAdd(t *testing.T) {
	root := newRootContext()

	fired := false
	NotifyWhenAutowired[*widget](root, func() { fired = true })
	require.False(t, fired)

	require.NoError(t, Add(root, &widget{name: "arrives-later"}))
	require.True(t, fired)
}

func TestNotifyWhenAutowiredFiresOnlyOnce(t *testing.T) {
	root := newRootContext()
	count := 0
	NotifyWhenAutowired[*widget](root, func() { count++ })
	require.NoError(t, Add(root, &widget{name: "x"}))
	require.Equal(t, 1, count)
}
