package autowired_test

import (
	"testing"

	"github.com/centraunit/corectx"
	"github.com/centraunit/corectx/autowired"
	"github.com/stretchr/testify/require"
)

type Thing struct{ Name string }

func newRoot() *corectx.Context {
	return corectx.Create[struct{}](corectx.GlobalContext())
}

func TestFieldResolvesWhenValueAlreadyPresent(t *testing.T) {
	root := newRoot()
	require.NoError(t, corectx.Add(root, &Thing{Name: "a"}))

	var f autowired.Field[*Thing]
	require.NoError(t, f.Attach(root))

	v, ok := f.Get()
	require.True(t, ok)
	require.Equal(t, "a", v.Name)
}

func TestFieldResolvesWhenValueArrivesLater(t *testing.T) {
	root := newRoot()

	var f autowired.Field[*Thing]
	called := false
	f.OnSatisfied(func(v *Thing) { called = true })
	require.NoError(t, f.Attach(root))

	_, ok := f.Get()
	require.False(t, ok)

	require.NoError(t, corectx.Add(root, &Thing{Name: "b"}))

	v, ok := f.Get()
	require.True(t, ok)
	require.Equal(t, "b", v.Name)
	require.True(t, called)
}

func TestFieldCancelDetachesFromChain(t *testing.T) {
	root := newRoot()

	var f autowired.Field[*Thing]
	require.NoError(t, f.Attach(root))
	require.True(t, f.Cancel(root))

	require.NoError(t, corectx.Add(root, &Thing{Name: "c"}))
	_, ok := f.Get()
	require.False(t, ok)
}
