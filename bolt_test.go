package corectx

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type requestSigil struct{}

type recordingBolt struct {
	sigils []reflect.Type
	seen   []reflect.Type
}

func (b *recordingBolt) GetContextSigils() []reflect.Type { return b.sigils }

func (b *recordingBolt) ContextCreated(sigil reflect.Type, child *Context) {
	b.seen = append(b.seen, sigil)
}

func TestBoltFiresForMatchingSigil(t *testing.T) {
	root := newRootContext()
	bolt := &recordingBolt{sigils: []reflect.Type{reflect.TypeOf((*requestSigil)(nil)).Elem()}}
	require.NoError(t, Add(root, bolt))

	Create[requestSigil](root)
	require.Len(t, bolt.seen, 1)
}

func TestVoidBoltFiresForAnySigilExactlyOnce(t *testing.T) {
	root := newRootContext()
	bolt := &recordingBolt{}
	require.NoError(t, Add(root, bolt))

	Create[requestSigil](root)
	require.Len(t, bolt.seen, 1, "a void-sigil bolt must fire exactly once per creation, not once per matching rule")
}

func TestBoltBroadcastsUpToGrandparent(t *testing.T) {
	root := newRootContext()
	bolt := &recordingBolt{}
	require.NoError(t, Add(root, bolt))

	// The void-sigil bolt fires for mid's own creation under root, then
	// again when the grandchild's sigil is broadcast up from mid to root.
	mid := Create[struct{}](root)
	Create[requestSigil](mid)

	require.Len(t, bolt.seen, 2)
	require.Equal(t, reflect.TypeOf((*requestSigil)(nil)).Elem(), bolt.seen[1])
}
