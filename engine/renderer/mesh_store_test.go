package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnworks/vetro/engine/math"
)

func vertsOf(n int) []math.ColorVertex {
	out := make([]math.ColorVertex, n)
	for i := range out {
		out[i].Position.X = float32(i)
	}
	return out
}

func TestMeshStoreConcatenation(t *testing.T) {
	store := NewMeshStore()

	a, err := store.Register("a", vertsOf(4), []uint32{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	b, err := store.Register("b", vertsOf(3), []uint32{0, 1, 2})
	require.NoError(t, err)

	ra, err := store.Range(a)
	require.NoError(t, err)
	assert.Equal(t, MeshRange{IndexCount: 6, StartIndex: 0, BaseVertex: 0}, ra)

	rb, err := store.Range(b)
	require.NoError(t, err)
	assert.Equal(t, MeshRange{IndexCount: 3, StartIndex: 6, BaseVertex: 4}, rb)

	assert.Len(t, store.Vertices(), 7)
	assert.Len(t, store.Indices(), 9)
	assert.Equal(t, 2, store.ShapeCount())
	assert.Equal(t, "a", store.Name(a))
	assert.Equal(t, "b", store.Name(b))
}

func TestMeshStoreRejectsEmptyGeometry(t *testing.T) {
	store := NewMeshStore()

	_, err := store.Register("empty", nil, []uint32{0})
	assert.Error(t, err)

	_, err = store.Register("noindices", vertsOf(3), nil)
	assert.Error(t, err)
}

func TestMeshStoreFreezeBlocksRegistration(t *testing.T) {
	store := NewMeshStore()
	_, err := store.Register("a", vertsOf(3), []uint32{0, 1, 2})
	require.NoError(t, err)

	assert.False(t, store.Frozen())
	store.Freeze()
	assert.True(t, store.Frozen())

	_, err = store.Register("late", vertsOf(3), []uint32{0, 1, 2})
	assert.Error(t, err)
}

func TestMeshStoreRangeBounds(t *testing.T) {
	store := NewMeshStore()
	_, err := store.Range(0)
	assert.Error(t, err)

	id, err := store.Register("a", vertsOf(3), []uint32{0, 1, 2})
	require.NoError(t, err)

	_, err = store.Range(id)
	assert.NoError(t, err)
	_, err = store.Range(id + 1)
	assert.Error(t, err)
	_, err = store.Range(-1)
	assert.Error(t, err)
	assert.Empty(t, store.Name(-1))
}
