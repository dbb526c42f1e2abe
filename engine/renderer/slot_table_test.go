package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSlotTableLayout(t *testing.T) {
	table, err := BuildSlotTable(3, 32, ObjectConstantsStride)
	require.NoError(t, err)

	// 3 frames * 32 objects + 3 pass entries.
	assert.Equal(t, 99, table.Len())
	assert.Equal(t, 3, table.RingSize())
	assert.Equal(t, 32, table.ObjectCount())

	for frame := 0; frame < 3; frame++ {
		for slot := 0; slot < 32; slot++ {
			i := table.ObjectIndex(frame, slot)
			assert.Equal(t, frame*32+slot, i)

			e := table.Entry(i)
			assert.Equal(t, SlotObject, e.Kind)
			assert.Equal(t, frame, e.Frame)
			assert.Equal(t, slot, e.Slot)
			assert.Equal(t, uint64(slot)*ObjectConstantsStride, e.Offset)
		}

		i := table.PassIndex(frame)
		assert.Equal(t, 32*3+frame, i)

		e := table.Entry(i)
		assert.Equal(t, SlotPass, e.Kind)
		assert.Equal(t, frame, e.Frame)
		assert.Zero(t, e.Offset)
	}
}

func TestSlotTableIndicesNeverCollide(t *testing.T) {
	table, err := BuildSlotTable(3, 32, ObjectConstantsStride)
	require.NoError(t, err)

	seen := make(map[int]bool, table.Len())
	for frame := 0; frame < 3; frame++ {
		for slot := 0; slot < 32; slot++ {
			i := table.ObjectIndex(frame, slot)
			assert.False(t, seen[i], "index %d assigned twice", i)
			seen[i] = true
		}
	}
	for frame := 0; frame < 3; frame++ {
		i := table.PassIndex(frame)
		assert.False(t, seen[i], "index %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, table.Len())
}

func TestBuildSlotTableZeroObjects(t *testing.T) {
	table, err := BuildSlotTable(3, 0, ObjectConstantsStride)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	for frame := 0; frame < 3; frame++ {
		assert.Equal(t, frame, table.PassIndex(frame))
		assert.Equal(t, SlotPass, table.Entry(frame).Kind)
	}
	assert.Error(t, table.CheckSlot(0))
}

func TestBuildSlotTableValidation(t *testing.T) {
	_, err := BuildSlotTable(0, 1, ObjectConstantsStride)
	assert.Error(t, err)

	_, err = BuildSlotTable(3, -1, ObjectConstantsStride)
	assert.Error(t, err)
}

func TestCheckSlotBounds(t *testing.T) {
	table, err := BuildSlotTable(3, 4, ObjectConstantsStride)
	require.NoError(t, err)

	assert.NoError(t, table.CheckSlot(0))
	assert.NoError(t, table.CheckSlot(3))
	assert.Error(t, table.CheckSlot(-1))
	assert.Error(t, table.CheckSlot(4))
}
