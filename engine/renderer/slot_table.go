package renderer

import (
	"fmt"
)

type SlotKind uint8

const (
	SlotObject SlotKind = iota
	SlotPass
)

// SlotEntry is one GPU-visible descriptor: which frame resource's memory it
// points into and the byte offset of the record inside that memory.
type SlotEntry struct {
	Kind   SlotKind
	Frame  int
	Slot   int
	Offset uint64
}

// SlotTable is the flat directory translating (frame, slot) pairs into
// descriptors. Laid out as ringSize blocks of objectCount object entries,
// followed by ringSize pass entries. Built once; the scene is static, so it
// is never resized.
type SlotTable struct {
	ringSize    int
	objectCount int
	entries     []SlotEntry
}

// BuildSlotTable lays out ringSize*(objectCount+1) entries. Object entry
// (f, s) lands at index f*objectCount+s with byte offset s*objectStride;
// pass entry f lands at index objectCount*ringSize+f with offset 0 into the
// frame's pass memory.
func BuildSlotTable(ringSize, objectCount int, objectStride uint64) (*SlotTable, error) {
	if ringSize < 1 {
		return nil, fmt.Errorf("slot table requires ring size >= 1, got %d", ringSize)
	}
	if objectCount < 0 {
		return nil, fmt.Errorf("slot table requires object count >= 0, got %d", objectCount)
	}

	t := &SlotTable{
		ringSize:    ringSize,
		objectCount: objectCount,
		entries:     make([]SlotEntry, 0, ringSize*(objectCount+1)),
	}

	for frame := 0; frame < ringSize; frame++ {
		for slot := 0; slot < objectCount; slot++ {
			t.entries = append(t.entries, SlotEntry{
				Kind:   SlotObject,
				Frame:  frame,
				Slot:   slot,
				Offset: uint64(slot) * objectStride,
			})
		}
	}
	for frame := 0; frame < ringSize; frame++ {
		t.entries = append(t.entries, SlotEntry{
			Kind:  SlotPass,
			Frame: frame,
		})
	}

	return t, nil
}

func (t *SlotTable) Len() int {
	return len(t.entries)
}

func (t *SlotTable) RingSize() int {
	return t.ringSize
}

func (t *SlotTable) ObjectCount() int {
	return t.objectCount
}

// ObjectIndex returns the table index of object slot s in frame f. Inputs
// are validated at scene construction, not here; this is the hot path.
func (t *SlotTable) ObjectIndex(frame, slot int) int {
	return frame*t.objectCount + slot
}

// PassIndex returns the table index of frame f's pass entry.
func (t *SlotTable) PassIndex(frame int) int {
	return t.objectCount*t.ringSize + frame
}

func (t *SlotTable) Entry(i int) SlotEntry {
	return t.entries[i]
}

// CheckSlot validates a render item's slot index against the table's range.
// Called once per item at construction; a violation is a programming error,
// not a runtime condition.
func (t *SlotTable) CheckSlot(slot int) error {
	if slot < 0 || slot >= t.objectCount {
		return fmt.Errorf("slot index %d outside table range [0, %d)", slot, t.objectCount)
	}
	return nil
}
