package renderer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/math"
)

type fakeAllocator struct {
	resets int
}

func (a *fakeAllocator) Reset() error {
	a.resets++
	return nil
}

type drawCall struct {
	frame int
	slot  int
}

type objectWrite struct {
	frame int
	slot  int
	data  ObjectConstants
}

// fakeDevice records the full call sequence and completes every submission
// immediately, so DrawFrame never blocks.
type fakeDevice struct {
	ring  *FrameRing
	table *SlotTable

	allocators   []*fakeAllocator
	objectWrites []objectWrite
	passWrites   map[int]PassConstants
	draws        []drawCall
	binds        int
	markers      []uint64

	failBegin  error
	shutdowns  int
	geometryUp bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{passWrites: make(map[int]PassConstants)}
}

func (d *fakeDevice) Initialize(applicationName string, width, height uint32) error { return nil }
func (d *fakeDevice) Shutdown() error                                              { d.shutdowns++; return nil }
func (d *fakeDevice) Resized(width, height uint32)                                 {}

func (d *fakeDevice) UploadGeometry(vertices []math.ColorVertex, indices []uint32) error {
	d.geometryUp = true
	return nil
}

func (d *fakeDevice) PrepareFrameResources(ring *FrameRing, table *SlotTable) error {
	d.ring = ring
	d.table = table
	d.allocators = make([]*fakeAllocator, ring.Size())
	for i := 0; i < ring.Size(); i++ {
		d.allocators[i] = &fakeAllocator{}
		ring.Resource(i).Allocator = d.allocators[i]
	}
	return nil
}

func (d *fakeDevice) WriteObjectConstants(frameIndex, slot int, data ObjectConstants) error {
	d.objectWrites = append(d.objectWrites, objectWrite{frame: frameIndex, slot: slot, data: data})
	return nil
}

func (d *fakeDevice) WritePassConstants(frameIndex int, data PassConstants) error {
	d.passWrites[frameIndex] = data
	return nil
}

func (d *fakeDevice) BeginFrame(frameIndex int, mode FillMode) error {
	return d.failBegin
}

func (d *fakeDevice) BindPass(frameIndex int) error {
	d.binds++
	return nil
}

func (d *fakeDevice) DrawIndexed(frameIndex, slot int, mesh MeshRange) error {
	d.draws = append(d.draws, drawCall{frame: frameIndex, slot: slot})
	return nil
}

func (d *fakeDevice) EndFrame(frameIndex int, marker uint64) error {
	d.markers = append(d.markers, marker)
	d.ring.Fence().Signal(marker)
	return nil
}

func testScene(t *testing.T, itemCount int) (*MeshStore, []*RenderItem) {
	t.Helper()
	store := NewMeshStore()
	verts := []math.ColorVertex{{}, {}, {}}
	idx := []uint32{0, 1, 2}
	id, err := store.Register("tri", verts, idx)
	require.NoError(t, err)
	rng, err := store.Range(id)
	require.NoError(t, err)
	store.Freeze()

	items := make([]*RenderItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, NewRenderItem(i, rng, math.NewMat4Identity(), DefaultRingSize))
	}
	return store, items
}

func TestNewRejectsNilMeshStore(t *testing.T) {
	_, err := New(newFakeDevice(), nil, nil, DefaultRingSize, 800, 600)
	assert.ErrorContains(t, err, "mesh store")
}

func TestNewRejectsUnfrozenStore(t *testing.T) {
	store := NewMeshStore()
	_, err := store.Register("tri", []math.ColorVertex{{}, {}, {}}, []uint32{0, 1, 2})
	require.NoError(t, err)

	_, err = New(newFakeDevice(), store, nil, DefaultRingSize, 800, 600)
	assert.Error(t, err)
}

func TestNewRejectsDuplicateSlots(t *testing.T) {
	store, items := testScene(t, 2)
	items[1] = NewRenderItem(0, items[1].Mesh, math.NewMat4Identity(), DefaultRingSize)

	_, err := New(newFakeDevice(), store, items, DefaultRingSize, 800, 600)
	assert.ErrorContains(t, err, "duplicate slot")
}

func TestNewRejectsOutOfRangeSlot(t *testing.T) {
	store, items := testScene(t, 2)
	items[1] = NewRenderItem(5, items[1].Mesh, math.NewMat4Identity(), DefaultRingSize)

	_, err := New(newFakeDevice(), store, items, DefaultRingSize, 800, 600)
	assert.Error(t, err)
}

func TestNewRejectsEmptyMeshRange(t *testing.T) {
	store, items := testScene(t, 2)
	items[1] = NewRenderItem(1, MeshRange{}, math.NewMat4Identity(), DefaultRingSize)

	_, err := New(newFakeDevice(), store, items, DefaultRingSize, 800, 600)
	assert.ErrorContains(t, err, "empty mesh range")
}

func testView() PassView {
	return PassView{
		View:   math.NewMat4Identity(),
		Proj:   math.NewMat4Perspective(math.K_QUARTER_PI, 4.0/3.0, 1, 1000),
		EyePos: math.NewVec3(0, 5, -10),
		NearZ:  1,
		FarZ:   1000,
	}
}

func TestDrawFrameDrawsEveryItemEachTick(t *testing.T) {
	store, items := testScene(t, 4)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	ctx := context.Background()
	for tick := 0; tick < 3; tick++ {
		require.NoError(t, r.DrawFrame(ctx, testView(), float64(tick), 0.016, FillModeSolid))
	}

	assert.Len(t, device.draws, 3*4)
	assert.Equal(t, 3, device.binds)
	assert.Equal(t, []uint64{1, 2, 3}, device.markers)
}

func TestInitialDirtyDataReachesEveryFrameResource(t *testing.T) {
	store, items := testScene(t, 2)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	ctx := context.Background()
	for tick := 0; tick < DefaultRingSize; tick++ {
		require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
	}

	// ringSize ticks write both items once per frame resource, then stop.
	assert.Len(t, device.objectWrites, DefaultRingSize*2)

	device.objectWrites = nil
	require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
	assert.Empty(t, device.objectWrites)
}

func TestSetWorldPropagatesInExactlyRingSizeTicks(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	ctx := context.Background()
	for tick := 0; tick < DefaultRingSize; tick++ {
		require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
	}
	device.objectWrites = nil

	world := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	items[0].SetWorld(world)
	assert.Equal(t, DefaultRingSize, items[0].Dirty())

	want := math.NewMat4Transposed(world)
	seenFrames := map[int]bool{}
	for tick := 0; tick < DefaultRingSize; tick++ {
		require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
		require.Len(t, device.objectWrites, tick+1)
		w := device.objectWrites[tick]
		assert.Equal(t, want, w.data.World)
		seenFrames[w.frame] = true

		// The in-memory canonical copy tracks the write.
		assert.Equal(t, want, r.Ring().Resource(w.frame).ObjectConstants[0].World)
	}
	assert.Len(t, seenFrames, DefaultRingSize)
	assert.Zero(t, items[0].Dirty())

	device.objectWrites = nil
	require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
	assert.Empty(t, device.objectWrites)
}

func TestWorldMatrixStoredTransposed(t *testing.T) {
	store, items := testScene(t, 1)
	world := math.NewMat4Translation(math.NewVec3(7, -2, 9))
	items[0] = NewRenderItem(0, items[0].Mesh, world, DefaultRingSize)

	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	require.NotEmpty(t, device.objectWrites)

	stored := device.objectWrites[0].data.World
	assert.Equal(t, math.NewMat4Transposed(world), stored)
	// Transposing again recovers the original bit for bit.
	assert.Equal(t, world, math.NewMat4Transposed(stored))
}

func TestPassConstantsRewrittenEveryTick(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	view := testView()
	require.NoError(t, r.DrawFrame(context.Background(), view, 2.5, 0.016, FillModeSolid))

	frame := r.Ring().Cursor()
	pc, ok := device.passWrites[frame]
	require.True(t, ok)
	assert.Equal(t, math.NewMat4Transposed(view.View), pc.View)
	assert.Equal(t, math.NewMat4Transposed(view.Proj), pc.Proj)
	assert.Equal(t, view.EyePos, pc.EyePos)
	assert.Equal(t, float32(2.5), pc.TotalTime)
	assert.Equal(t, float32(800), pc.RenderTargetSize.X)
	assert.Equal(t, float32(1.0/600.0), pc.InvRenderTargetSize.Y)
	assert.Equal(t, float32(1), pc.NearZ)
	assert.Equal(t, float32(1000), pc.FarZ)
}

func TestZeroItemsStillSubmitsPass(t *testing.T) {
	store := NewMeshStore()
	_, err := store.Register("tri", []math.ColorVertex{{}, {}, {}}, []uint32{0, 1, 2})
	require.NoError(t, err)
	store.Freeze()

	device := newFakeDevice()
	r, err := New(device, store, nil, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	assert.Empty(t, device.draws)
	assert.Equal(t, 1, device.binds)
	assert.Equal(t, []uint64{1}, device.markers)
}

func TestAllocatorResetOncePerTick(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	ctx := context.Background()
	for tick := 0; tick < 2*DefaultRingSize; tick++ {
		require.NoError(t, r.DrawFrame(ctx, testView(), 0, 0.016, FillModeSolid))
	}

	total := 0
	for _, a := range device.allocators {
		assert.Equal(t, 2, a.resets)
		total += a.resets
	}
	assert.Equal(t, 2*DefaultRingSize, total)
}

func TestDrawFrameSkipsWhileSwapchainBooting(t *testing.T) {
	store, items := testScene(t, 2)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	device.failBegin = core.ErrSwapchainBooting
	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	assert.Empty(t, device.draws)
	assert.Empty(t, device.markers)

	device.failBegin = nil
	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	assert.Len(t, device.draws, 2)
}

func TestDrawFramePropagatesBeginFailure(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	device.failBegin = fmt.Errorf("device exploded")
	assert.ErrorContains(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid), "device exploded")
}

func TestShutdownDrainsAndReleasesDevice(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, 1, device.shutdowns)
}

func TestShutdownFailsWhenDrainCancelled(t *testing.T) {
	store, items := testScene(t, 1)
	device := newFakeDevice()
	r, err := New(device, store, items, DefaultRingSize, 800, 600)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(context.Background(), testView(), 0, 0.016, FillModeSolid))
	// Pretend the last submission never completes.
	r.Ring().MarkSubmitted()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, r.Shutdown(ctx))
	assert.Zero(t, device.shutdowns)
}
