package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
)

// VulkanBuffer is a device buffer with its backing allocation. Host-visible
// buffers may stay persistently mapped for their whole lifetime; Mapped is
// nil for device-local ones.
type VulkanBuffer struct {
	Handle    vk.Buffer
	Memory    vk.DeviceMemory
	TotalSize vk.DeviceSize
	Mapped    unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryPropertyFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	outBuffer := &VulkanBuffer{
		TotalSize: size,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	bufferCreateInfo.Deref()

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	outBuffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, outBuffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryPropertyFlags))
	if memoryIndex == -1 {
		return nil, fmt.Errorf("required memory type not found, buffer not valid")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	allocateInfo.Deref()

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkAllocateMemory for buffer failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	outBuffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, outBuffer.Handle, outBuffer.Memory, 0); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res))
	}

	return outBuffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Mapped != nil {
		vb.UnmapMemory(context)
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.TotalSize = 0
}

// MapMemory maps the whole allocation and keeps the pointer in Mapped. The
// memory must be host visible.
func (vb *VulkanBuffer) MapMemory(context *VulkanContext) error {
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, 0, vb.TotalSize, 0, &data); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkMapMemory failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vb.Mapped = data
	return nil
}

func (vb *VulkanBuffer) UnmapMemory(context *VulkanContext) {
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	vb.Mapped = nil
}

// WriteAt copies src into the mapped region at the given byte offset. The
// buffer must be persistently mapped and host coherent.
func (vb *VulkanBuffer) WriteAt(offset uint64, src []byte) error {
	if vb.Mapped == nil {
		return fmt.Errorf("buffer is not mapped")
	}
	if offset+uint64(len(src)) > uint64(vb.TotalSize) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer size %d", len(src), offset, vb.TotalSize)
	}
	dst := unsafe.Pointer(uintptr(vb.Mapped) + uintptr(offset))
	vk.Memcopy(dst, src)
	return nil
}

// LoadData stages src through a host-visible buffer and copies it into this
// buffer on the transfer path. Blocks until the copy has finished.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, src []byte) error {
	staging, err := BufferCreate(
		context,
		vk.DeviceSize(len(src)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return err
	}
	defer staging.Destroy(context)

	if err := staging.MapMemory(context); err != nil {
		return err
	}
	vk.Memcopy(staging.Mapped, src)
	staging.UnmapMemory(context)

	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(len(src)),
	}
	copyRegion.Deref()
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, vb.Handle, 1, []vk.BufferCopy{copyRegion})

	return cb.EndSingleUse(context, pool, queue)
}
