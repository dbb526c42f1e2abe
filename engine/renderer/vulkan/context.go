package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
)

// frameSync is the per-ring-slot synchronization bundle. One exists for
// every frame resource in the ring, created once the ring depth is known.
type frameSync struct {
	imageAvailable vk.Semaphore
	queueComplete  vk.Semaphore
	queueFence     *VulkanFence
}

type VulkanContext struct {
	// The drawable surface's current size.
	FramebufferWidth  uint32
	FramebufferHeight uint32

	// Bumped on every resize notification. A mismatch with the last
	// generation means the swapchain is stale and must be recreated.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// One sync bundle, command pool and command buffer per ring slot.
	FrameSyncs    []*frameSync
	CommandPools  []vk.CommandPool
	FrameCommands []*VulkanCommandBuffer

	// Per swapchain image: the queue fence of the ring slot that last
	// rendered into it. Owned by FrameSyncs, nil when the image is idle.
	ImagesInFlight []*VulkanFence

	ImageIndex uint32

	RecreatingSwapchain bool
}

// FindMemoryIndex scans the physical device's memory types for one matching
// the filter bits and required property flags. Returns -1 when nothing fits.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("unable to find a suitable memory type")
	return -1
}
