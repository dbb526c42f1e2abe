package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
)

type VulkanFence struct {
	Handle vk.Fence
}

func NewVulkanFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	fenceCreateInfo.Deref()

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateFence failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle}, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
}

// FenceWait blocks until the fence is signaled or the timeout expires.
// Waiting on an already signaled fence returns immediately, so this is safe
// to call from the marker watcher goroutine and the frame loop alike.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) bool {
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		return true
	case vk.Timeout:
		core.LogWarn("fence wait timed out")
	default:
		core.LogError("fence wait failed with %s", VulkanResultString(result))
	}
	return false
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkResetFences failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}
