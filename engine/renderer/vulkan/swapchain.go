package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/math"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain

	ImageCount uint32
	Images     []vk.Image
	Views      []vk.ImageView

	DepthAttachment *VulkanImage

	// One framebuffer per swapchain image, rebuilt on resize.
	Framebuffers []*VulkanFramebuffer
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{}
	if err := swapchain.create(context, width, height); err != nil {
		return nil, err
	}
	return swapchain, nil
}

// SwapchainRecreate tears the swapchain down and builds it again at the new
// size, reusing the same struct so outstanding references stay valid.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32) error {
	vs.destroyInternal(context)
	return vs.create(context, width, height)
}

func (vs *VulkanSwapchain) create(context *VulkanContext, width, height uint32) error {
	support := context.Device.SwapchainSupport

	// Prefer B8G8R8A8 sRGB-nonlinear; fall back to whatever comes first.
	vs.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			vs.ImageFormat = format
			break
		}
	}

	// Mailbox when available, FIFO otherwise. FIFO is always present.
	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != ^uint32(0) {
		extent = support.Capabilities.CurrentExtent
	}
	extent.Width = math.Clamp(extent.Width, support.Capabilities.MinImageExtent.Width, support.Capabilities.MaxImageExtent.Width)
	extent.Height = math.Clamp(extent.Height, support.Capabilities.MinImageExtent.Height, support.Capabilities.MaxImageExtent.Height)

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}
	createInfo.Deref()

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateSwapchainKHR failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vs.Handle = handle

	context.FramebufferWidth = extent.Width
	context.FramebufferHeight = extent.Height

	var actualCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &actualCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res))
	}
	vs.ImageCount = actualCount
	vs.Images = make([]vk.Image, actualCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &actualCount, vs.Images); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res))
	}

	vs.Views = make([]vk.ImageView, actualCount)
	for i := range vs.Images {
		view, err := ImageViewCreate(context, vs.Images[i], vs.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		vs.Views[i] = view
	}

	if err := DeviceDetectDepthFormat(context.Device); err != nil {
		core.LogError(err.Error())
		return err
	}

	depth, err := ImageCreate(
		context,
		extent.Width, extent.Height,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	)
	if err != nil {
		return err
	}
	vs.DepthAttachment = depth

	core.LogInfo("Swapchain created successfully.")
	return nil
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroyInternal(context)
}

func (vs *VulkanSwapchain) destroyInternal(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if vs.DepthAttachment != nil {
		vs.DepthAttachment.Destroy(context)
		vs.DepthAttachment = nil
	}

	// Only the views are owned here; the images belong to the swapchain.
	for i := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// SwapchainAcquireNextImageIndex asks the presentation engine for the next
// image. A false return means the swapchain is stale and a recreate has
// been scheduled; the caller should skip the frame.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNs uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, bool) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNs, imageAvailableSemaphore, fence, &imageIndex)
	switch {
	case result == vk.ErrorOutOfDate:
		context.FramebufferSizeGeneration++
		return 0, false
	case result != vk.Success && result != vk.Suboptimal:
		core.LogError("vkAcquireNextImageKHR failed with %s", VulkanResultString(result))
		return 0, false
	}
	return imageIndex, true
}

// SwapchainPresent hands the rendered image back to the presentation
// engine, waiting on the queue-complete semaphore.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}
	presentInfo.Deref()

	result := vk.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		context.FramebufferSizeGeneration++
	case vk.Success:
	default:
		core.LogError("vkQueuePresentKHR failed with %s", VulkanResultString(result))
	}
}
