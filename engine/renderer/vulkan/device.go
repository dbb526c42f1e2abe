package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
)

type VulkanDevice struct {
	SwapchainSupport *VulkanSwapchainSupportInfo

	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type vulkanPhysicalDeviceRequirements struct {
	graphics bool
	present  bool
	transfer bool

	deviceExtensionNames []string
	discreteGPU          bool
}

type vulkanQueueFamilyInfo struct {
	graphicsFamilyIndex int32
	presentFamilyIndex  int32
	transferFamilyIndex int32
}

// DeviceCreate selects a physical device, creates the logical device with
// graphics, present and transfer queues, and the device-lifetime command
// pool used for one-off transfer work.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// Collapse shared queue family indices so each family is only
	// requested once.
	presentSharesGraphics := device.GraphicsQueueIndex == device.PresentQueueIndex
	transferSharesGraphics := device.GraphicsQueueIndex == device.TransferQueueIndex

	indices := []uint32{device.GraphicsQueueIndex}
	if !presentSharesGraphics {
		indices = append(indices, device.PresentQueueIndex)
	}
	if !transferSharesGraphics {
		indices = append(indices, device.TransferQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		queueCreateInfos[i].Deref()
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		FillModeNonSolid: vk.True,
	}
	deviceFeatures.Deref()

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if runtime.GOOS == "darwin" {
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	deviceCreateInfo.Deref()

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateDevice failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	device.GraphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &presentQueue)
	device.PresentQueue = presentQueue

	var transferQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.TransferQueueIndex, 0, &transferQueue)
	device.TransferQueue = transferQueue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	poolCreateInfo.Deref()

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateCommandPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.GraphicsCommandPool = pool

	core.LogInfo("Vulkan device created.")
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device

	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.TransferQueue = nil

	core.LogDebug("Destroying command pool...")
	if device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	core.LogDebug("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	device.PhysicalDevice = nil
	device.SwapchainSupport = nil
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}

	requirements := &vulkanPhysicalDeviceRequirements{
		graphics:             true,
		present:              true,
		transfer:             true,
		discreteGPU:          false,
		deviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
		memory.Deref()

		supportInfo := &VulkanSwapchainSupportInfo{}
		queueInfo, err := physicalDeviceMeetsRequirements(pd, context.Surface, &properties, &features, requirements, supportInfo)
		if err != nil {
			core.LogDebug("device %s skipped: %s", vk.ToString(properties.DeviceName[:]), err.Error())
			continue
		}

		core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo(
			"GPU driver version: %d.%d.%d",
			(properties.DriverVersion>>22)&0x3ff,
			(properties.DriverVersion>>12)&0x3ff,
			properties.DriverVersion&0xfff,
		)

		context.Device = &VulkanDevice{
			PhysicalDevice:     pd,
			GraphicsQueueIndex: uint32(queueInfo.graphicsFamilyIndex),
			PresentQueueIndex:  uint32(queueInfo.presentFamilyIndex),
			TransferQueueIndex: uint32(queueInfo.transferFamilyIndex),
			Properties:         properties,
			Features:           features,
			Memory:             memory,
			SwapchainSupport:   supportInfo,
		}
		break
	}

	if context.Device == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func physicalDeviceMeetsRequirements(
	device vk.PhysicalDevice,
	surface vk.Surface,
	properties *vk.PhysicalDeviceProperties,
	features *vk.PhysicalDeviceFeatures,
	requirements *vulkanPhysicalDeviceRequirements,
	outSupportInfo *VulkanSwapchainSupportInfo,
) (*vulkanQueueFamilyInfo, error) {
	queueInfo := &vulkanQueueFamilyInfo{
		graphicsFamilyIndex: -1,
		presentFamilyIndex:  -1,
		transferFamilyIndex: -1,
	}

	if requirements.discreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		return nil, fmt.Errorf("device is not a discrete GPU and one is required")
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Prefer a dedicated transfer family: the family with transfer support
	// and the fewest other capabilities wins.
	minTransferScore := uint8(255)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		currentTransferScore := uint8(0)

		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			queueInfo.graphicsFamilyIndex = int32(i)
			currentTransferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			currentTransferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
			if currentTransferScore <= minTransferScore {
				minTransferScore = currentTransferScore
				queueInfo.transferFamilyIndex = int32(i)
			}
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); !VulkanResultIsSuccess(res) {
			return nil, fmt.Errorf("vkGetPhysicalDeviceSurfaceSupportKHR failed with %s", VulkanResultString(res))
		}
		if supportsPresent == vk.True {
			queueInfo.presentFamilyIndex = int32(i)
		}
	}

	if requirements.graphics && queueInfo.graphicsFamilyIndex == -1 {
		return nil, fmt.Errorf("device has no graphics queue family")
	}
	if requirements.present && queueInfo.presentFamilyIndex == -1 {
		return nil, fmt.Errorf("device has no present queue family")
	}
	if requirements.transfer && queueInfo.transferFamilyIndex == -1 {
		return nil, fmt.Errorf("device has no transfer queue family")
	}

	DeviceQuerySwapchainSupport(device, surface, outSupportInfo)
	if len(outSupportInfo.Formats) < 1 || len(outSupportInfo.PresentModes) < 1 {
		return nil, fmt.Errorf("device swapchain support is insufficient")
	}

	if len(requirements.deviceExtensionNames) > 0 {
		var availableExtensionCount uint32
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); !VulkanResultIsSuccess(res) {
			return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res))
		}
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); !VulkanResultIsSuccess(res) {
			return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res))
		}

		for _, required := range requirements.deviceExtensionNames {
			found := false
			for j := range availableExtensions {
				availableExtensions[j].Deref()
				terminator := FindFirstZeroInByteArray(availableExtensions[j].ExtensionName[:])
				if required == vk.ToString(availableExtensions[j].ExtensionName[:terminator+1]) {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("required extension %s is missing", required)
			}
		}
	}

	// Wireframe rendering needs non-solid fill.
	if features.FillModeNonSolid == vk.False {
		return nil, fmt.Errorf("device does not support fillModeNonSolid")
	}

	return queueInfo, nil
}

// DeviceQuerySwapchainSupport refreshes surface capabilities, formats and
// present modes. Also called on swapchain recreation, when the surface may
// have changed under us.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) {
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &capabilities); !VulkanResultIsSuccess(res) {
		core.LogError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR failed with %s", VulkanResultString(res))
		return
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	supportInfo.Capabilities = capabilities

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats)
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil)
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes)
	}
}

// DeviceDetectDepthFormat picks the first supported depth format from the
// preferred candidates, in order.
func DeviceDetectDepthFormat(device *VulkanDevice) error {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}

	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()

		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = format
			return nil
		}
	}
	return fmt.Errorf("no supported depth format found")
}
