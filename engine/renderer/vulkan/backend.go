package vulkan

import (
	"fmt"
	gomath "math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/math"
	"github.com/kilnworks/vetro/engine/platform"
	"github.com/kilnworks/vetro/engine/renderer"
)

// Config carries what the backend cannot discover on its own: the compiled
// shader stages and whether validation layers should be enabled.
type Config struct {
	Debug              bool
	VertexShaderCode   []byte
	FragmentShaderCode []byte
}

// VulkanRenderer implements renderer.Device on top of a Vulkan 1.2 device.
// Per ring slot it owns a command pool, a persistently mapped uniform
// buffer and a sync bundle; geometry lives in device-local memory.
type VulkanRenderer struct {
	platform *platform.Platform
	config   *Config
	context  *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	ring  *renderer.FrameRing
	table *renderer.SlotTable
	fence *renderer.Fence

	vertexBuffer *VulkanBuffer
	indexBuffer  *VulkanBuffer

	// Indexed by ring slot. Each holds objectCount object records followed
	// by the pass record, laid out per the slot table's offsets.
	uniformBuffers []*VulkanBuffer
	passBaseOffset uint64

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet

	vertexStage   *VulkanShaderStage
	fragmentStage *VulkanShaderStage

	solidPipeline     *VulkanPipeline
	wireframePipeline *VulkanPipeline

	// Pipeline bound by the frame in flight; both share one layout.
	boundPipeline *VulkanPipeline
}

// commandAllocator resets one ring slot's command pool, recycling every
// buffer allocated from it. Installed on the slot's frame resource so the
// frame loop can reset it once the slot's marker has completed.
type commandAllocator struct {
	context *VulkanContext
	pool    vk.CommandPool
}

func (a *commandAllocator) Reset() error {
	if res := vk.ResetCommandPool(a.context.Device.LogicalDevice, a.pool, 0); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkResetCommandPool failed with %s", VulkanResultString(res))
	}
	return nil
}

func New(p *platform.Platform, config *Config) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		config:   config,
		context:  &VulkanContext{},
	}
}

func (vr *VulkanRenderer) Initialize(applicationName string, width, height uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("vkGetInstanceProcAddr is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize the Vulkan loader: %s", err)
		return err
	}

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(applicationName),
		PEngineName:        VulkanSafeString("Vetro Engine"),
	}

	requiredExtensions := []string{vk.KhrSurfaceExtensionName}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if vr.config.Debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	validationLayers := []string{}
	if vr.config.Debug {
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := verifyValidationLayers(validationLayers); err != nil {
			return err
		}
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateInstance failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.config.Debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateDebugReportCallbackEXT failed with %s", VulkanResultString(res))
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	surface, err := vr.platform.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		core.LogError("failed to create the window surface: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.25, 0.25, 0.35, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}

	if err := vr.createDescriptorSetLayout(); err != nil {
		return err
	}
	if err := vr.createPipelines(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func verifyValidationLayers(required []string) error {
	var availableCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res))
	}
	available := make([]vk.LayerProperties, availableCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res))
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			terminator := FindFirstZeroInByteArray(available[j].LayerName[:])
			if name == vk.ToString(available[j].LayerName[:terminator+1]) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("required validation layer is missing: %s", name)
			core.LogError(err.Error())
			return err
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (vr *VulkanRenderer) createDescriptorSetLayout() error {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	layoutCreateInfo.Deref()

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutCreateInfo, vr.context.Allocator, &layout); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res))
	}
	vr.descriptorSetLayout = layout
	return nil
}

func (vr *VulkanRenderer) createPipelines() error {
	vertexStage, err := NewShaderStage(vr.context, vr.config.VertexShaderCode, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	vr.vertexStage = vertexStage

	fragmentStage, err := NewShaderStage(vr.context, vr.config.FragmentShaderCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	vr.fragmentStage = fragmentStage

	attributes := []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(math.ColorVertex{}.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(math.ColorVertex{}.Color)),
		},
	}

	baseConfig := VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		Stride:               uint32(unsafe.Sizeof(math.ColorVertex{})),
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptorSetLayout},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vr.vertexStage.ShaderStageCreateInfo,
			vr.fragmentStage.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X:        0,
			Y:        float32(vr.context.FramebufferHeight),
			Width:    float32(vr.context.FramebufferWidth),
			Height:   -float32(vr.context.FramebufferHeight),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  vr.context.FramebufferWidth,
				Height: vr.context.FramebufferHeight,
			},
		},
	}

	solidConfig := baseConfig
	solid, err := NewGraphicsPipeline(vr.context, &solidConfig)
	if err != nil {
		return err
	}
	vr.solidPipeline = solid

	wireframeConfig := baseConfig
	wireframeConfig.IsWireframe = true
	wireframe, err := NewGraphicsPipeline(vr.context, &wireframeConfig)
	if err != nil {
		return err
	}
	vr.wireframePipeline = wireframe

	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogDebug("Vulkan backend resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) UploadGeometry(vertices []math.ColorVertex, indices []uint32) error {
	if len(vertices) == 0 || len(indices) == 0 {
		core.LogWarn("no geometry to upload, the scene has no meshes")
		return nil
	}
	device := vr.context.Device

	vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(math.ColorVertex{})))
	vertexBuffer, err := BufferCreate(
		vr.context,
		vk.DeviceSize(len(vertexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return err
	}
	if err := vertexBuffer.LoadData(vr.context, device.GraphicsCommandPool, device.GraphicsQueue, vertexBytes); err != nil {
		return err
	}
	vr.vertexBuffer = vertexBuffer

	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
	indexBuffer, err := BufferCreate(
		vr.context,
		vk.DeviceSize(len(indexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return err
	}
	if err := indexBuffer.LoadData(vr.context, device.GraphicsCommandPool, device.GraphicsQueue, indexBytes); err != nil {
		return err
	}
	vr.indexBuffer = indexBuffer

	core.LogInfo("Geometry uploaded: %d vertices, %d indices.", len(vertices), len(indices))
	return nil
}

func (vr *VulkanRenderer) PrepareFrameResources(ring *renderer.FrameRing, table *renderer.SlotTable) error {
	vr.ring = ring
	vr.table = table
	vr.fence = ring.Fence()

	ringSize := ring.Size()
	objectCount := table.ObjectCount()
	vr.passBaseOffset = uint64(objectCount) * renderer.ObjectConstantsStride
	uniformSize := vk.DeviceSize(vr.passBaseOffset + renderer.PassConstantsStride)

	vr.context.FrameSyncs = make([]*frameSync, ringSize)
	vr.context.CommandPools = make([]vk.CommandPool, ringSize)
	vr.context.FrameCommands = make([]*VulkanCommandBuffer, ringSize)
	vr.uniformBuffers = make([]*VulkanBuffer, ringSize)

	for i := 0; i < ringSize; i++ {
		poolCreateInfo := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: vr.context.Device.GraphicsQueueIndex,
		}
		poolCreateInfo.Deref()

		var pool vk.CommandPool
		if res := vk.CreateCommandPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &pool); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateCommandPool for frame %d failed with %s", i, VulkanResultString(res))
		}
		vr.context.CommandPools[i] = pool

		cb, err := NewVulkanCommandBuffer(vr.context, pool, true)
		if err != nil {
			return err
		}
		vr.context.FrameCommands[i] = cb

		ub, err := BufferCreate(
			vr.context,
			uniformSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		)
		if err != nil {
			return err
		}
		if err := ub.MapMemory(vr.context); err != nil {
			return err
		}
		vr.uniformBuffers[i] = ub

		sync := &frameSync{}
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &sync.imageAvailable); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create image-available semaphore for frame %d", i)
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &sync.queueComplete); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create queue-complete semaphore for frame %d", i)
		}
		queueFence, err := NewVulkanFence(vr.context, false)
		if err != nil {
			return err
		}
		sync.queueFence = queueFence
		vr.context.FrameSyncs[i] = sync

		ring.Resource(i).Allocator = &commandAllocator{
			context: vr.context,
			pool:    pool,
		}
	}

	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)

	if err := vr.createDescriptorSets(ringSize, objectCount); err != nil {
		return err
	}

	core.LogInfo("Frame resources prepared: %d in flight, %d slot table entries.", ringSize, table.Len())
	return nil
}

// createDescriptorSets builds one set per ring slot: a dynamic uniform
// binding covering that slot's object records, bound per draw with the
// table entry's offset, and a static binding for the pass record.
func (vr *VulkanRenderer) createDescriptorSets(ringSize, objectCount int) error {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: uint32(ringSize),
		},
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(ringSize),
		},
	}

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       uint32(ringSize),
	}
	poolCreateInfo.Deref()

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res))
	}
	vr.descriptorPool = pool

	layouts := make([]vk.DescriptorSetLayout, ringSize)
	for i := range layouts {
		layouts[i] = vr.descriptorSetLayout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vr.descriptorPool,
		DescriptorSetCount: uint32(ringSize),
		PSetLayouts:        layouts,
	}
	allocateInfo.Deref()

	vr.descriptorSets = make([]vk.DescriptorSet, ringSize)
	if res := vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocateInfo, &vr.descriptorSets[0]); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res))
	}

	for i := 0; i < ringSize; i++ {
		objectRange := vk.DeviceSize(renderer.ObjectConstantsStride)
		if objectCount == 0 {
			objectRange = vk.DeviceSize(renderer.PassConstantsStride)
		}
		objectInfo := vk.DescriptorBufferInfo{
			Buffer: vr.uniformBuffers[i].Handle,
			Offset: 0,
			Range:  objectRange,
		}
		objectInfo.Deref()
		passInfo := vk.DescriptorBufferInfo{
			Buffer: vr.uniformBuffers[i].Handle,
			Offset: vk.DeviceSize(vr.passBaseOffset),
			Range:  vk.DeviceSize(renderer.PassConstantsStride),
		}
		passInfo.Deref()

		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          vr.descriptorSets[i],
				DstBinding:      0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
				PBufferInfo:     []vk.DescriptorBufferInfo{objectInfo},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          vr.descriptorSets[i],
				DstBinding:      1,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				PBufferInfo:     []vk.DescriptorBufferInfo{passInfo},
			},
		}
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
	return nil
}

func (vr *VulkanRenderer) WriteObjectConstants(frameIndex, slot int, data renderer.ObjectConstants) error {
	entry := vr.table.Entry(vr.table.ObjectIndex(frameIndex, slot))
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&data)), int(unsafe.Sizeof(data)))
	return vr.uniformBuffers[frameIndex].WriteAt(entry.Offset, bytes)
}

func (vr *VulkanRenderer) WritePassConstants(frameIndex int, data renderer.PassConstants) error {
	entry := vr.table.Entry(vr.table.PassIndex(frameIndex))
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&data)), int(unsafe.Sizeof(data)))
	return vr.uniformBuffers[frameIndex].WriteAt(vr.passBaseOffset+entry.Offset, bytes)
}

func (vr *VulkanRenderer) BeginFrame(frameIndex int, mode renderer.FillMode) error {
	device := vr.context.Device

	if vr.context.RecreatingSwapchain {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkDeviceWaitIdle failed with %s", VulkanResultString(res))
		}
		return core.ErrSwapchainBooting
	}

	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkDeviceWaitIdle failed with %s", VulkanResultString(res))
		}
		if !vr.recreateSwapchain() {
			return core.ErrSwapchainBooting
		}
		core.LogInfo("Swapchain recreated, booting frame.")
		return core.ErrSwapchainBooting
	}

	sync := vr.context.FrameSyncs[frameIndex]
	imageIndex, ok := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, gomath.MaxUint64, sync.imageAvailable, vk.NullFence)
	if !ok {
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	// If a previous frame is still rendering into this image, wait it out.
	if inFlight := vr.context.ImagesInFlight[imageIndex]; inFlight != nil {
		inFlight.FenceWait(vr.context, gomath.MaxUint64)
	}
	vr.context.ImagesInFlight[imageIndex] = sync.queueFence

	commandBuffer := vr.context.FrameCommands[frameIndex]
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	// Negative height flips the viewport so clip-space Y points up.
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[imageIndex].Handle)

	pipeline := vr.solidPipeline
	if mode == renderer.FillModeWireframe {
		pipeline = vr.wireframePipeline
	}
	pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vr.boundPipeline = pipeline
	vk.CmdSetLineWidth(commandBuffer.Handle, 1.0)

	return nil
}

func (vr *VulkanRenderer) BindPass(frameIndex int) error {
	if vr.vertexBuffer == nil {
		return nil
	}
	commandBuffer := vr.context.FrameCommands[frameIndex]
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{vr.vertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, vr.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	return nil
}

func (vr *VulkanRenderer) DrawIndexed(frameIndex, slot int, mesh renderer.MeshRange) error {
	commandBuffer := vr.context.FrameCommands[frameIndex]
	entry := vr.table.Entry(vr.table.ObjectIndex(frameIndex, slot))

	vk.CmdBindDescriptorSets(
		commandBuffer.Handle,
		vk.PipelineBindPointGraphics,
		vr.boundPipeline.PipelineLayout,
		0, 1,
		[]vk.DescriptorSet{vr.descriptorSets[frameIndex]},
		1,
		[]uint32{uint32(entry.Offset)},
	)
	vk.CmdDrawIndexed(commandBuffer.Handle, mesh.IndexCount, 1, mesh.StartIndex, mesh.BaseVertex, 0)
	return nil
}

func (vr *VulkanRenderer) EndFrame(frameIndex int, marker uint64) error {
	commandBuffer := vr.context.FrameCommands[frameIndex]
	sync := vr.context.FrameSyncs[frameIndex]

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return err
	}

	if err := sync.queueFence.FenceReset(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sync.queueComplete},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sync.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	submitInfo.Deref()

	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, sync.queueFence.Handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkQueueSubmit failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		vr.fence.Fail(core.ErrDeviceLost)
		return err
	}
	commandBuffer.UpdateSubmitted()

	vr.context.Swapchain.SwapchainPresent(vr.context, vr.context.Device.PresentQueue, sync.queueComplete, vr.context.ImageIndex)

	go vr.watchMarker(sync.queueFence, marker)
	return nil
}

// watchMarker blocks on the slot's queue fence and publishes the marker on
// the frame loop's fence once the GPU has drained the submission. Runs off
// the render goroutine; vkWaitForFences is externally synchronized per
// fence, and the ring guarantees the slot is not resubmitted before the
// marker lands.
func (vr *VulkanRenderer) watchMarker(queueFence *VulkanFence, marker uint64) {
	if !queueFence.FenceWait(vr.context, gomath.MaxUint64) {
		vr.fence.Fail(core.ErrDeviceLost)
		return
	}
	vr.fence.Signal(marker)
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			vr.context.Swapchain.Views[i],
			vr.context.Swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		vr.context.Swapchain.Framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() bool {
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called while already recreating, booting.")
		return false
	}
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		core.LogDebug("recreateSwapchain called while a window dimension is zero, booting.")
		return false
	}

	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, vr.context.Device.SwapchainSupport)
	DeviceDetectDepthFormat(vr.context.Device)

	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}

	if err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight); err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	vr.context.MainRenderpass.X = 0
	vr.context.MainRenderpass.Y = 0
	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)

	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(); err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}
	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)

	vr.context.RecreatingSwapchain = false
	return true
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	for _, sync := range vr.context.FrameSyncs {
		if sync.imageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, sync.imageAvailable, vr.context.Allocator)
		}
		if sync.queueComplete != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, sync.queueComplete, vr.context.Allocator)
		}
		sync.queueFence.FenceDestroy(vr.context)
	}
	vr.context.FrameSyncs = nil
	vr.context.ImagesInFlight = nil

	for i, cb := range vr.context.FrameCommands {
		if cb != nil && cb.Handle != nil {
			cb.Free(vr.context, vr.context.CommandPools[i])
		}
	}
	vr.context.FrameCommands = nil
	for _, pool := range vr.context.CommandPools {
		vk.DestroyCommandPool(vr.context.Device.LogicalDevice, pool, vr.context.Allocator)
	}
	vr.context.CommandPools = nil

	if vr.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.descriptorPool, vr.context.Allocator)
		vr.descriptorPool = vk.NullDescriptorPool
	}
	if vr.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.descriptorSetLayout, vr.context.Allocator)
		vr.descriptorSetLayout = vk.NullDescriptorSetLayout
	}

	for _, ub := range vr.uniformBuffers {
		ub.Destroy(vr.context)
	}
	vr.uniformBuffers = nil
	if vr.indexBuffer != nil {
		vr.indexBuffer.Destroy(vr.context)
		vr.indexBuffer = nil
	}
	if vr.vertexBuffer != nil {
		vr.vertexBuffer.Destroy(vr.context)
		vr.vertexBuffer = nil
	}

	if vr.solidPipeline != nil {
		vr.solidPipeline.Destroy(vr.context)
	}
	if vr.wireframePipeline != nil {
		vr.wireframePipeline.Destroy(vr.context)
	}
	if vr.vertexStage != nil {
		vr.vertexStage.Destroy(vr.context)
	}
	if vr.fragmentStage != nil {
		vr.fragmentStage.Destroy(vr.context)
	}

	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		if vr.context.Swapchain.Framebuffers[i] != nil {
			vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
		}
	}
	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.config.Debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
