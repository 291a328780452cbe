// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// ErrNoGraphicsQueue is returned for devices created without a graphics queue.
var ErrNoGraphicsQueue = errors.New("device has no graphics queue")

// DefaultClearColor is what a frame is cleared to.
var DefaultClearColor = mgl32.Vec4{0.05, 0.05, 0.05, 1}

// NewTarget creates a swapchain for surface and everything needed
// to render into its images.
func NewTarget(dev *device.Device, surface device.SurfaceHandle, cfg app.TargetConfig) (*Target, error) {
	handle, ok := dev.Handle().(vk.Device)
	if !ok {
		return nil, ErrHandle
	}
	srf, ok := surface.(vk.Surface)
	if !ok {
		return nil, ErrHandle
	}
	queue, ok := dev.GraphicsQueue(0)
	if !ok {
		return nil, ErrNoGraphicsQueue
	}

	t := &Target{
		device:         handle,
		physicalDevice: physicalDevice(dev.PhysicalDevice().Handle()),
		surface:        srf,
		family:         queue.Family,
		clear:          DefaultClearColor,
	}
	if err := t.create(cfg); err != nil {
		t.Destroy()
		return nil, err
	}

	log.WithFields(log.Fields{
		"images":  len(t.images),
		"width":   t.extent.Width,
		"height":  t.extent.Height,
		"present": t.presentMode,
	}).Debug("render target created")
	return t, nil
}

// Target is a swapchain with its image views, a color render
// pass and one framebuffer per image.
type Target struct {
	device         vk.Device
	physicalDevice vk.PhysicalDevice
	surface        vk.Surface
	family         uint32

	format      vk.Format
	colorSpace  vk.ColorSpace
	extent      vk.Extent2D
	presentMode vk.PresentMode

	swapchain    vk.Swapchain
	images       []vk.Image
	views        []vk.ImageView
	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer

	clear mgl32.Vec4
}

func (t *Target) create(cfg app.TargetConfig) error {
	if err := t.chooseFormat(); err != nil {
		return err
	}
	if err := t.createSwapchain(cfg); err != nil {
		return err
	}
	if err := t.createImageViews(); err != nil {
		return err
	}
	if err := t.createRenderPass(); err != nil {
		return err
	}
	return t.createFramebuffers()
}

func (t *Target) chooseFormat() error {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(t.physicalDevice, t.surface, &count, nil)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(t.physicalDevice, t.surface, &count, formats)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	for i := range formats {
		formats[i].Deref()
	}

	format, ok := chooseSurfaceFormat(formats[:count])
	if !ok {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): no surface formats")
	}
	t.format = format.Format
	t.colorSpace = format.ColorSpace
	return nil
}

// chooseSurfaceFormat prefers 8 bit BGRA in the sRGB color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, bool) {
	preferred := vk.SurfaceFormat{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorSpaceSrgbNonlinear,
	}
	switch {
	case len(formats) == 0:
		return vk.SurfaceFormat{}, false
	case len(formats) == 1 && formats[0].Format == vk.FormatUndefined:
		return preferred, true
	}
	for _, f := range formats {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f, true
		}
	}
	return formats[0], true
}

// choosePresentMode picks FIFO with v-sync, which every surface
// supports. Without it mailbox wins over immediate.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	best := vk.PresentModeFifo
	for _, m := range modes {
		switch m {
		case vk.PresentModeMailbox:
			return m
		case vk.PresentModeImmediate:
			best = m
		}
	}
	return best
}

// chooseCompositeAlpha returns the first supported mode, opaque first.
func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// chooseExtent uses the surface extent when the surface dictates one,
// otherwise the window size clamped to the supported range.
func chooseExtent(current, min, max vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  clamp(width, min.Width, max.Width),
		Height: clamp(height, min.Height, max.Height),
	}
}

// chooseImageCount honors the requested count inside the surface
// limits, a max of 0 means no upper limit.
func chooseImageCount(requested, min, max uint32) uint32 {
	count := requested
	if count < min {
		count = min
	}
	if max > 0 && count > max {
		count = max
	}
	return count
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (t *Target) createSwapchain(cfg app.TargetConfig) error {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(t.physicalDevice, t.surface, &caps)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(t.physicalDevice, t.surface, &count, nil)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfacePresentModes(): %w", err)
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(t.physicalDevice, t.surface, &count, modes)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfacePresentModes(): %w", err)
	}

	t.presentMode = choosePresentMode(modes[:count], cfg.VSync)
	t.extent = chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, cfg.Width, cfg.Height)

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         t.surface,
		MinImageCount:   chooseImageCount(cfg.Frames, caps.MinImageCount, caps.MaxImageCount),
		ImageFormat:     t.format,
		ImageColorSpace: t.colorSpace,
		ImageExtent:     t.extent,
		ImageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit |
			vk.ImageUsageTransferDstBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   chooseCompositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      t.presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(t.device, &scci, nil, &swapchain)); err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}
	t.swapchain = swapchain

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(t.device, t.swapchain, &numImages, nil)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(): %w", err)
	}
	t.images = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(t.device, t.swapchain, &numImages, t.images)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(): %w", err)
	}
	t.images = t.images[:numImages]
	return nil
}

func (t *Target) createImageViews() error {
	for idx, image := range t.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   t.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}

		var imageView vk.ImageView
		if err := vk.Error(vk.CreateImageView(t.device, &ivci, nil, &imageView)); err != nil {
			return fmt.Errorf("vk.CreateImageView()[%d]: %w", idx, err)
		}
		t.views = append(t.views, imageView)
	}
	return nil
}

func (t *Target) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         t.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(t.device, &rpci, nil, &renderPass)); err != nil {
		return fmt.Errorf("vk.CreateRenderPass(): %w", err)
	}
	t.renderPass = renderPass
	return nil
}

func (t *Target) createFramebuffers() error {
	for idx, view := range t.views {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      t.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           t.extent.Width,
			Height:          t.extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(t.device, &fci, nil, &framebuffer)); err != nil {
			return fmt.Errorf("vk.CreateFramebuffer()[%d]: %w", idx, err)
		}
		t.framebuffers = append(t.framebuffers, framebuffer)
	}
	return nil
}

// Frames implements app.Target.
func (t *Target) Frames() uint32 {
	return uint32(len(t.images))
}

// Pass implements app.Target. The viewport and scissor cover
// the whole image when fn runs.
func (t *Target) Pass(cmd app.CommandBuffer, frame uint32, fn func()) {
	commandBuffer, ok := cmd.(vk.CommandBuffer)
	if !ok || int(frame) >= len(t.framebuffers) {
		return
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(t.clear[:])

	area := vk.Rect2D{Extent: t.extent}
	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      t.renderPass,
		Framebuffer:     t.framebuffers[frame],
		RenderArea:      area,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer, &rpbi, vk.SubpassContentsInline)
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(t.extent.Width),
		Height:   float32(t.extent.Height),
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{area})
	fn()
	vk.CmdEndRenderPass(commandBuffer)
}

// SetClearColor sets the color every frame starts with.
func (t *Target) SetClearColor(c mgl32.Vec4) {
	t.clear = c
}

// Swapchain returns the native swapchain.
func (t *Target) Swapchain() vk.Swapchain {
	return t.swapchain
}

// RenderPass returns the color render pass used by Pass.
func (t *Target) RenderPass() vk.RenderPass {
	return t.renderPass
}

// Extent returns the size of the swapchain images.
func (t *Target) Extent() (width, height uint32) {
	return t.extent.Width, t.extent.Height
}

// Family returns the queue family the target is rendered with.
func (t *Target) Family() uint32 {
	return t.family
}

// Destroy implements app.Target. Swapchain images belong to the
// swapchain and are not destroyed separately.
func (t *Target) Destroy() {
	for _, f := range t.framebuffers {
		vk.DestroyFramebuffer(t.device, f, nil)
	}
	t.framebuffers = nil

	if t.renderPass != nil {
		vk.DestroyRenderPass(t.device, t.renderPass, nil)
		t.renderPass = nil
	}

	for _, v := range t.views {
		vk.DestroyImageView(t.device, v, nil)
	}
	t.views = nil
	t.images = nil

	if t.swapchain != nil {
		vk.DestroySwapchain(t.device, t.swapchain, nil)
		t.swapchain = nil
	}
}
