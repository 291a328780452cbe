// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// NewRenderer creates the synchronization needed to keep up
// to target.Frames() frames in flight.
func NewRenderer(dev *device.Device, target *Target) (*Renderer, error) {
	handle, ok := dev.Handle().(vk.Device)
	if !ok {
		return nil, ErrHandle
	}
	queue, ok := dev.GraphicsQueue(0)
	if !ok {
		return nil, ErrNoGraphicsQueue
	}
	deviceQueue, ok := queue.Handle.(vk.Queue)
	if !ok {
		return nil, ErrHandle
	}

	frames := int(target.Frames())
	r := &Renderer{
		device:         handle,
		queue:          deviceQueue,
		swapchain:      target.Swapchain(),
		imagesInFlight: make([]vk.Fence, frames),
	}
	if err := r.createSynchronization(frames); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// Renderer acquires, submits and presents the images of one target.
type Renderer struct {
	device    vk.Device
	queue     vk.Queue
	swapchain vk.Swapchain

	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	inFlight       []vk.Fence
	imagesInFlight []vk.Fence

	slot       int
	imageIndex uint32
	suboptimal bool
}

func (r *Renderer) createSynchronization(frames int) error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := 0; i < frames; i++ {
		var (
			imageAvailable vk.Semaphore
			renderFinished vk.Semaphore
			fence          vk.Fence
		)
		if err := vk.Error(vk.CreateSemaphore(r.device, &sci, nil, &imageAvailable)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore(): %w", err)
		}
		r.imageAvailable = append(r.imageAvailable, imageAvailable)

		if err := vk.Error(vk.CreateSemaphore(r.device, &sci, nil, &renderFinished)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore(): %w", err)
		}
		r.renderFinished = append(r.renderFinished, renderFinished)

		if err := vk.Error(vk.CreateFence(r.device, &fci, nil, &fence)); err != nil {
			return fmt.Errorf("vk.CreateFence(): %w", err)
		}
		r.inFlight = append(r.inFlight, fence)
	}
	return nil
}

// resultError maps a native result onto the errors of the frame loop.
func resultError(call string, result vk.Result) error {
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return app.ErrOutOfDate
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%s: %w", call, app.ErrDeviceLost)
	default:
		return fmt.Errorf("%s: %w", call, vk.Error(result))
	}
}

// Begin implements app.Renderer. It returns once the acquired
// image is no longer used by an earlier frame.
func (r *Renderer) Begin() (uint32, error) {
	fence := r.inFlight[r.slot]
	if err := resultError("vk.WaitForFences()", vk.WaitForFences(r.device, 1, []vk.Fence{fence}, vk.True, math.MaxUint64)); err != nil {
		return 0, err
	}

	result := vk.AcquireNextImage(r.device, r.swapchain, math.MaxUint64, r.imageAvailable[r.slot], nil, &r.imageIndex)
	r.suboptimal = result == vk.Suboptimal
	if !r.suboptimal {
		if err := resultError("vk.AcquireNextImage()", result); err != nil {
			return 0, err
		}
	}

	if int(r.imageIndex) >= len(r.imagesInFlight) {
		grown := make([]vk.Fence, r.imageIndex+1)
		copy(grown, r.imagesInFlight)
		r.imagesInFlight = grown
	}
	if previous := r.imagesInFlight[r.imageIndex]; previous != nil && previous != fence {
		if err := resultError("vk.WaitForFences()", vk.WaitForFences(r.device, 1, []vk.Fence{previous}, vk.True, math.MaxUint64)); err != nil {
			return 0, err
		}
	}
	r.imagesInFlight[r.imageIndex] = fence
	return r.imageIndex, nil
}

// End implements app.Renderer.
func (r *Renderer) End(cmd app.CommandBuffer) error {
	commandBuffer, ok := cmd.(vk.CommandBuffer)
	if !ok {
		return ErrHandle
	}
	slot := r.slot
	r.slot = (r.slot + 1) % len(r.inFlight)

	fence := r.inFlight[slot]
	vk.ResetFences(r.device, 1, []vk.Fence{fence})

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.imageAvailable[slot]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{r.renderFinished[slot]},
	}}
	if err := resultError("vk.QueueSubmit()", vk.QueueSubmit(r.queue, 1, submit, fence)); err != nil {
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.renderFinished[slot]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{r.swapchain},
		PImageIndices:      []uint32{r.imageIndex},
	}
	if err := resultError("vk.QueuePresent()", vk.QueuePresent(r.queue, &presentInfo)); err != nil {
		return err
	}
	if r.suboptimal {
		return app.ErrOutOfDate
	}
	return nil
}

// Destroy implements app.Renderer, the device must be idle.
func (r *Renderer) Destroy() {
	for _, s := range r.imageAvailable {
		vk.DestroySemaphore(r.device, s, nil)
	}
	for _, s := range r.renderFinished {
		vk.DestroySemaphore(r.device, s, nil)
	}
	for _, f := range r.inFlight {
		vk.DestroyFence(r.device, f, nil)
	}
	r.imageAvailable = nil
	r.renderFinished = nil
	r.inFlight = nil
	r.imagesInFlight = nil
}
