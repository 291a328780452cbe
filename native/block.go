// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"fmt"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// NewBlock creates a command pool on the graphics family of dev
// with one primary buffer for each of frames.
func NewBlock(dev *device.Device, frames uint32) (*Block, error) {
	handle, ok := dev.Handle().(vk.Device)
	if !ok {
		return nil, ErrHandle
	}
	queue, ok := dev.GraphicsQueue(0)
	if !ok {
		return nil, ErrNoGraphicsQueue
	}

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queue.Family,
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(handle, &cpci, nil, &commandPool)); err != nil {
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}

	b := &Block{
		device:      handle,
		commandPool: commandPool,
	}
	if err := b.grow(frames); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// Block owns a command pool and one primary command buffer per frame.
type Block struct {
	device         vk.Device
	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer
}

// grow allocates buffers until there are at least frames of them.
func (b *Block) grow(frames uint32) error {
	have := uint32(len(b.commandBuffers))
	if frames <= have {
		return nil
	}

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: frames - have,
	}

	commandBuffers := make([]vk.CommandBuffer, frames-have)
	if err := vk.Error(vk.AllocateCommandBuffers(b.device, &cbai, commandBuffers)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	b.commandBuffers = append(b.commandBuffers, commandBuffers...)
	return nil
}

// Record implements app.Block. A swapchain may hold more images than
// requested, buffers for the extra frames are allocated on first use.
func (b *Block) Record(frame uint32, fn func(cmd app.CommandBuffer)) (app.CommandBuffer, error) {
	if err := b.grow(frame + 1); err != nil {
		return nil, err
	}
	commandBuffer := b.commandBuffers[frame]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		return nil, fmt.Errorf("vk.BeginCommandBuffer()[%d]: %w", frame, err)
	}

	fn(commandBuffer)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return nil, fmt.Errorf("vk.EndCommandBuffer()[%d]: %w", frame, err)
	}
	return commandBuffer, nil
}

// Destroy implements app.Block, the device must be idle.
func (b *Block) Destroy() {
	if len(b.commandBuffers) > 0 {
		vk.FreeCommandBuffers(b.device, b.commandPool, uint32(len(b.commandBuffers)), b.commandBuffers)
		b.commandBuffers = nil
	}
	if b.commandPool != nil {
		vk.DestroyCommandPool(b.device, b.commandPool, nil)
		b.commandPool = nil
	}
}
