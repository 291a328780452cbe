// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/device"
)

// ErrNoMemoryType is returned when no memory type satisfies a request.
var ErrNoMemoryType = errors.New("suitable memory type not found")

// Memory defines a usable memory region.
type Memory struct {
	mapped      bool
	len, offset uint
	device      vk.Device
	memory      vk.DeviceMemory
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint {
	return m.len
}

// Offset returns the start location of assigned memory.
func (m *Memory) Offset() uint {
	return m.offset
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Map maps the whole region and returns a pointer to it.
func (m *Memory) Map() (unsafe.Pointer, error) {
	var mapped unsafe.Pointer
	if err := vk.Error(vk.MapMemory(m.device, m.memory, vk.DeviceSize(m.offset), vk.DeviceSize(m.len), 0, &mapped)); err != nil {
		return nil, fmt.Errorf("vk.MapMemory(): %w", err)
	}
	m.mapped = true
	return mapped, nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = false
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}

// NewMemoryAllocator creates an allocator for dev. Memory types
// come from the capability snapshot of the device's adapter.
func NewMemoryAllocator(dev *device.Device) (*MemoryAllocator, error) {
	handle, ok := dev.Handle().(vk.Device)
	if !ok {
		return nil, ErrHandle
	}
	return &MemoryAllocator{
		device:         handle,
		physicalDevice: dev.PhysicalDevice(),
		live:           make(map[vk.DeviceMemory]struct{}),
	}, nil
}

// MemoryAllocator hands out device memory for resources. Chunks must
// be given back with Free, Destroy only reports the ones still live.
type MemoryAllocator struct {
	device         vk.Device
	physicalDevice *device.PhysicalDevice

	mutex sync.Mutex
	live  map[vk.DeviceMemory]struct{}
}

// Handle implements device.Allocator.
func (ma *MemoryAllocator) Handle() interface{} {
	return ma
}

// Malloc returns a memory chunk that satisfies req and has prop set.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlagBits) (Memory, error) {
	memTypeIdx, ok := ma.physicalDevice.MemoryTypeIndex(req.MemoryTypeBits, uint32(prop))
	if !ok {
		return Memory{}, ErrNoMemoryType
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return Memory{}, fmt.Errorf("vk.AllocateMemory(): %w", err)
	}

	ma.mutex.Lock()
	ma.live[memory] = struct{}{}
	ma.mutex.Unlock()

	return Memory{
		len:    uint(req.Size),
		device: ma.device,
		memory: memory,
	}, nil
}

// Free releases memory returned by Malloc.
func (ma *MemoryAllocator) Free(m *Memory) {
	ma.mutex.Lock()
	delete(ma.live, m.memory)
	ma.mutex.Unlock()
	m.Release()
}

// Destroy drops the allocator. It runs after the device is gone,
// chunks still live at that point went with the device and are
// only reported.
func (ma *MemoryAllocator) Destroy() {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()
	if len(ma.live) > 0 {
		log.WithField("chunks", len(ma.live)).Warn("allocator destroyed with live memory")
	}
	ma.live = make(map[vk.DeviceMemory]struct{})
}
