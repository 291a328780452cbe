// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// NewBuffer creates, allocates and binds a host visible buffer.
func NewBuffer(dev vk.Device, size uint, usage vk.BufferUsageFlagBits, mode vk.SharingMode, ma *MemoryAllocator) (Buffer, error) {
	return newBuffer(dev, size, usage, mode, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, ma)
}

func newBuffer(dev vk.Device, size uint, usage vk.BufferUsageFlagBits, mode vk.SharingMode, prop vk.MemoryPropertyFlagBits, ma *MemoryAllocator) (Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: mode,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(dev, &createInfo, nil, &buffer)); err != nil {
		return Buffer{}, fmt.Errorf("vk.CreateBuffer(): %w", err)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()

	memory, err := ma.Malloc(req, prop)
	if err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		return Buffer{}, err
	}

	if err := vk.Error(vk.BindBufferMemory(dev, buffer, memory.Get(), vk.DeviceSize(memory.Offset()))); err != nil {
		ma.Free(&memory)
		vk.DestroyBuffer(dev, buffer, nil)
		return Buffer{}, fmt.Errorf("vk.BindBufferMemory(): %w", err)
	}

	return Buffer{
		device:    dev,
		buffer:    buffer,
		size:      size,
		memory:    memory,
		allocator: ma,
	}, nil
}

// Buffer is a buffer bound to its own memory.
type Buffer struct {
	device    vk.Device
	buffer    vk.Buffer
	size      uint
	memory    Memory
	allocator *MemoryAllocator
}

// Mem returns the memory the buffer is bound to.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size returns the size the buffer was created with.
func (b *Buffer) Size() uint {
	return b.size
}

// Write copies data to the start of the buffer.
func (b *Buffer) Write(data []byte) error {
	if uint(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes into a %d byte buffer", len(data), b.size)
	}
	ptr, err := b.memory.Map()
	if err != nil {
		return err
	}
	defer b.memory.Unmap()

	mapped := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: uintptr(ptr),
		Len:  len(data),
		Cap:  len(data),
	}))
	copy(mapped, data)
	return nil
}

// Release destroys the buffer and frees its memory.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.allocator.Free(&b.memory)
}

// NewStaging creates a staging area for dev, its buffers
// come from the allocator bound to the device.
func NewStaging(dev *device.Device) (*Staging, error) {
	handle, ok := dev.Handle().(vk.Device)
	if !ok {
		return nil, ErrHandle
	}
	var ma *MemoryAllocator
	if dev.Allocator() != nil {
		ma, _ = dev.Allocator().Handle().(*MemoryAllocator)
	}
	if ma == nil {
		return nil, fmt.Errorf("staging: %w", ErrNoMemoryType)
	}
	return &Staging{
		device:    handle,
		allocator: ma,
		queue:     newStageQueue(),
	}, nil
}

// Staging copies host data into device buffers. Uploads are
// recorded into the next frame, their source buffers are released
// when the same frame comes around again.
type Staging struct {
	device    vk.Device
	allocator *MemoryAllocator
	queue     *stageQueue
}

// Upload queues a copy of data into dst at offset. A pending upload
// into the same range is replaced. It is safe to call from any goroutine.
func (s *Staging) Upload(dst vk.Buffer, offset uint, data []byte) error {
	src, err := NewBuffer(s.device, uint(len(data)), vk.BufferUsageTransferSrcBit, vk.SharingModeExclusive, s.allocator)
	if err != nil {
		return err
	}
	if err := src.Write(data); err != nil {
		src.Release()
		return err
	}
	s.queue.push(stagedCopy{src: &src, dst: dst, offset: offset})
	return nil
}

// Pending returns the number of uploads waiting for a frame.
func (s *Staging) Pending() int {
	pending, _ := s.queue.len()
	return pending
}

// Stage implements app.Staging.
func (s *Staging) Stage(cmd app.CommandBuffer, frame uint32) {
	commandBuffer, ok := cmd.(vk.CommandBuffer)
	if !ok {
		return
	}
	for _, c := range s.queue.cycle(frame) {
		vk.CmdCopyBuffer(commandBuffer, c.src.Get(), c.dst, 1, []vk.BufferCopy{{
			DstOffset: vk.DeviceSize(c.offset),
			Size:      vk.DeviceSize(c.src.Size()),
		}})
	}
}

// Destroy implements app.Staging, the device must be idle.
func (s *Staging) Destroy() {
	s.queue.release()
}

// stagingSource is the host side of a copy.
type stagingSource interface {
	Get() vk.Buffer
	Size() uint
	Release()
}

type stagedCopy struct {
	src    stagingSource
	dst    vk.Buffer
	offset uint
}

// stageQueue tracks copies from the upload until the frame that
// recorded them is recorded again.
type stageQueue struct {
	mutex    sync.Mutex
	pending  []stagedCopy
	inFlight map[uint32][]stagingSource
}

func newStageQueue() *stageQueue {
	return &stageQueue{inFlight: make(map[uint32][]stagingSource)}
}

func (q *stageQueue) push(c stagedCopy) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for i, p := range q.pending {
		if p.dst == c.dst && p.offset == c.offset && p.src.Size() == c.src.Size() {
			p.src.Release()
			q.pending[i] = c
			return
		}
	}
	q.pending = append(q.pending, c)
}

// cycle releases the sources frame recorded last time and moves
// the pending copies in flight for frame. The copies are returned
// to be recorded.
func (q *stageQueue) cycle(frame uint32) []stagedCopy {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for _, src := range q.inFlight[frame] {
		src.Release()
	}
	q.inFlight[frame] = q.inFlight[frame][:0]

	copies := q.pending
	for _, c := range copies {
		q.inFlight[frame] = append(q.inFlight[frame], c.src)
	}
	q.pending = nil
	return copies
}

func (q *stageQueue) len() (pending, inFlight int) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for _, sources := range q.inFlight {
		inFlight += len(sources)
	}
	return len(q.pending), inFlight
}

func (q *stageQueue) release() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for frame, sources := range q.inFlight {
		for _, src := range sources {
			src.Release()
		}
		delete(q.inFlight, frame)
	}
	for _, c := range q.pending {
		c.src.Release()
	}
	q.pending = nil
}
