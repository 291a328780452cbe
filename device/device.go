// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device discovers adapter capabilities and manages logical
// devices created from them: queue family resolution, feature chain
// negotiation, queue capture, descriptor pool and allocator lifetime.
package device

import (
	"errors"
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
)

// package errors
var (
	ErrNoPhysicalDevice     = errors.New("no physical device")
	ErrNoQueueRequest       = errors.New("no queue requested")
	ErrInvalidPriority      = errors.New("queue priority outside of [0, 1]")
	ErrUnsupportedExtension = errors.New("extension not supported by physical device")
	ErrUnsupportedQueue     = errors.New("no queue family satisfies the requested flags")
	ErrAlreadyCreated       = errors.New("device already created")
	ErrDescriptorPool       = errors.New("descriptor pool creation failed")
	ErrNoAdapter            = errors.New("physical device index out of range")
)

// Descriptor budget of every device pool.
const (
	descriptorCount    = 1000
	descriptorTypesLen = int(DescriptorTypeInputAttachment) + 1
)

// Allocator is the memory allocator a device forwards to resource
// creation. The device never frees it, its owner does, after the
// device has released the binding.
type Allocator interface {
	// Handle returns the native allocator handle.
	Handle() interface{}
}

// QueueInfo requests Count() queues that all support Flags.
type QueueInfo struct {
	Flags      QueueFlags
	Priorities []float32
}

// NewQueueInfo requests count queues of full priority from a family
// that supports graphics, compute and transfer.
func NewQueueInfo(count int) QueueInfo {
	if count < 1 {
		count = 1
	}
	info := QueueInfo{Flags: QueueAll}
	for i := 0; i < count; i++ {
		info.Priorities = append(info.Priorities, 1)
	}
	return info
}

// Count returns the number of queues requested.
func (q QueueInfo) Count() uint32 {
	return uint32(len(q.Priorities))
}

// CreateParam describes the logical device to create.
type CreateParam struct {
	PhysicalDevice *PhysicalDevice

	Queues     []QueueInfo
	Extensions []string
	Features   Features

	// Next is an opaque native structure chain appended
	// behind the feature chain.
	Next unsafe.Pointer

	// Allocator is bound to the device when it is created.
	Allocator Allocator
}

// SetDefaultQueues requests the swapchain extension
// and a single combined queue.
func (p *CreateParam) SetDefaultQueues() {
	p.Extensions = append(p.Extensions, SwapchainExtension)
	p.Queues = []QueueInfo{NewQueueInfo(1)}
}

// Queue is a queue captured at device creation.
type Queue struct {
	Handle QueueHandle
	Family uint32
	Index  uint32
	Flags  QueueFlags
}

// Device is a logical device. It is either fully created or
// fully destroyed, callers never observe anything in between.
type Device struct {
	driver         Driver
	physicalDevice *PhysicalDevice

	handle         DeviceHandle
	descriptorPool DescriptorPoolHandle

	graphicsQueues []Queue
	computeQueues  []Queue
	transferQueues []Queue

	features  Features
	allocator Allocator
}

type familyRequest struct {
	family     uint32
	priorities []float32
}

type queueSlot struct {
	family uint32
	index  uint32
	flags  QueueFlags
}

// Create creates the logical device described by param. Every
// unsupported request is rejected before any native call is made.
// When creation fails nothing is left behind.
func (d *Device) Create(param CreateParam) error {
	if d.handle != nil {
		return ErrAlreadyCreated
	}
	pd := param.PhysicalDevice
	if pd == nil || pd.driver == nil {
		return ErrNoPhysicalDevice
	}
	if len(param.Queues) == 0 {
		return ErrNoQueueRequest
	}

	for _, ext := range param.Extensions {
		if !pd.Supported(ext) {
			return fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
		}
	}

	requests, slots, err := resolveQueues(pd, param.Queues)
	if err != nil {
		return err
	}

	features := param.Features.Clone()
	info := DeviceCreateInfo{
		Extensions: append([]string(nil), param.Extensions...),
		Features:   features.Chain(),
		Next:       param.Next,
	}
	for _, r := range requests {
		info.Queues = append(info.Queues, DeviceQueueCreateInfo{
			Family:     r.family,
			Priorities: r.priorities,
		})
	}

	handle, err := pd.driver.CreateDevice(pd.handle, &info)
	if err != nil {
		return fmt.Errorf("vk.CreateDevice(): %w", err)
	}

	pool, err := pd.driver.CreateDescriptorPool(handle, defaultDescriptorPoolInfo())
	if err != nil {
		pd.driver.DestroyDevice(handle)
		return fmt.Errorf("%w: %v", ErrDescriptorPool, err)
	}

	var graphics, compute, transfer []Queue
	for _, s := range slots {
		q := Queue{
			Handle: pd.driver.DeviceQueue(handle, s.family, s.index),
			Family: s.family,
			Index:  s.index,
			Flags:  s.flags,
		}
		if s.flags&QueueGraphics != 0 {
			graphics = append(graphics, q)
		}
		if s.flags&QueueCompute != 0 {
			compute = append(compute, q)
		}
		if s.flags&QueueTransfer != 0 {
			transfer = append(transfer, q)
		}
	}

	d.driver = pd.driver
	d.physicalDevice = pd
	d.handle = handle
	d.descriptorPool = pool
	d.graphicsQueues = graphics
	d.computeQueues = compute
	d.transferQueues = transfer
	d.features = features
	if param.Allocator != nil {
		d.allocator = param.Allocator
	}

	log.WithFields(log.Fields{
		"device":     pd.Name(),
		"graphics":   len(graphics),
		"compute":    len(compute),
		"transfer":   len(transfer),
		"extensions": param.Extensions,
	}).Info("logical device created")

	return nil
}

// resolveQueues maps every request onto a queue family. Requests that
// land on the same family share one create info and get consecutive
// queue slots, in request order.
func resolveQueues(pd *PhysicalDevice, queues []QueueInfo) ([]familyRequest, []queueSlot, error) {
	var (
		requests []familyRequest
		slots    []queueSlot
		byFamily = map[uint32]int{}
	)
	for _, q := range queues {
		if q.Count() == 0 {
			return nil, nil, fmt.Errorf("%w: request for %s has no priorities", ErrNoQueueRequest, q.Flags)
		}
		for _, p := range q.Priorities {
			if p < 0 || p > 1 {
				return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPriority, p)
			}
		}

		family, ok := pd.QueueFamily(q.Flags)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedQueue, q.Flags)
		}

		idx, seen := byFamily[family]
		if !seen {
			idx = len(requests)
			byFamily[family] = idx
			requests = append(requests, familyRequest{family: family})
		}

		first := uint32(len(requests[idx].priorities))
		if available := pd.queueFamilies[family].QueueCount; first+q.Count() > available {
			return nil, nil, fmt.Errorf("%w: family %d has %d queues, %d requested",
				ErrUnsupportedQueue, family, available, first+q.Count())
		}
		requests[idx].priorities = append(requests[idx].priorities, q.Priorities...)

		for i := uint32(0); i < q.Count(); i++ {
			slots = append(slots, queueSlot{family: family, index: first + i, flags: q.Flags})
		}
	}
	return requests, slots, nil
}

func defaultDescriptorPoolInfo() *DescriptorPoolCreateInfo {
	info := &DescriptorPoolCreateInfo{
		MaxSets:            uint32(descriptorCount * descriptorTypesLen),
		FreeDescriptorSets: true,
	}
	for t := 0; t < descriptorTypesLen; t++ {
		info.Sizes = append(info.Sizes, DescriptorPoolSize{
			Type:  DescriptorType(t),
			Count: descriptorCount,
		})
	}
	return info
}

// Destroy waits for the device to go idle and releases the descriptor
// pool, the allocator binding and the device, in that order.
// It does nothing when the device is not created.
func (d *Device) Destroy() {
	if d == nil || d.handle == nil {
		return
	}

	if err := d.driver.WaitIdle(d.handle); err != nil {
		log.WithError(err).WithField("device", d.physicalDevice.Name()).Warn("wait for idle before destroy failed")
	}

	if d.descriptorPool != nil {
		d.driver.DestroyDescriptorPool(d.handle, d.descriptorPool)
		d.descriptorPool = nil
	}

	d.allocator = nil

	d.driver.DestroyDevice(d.handle)
	d.handle = nil

	d.graphicsQueues = nil
	d.computeQueues = nil
	d.transferQueues = nil

	log.WithField("device", d.physicalDevice.Name()).Info("logical device destroyed")
}

// Valid reports whether the device is created and not yet destroyed.
func (d *Device) Valid() bool {
	return d != nil && d.handle != nil
}

// Handle returns the native device handle, nil when not created.
func (d *Device) Handle() DeviceHandle {
	if d == nil {
		return nil
	}
	return d.handle
}

// WaitIdle blocks until all work submitted to the device is done.
func (d *Device) WaitIdle() error {
	if !d.Valid() {
		return nil
	}
	if err := d.driver.WaitIdle(d.handle); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	return nil
}

// DescriptorPool returns the device descriptor pool.
func (d *Device) DescriptorPool() DescriptorPoolHandle {
	return d.descriptorPool
}

// PhysicalDevice returns the adapter the device was created from.
func (d *Device) PhysicalDevice() *PhysicalDevice {
	return d.physicalDevice
}

// Driver returns the driver the device was created with.
func (d *Device) Driver() Driver {
	return d.driver
}

// Features returns the feature sets the device was created with.
func (d *Device) Features() Features {
	return d.features.Clone()
}

// Properties returns the properties of the adapter.
func (d *Device) Properties() Properties {
	if d.physicalDevice == nil {
		return Properties{}
	}
	return d.physicalDevice.Properties()
}

// SurfaceSupported reports whether the first graphics queue can present to surface.
func (d *Device) SurfaceSupported(surface SurfaceHandle) bool {
	q, ok := d.GraphicsQueue(0)
	if !ok {
		return false
	}
	return d.physicalDevice.SurfaceSupported(q.Family, surface)
}

// GraphicsQueue returns the graphics queue at index.
func (d *Device) GraphicsQueue(index int) (Queue, bool) {
	return queueAt(d.graphicsQueues, index)
}

// ComputeQueue returns the compute queue at index.
func (d *Device) ComputeQueue(index int) (Queue, bool) {
	return queueAt(d.computeQueues, index)
}

// TransferQueue returns the transfer queue at index.
func (d *Device) TransferQueue(index int) (Queue, bool) {
	return queueAt(d.transferQueues, index)
}

// GraphicsQueues returns all graphics queues in creation order.
func (d *Device) GraphicsQueues() []Queue {
	return append([]Queue(nil), d.graphicsQueues...)
}

// ComputeQueues returns all compute queues in creation order.
func (d *Device) ComputeQueues() []Queue {
	return append([]Queue(nil), d.computeQueues...)
}

// TransferQueues returns all transfer queues in creation order.
func (d *Device) TransferQueues() []Queue {
	return append([]Queue(nil), d.transferQueues...)
}

func queueAt(queues []Queue, index int) (Queue, bool) {
	if index < 0 || index >= len(queues) {
		return Queue{}, false
	}
	return queues[index], true
}

// SetAllocator binds a memory allocator to the device.
func (d *Device) SetAllocator(a Allocator) {
	d.allocator = a
}

// Allocator returns the bound allocator, if any.
func (d *Device) Allocator() Allocator {
	return d.allocator
}

// Alloc returns the native handle of the bound allocator or nil.
func (d *Device) Alloc() interface{} {
	if d.allocator == nil {
		return nil
	}
	return d.allocator.Handle()
}

func (d *Device) String() string {
	if d.physicalDevice == nil {
		return "{ PhysicalDevice: none }"
	}
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.physicalDevice)
}
