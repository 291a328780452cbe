// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import "unsafe"

// Native handles are opaque to this package, only the Driver
// that produced them knows their concrete type. nil is the null handle.
type (
	PhysicalDeviceHandle interface{}
	DeviceHandle         interface{}
	QueueHandle          interface{}
	DescriptorPoolHandle interface{}
	SurfaceHandle        interface{}
)

// Driver is the native graphics API surface the device layer is built on.
// Every method maps onto exactly one native call (or the two-call
// enumeration pattern for table queries).
type Driver interface {

	// Properties returns general properties of the adapter.
	Properties(PhysicalDeviceHandle) Properties

	// Features fills the chained feature structures of the adapter
	// in a single query, so both the base and the extended set
	// are populated atomically.
	Features(PhysicalDeviceHandle, *FeaturesChain)

	// MemoryProperties returns the memory types and heaps of the adapter.
	MemoryProperties(PhysicalDeviceHandle) MemoryProperties

	// QueueFamilies returns the full queue family table in native order.
	QueueFamilies(PhysicalDeviceHandle) []QueueFamily

	// Extensions returns every device extension the adapter exposes.
	Extensions(PhysicalDeviceHandle) ([]ExtensionProperty, error)

	// SurfaceSupport asks whether a queue family can present to the surface.
	SurfaceSupport(pd PhysicalDeviceHandle, family uint32, surface SurfaceHandle) (bool, error)

	// CreateDevice creates the logical device.
	CreateDevice(PhysicalDeviceHandle, *DeviceCreateInfo) (DeviceHandle, error)

	// DeviceQueue retrieves a queue that was requested at device creation.
	DeviceQueue(dev DeviceHandle, family, index uint32) QueueHandle

	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle(DeviceHandle) error

	// DestroyDevice destroys the logical device.
	DestroyDevice(DeviceHandle)

	// CreateDescriptorPool creates a descriptor pool on the device.
	CreateDescriptorPool(DeviceHandle, *DescriptorPoolCreateInfo) (DescriptorPoolHandle, error)

	// DestroyDescriptorPool destroys a descriptor pool.
	DestroyDescriptorPool(DeviceHandle, DescriptorPoolHandle)
}

// DeviceQueueCreateInfo requests one queue per priority from a family.
type DeviceQueueCreateInfo struct {
	Family     uint32
	Priorities []float32
}

// DeviceCreateInfo is everything the driver needs to create a logical device.
type DeviceCreateInfo struct {
	Queues     []DeviceQueueCreateInfo
	Extensions []string

	// Features is the root of the feature chain, its Next() is
	// always the extended set of the same Features value.
	Features *FeaturesChain

	// Next is appended after the extended feature set.
	Next unsafe.Pointer
}

// DescriptorPoolSize is the budget for one descriptor type.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorPoolCreateInfo describes a descriptor pool.
type DescriptorPoolCreateInfo struct {
	MaxSets            uint32
	FreeDescriptorSets bool
	Sizes              []DescriptorPoolSize
}
