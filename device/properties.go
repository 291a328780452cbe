// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"
	"strings"
)

// SwapchainExtension is the minimal presentation extension
// requested by default creation parameters.
const SwapchainExtension = "VK_KHR_swapchain"

// QueueFlags is a set of queue operation capabilities.
type QueueFlags uint32

// Queue capability bits, values match the native API.
const (
	QueueGraphics      QueueFlags = 0x1
	QueueCompute       QueueFlags = 0x2
	QueueTransfer      QueueFlags = 0x4
	QueueSparseBinding QueueFlags = 0x8
	QueueProtected     QueueFlags = 0x10

	// QueueAll is the combined graphics, compute and transfer set.
	QueueAll = QueueGraphics | QueueCompute | QueueTransfer
)

// Has reports whether f contains every bit of required.
func (f QueueFlags) Has(required QueueFlags) bool {
	return f&required == required
}

func (f QueueFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	names := []struct {
		bit  QueueFlags
		name string
	}{
		{QueueGraphics, "GRAPHICS"},
		{QueueCompute, "COMPUTE"},
		{QueueTransfer, "TRANSFER"},
		{QueueSparseBinding, "SPARSE_BINDING"},
		{QueueProtected, "PROTECTED"},
	}
	var parts []string
	rest := f
	for _, n := range names {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// DeviceType is the kind of adapter.
type DeviceType uint32

// Adapter kinds known at the time of writing. Anything
// else reported by a driver is printed as UNKNOWN.
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeOther:
		return "OTHER"
	case DeviceTypeIntegratedGPU:
		return "INTEGRATED_GPU"
	case DeviceTypeDiscreteGPU:
		return "DISCRETE_GPU"
	case DeviceTypeVirtualGPU:
		return "VIRTUAL_GPU"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "UNKNOWN"
	}
}

// DescriptorType mirrors native descriptor types.
type DescriptorType uint32

// Descriptor types in native order.
const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformTexelBuffer
	DescriptorTypeStorageTexelBuffer
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeUniformBufferDynamic
	DescriptorTypeStorageBufferDynamic
	DescriptorTypeInputAttachment
)

// Properties describes the adapter itself.
type Properties struct {
	APIVersion    uint32
	DriverVersion uint32
	VendorID      uint32
	DeviceID      uint32
	Type          DeviceType
	Name          string
}

// APIVersionString formats the packed API version as major.minor.patch.
func (p Properties) APIVersionString() string {
	return fmt.Sprintf("%d.%d.%d", p.APIVersion>>22, (p.APIVersion>>12)&0x3ff, p.APIVersion&0xfff)
}

// MemoryType is one entry of the adapter memory type table.
type MemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

// MemoryHeap is one entry of the adapter memory heap table.
type MemoryHeap struct {
	Size  uint64
	Flags uint32
}

// MemoryProperties is the memory layout of an adapter.
type MemoryProperties struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// TotalSize sums the size of every heap.
func (m MemoryProperties) TotalSize() uint64 {
	var size uint64
	for _, h := range m.Heaps {
		size += h.Size
	}
	return size
}

// QueueFamily is one entry of the adapter queue family table.
type QueueFamily struct {
	Flags              QueueFlags
	QueueCount         uint32
	TimestampValidBits uint32
}

// ExtensionProperty names a device extension.
type ExtensionProperty struct {
	Name        string
	SpecVersion uint32
}
