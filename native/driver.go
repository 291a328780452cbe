// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/device"
)

// ErrHandle is returned when a handle of another driver is passed in.
var ErrHandle = errors.New("handle does not belong to the vulkan driver")

var vulkan12 = core.Version(1, 2, 0)

// NewDriver creates a driver for the adapters of instance.
func NewDriver(instance vk.Instance) *Driver {
	d := &Driver{instance: instance}
	if fn := vk.GetInstanceProcAddr(instance, core.SafeString("vkGetPhysicalDeviceFeatures2")); fn != nil {
		d.features2 = unsafe.Pointer(fn)
	}
	return d
}

// Driver implements device.Driver on top of the Vulkan API.
// Handles it hands out are vk.PhysicalDevice, vk.Device,
// vk.Queue and vk.DescriptorPool values.
type Driver struct {
	instance  vk.Instance
	features2 unsafe.Pointer
}

func physicalDevice(h device.PhysicalDeviceHandle) vk.PhysicalDevice {
	pd, _ := h.(vk.PhysicalDevice)
	return pd
}

func logicalDevice(h device.DeviceHandle) vk.Device {
	dev, _ := h.(vk.Device)
	return dev
}

// Properties implements device.Driver.
func (d *Driver) Properties(h device.PhysicalDeviceHandle) device.Properties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice(h), &props)
	props.Deref()

	return device.Properties{
		APIVersion:    props.ApiVersion,
		DriverVersion: props.DriverVersion,
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		Type:          device.DeviceType(props.DeviceType),
		Name:          vk.ToString(props.DeviceName[:]),
	}
}

// Features implements device.Driver. Both structures are filled by
// one native query; the extended set is only chained for adapters
// that report API 1.2 or newer.
func (d *Driver) Features(h device.PhysicalDeviceHandle, chain *device.FeaturesChain) {
	pd := physicalDevice(h)
	if d.features2 == nil {
		baseFeatures(pd, chain)
		return
	}

	nf := newNativeFeatures(d.Properties(h).APIVersion >= vulkan12, nil)
	defer nf.free()

	callFeatures2(d.features2, unsafe.Pointer(pd), nf.root)
	nf.load(chain)
}

// baseFeatures reads the core set on instances without the
// chained query, the extended set stays all false.
func baseFeatures(pd vk.PhysicalDevice, chain *device.FeaturesChain) {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	src := reflect.ValueOf(features)
	dst := reflect.ValueOf(&chain.Features).Elem()
	for i := 0; i < dst.NumField(); i++ {
		dst.Field(i).SetBool(src.Field(i).Uint() != 0)
	}
}

// applyFeatures puts features into dci. Chained features go in front
// of dci.PNext in C memory that lives until the returned func is called,
// otherwise only the core set is enabled.
func applyFeatures(dci *vk.DeviceCreateInfo, features *device.FeaturesChain, chained, v12 bool) func() {
	switch {
	case features == nil:
		return func() {}
	case !chained:
		dci.PEnabledFeatures = []vk.PhysicalDeviceFeatures{enabledFeatures(features)}
		return func() {}
	}
	nf := newNativeFeatures(v12, dci.PNext)
	nf.store(features)
	dci.PNext = nf.root
	return nf.free
}

// enabledFeatures is the reverse of baseFeatures.
func enabledFeatures(chain *device.FeaturesChain) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	src := reflect.ValueOf(chain.Features)
	dst := reflect.ValueOf(&features).Elem()
	for i := 0; i < src.NumField(); i++ {
		if src.Field(i).Bool() {
			dst.Field(i).SetUint(uint64(vk.True))
		}
	}
	return features
}

// MemoryProperties implements device.Driver.
func (d *Driver) MemoryProperties(h device.PhysicalDeviceHandle) device.MemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice(h), &memoryProperties)
	memoryProperties.Deref()

	var mp device.MemoryProperties
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		mp.Types = append(mp.Types, device.MemoryType{
			PropertyFlags: uint32(memoryProperties.MemoryTypes[i].PropertyFlags),
			HeapIndex:     memoryProperties.MemoryTypes[i].HeapIndex,
		})
	}
	for i := uint32(0); i < memoryProperties.MemoryHeapCount; i++ {
		memoryProperties.MemoryHeaps[i].Deref()
		mp.Heaps = append(mp.Heaps, device.MemoryHeap{
			Size:  uint64(memoryProperties.MemoryHeaps[i].Size),
			Flags: uint32(memoryProperties.MemoryHeaps[i].Flags),
		})
	}
	return mp
}

// QueueFamilies implements device.Driver.
func (d *Driver) QueueFamilies(h device.PhysicalDeviceHandle) []device.QueueFamily {
	pd := physicalDevice(h)

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, queueFamilies)

	families := make([]device.QueueFamily, 0, count)
	for _, qf := range queueFamilies[:count] {
		qf.Deref()
		families = append(families, device.QueueFamily{
			Flags:              device.QueueFlags(qf.QueueFlags),
			QueueCount:         qf.QueueCount,
			TimestampValidBits: qf.TimestampValidBits,
		})
	}
	return families
}

// Extensions implements device.Driver.
func (d *Driver) Extensions(h device.PhysicalDeviceHandle) ([]device.ExtensionProperty, error) {
	pd := physicalDevice(h)

	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateDeviceExtensionProperties(): %w", err)
	}
	deviceExt := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &count, deviceExt)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateDeviceExtensionProperties(): %w", err)
	}

	extensions := make([]device.ExtensionProperty, 0, count)
	for _, ext := range deviceExt[:count] {
		ext.Deref()
		extensions = append(extensions, device.ExtensionProperty{
			Name:        vk.ToString(ext.ExtensionName[:]),
			SpecVersion: ext.SpecVersion,
		})
	}
	return extensions, nil
}

// SurfaceSupport implements device.Driver.
func (d *Driver) SurfaceSupport(h device.PhysicalDeviceHandle, family uint32, surface device.SurfaceHandle) (bool, error) {
	srf, ok := surface.(vk.Surface)
	if !ok || srf == vk.NullSurface {
		return false, ErrHandle
	}

	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(physicalDevice(h), family, srf, &supported)); err != nil {
		return false, fmt.Errorf("vk.GetPhysicalDeviceSurfaceSupport(): %w", err)
	}
	return supported.B(), nil
}

// CreateDevice implements device.Driver. The feature chain lives
// in C memory for the duration of the call only.
func (d *Driver) CreateDevice(h device.PhysicalDeviceHandle, info *device.DeviceCreateInfo) (device.DeviceHandle, error) {
	pd := physicalDevice(h)
	if pd == nil {
		return nil, ErrHandle
	}

	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.Queues))
	for _, q := range info.Queues {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.Family,
			QueueCount:       uint32(len(q.Priorities)),
			PQueuePriorities: q.Priorities,
		})
	}

	extensions := core.SafeStrings(info.Extensions)
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   info.Next,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	chained := d.features2 != nil
	v12 := chained && info.Features != nil && d.Properties(h).APIVersion >= vulkan12
	release := applyFeatures(&dci, info.Features, chained, v12)
	defer release()

	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(pd, &dci, nil, &dev)); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"queues":     len(queueInfos),
		"extensions": len(extensions),
	}).Debug("vulkan device created")
	return dev, nil
}

// DeviceQueue implements device.Driver.
func (d *Driver) DeviceQueue(h device.DeviceHandle, family, index uint32) device.QueueHandle {
	var queue vk.Queue
	vk.GetDeviceQueue(logicalDevice(h), family, index, &queue)
	return queue
}

// WaitIdle implements device.Driver.
func (d *Driver) WaitIdle(h device.DeviceHandle) error {
	if err := vk.Error(vk.DeviceWaitIdle(logicalDevice(h))); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	return nil
}

// DestroyDevice implements device.Driver.
func (d *Driver) DestroyDevice(h device.DeviceHandle) {
	vk.DestroyDevice(logicalDevice(h), nil)
}

// CreateDescriptorPool implements device.Driver.
func (d *Driver) CreateDescriptorPool(h device.DeviceHandle, info *device.DescriptorPoolCreateInfo) (device.DescriptorPoolHandle, error) {
	sizes := make([]vk.DescriptorPoolSize, 0, len(info.Sizes))
	for _, s := range info.Sizes {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		})
	}

	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       info.MaxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	if info.FreeDescriptorSets {
		dpci.Flags = vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit)
	}

	var descriptorPool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(logicalDevice(h), &dpci, nil, &descriptorPool)); err != nil {
		return nil, fmt.Errorf("vk.CreateDescriptorPool(): %w", err)
	}
	return descriptorPool, nil
}

// DestroyDescriptorPool implements device.Driver.
func (d *Driver) DestroyDescriptorPool(h device.DeviceHandle, pool device.DescriptorPoolHandle) {
	if dp, ok := pool.(vk.DescriptorPool); ok {
		vk.DestroyDescriptorPool(logicalDevice(h), dp, nil)
	}
}
