// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"errors"
	"fmt"

	"github.com/devblok/kdev/device"
)

var errNative = errors.New("native failure")

// fakeDriver is an in-memory device.Driver that records every call.
type fakeDriver struct {
	properties device.Properties
	supported  device.BaseFeatures
	supported2 device.Vulkan12Features
	memory     device.MemoryProperties
	families   []device.QueueFamily
	extensions []device.ExtensionProperty

	extensionsErr error
	surfaceErr    error
	surfaceOK     map[uint32]bool
	createErr     error
	poolErr       error
	waitErr       error

	devices   int
	lastInfo  *device.DeviceCreateInfo
	lastChain *device.FeaturesChain
	lastNext  *device.Vulkan12Features
	live      map[device.DeviceHandle]bool
	calls     []string
}

func newFakeDriver(families ...device.QueueFamily) *fakeDriver {
	return &fakeDriver{
		properties: device.Properties{
			Name:       "Fake GPU",
			Type:       device.DeviceTypeDiscreteGPU,
			APIVersion: 1<<22 | 2<<12,
		},
		memory: device.MemoryProperties{
			Types: []device.MemoryType{{PropertyFlags: 0x1}, {PropertyFlags: 0x6}},
			Heaps: []device.MemoryHeap{{Size: 1 << 30, Flags: 1}},
		},
		families: families,
		extensions: []device.ExtensionProperty{
			{Name: device.SwapchainExtension, SpecVersion: 70},
			{Name: "VK_KHR_maintenance1", SpecVersion: 2},
		},
		live: map[device.DeviceHandle]bool{},
	}
}

func (f *fakeDriver) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) Properties(device.PhysicalDeviceHandle) device.Properties {
	f.record("Properties")
	return f.properties
}

func (f *fakeDriver) Features(_ device.PhysicalDeviceHandle, chain *device.FeaturesChain) {
	f.record("Features")
	chain.Features = f.supported
	if next := chain.Next(); next != nil {
		*next = f.supported2
	}
}

func (f *fakeDriver) MemoryProperties(device.PhysicalDeviceHandle) device.MemoryProperties {
	f.record("MemoryProperties")
	return f.memory
}

func (f *fakeDriver) QueueFamilies(device.PhysicalDeviceHandle) []device.QueueFamily {
	f.record("QueueFamilies")
	return f.families
}

func (f *fakeDriver) Extensions(device.PhysicalDeviceHandle) ([]device.ExtensionProperty, error) {
	f.record("Extensions")
	if f.extensionsErr != nil {
		return nil, f.extensionsErr
	}
	return f.extensions, nil
}

func (f *fakeDriver) SurfaceSupport(_ device.PhysicalDeviceHandle, family uint32, _ device.SurfaceHandle) (bool, error) {
	f.record("SurfaceSupport %d", family)
	if f.surfaceErr != nil {
		return true, f.surfaceErr
	}
	return f.surfaceOK[family], nil
}

func (f *fakeDriver) CreateDevice(_ device.PhysicalDeviceHandle, info *device.DeviceCreateInfo) (device.DeviceHandle, error) {
	f.record("CreateDevice")
	f.lastInfo = info
	f.lastChain = info.Features
	if info.Features != nil {
		f.lastNext = info.Features.Next()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.devices++
	h := fmt.Sprintf("device-%d", f.devices)
	f.live[h] = true
	return h, nil
}

func (f *fakeDriver) DeviceQueue(dev device.DeviceHandle, family, index uint32) device.QueueHandle {
	f.record("DeviceQueue %d %d", family, index)
	return fmt.Sprintf("%v/queue-%d-%d", dev, family, index)
}

func (f *fakeDriver) WaitIdle(dev device.DeviceHandle) error {
	f.record("WaitIdle %v", dev)
	return f.waitErr
}

func (f *fakeDriver) DestroyDevice(dev device.DeviceHandle) {
	f.record("DestroyDevice %v", dev)
	if !f.live[dev] {
		panic(fmt.Sprintf("double destroy of %v", dev))
	}
	delete(f.live, dev)
}

func (f *fakeDriver) CreateDescriptorPool(dev device.DeviceHandle, info *device.DescriptorPoolCreateInfo) (device.DescriptorPoolHandle, error) {
	f.record("CreateDescriptorPool %v", dev)
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return fmt.Sprintf("%v/pool", dev), nil
}

func (f *fakeDriver) DestroyDescriptorPool(dev device.DeviceHandle, pool device.DescriptorPoolHandle) {
	f.record("DestroyDescriptorPool %v", dev)
}

func (f *fakeDriver) called(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func mustPhysicalDevice(drv *fakeDriver) *device.PhysicalDevice {
	pd, err := device.NewPhysicalDevice(drv, "adapter-0")
	if err != nil {
		panic(err)
	}
	return pd
}
