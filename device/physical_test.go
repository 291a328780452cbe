// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/kdev/device"
)

func TestNewPhysicalDeviceQueriesOnce(t *testing.T) {
	c := qt.New(t)

	drv := newFakeDriver(device.QueueFamily{Flags: device.QueueAll, QueueCount: 1})
	drv.supported.SamplerAnisotropy = true
	drv.supported2.TimelineSemaphore = true

	pd, err := device.NewPhysicalDevice(drv, "adapter-0")
	c.Assert(err, qt.IsNil)
	c.Assert(drv.calls, qt.DeepEquals, []string{
		"Properties", "Features", "MemoryProperties", "QueueFamilies", "Extensions",
	})

	features := pd.Features()
	c.Assert(features.V1().SamplerAnisotropy, qt.IsTrue)
	c.Assert(features.V12().TimelineSemaphore, qt.IsTrue)
	c.Assert(pd.Name(), qt.Equals, "Fake GPU")
	c.Assert(pd.MemoryProperties().TotalSize(), qt.Equals, uint64(1<<30))
	c.Assert(pd.Handle(), qt.Equals, device.PhysicalDeviceHandle("adapter-0"))
}

func TestNewPhysicalDeviceErrors(t *testing.T) {
	c := qt.New(t)

	_, err := device.NewPhysicalDevice(nil, "adapter-0")
	c.Assert(err, qt.ErrorIs, device.ErrNoPhysicalDevice)

	drv := newFakeDriver()
	drv.extensionsErr = errNative
	_, err = device.NewPhysicalDevice(drv, "adapter-0")
	c.Assert(err, qt.ErrorIs, errNative)
}

func TestQueueFamilyFirstSuperset(t *testing.T) {
	g, cp, tr := device.QueueGraphics, device.QueueCompute, device.QueueTransfer

	tests := []struct {
		name     string
		families []device.QueueFlags
		required device.QueueFlags
		index    uint32
		ok       bool
	}{
		{"combined first", []device.QueueFlags{g | cp | tr, cp | tr, tr}, tr, 0, true},
		{"disjoint graphics", []device.QueueFlags{g, tr}, g, 0, true},
		{"disjoint transfer", []device.QueueFlags{g, tr}, tr, 1, true},
		{"superset needed", []device.QueueFlags{g, cp, g | cp}, g | cp, 2, true},
		{"partial overlap is not enough", []device.QueueFlags{g | tr, cp | tr}, g | cp, 0, false},
		{"none qualifies", []device.QueueFlags{tr, tr}, g, 0, false},
		{"empty table", nil, tr, 0, false},
		{"empty request", []device.QueueFlags{tr}, 0, 0, true},
		{"sparse bits kept", []device.QueueFlags{g, g | device.QueueSparseBinding}, device.QueueSparseBinding, 1, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			var families []device.QueueFamily
			for _, f := range test.families {
				families = append(families, device.QueueFamily{Flags: f, QueueCount: 1})
			}
			pd := mustPhysicalDevice(newFakeDriver(families...))

			index, ok := pd.QueueFamily(test.required)
			c.Assert(ok, qt.Equals, test.ok)
			if test.ok {
				c.Assert(index, qt.Equals, test.index)
			}
		})
	}
}

func TestSupportedExactMatch(t *testing.T) {
	c := qt.New(t)
	pd := mustPhysicalDevice(newFakeDriver())

	c.Assert(pd.Supported("VK_KHR_swapchain"), qt.IsTrue)
	c.Assert(pd.Supported("VK_KHR_maintenance1"), qt.IsTrue)
	c.Assert(pd.Supported("VK_KHR_swap"), qt.IsFalse)
	c.Assert(pd.Supported("VK_KHR_swapchain_extra"), qt.IsFalse)
	c.Assert(pd.Supported("vk_khr_swapchain"), qt.IsFalse)
	c.Assert(pd.Supported(""), qt.IsFalse)
	c.Assert(pd.SwapchainSupported(), qt.IsTrue)
}

func TestSurfaceSupportedDegradesToFalse(t *testing.T) {
	c := qt.New(t)
	drv := newFakeDriver(device.QueueFamily{Flags: device.QueueAll, QueueCount: 1})
	drv.surfaceOK = map[uint32]bool{0: true}
	pd := mustPhysicalDevice(drv)

	c.Assert(pd.SurfaceSupported(0, "surface"), qt.IsTrue)
	c.Assert(pd.SurfaceSupported(1, "surface"), qt.IsFalse)

	drv.surfaceErr = errNative
	c.Assert(pd.SurfaceSupported(0, "surface"), qt.IsFalse)
}

func TestDeviceTypeString(t *testing.T) {
	c := qt.New(t)
	for typ, want := range map[device.DeviceType]string{
		device.DeviceTypeOther:         "OTHER",
		device.DeviceTypeIntegratedGPU: "INTEGRATED_GPU",
		device.DeviceTypeDiscreteGPU:   "DISCRETE_GPU",
		device.DeviceTypeVirtualGPU:    "VIRTUAL_GPU",
		device.DeviceTypeCPU:           "CPU",
		device.DeviceType(5):           "UNKNOWN",
		device.DeviceType(0x7fffffff):  "UNKNOWN",
	} {
		drv := newFakeDriver()
		drv.properties.Type = typ
		c.Assert(mustPhysicalDevice(drv).DeviceTypeString(), qt.Equals, want)
	}
}

func TestDefaultCreateParam(t *testing.T) {
	c := qt.New(t)
	pd := mustPhysicalDevice(newFakeDriver())

	param := pd.DefaultCreateParam()
	c.Assert(param.PhysicalDevice, qt.Equals, pd)
	c.Assert(param.Extensions, qt.DeepEquals, []string{device.SwapchainExtension})
	c.Assert(param.Queues, qt.HasLen, 1)
	c.Assert(param.Queues[0].Flags, qt.Equals, device.QueueAll)
	c.Assert(param.Queues[0].Priorities, qt.DeepEquals, []float32{1})
}

func TestMemoryTypeIndex(t *testing.T) {
	c := qt.New(t)
	pd := mustPhysicalDevice(newFakeDriver())

	idx, ok := pd.MemoryTypeIndex(0x3, 0x2)
	c.Assert(ok, qt.IsTrue)
	c.Assert(idx, qt.Equals, uint32(1))

	_, ok = pd.MemoryTypeIndex(0x1, 0x2)
	c.Assert(ok, qt.IsFalse)
}

func TestQueueFlagsString(t *testing.T) {
	c := qt.New(t)
	c.Assert(device.QueueAll.String(), qt.Equals, "GRAPHICS|COMPUTE|TRANSFER")
	c.Assert(device.QueueFlags(0).String(), qt.Equals, "NONE")
	c.Assert((device.QueueTransfer | 0x100).String(), qt.Equals, "TRANSFER|0x100")
}
