// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/devblok/kdev/device"
)

func newManager(c *qt.C, adapters int) (*device.Manager, *fakeDriver) {
	drv := newFakeDriver(combinedFamily(2))
	var pds []*device.PhysicalDevice
	for i := 0; i < adapters; i++ {
		pd, err := device.NewPhysicalDevice(drv, i)
		c.Assert(err, qt.IsNil)
		pds = append(pds, pd)
	}
	drv.calls = nil
	return device.NewManager(drv, pds), drv
}

func TestManagerCreate(t *testing.T) {
	c := qt.New(t)
	m, _ := newManager(c, 2)

	first, err := m.Create(0)
	c.Assert(err, qt.IsNil)
	second, err := m.Create(1)
	c.Assert(err, qt.IsNil)

	samePtr := cmp.Comparer(func(a, b *device.Device) bool { return a == b })
	c.Assert(m.All(), qt.CmpEquals(samePtr), []*device.Device{first, second})
	c.Assert(first.PhysicalDevice(), qt.Equals, m.Adapters()[0])
	c.Assert(second.PhysicalDevice(), qt.Equals, m.Adapters()[1])
}

func TestManagerCreateOutOfRange(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 1)

	for _, index := range []int{-1, 1, 5} {
		dev, err := m.Create(index)
		c.Assert(err, qt.ErrorIs, device.ErrNoAdapter)
		c.Assert(dev, qt.IsNil)
	}
	c.Assert(m.All(), qt.HasLen, 0)
	c.Assert(drv.calls, qt.HasLen, 0)
}

func TestManagerCreateParamHook(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 1)

	m.OnCreateParam = func(param *device.CreateParam) {
		param.Queues = append(param.Queues, device.QueueInfo{
			Flags:      device.QueueTransfer,
			Priorities: []float32{0.5},
		})
		param.Features.V1().FillModeNonSolid = true
	}

	dev, err := m.Create(0)
	c.Assert(err, qt.IsNil)
	c.Assert(dev.TransferQueues(), qt.HasLen, 2)
	features := dev.Features()
	c.Assert(features.V1().FillModeNonSolid, qt.IsTrue)
	c.Assert(drv.lastInfo.Queues, qt.DeepEquals, []device.DeviceQueueCreateInfo{
		{Family: 0, Priorities: []float32{1, 0.5}},
	})
}

func TestManagerFailedCreateNotRegistered(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 1)
	drv.poolErr = errNative

	dev, err := m.Create(0)
	c.Assert(err, qt.ErrorIs, device.ErrDescriptorPool)
	c.Assert(dev, qt.IsNil)
	c.Assert(m.All(), qt.HasLen, 0)
}

func TestManagerClearWaitsBeforeDestroy(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 2)

	first, err := m.Create(0)
	c.Assert(err, qt.IsNil)
	second, err := m.Create(1)
	c.Assert(err, qt.IsNil)

	drv.calls = nil
	m.Clear()

	// every device is idle before the first one is destroyed
	c.Assert(drv.calls[:2], qt.DeepEquals, []string{"WaitIdle device-1", "WaitIdle device-2"})
	for _, handle := range []string{"device-1", "device-2"} {
		wait, destroy := -1, -1
		for i, call := range drv.calls {
			if call == "WaitIdle "+handle && wait < 0 {
				wait = i
			}
			if call == "DestroyDevice "+handle {
				destroy = i
			}
		}
		c.Assert(wait >= 0, qt.IsTrue)
		c.Assert(destroy > wait, qt.IsTrue)
	}

	c.Assert(m.All(), qt.HasLen, 0)
	c.Assert(first.Valid(), qt.IsFalse)
	c.Assert(second.Valid(), qt.IsFalse)
	c.Assert(drv.live, qt.HasLen, 0)

	// devices are not destroyed twice
	first.Destroy()
	m.Clear()
	c.Assert(drv.called("DestroyDevice"), qt.Equals, 2)
}

func TestManagerClearAfterWaitFailure(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 2)

	_, err := m.Create(0)
	c.Assert(err, qt.IsNil)
	_, err = m.Create(1)
	c.Assert(err, qt.IsNil)

	drv.waitErr = errNative
	m.Clear()

	c.Assert(drv.called("DestroyDevice"), qt.Equals, 2)
	c.Assert(drv.live, qt.HasLen, 0)
	c.Assert(m.All(), qt.HasLen, 0)
}

func TestManagerWaitIdleReportsFirstError(t *testing.T) {
	c := qt.New(t)
	m, drv := newManager(c, 2)

	_, err := m.Create(0)
	c.Assert(err, qt.IsNil)
	_, err = m.Create(1)
	c.Assert(err, qt.IsNil)

	drv.calls = nil
	drv.waitErr = errNative
	c.Assert(m.WaitIdle(), qt.ErrorIs, errNative)
	c.Assert(drv.called("WaitIdle"), qt.Equals, 2)
}
