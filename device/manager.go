// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// NewManager creates a device registry over the adapters discovered at startup.
func NewManager(drv Driver, adapters []*PhysicalDevice) *Manager {
	return &Manager{
		driver:   drv,
		adapters: adapters,
	}
}

// Manager owns every logical device it creates. Callers may hold the
// returned devices but only the manager destroys them, callers check
// Valid() before use once Clear may have run.
// It is meant to be used from a single goroutine.
type Manager struct {
	driver   Driver
	adapters []*PhysicalDevice
	devices  []*Device

	// OnCreateParam, when set, adjusts the default creation
	// parameters used by Create before the device is built.
	OnCreateParam func(*CreateParam)
}

// Adapters returns the known physical devices.
func (m *Manager) Adapters() []*PhysicalDevice {
	return append([]*PhysicalDevice(nil), m.adapters...)
}

// Driver returns the driver devices are created with.
func (m *Manager) Driver() Driver {
	return m.driver
}

// Create builds a device with default parameters on the adapter at index.
func (m *Manager) Create(index int) (*Device, error) {
	if index < 0 || index >= len(m.adapters) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoAdapter, index, len(m.adapters))
	}

	param := m.adapters[index].DefaultCreateParam()
	if m.OnCreateParam != nil {
		m.OnCreateParam(&param)
	}
	return m.CreateWith(param)
}

// CreateWith builds a device from caller supplied parameters and registers it.
func (m *Manager) CreateWith(param CreateParam) (*Device, error) {
	dev := &Device{}
	if err := dev.Create(param); err != nil {
		log.WithError(err).Error("device creation failed")
		return nil, err
	}
	m.devices = append(m.devices, dev)
	return dev, nil
}

// All returns the registered devices in registration order.
func (m *Manager) All() []*Device {
	return append([]*Device(nil), m.devices...)
}

// WaitIdle waits for every registered device in registration order.
// All devices are waited for, the first failure is returned.
func (m *Manager) WaitIdle() error {
	var first error
	for _, dev := range m.devices {
		if err := dev.WaitIdle(); err != nil {
			log.WithError(err).WithField("device", dev.PhysicalDevice().Name()).Error("wait idle failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Clear waits for all devices to go idle, then destroys them in
// registration order and empties the registry. A failed wait does
// not stop the teardown.
func (m *Manager) Clear() {
	if err := m.WaitIdle(); err != nil {
		log.WithError(err).Warn("clearing devices that did not go idle")
	}
	for _, dev := range m.devices {
		dev.Destroy()
	}
	m.devices = nil
}
