// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// NewPhysicalDevice queries and caches everything the engine needs
// to know about an adapter. The result is not modified afterwards.
func NewPhysicalDevice(drv Driver, handle PhysicalDeviceHandle) (*PhysicalDevice, error) {
	if drv == nil || handle == nil {
		return nil, ErrNoPhysicalDevice
	}

	pd := &PhysicalDevice{
		driver: drv,
		handle: handle,
	}

	pd.properties = drv.Properties(handle)
	drv.Features(handle, pd.features.Chain())
	pd.memory = drv.MemoryProperties(handle)
	pd.queueFamilies = drv.QueueFamilies(handle)

	extensions, err := drv.Extensions(handle)
	if err != nil {
		return nil, fmt.Errorf("extension enumeration for %q: %w", pd.properties.Name, err)
	}
	pd.extensions = extensions

	log.WithFields(log.Fields{
		"name":       pd.properties.Name,
		"type":       pd.properties.Type,
		"families":   len(pd.queueFamilies),
		"extensions": len(pd.extensions),
	}).Debug("physical device initialized")

	return pd, nil
}

// PhysicalDevice is an immutable capability snapshot of one adapter.
type PhysicalDevice struct {
	driver Driver
	handle PhysicalDeviceHandle

	properties    Properties
	features      Features
	memory        MemoryProperties
	queueFamilies []QueueFamily
	extensions    []ExtensionProperty
}

// Handle returns the native adapter handle.
func (p *PhysicalDevice) Handle() PhysicalDeviceHandle {
	return p.handle
}

// Driver returns the driver the snapshot was taken with.
func (p *PhysicalDevice) Driver() Driver {
	return p.driver
}

// Properties returns the adapter properties.
func (p *PhysicalDevice) Properties() Properties {
	return p.properties
}

// Name returns the adapter name.
func (p *PhysicalDevice) Name() string {
	return p.properties.Name
}

// Features returns a copy of the supported feature sets.
func (p *PhysicalDevice) Features() Features {
	return p.features.Clone()
}

// MemoryProperties returns the adapter memory layout.
func (p *PhysicalDevice) MemoryProperties() MemoryProperties {
	return p.memory
}

// QueueFamilies returns the queue family table in native order.
func (p *PhysicalDevice) QueueFamilies() []QueueFamily {
	return append([]QueueFamily(nil), p.queueFamilies...)
}

// Extensions returns the supported device extensions.
func (p *PhysicalDevice) Extensions() []ExtensionProperty {
	return append([]ExtensionProperty(nil), p.extensions...)
}

// Supported reports whether the adapter exposes the extension.
// Names are compared exactly.
func (p *PhysicalDevice) Supported(extension string) bool {
	for _, e := range p.extensions {
		if e.Name == extension {
			return true
		}
	}
	return false
}

// SwapchainSupported reports whether the adapter can present.
func (p *PhysicalDevice) SwapchainSupported() bool {
	return p.Supported(SwapchainExtension)
}

// QueueFamily returns the lowest queue family index whose flags
// contain all of the required flags.
//
// The first match wins even when a later family would fit the request
// more tightly, so separate compute or transfer queues have to be asked
// for with flag combinations only those families satisfy.
func (p *PhysicalDevice) QueueFamily(required QueueFlags) (uint32, bool) {
	for i, family := range p.queueFamilies {
		if family.Flags.Has(required) {
			return uint32(i), true
		}
	}
	return 0, false
}

// SurfaceSupported reports whether the queue family can present to
// the surface. A failing native query counts as not supported.
func (p *PhysicalDevice) SurfaceSupported(family uint32, surface SurfaceHandle) bool {
	supported, err := p.driver.SurfaceSupport(p.handle, family, surface)
	if err != nil {
		log.WithError(err).WithField("family", family).Debug("surface support query failed")
		return false
	}
	return supported
}

// DeviceTypeString returns the adapter kind as text.
func (p *PhysicalDevice) DeviceTypeString() string {
	return p.properties.Type.String()
}

// MemoryTypeIndex returns the first memory type allowed by typeBits
// that has all of the requested property flags.
func (p *PhysicalDevice) MemoryTypeIndex(typeBits uint32, properties uint32) (uint32, bool) {
	for idx, mt := range p.memory.Types {
		if typeBits&(1<<uint(idx)) != 0 && mt.PropertyFlags&properties == properties {
			return uint32(idx), true
		}
	}
	return 0, false
}

// DefaultCreateParam returns creation parameters pinned to this adapter
// with one combined queue and the swapchain extension.
func (p *PhysicalDevice) DefaultCreateParam() CreateParam {
	param := CreateParam{PhysicalDevice: p}
	param.SetDefaultQueues()
	return param
}

func (p *PhysicalDevice) String() string {
	return fmt.Sprintf("%s (%s, api %s)", p.properties.Name, p.DeviceTypeString(), p.properties.APIVersionString())
}
