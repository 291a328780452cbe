// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package native implements the device driver and the frame
// collaborators of the app package with the Vulkan API.
package native

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/device"
)

// Validation layer and extension enabled in debug mode.
const (
	DebugLayer     = "VK_LAYER_KHRONOS_validation"
	DebugExtension = "VK_EXT_debug_report"
)

// ApplicationInfo describes an application running on the engine.
func ApplicationInfo(name string, version uint32) *vk.ApplicationInfo {
	return &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vulkan12,
		ApplicationVersion: version,
		PApplicationName:   core.SafeString(name),
		EngineVersion:      core.EngineVersion,
		PEngineName:        core.SafeString(core.EngineName),
	}
}

// InstanceConfiguration lists what the instance is created with.
type InstanceConfiguration struct {
	DebugMode  bool
	Extensions []string
	Layers     []string
}

// NewInstance loads the API, creates an instance and enumerates
// its adapters. When procAddr is nil the system loader is used.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, DebugLayer)
		cfg.Extensions = append(cfg.Extensions, DebugExtension)
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %w", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init(): %w", err)
	}

	extensions := core.SafeStrings(cfg.Extensions)
	layers := core.SafeStrings(cfg.Layers)
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, fmt.Errorf("vk.CreateInstance(): %w", err)
	}
	vk.InitInstance(instance)

	adapters, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	log.WithFields(log.Fields{
		"adapters":   len(adapters),
		"extensions": cfg.Extensions,
		"layers":     cfg.Layers,
	}).Info("vulkan instance created")

	return &Instance{
		configuration: cfg,
		instance:      instance,
		adapters:      adapters,
		driver:        NewDriver(instance),
		surface:       vk.NullSurface,
	}, nil
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %w", err)
	}
	adapters := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, adapters)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %w", err)
	}
	return adapters[:deviceCount], nil
}

// Instance is a Vulkan instance with its adapters and surface.
type Instance struct {
	configuration InstanceConfiguration

	instance vk.Instance
	adapters []vk.PhysicalDevice
	driver   *Driver
	surface  vk.Surface
}

// Driver returns the device driver bound to the instance.
func (i *Instance) Driver() *Driver {
	return i.driver
}

// Adapters builds a capability snapshot of every adapter in
// enumeration order. Adapters that cannot be queried are skipped.
func (i *Instance) Adapters() []*device.PhysicalDevice {
	var adapters []*device.PhysicalDevice
	for idx, pd := range i.adapters {
		adapter, err := device.NewPhysicalDevice(i.driver, pd)
		if err != nil {
			log.WithError(err).WithField("index", idx).Warn("adapter skipped")
			continue
		}
		adapters = append(adapters, adapter)
	}
	return adapters
}

// Manager returns a device manager over every adapter.
func (i *Instance) Manager() *device.Manager {
	return device.NewManager(i.driver, i.Adapters())
}

// Handle returns the native instance.
func (i *Instance) Handle() vk.Instance {
	return i.instance
}

// Extensions returns the enabled instance extensions.
func (i *Instance) Extensions() []string {
	return i.configuration.Extensions
}

// SetSurface takes ownership of a surface created for the instance.
func (i *Instance) SetSurface(surface unsafe.Pointer) {
	i.surface = vk.SurfaceFromPointer(uintptr(surface))
}

// Surface returns the presentation surface, or the null surface.
func (i *Instance) Surface() vk.Surface {
	if i.surface == nil {
		return vk.NullSurface
	}
	return i.surface
}

// Destroy releases the surface and the instance. Every device
// created from the instance must be destroyed first.
func (i *Instance) Destroy() {
	if i.instance == nil {
		return
	}
	if i.surface != vk.NullSurface {
		vk.DestroySurface(i.instance, i.surface, nil)
		i.surface = vk.NullSurface
	}
	i.adapters = nil
	vk.DestroyInstance(i.instance, nil)
	i.instance = nil
}
