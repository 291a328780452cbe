// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/device"
	"github.com/devblok/kdev/native"
)

var (
	debug  = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent = flag.Bool("indent", true, "Indent the output")
)

type adapterInfo struct {
	Index      int                 `json:"index"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	APIVersion string              `json:"apiVersion"`
	VendorID   uint32              `json:"vendorID"`
	DeviceID   uint32              `json:"deviceID"`
	Memory     uint64              `json:"memory"`
	Swapchain  bool                `json:"swapchain"`
	Families   []familyInfo        `json:"queueFamilies"`
	Extensions []string            `json:"extensions"`
	Features   device.BaseFeatures `json:"features"`

	Vulkan12 device.Vulkan12Features `json:"vulkan12Features"`
}

type familyInfo struct {
	Flags string `json:"flags"`
	Count uint32 `json:"count"`
}

func describe(index int, pd *device.PhysicalDevice) adapterInfo {
	props := pd.Properties()
	features := pd.Features()
	info := adapterInfo{
		Index:      index,
		Name:       props.Name,
		Type:       pd.DeviceTypeString(),
		APIVersion: props.APIVersionString(),
		VendorID:   props.VendorID,
		DeviceID:   props.DeviceID,
		Memory:     pd.MemoryProperties().TotalSize(),
		Swapchain:  pd.SwapchainSupported(),
		Features:   *features.V1(),
		Vulkan12:   *features.V12(),
	}
	for _, f := range pd.QueueFamilies() {
		info.Families = append(info.Families, familyInfo{Flags: f.Flags.String(), Count: f.QueueCount})
	}
	for _, e := range pd.Extensions() {
		info.Extensions = append(info.Extensions, e.Name)
	}
	return info
}

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)

	instance, err := native.NewInstance(
		native.ApplicationInfo("korucli", core.Version(0, 1, 0)),
		nil,
		native.InstanceConfiguration{DebugMode: *debug})
	if err != nil {
		log.WithError(err).Fatal("instance creation failed")
	}
	defer instance.Destroy()

	var adapters []adapterInfo
	for i, pd := range instance.Adapters() {
		adapters = append(adapters, describe(i, pd))
	}

	var out []byte
	if *indent {
		out, err = json.MarshalIndent(adapters, "", "  ")
	} else {
		out, err = json.Marshal(adapters)
	}
	if err != nil {
		log.WithError(err).Error("encoding failed")
		return
	}
	fmt.Printf("%s\n", out)
}
