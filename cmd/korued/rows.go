// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"strings"

	"github.com/devblok/kdev/device"
)

// adapterRow is one line of the adapter list.
type adapterRow struct {
	Name      string
	Type      string
	API       string
	Memory    string
	Graphics  bool
	Swapchain bool
	Families  string
}

var adapterColumns = []string{"Name", "Type", "API", "Memory", "Graphics", "Swapchain", "Queue families"}

func (r adapterRow) values() []interface{} {
	return []interface{}{r.Name, r.Type, r.API, r.Memory, yesNo(r.Graphics), yesNo(r.Swapchain), r.Families}
}

func adapterRows(adapters []*device.PhysicalDevice) []adapterRow {
	rows := make([]adapterRow, 0, len(adapters))
	for _, pd := range adapters {
		_, graphics := pd.QueueFamily(device.QueueGraphics)
		rows = append(rows, adapterRow{
			Name:      pd.Name(),
			Type:      pd.DeviceTypeString(),
			API:       pd.Properties().APIVersionString(),
			Memory:    byteSize(pd.MemoryProperties().TotalSize()),
			Graphics:  graphics,
			Swapchain: pd.SwapchainSupported(),
			Families:  families(pd.QueueFamilies()),
		})
	}
	return rows
}

func families(fs []device.QueueFamily) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("%d: %s x%d", i, f.Flags, f.QueueCount)
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func byteSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
