// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the engine wide services: configuration,
// logging, frame pacing and string helpers for the native API.
package core

// Engine identification reported to the native API.
const (
	EngineName    = "koru"
	EngineVersion = 1<<22 | 1<<12
)

// Version packs a native API version.
func Version(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}
