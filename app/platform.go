// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"errors"

	"github.com/devblok/kdev/device"
)

// Errors reported by renderers.
var (
	// ErrOutOfDate means the render target no longer matches the
	// window and has to be rebuilt before the next frame.
	ErrOutOfDate = errors.New("render target out of date")

	// ErrDeviceLost is terminal for the frame loop.
	ErrDeviceLost = errors.New("device lost")
)

// CommandBuffer is a native command buffer handle.
type CommandBuffer interface{}

// WindowState is what a window poll reports.
type WindowState struct {
	Closed    bool
	Resized   bool
	Iconified bool
}

// Window is the presentation window the loop polls every frame.
type Window interface {
	// Poll drains pending window events, key events go to in.
	Poll(in *Input) WindowState

	// Surface returns the native presentation surface.
	Surface() device.SurfaceHandle

	// Size returns the drawable size in pixels.
	Size() (width, height uint32)

	Fullscreen() bool
	SetFullscreen(bool)
}

// TargetConfig describes the render target to build.
type TargetConfig struct {
	Width, Height uint32

	// Frames is the requested number of swapchain images.
	Frames uint32
	VSync  bool
}

// Target is a swapchain with everything needed to render into it.
type Target interface {
	// Frames returns the number of swapchain images.
	Frames() uint32

	// Pass records a render pass into the image at frame,
	// fn records the pass contents.
	Pass(cmd CommandBuffer, frame uint32, fn func())

	Destroy()
}

// Renderer acquires, submits and presents frames of a target.
type Renderer interface {
	// Begin acquires the next image and returns its index.
	Begin() (frame uint32, err error)

	// End submits cmd and presents the frame acquired by Begin.
	End(cmd CommandBuffer) error

	Destroy()
}

// Block records one primary command buffer per frame.
type Block interface {
	// Record resets and records the buffer of frame with fn.
	Record(frame uint32, fn func(cmd CommandBuffer)) (CommandBuffer, error)

	Destroy()
}

// Staging records pending uploads into a frame.
type Staging interface {
	Stage(cmd CommandBuffer, frame uint32)
	Destroy()
}

// Gui draws the user interface on top of a frame.
type Gui interface {
	Active() bool
	Toggle()
	Render(cmd CommandBuffer, frame uint32)
	Destroy()
}

// Allocator is a memory allocator the app owns.
type Allocator interface {
	device.Allocator
	Destroy()
}

// Platform creates the collaborators the app runs with.
// Any of the Create methods may return a nil collaborator
// without an error when the platform does not have one,
// except for the block, the target and the renderer.
type Platform interface {
	Window() Window

	CreateAllocator(dev *device.Device) (Allocator, error)
	CreateBlock(dev *device.Device, frames uint32) (Block, error)
	CreateStaging(dev *device.Device) (Staging, error)
	CreateTarget(dev *device.Device, surface device.SurfaceHandle, cfg TargetConfig) (Target, error)
	CreateRenderer(dev *device.Device, target Target) (Renderer, error)
	CreateGui(dev *device.Device, target Target) (Gui, error)
}
