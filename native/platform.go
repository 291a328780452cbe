// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"fmt"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// NewPlatform returns a platform that renders into window.
func NewPlatform(window app.Window) *Platform {
	return &Platform{window: window}
}

// Platform creates the Vulkan collaborators of the app.
// It has no gui.
type Platform struct {
	window  app.Window
	target  *Target
	staging *Staging
}

// Window implements app.Platform.
func (p *Platform) Window() app.Window {
	return p.window
}

// Target returns the most recently created target.
func (p *Platform) Target() *Target {
	return p.target
}

// CreateAllocator implements app.Platform.
func (p *Platform) CreateAllocator(dev *device.Device) (app.Allocator, error) {
	ma, err := NewMemoryAllocator(dev)
	if err != nil {
		return nil, err
	}
	return ma, nil
}

// CreateBlock implements app.Platform.
func (p *Platform) CreateBlock(dev *device.Device, frames uint32) (app.Block, error) {
	b, err := NewBlock(dev, frames)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateStaging implements app.Platform.
func (p *Platform) CreateStaging(dev *device.Device) (app.Staging, error) {
	s, err := NewStaging(dev)
	if err != nil {
		return nil, err
	}
	p.staging = s
	return s, nil
}

// Staging returns the most recently created staging area.
func (p *Platform) Staging() *Staging {
	return p.staging
}

// CreateUniforms creates a uniform buffer of size bytes that is
// written through the platform's staging area.
func (p *Platform) CreateUniforms(size uint) (*Uniforms, error) {
	if p.staging == nil {
		return nil, ErrNoStaging
	}
	return NewUniforms(p.staging, size)
}

// CreateTarget implements app.Platform.
func (p *Platform) CreateTarget(dev *device.Device, surface device.SurfaceHandle, cfg app.TargetConfig) (app.Target, error) {
	t, err := NewTarget(dev, surface, cfg)
	if err != nil {
		return nil, err
	}
	if p.target != nil {
		t.SetClearColor(p.target.clear)
	}
	p.target = t
	return t, nil
}

// CreateRenderer implements app.Platform.
func (p *Platform) CreateRenderer(dev *device.Device, target app.Target) (app.Renderer, error) {
	t, ok := target.(*Target)
	if !ok {
		return nil, fmt.Errorf("renderer for %T: %w", target, ErrHandle)
	}
	r, err := NewRenderer(dev, t)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateGui implements app.Platform.
func (p *Platform) CreateGui(dev *device.Device, target app.Target) (app.Gui, error) {
	return nil, nil
}
