// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app drives the frame loop on top of a logical device: it owns
// the device chosen by the configuration together with the render target,
// the command block and the user hooks that run every frame.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/device"
)

// package errors
var (
	ErrInvalidState = errors.New("invalid app state")
	ErrNoPresent    = errors.New("device cannot present to the window surface")
)

// New creates an app that will run on the adapter selected by cfg.
// Nothing is created before Setup.
func New(cfg core.Configuration, platform Platform, manager *device.Manager) *App {
	a := &App{
		cfg:      cfg,
		platform: platform,
		manager:  manager,
		now:      time.Now,
	}
	a.input.AddHandler(a.defaultKeys)
	return a
}

// App owns one logical device and the resources built on it.
// All methods must be called from the goroutine running the loop.
type App struct {
	cfg      core.Configuration
	platform Platform
	manager  *device.Manager
	window   Window
	input    Input

	state        State
	frameCounter uint64
	reload       bool
	quit         bool
	created      bool

	dev       *device.Device
	allocator Allocator
	block     Block
	staging   Staging
	target    Target
	renderer  Renderer
	gui       Gui

	time     *core.Time
	runTime  *core.RunTime
	now      func() time.Time
	lastSave time.Time

	// OnCreate runs once all resources exist.
	OnCreate func() error

	// OnDestroy runs before any resource is released.
	OnDestroy func()

	// OnUpdate runs every frame with the scaled frame time,
	// returning false stops the loop.
	OnUpdate func(dt time.Duration) bool

	// OnProcess records user commands inside the frame render pass.
	OnProcess func(cmd CommandBuffer, frame uint32)

	// OnSave persists the configuration, it is called
	// periodically and at shutdown when auto save is on.
	OnSave func(core.Configuration) error
}

// Setup creates the device and every resource the loop needs,
// then calls OnCreate. A failing step releases what was created.
func (a *App) Setup() error {
	if a.state != Uninitialized {
		return fmt.Errorf("%w: setup in state %s", ErrInvalidState, a.state)
	}

	if err := a.setup(); err != nil {
		log.WithError(err).Error("app setup failed")
		a.Shutdown()
		return err
	}

	now := a.now()
	a.time = core.NewTime(a.cfg.Time)
	a.runTime = core.NewRunTime(now)
	a.lastSave = now
	a.state = Running

	log.WithFields(log.Fields{
		"device": a.dev.PhysicalDevice().Name(),
		"frames": a.target.Frames(),
		"vsync":  a.cfg.Renderer.VSync,
	}).Info("app running")
	return nil
}

func (a *App) setup() error {
	a.window = a.platform.Window()
	if a.window == nil {
		return fmt.Errorf("%w: no window", ErrInvalidState)
	}

	dev, err := a.manager.Create(a.cfg.App.PhysicalDevice)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	a.dev = dev

	if !dev.SurfaceSupported(a.window.Surface()) {
		return ErrNoPresent
	}

	if a.allocator, err = a.platform.CreateAllocator(dev); err != nil {
		return fmt.Errorf("create allocator: %w", err)
	}
	if a.allocator != nil {
		dev.SetAllocator(a.allocator)
	}

	if a.block, err = a.platform.CreateBlock(dev, a.cfg.Renderer.SwapchainSize); err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	if a.staging, err = a.platform.CreateStaging(dev); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}
	if err := a.createTarget(); err != nil {
		return err
	}

	if a.OnCreate != nil {
		if err := a.OnCreate(); err != nil {
			return fmt.Errorf("on create: %w", err)
		}
	}
	a.created = true
	return nil
}

// createTarget builds the target, the renderer and the gui.
func (a *App) createTarget() error {
	width, height := a.window.Size()
	target, err := a.platform.CreateTarget(a.dev, a.window.Surface(), TargetConfig{
		Width:  width,
		Height: height,
		Frames: a.cfg.Renderer.SwapchainSize,
		VSync:  a.cfg.Renderer.VSync,
	})
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	a.target = target

	if a.renderer, err = a.platform.CreateRenderer(a.dev, target); err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	if a.gui, err = a.platform.CreateGui(a.dev, target); err != nil {
		return fmt.Errorf("create gui: %w", err)
	}
	return nil
}

func (a *App) destroyTarget() {
	if a.gui != nil {
		a.gui.Destroy()
		a.gui = nil
	}
	if a.renderer != nil {
		a.renderer.Destroy()
		a.renderer = nil
	}
	if a.target != nil {
		a.target.Destroy()
		a.target = nil
	}
}

// rebuild recreates the target against the current configuration.
// Nothing is in flight once the device is idle.
func (a *App) rebuild() error {
	a.state = Rebuilding
	log.WithField("vsync", a.cfg.Renderer.VSync).Debug("rebuilding render target")

	if err := a.dev.WaitIdle(); err != nil {
		return err
	}
	a.destroyTarget()
	if err := a.createTarget(); err != nil {
		return err
	}

	a.reload = false
	a.state = Running
	return nil
}

// Run runs frames until the loop stops, then shuts the app down.
// Setup is called first when the app was not set up yet.
func (a *App) Run(ctx context.Context) error {
	if a.state == Uninitialized {
		if err := a.Setup(); err != nil {
			return err
		}
	}
	if a.state != Running {
		return fmt.Errorf("%w: run in state %s", ErrInvalidState, a.state)
	}
	defer a.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info("app context done")
			return nil
		case <-a.time.FpsTicker().C:
		}

		more, err := a.frame()
		if err != nil {
			log.WithError(err).Error("frame loop stopped")
			return err
		}
		if !more {
			return nil
		}
	}
}

// frame runs one loop iteration and reports whether to keep going.
func (a *App) frame() (bool, error) {
	ws := a.window.Poll(&a.input)
	a.input.Dispatch()
	if ws.Closed || a.quit {
		return false, nil
	}
	if ws.Resized {
		a.reload = true
	}

	// a minimized window has no drawable area, the rebuild
	// stays pending until it comes back
	visible := !ws.Iconified && a.drawable()
	if a.reload && visible {
		if err := a.rebuild(); err != nil {
			return false, fmt.Errorf("rebuild: %w", err)
		}
	}

	dt := a.runTime.Update(a.now())
	if a.OnUpdate != nil && !a.OnUpdate(dt) {
		return false, nil
	}

	if visible {
		if err := a.render(); err != nil {
			return false, err
		}
	}

	a.autoSave()
	return true, nil
}

func (a *App) drawable() bool {
	width, height := a.window.Size()
	return width > 0 && height > 0
}

func (a *App) render() error {
	frame, err := a.renderer.Begin()
	if errors.Is(err, ErrOutOfDate) {
		a.reload = true
		return nil
	}
	if err != nil {
		return err
	}

	cmd, err := a.block.Record(frame, func(cmd CommandBuffer) {
		if a.staging != nil {
			a.staging.Stage(cmd, frame)
		}
		a.target.Pass(cmd, frame, func() {
			if a.OnProcess != nil {
				a.OnProcess(cmd, frame)
			}
			if a.gui != nil && a.gui.Active() {
				a.gui.Render(cmd, frame)
			}
		})
	})
	if err != nil {
		return fmt.Errorf("record frame %d: %w", frame, err)
	}

	err = a.renderer.End(cmd)
	if errors.Is(err, ErrOutOfDate) {
		a.reload = true
	} else if err != nil {
		return err
	}

	a.frameCounter++
	return nil
}

func (a *App) autoSave() {
	if !a.cfg.App.AutoSave || a.OnSave == nil || a.cfg.App.SaveInterval <= 0 {
		return
	}
	now := a.now()
	if now.Sub(a.lastSave) < a.cfg.App.SaveInterval {
		return
	}
	a.lastSave = now
	a.save()
}

// save hands the configuration to OnSave, with the current
// window size when SaveWindow is set.
func (a *App) save() {
	if a.cfg.App.SaveWindow && a.window != nil {
		if width, height := a.window.Size(); width > 0 && height > 0 {
			a.cfg.Renderer.ScreenWidth = width
			a.cfg.Renderer.ScreenHeight = height
		}
	}
	if err := a.OnSave(a.cfg); err != nil {
		log.WithError(err).Warn("configuration save failed")
	}
}

// Shutdown waits for the device to go idle, calls OnDestroy and releases
// the gui, renderer, target, staging, block and device in that order.
// Calling it again does nothing.
func (a *App) Shutdown() {
	if a.state == Stopped {
		return
	}

	// The gui, renderer, target, staging and block go before the
	// manager clears the device, so they need an idle device first.
	// Clear waits again for the devices it destroys.
	if a.dev != nil {
		if err := a.manager.WaitIdle(); err != nil {
			log.WithError(err).Warn("wait idle on shutdown failed")
		}
	}
	if a.created && a.OnDestroy != nil {
		a.OnDestroy()
	}

	a.destroyTarget()
	if a.staging != nil {
		a.staging.Destroy()
		a.staging = nil
	}
	if a.block != nil {
		a.block.Destroy()
		a.block = nil
	}
	if a.dev != nil {
		a.manager.Clear()
		a.dev = nil
	}
	if a.allocator != nil {
		a.allocator.Destroy()
		a.allocator = nil
	}
	if a.time != nil {
		a.time.Stop()
	}

	if a.created && a.cfg.App.AutoSave && a.OnSave != nil {
		a.save()
	}

	a.state = Stopped
	log.WithField("frames", a.frameCounter).Info("app stopped")
}

// defaultKeys handles the engine key bindings.
func (a *App) defaultKeys(ev KeyEvent) bool {
	switch {
	case ev.Pressed(KeyEscape, 0):
		a.Quit()
	case ev.Pressed(KeyBackspace, ModAlt):
		a.ToggleVSync()
	case ev.Pressed(KeyEnter, ModAlt):
		a.window.SetFullscreen(!a.window.Fullscreen())
	case ev.Pressed(KeyTab, 0):
		if a.gui == nil {
			return false
		}
		a.gui.Toggle()
	default:
		return false
	}
	return true
}

// Quit stops the loop after the current frame.
func (a *App) Quit() {
	a.quit = true
}

// RequestReload rebuilds the render target before the next frame.
func (a *App) RequestReload() {
	a.reload = true
}

// ToggleVSync switches v-sync and rebuilds the render target.
func (a *App) ToggleVSync() {
	a.cfg.Renderer.VSync = !a.cfg.Renderer.VSync
	a.reload = true
}

// VSync reports whether v-sync is requested.
func (a *App) VSync() bool {
	return a.cfg.Renderer.VSync
}

// State returns the loop state.
func (a *App) State() State {
	return a.state
}

// FrameCounter returns the number of presented frames.
func (a *App) FrameCounter() uint64 {
	return a.frameCounter
}

// Device returns the device the app runs on, nil when not set up.
func (a *App) Device() *device.Device {
	return a.dev
}

// Input returns the input queue, handlers added here
// run after the default key bindings.
func (a *App) Input() *Input {
	return &a.input
}

// RunTime returns the app run time, nil before Setup.
func (a *App) RunTime() *core.RunTime {
	return a.runTime
}

// Config returns the current configuration.
func (a *App) Config() core.Configuration {
	return a.cfg
}
