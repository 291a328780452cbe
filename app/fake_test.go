// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app_test

import (
	"fmt"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
)

// recorder collects the calls of every fake in order.
type recorder struct {
	calls []string
}

func (r *recorder) record(format string, args ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) reset() {
	r.calls = nil
}

// index returns the position of the first call equal to name, or -1.
func (r *recorder) index(name string) int {
	for i, c := range r.calls {
		if c == name {
			return i
		}
	}
	return -1
}

type fakeDriver struct {
	*recorder
	surface bool
}

func (d *fakeDriver) Properties(device.PhysicalDeviceHandle) device.Properties {
	return device.Properties{Name: "Fake GPU", Type: device.DeviceTypeIntegratedGPU}
}

func (d *fakeDriver) Features(device.PhysicalDeviceHandle, *device.FeaturesChain) {}

func (d *fakeDriver) MemoryProperties(device.PhysicalDeviceHandle) device.MemoryProperties {
	return device.MemoryProperties{}
}

func (d *fakeDriver) QueueFamilies(device.PhysicalDeviceHandle) []device.QueueFamily {
	return []device.QueueFamily{{Flags: device.QueueAll, QueueCount: 1}}
}

func (d *fakeDriver) Extensions(device.PhysicalDeviceHandle) ([]device.ExtensionProperty, error) {
	return []device.ExtensionProperty{{Name: device.SwapchainExtension}}, nil
}

func (d *fakeDriver) SurfaceSupport(device.PhysicalDeviceHandle, uint32, device.SurfaceHandle) (bool, error) {
	return d.surface, nil
}

func (d *fakeDriver) CreateDevice(device.PhysicalDeviceHandle, *device.DeviceCreateInfo) (device.DeviceHandle, error) {
	d.record("device.Create")
	return "device", nil
}

func (d *fakeDriver) DeviceQueue(dev device.DeviceHandle, family, index uint32) device.QueueHandle {
	return "queue"
}

func (d *fakeDriver) WaitIdle(device.DeviceHandle) error {
	d.record("device.WaitIdle")
	return nil
}

func (d *fakeDriver) DestroyDevice(device.DeviceHandle) {
	d.record("device.Destroy")
}

func (d *fakeDriver) CreateDescriptorPool(device.DeviceHandle, *device.DescriptorPoolCreateInfo) (device.DescriptorPoolHandle, error) {
	return "pool", nil
}

func (d *fakeDriver) DestroyDescriptorPool(device.DeviceHandle, device.DescriptorPoolHandle) {}

// fakeWindow replays one scripted poll per frame, then reports nothing.
type fakeWindow struct {
	*recorder
	polls      []func(in *app.Input) app.WindowState
	fullscreen bool
	width      uint32
}

func (w *fakeWindow) Poll(in *app.Input) app.WindowState {
	w.record("window.Poll")
	if len(w.polls) == 0 {
		return app.WindowState{}
	}
	poll := w.polls[0]
	w.polls = w.polls[1:]
	return poll(in)
}

func (w *fakeWindow) Surface() device.SurfaceHandle { return "surface" }

func (w *fakeWindow) Size() (uint32, uint32) { return w.width, 600 }

func (w *fakeWindow) Fullscreen() bool { return w.fullscreen }

func (w *fakeWindow) SetFullscreen(on bool) {
	w.record("window.SetFullscreen %t", on)
	w.fullscreen = on
}

type fakeTarget struct {
	*recorder
	cfg app.TargetConfig
}

func (t *fakeTarget) Frames() uint32 { return t.cfg.Frames }

func (t *fakeTarget) Pass(cmd app.CommandBuffer, frame uint32, fn func()) {
	t.record("target.Pass %d", frame)
	fn()
}

func (t *fakeTarget) Destroy() { t.record("target.Destroy") }

type fakeRenderer struct {
	*recorder
	frames   uint32
	next     uint32
	beginErr []error
	endErr   []error
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (r *fakeRenderer) Begin() (uint32, error) {
	r.record("renderer.Begin")
	if err := popErr(&r.beginErr); err != nil {
		return 0, err
	}
	frame := r.next
	r.next = (r.next + 1) % r.frames
	return frame, nil
}

func (r *fakeRenderer) End(cmd app.CommandBuffer) error {
	r.record("renderer.End %v", cmd)
	return popErr(&r.endErr)
}

func (r *fakeRenderer) Destroy() { r.record("renderer.Destroy") }

type fakeBlock struct {
	*recorder
	err error
}

func (b *fakeBlock) Record(frame uint32, fn func(cmd app.CommandBuffer)) (app.CommandBuffer, error) {
	b.record("block.Record %d", frame)
	if b.err != nil {
		return nil, b.err
	}
	cmd := fmt.Sprintf("cmd-%d", frame)
	fn(cmd)
	return cmd, nil
}

func (b *fakeBlock) Destroy() { b.record("block.Destroy") }

type fakeStaging struct{ *recorder }

func (s *fakeStaging) Stage(cmd app.CommandBuffer, frame uint32) { s.record("staging.Stage %v", cmd) }
func (s *fakeStaging) Destroy()                                  { s.record("staging.Destroy") }

type fakeGui struct {
	*recorder
	active bool
}

func (g *fakeGui) Active() bool { return g.active }
func (g *fakeGui) Toggle()      { g.active = !g.active }

func (g *fakeGui) Render(cmd app.CommandBuffer, frame uint32) {
	g.record("gui.Render %v", cmd)
}

func (g *fakeGui) Destroy() { g.record("gui.Destroy") }

type fakeAllocator struct{ *recorder }

func (a *fakeAllocator) Handle() interface{} { return "allocator" }
func (a *fakeAllocator) Destroy()            { a.record("allocator.Destroy") }

// fakePlatform hands out recording collaborators.
type fakePlatform struct {
	*recorder
	window   *fakeWindow
	renderer *fakeRenderer
	block    *fakeBlock
	gui      *fakeGui
	targets  []*fakeTarget

	noGui     bool
	targetErr error
}

func newFakePlatform(rec *recorder) *fakePlatform {
	return &fakePlatform{
		recorder: rec,
		window:   &fakeWindow{recorder: rec, width: 800},
		renderer: &fakeRenderer{recorder: rec, frames: 2},
		block:    &fakeBlock{recorder: rec},
	}
}

func (p *fakePlatform) Window() app.Window { return p.window }

func (p *fakePlatform) CreateAllocator(dev *device.Device) (app.Allocator, error) {
	p.record("create allocator")
	return &fakeAllocator{p.recorder}, nil
}

func (p *fakePlatform) CreateBlock(dev *device.Device, frames uint32) (app.Block, error) {
	p.record("create block %d", frames)
	return p.block, nil
}

func (p *fakePlatform) CreateStaging(dev *device.Device) (app.Staging, error) {
	p.record("create staging")
	return &fakeStaging{p.recorder}, nil
}

func (p *fakePlatform) CreateTarget(dev *device.Device, surface device.SurfaceHandle, cfg app.TargetConfig) (app.Target, error) {
	p.record("create target %dx%d vsync=%t", cfg.Width, cfg.Height, cfg.VSync)
	if p.targetErr != nil {
		return nil, p.targetErr
	}
	t := &fakeTarget{recorder: p.recorder, cfg: cfg}
	p.targets = append(p.targets, t)
	return t, nil
}

func (p *fakePlatform) CreateRenderer(dev *device.Device, target app.Target) (app.Renderer, error) {
	p.record("create renderer")
	return p.renderer, nil
}

func (p *fakePlatform) CreateGui(dev *device.Device, target app.Target) (app.Gui, error) {
	p.record("create gui")
	if p.noGui {
		return nil, nil
	}
	active := true
	if p.gui != nil {
		active = p.gui.active
	}
	p.gui = &fakeGui{recorder: p.recorder, active: active}
	return p.gui, nil
}
