// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/kdev/app"
	"github.com/devblok/kdev/device"
	"github.com/devblok/kdev/native"
)

func newWindow(title string, width, height uint32) (*sdl.Window, error) {
	return sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
}

// window adapts an sdl window to the app loop.
type window struct {
	sdl      *sdl.Window
	instance *native.Instance

	fullscreen bool
}

func (w *window) Poll(in *app.Input) app.WindowState {
	var ws app.WindowState
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			ws.Closed = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
				ws.Resized = true
			case sdl.WINDOWEVENT_CLOSE:
				ws.Closed = true
			}
		case *sdl.KeyboardEvent:
			in.PushKey(app.KeyEvent{
				Key:    translateKey(e.Keysym.Sym),
				Action: translateAction(e.Type, e.Repeat),
				Mod:    translateMod(e.Keysym.Mod),
			})
		}
	}
	ws.Iconified = w.sdl.GetFlags()&sdl.WINDOW_MINIMIZED != 0
	return ws
}

func (w *window) Surface() device.SurfaceHandle {
	return w.instance.Surface()
}

func (w *window) Size() (uint32, uint32) {
	width, height := w.sdl.VulkanGetDrawableSize()
	return uint32(width), uint32(height)
}

func (w *window) Fullscreen() bool {
	return w.fullscreen
}

func (w *window) SetFullscreen(on bool) {
	var flags uint32
	if on {
		flags = sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	if err := w.sdl.SetFullscreen(flags); err != nil {
		log.WithError(err).Warn("fullscreen switch failed")
		return
	}
	w.fullscreen = on
}

var keys = map[sdl.Keycode]app.Key{
	sdl.K_ESCAPE:    app.KeyEscape,
	sdl.K_RETURN:    app.KeyEnter,
	sdl.K_BACKSPACE: app.KeyBackspace,
	sdl.K_TAB:       app.KeyTab,
	sdl.K_SPACE:     app.KeySpace,
	sdl.K_F1:        app.KeyF1,
	sdl.K_UP:        app.KeyUp,
	sdl.K_DOWN:      app.KeyDown,
	sdl.K_LEFT:      app.KeyLeft,
	sdl.K_RIGHT:     app.KeyRight,
}

func translateKey(sym sdl.Keycode) app.Key {
	if k, ok := keys[sym]; ok {
		return k
	}
	return app.KeyUnknown
}

func translateAction(typ uint32, repeat uint8) app.Action {
	switch {
	case typ == sdl.KEYUP:
		return app.Release
	case repeat != 0:
		return app.Repeat
	default:
		return app.Press
	}
}

func translateMod(mod uint16) app.Mod {
	var m app.Mod
	if mod&sdl.KMOD_SHIFT != 0 {
		m |= app.ModShift
	}
	if mod&sdl.KMOD_CTRL != 0 {
		m |= app.ModControl
	}
	if mod&sdl.KMOD_ALT != 0 {
		m |= app.ModAlt
	}
	if mod&sdl.KMOD_GUI != 0 {
		m |= app.ModSuper
	}
	return m
}
