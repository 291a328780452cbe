// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

// Key identifies a keyboard key.
type Key int

// Keys the engine reacts to.
const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyTab
	KeySpace
	KeyF1
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Mod is a set of held modifier keys.
type Mod uint8

// Modifier bits.
const (
	ModShift Mod = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// Action is what happened to a key.
type Action int

// Key actions.
const (
	Press Action = iota
	Release
	Repeat
)

// KeyEvent is a single key transition.
type KeyEvent struct {
	Key    Key
	Action Action
	Mod    Mod
}

// Pressed reports whether the event presses key with exactly mod held.
func (e KeyEvent) Pressed(key Key, mod Mod) bool {
	return e.Action == Press && e.Key == key && e.Mod == mod
}

// KeyHandler handles a key event and reports whether it consumed it.
type KeyHandler func(KeyEvent) bool

// Input queues key events for a frame and hands
// them to the registered handlers.
type Input struct {
	events   []KeyEvent
	handlers []KeyHandler
}

// PushKey queues a key event.
func (in *Input) PushKey(ev KeyEvent) {
	in.events = append(in.events, ev)
}

// AddHandler registers a handler, handlers run
// in registration order until one consumes the event.
func (in *Input) AddHandler(h KeyHandler) {
	in.handlers = append(in.handlers, h)
}

// Pending returns the queued events.
func (in *Input) Pending() []KeyEvent {
	return in.events
}

// Dispatch hands every queued event to the handlers and clears the queue.
func (in *Input) Dispatch() {
	for _, ev := range in.events {
		for _, h := range in.handlers {
			if h(ev) {
				break
			}
		}
	}
	in.events = in.events[:0]
}
