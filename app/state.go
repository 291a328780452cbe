// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

// State is the frame loop state.
type State int

// Frame loop states.
//
//	Uninitialized -> Running      Setup
//	Running -> Rebuilding         reload, resize or v-sync toggle
//	Rebuilding -> Running         target rebuilt
//	Running -> Stopped            update returned false, window closed,
//	                              quit requested, context done, device lost
const (
	Uninitialized State = iota
	Running
	Rebuilding
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Running:
		return "RUNNING"
	case Rebuilding:
		return "REBUILDING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
