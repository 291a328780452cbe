// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import "time"

// SetClock replaces the wall clock the app reads.
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}
