// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	qt "github.com/frankban/quicktest"
)

func TestFrameUniformsLayout(t *testing.T) {
	c := qt.New(t)

	data := frameUniforms{Color: mgl32.Vec4{0.25, 0.5, 0.75, 1}, Time: 2.5}.bytes()
	c.Assert(data, qt.HasLen, frameUniformsSize)

	float := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	c.Assert(float(0), qt.Equals, float32(0.25))
	c.Assert(float(3), qt.Equals, float32(1))
	c.Assert(float(4), qt.Equals, float32(2.5))
	for i := 5; i < 8; i++ {
		c.Assert(float(i), qt.Equals, float32(0))
	}
}
