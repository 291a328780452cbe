// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

const frameUniformsSize = 32

// frameUniforms is uploaded once per frame, laid out as std140.
type frameUniforms struct {
	Color mgl32.Vec4
	Time  float32
	_     [3]float32
}

func (u frameUniforms) bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(frameUniformsSize)
	// fixed size values do not fail to encode
	_ = binary.Write(&buf, binary.LittleEndian, u)
	return buf.Bytes()
}
