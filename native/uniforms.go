// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"errors"
	"fmt"

	vk "github.com/devblok/vulkan"
)

// ErrNoStaging is returned when uniforms are created before staging.
var ErrNoStaging = errors.New("no staging area")

// NewUniforms creates a device local uniform buffer updated through s.
func NewUniforms(s *Staging, size uint) (*Uniforms, error) {
	buffer, err := newBuffer(s.device, size,
		vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit,
		vk.SharingModeExclusive,
		vk.MemoryPropertyDeviceLocalBit,
		s.allocator)
	if err != nil {
		return nil, err
	}
	return &Uniforms{buffer: buffer, staging: s}, nil
}

// Uniforms is a uniform buffer the host never maps. Updates land
// with the next recorded frame.
type Uniforms struct {
	buffer  Buffer
	staging *Staging
}

// Update queues data to replace the start of the buffer.
func (u *Uniforms) Update(data []byte) error {
	if uint(len(data)) > u.buffer.Size() {
		return fmt.Errorf("update of %d bytes into %d byte uniforms", len(data), u.buffer.Size())
	}
	return u.staging.Upload(u.buffer.Get(), 0, data)
}

// Buffer returns the vulkan buffer handle.
func (u *Uniforms) Buffer() vk.Buffer {
	return u.buffer.Get()
}

// Destroy releases the buffer, the device must be idle.
func (u *Uniforms) Destroy() {
	u.buffer.Release()
}
