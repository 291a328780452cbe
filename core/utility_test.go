// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/kdev/core"
)

func TestSafeStrings(t *testing.T) {
	c := qt.New(t)

	c.Assert(core.SafeString("VK_KHR_swapchain"), qt.Equals, "VK_KHR_swapchain\x00")
	c.Assert(core.SafeString("VK_KHR_swapchain\x00"), qt.Equals, "VK_KHR_swapchain\x00")
	c.Assert(core.SafeStrings(nil), qt.DeepEquals, []string{})
	c.Assert(core.SafeStrings([]string{"a", "b\x00"}), qt.DeepEquals, []string{"a\x00", "b\x00"})
	c.Assert(core.TrimString("Fake GPU\x00\x00junk"), qt.Equals, "Fake GPU")
	c.Assert(core.TrimString("plain"), qt.Equals, "plain")
}

func BenchmarkSafeStringsSmall(b *testing.B) {
	benchmarkSafeStrings(b, 2)
}

func BenchmarkSafeStringsBig(b *testing.B) {
	benchmarkSafeStrings(b, 100)
}

func benchmarkSafeStrings(b *testing.B, n int) {
	names := make([]string, n)
	for idx := range names {
		names[idx] = "VK_KHR_swapchain"
	}
	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		core.SafeStrings(names)
	}
}
