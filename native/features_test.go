// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

import (
	"reflect"
	"testing"
	"unsafe"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"

	"github.com/devblok/kdev/device"
)

func sType(p unsafe.Pointer) uint32 {
	return *(*uint32)(p)
}

func pNext(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(p) + ptrSize))
}

func fieldIndex(v interface{}, name string) int {
	f, ok := reflect.TypeOf(v).FieldByName(name)
	if !ok {
		panic("no field " + name)
	}
	return f.Index[0]
}

func TestFeatureCountsMatchNative(t *testing.T) {
	c := qt.New(t)
	c.Assert(baseFeatureCount, qt.Equals, 55)
	c.Assert(vulkan12FeatureCount, qt.Equals, 47)
}

func TestStructSizeIsAligned(t *testing.T) {
	c := qt.New(t)
	for _, fields := range []int{baseFeatureCount, vulkan12FeatureCount} {
		size := structSize(fields)
		c.Assert(size%ptrSize, qt.Equals, uintptr(0))
		c.Assert(size >= headerSize+uintptr(fields)*4, qt.IsTrue)
	}
}

func TestNativeFeaturesChained(t *testing.T) {
	c := qt.New(t)

	nf := newNativeFeatures(true, nil)
	defer nf.free()

	c.Assert(sType(nf.root), qt.Equals, uint32(structureTypeFeatures2))
	c.Assert(pNext(nf.root), qt.Equals, nf.v12)
	c.Assert(sType(nf.v12), qt.Equals, uint32(structureTypeVulkan12Features))
	c.Assert(pNext(nf.v12), qt.Equals, unsafe.Pointer(nil))
}

func TestNativeFeaturesWithoutVulkan12(t *testing.T) {
	c := qt.New(t)

	tail := newNativeFeatures(false, nil)
	defer tail.free()

	nf := newNativeFeatures(false, tail.root)
	defer nf.free()

	c.Assert(nf.v12, qt.Equals, unsafe.Pointer(nil))
	c.Assert(pNext(nf.root), qt.Equals, tail.root)
}

func TestNativeFeaturesExtendedTail(t *testing.T) {
	c := qt.New(t)

	tail := newNativeFeatures(false, nil)
	defer tail.free()

	nf := newNativeFeatures(true, tail.root)
	defer nf.free()

	c.Assert(pNext(nf.root), qt.Equals, nf.v12)
	c.Assert(pNext(nf.v12), qt.Equals, tail.root)
}

func TestNativeFeaturesStore(t *testing.T) {
	c := qt.New(t)

	var f device.Features
	f.V1().GeometryShader = true
	f.V12().TimelineSemaphore = true

	nf := newNativeFeatures(true, nil)
	defer nf.free()
	nf.store(f.Chain())

	geometry := fieldIndex(device.BaseFeatures{}, "GeometryShader")
	timeline := fieldIndex(device.Vulkan12Features{}, "TimelineSemaphore")
	for i := 0; i < baseFeatureCount; i++ {
		c.Assert(*word(nf.root, i) == 1, qt.Equals, i == geometry, qt.Commentf("base field %d", i))
	}
	for i := 0; i < vulkan12FeatureCount; i++ {
		c.Assert(*word(nf.v12, i) == 1, qt.Equals, i == timeline, qt.Commentf("extended field %d", i))
	}
}

func TestNativeFeaturesRoundTrip(t *testing.T) {
	c := qt.New(t)

	var in device.Features
	in.V1().SamplerAnisotropy = true
	in.V1().InheritedQueries = true
	in.V12().DescriptorIndexing = true
	in.V12().SubgroupBroadcastDynamicID = true

	nf := newNativeFeatures(true, nil)
	defer nf.free()
	nf.store(in.Chain())

	var out device.Features
	out.V1().RobustBufferAccess = true
	nf.load(out.Chain())

	c.Assert(*out.V1(), qt.DeepEquals, *in.V1())
	c.Assert(*out.V12(), qt.DeepEquals, *in.V12())
}

func TestNativeFeaturesLoadSkipsMissingExtendedSet(t *testing.T) {
	c := qt.New(t)

	var in device.Features
	in.V1().WideLines = true
	in.V12().ShaderInt8 = true

	nf := newNativeFeatures(false, nil)
	defer nf.free()
	nf.store(in.Chain())

	var out device.Features
	nf.load(out.Chain())

	c.Assert(out.V1().WideLines, qt.IsTrue)
	c.Assert(out.V12().ShaderInt8, qt.IsFalse)
}

func TestEnabledFeatures(t *testing.T) {
	c := qt.New(t)

	var in device.Features
	in.V1().SamplerAnisotropy = true
	in.V1().WideLines = true

	got := enabledFeatures(in.Chain())
	c.Assert(got.SamplerAnisotropy, qt.Equals, vk.Bool32(vk.True))
	c.Assert(got.WideLines, qt.Equals, vk.Bool32(vk.True))
	c.Assert(got.RobustBufferAccess, qt.Equals, vk.Bool32(vk.False))
	c.Assert(got.GeometryShader, qt.Equals, vk.Bool32(vk.False))
}

func TestApplyFeaturesWithoutChainedQuery(t *testing.T) {
	c := qt.New(t)

	var in device.Features
	in.V1().FillModeNonSolid = true
	in.V12().TimelineSemaphore = true

	var dci vk.DeviceCreateInfo
	release := applyFeatures(&dci, in.Chain(), false, false)
	defer release()

	c.Assert(dci.PNext, qt.Equals, unsafe.Pointer(nil))
	c.Assert(dci.PEnabledFeatures, qt.HasLen, 1)
	c.Assert(dci.PEnabledFeatures[0].FillModeNonSolid, qt.Equals, vk.Bool32(vk.True))
}

func TestApplyFeaturesChained(t *testing.T) {
	c := qt.New(t)

	var in device.Features
	in.V1().FillModeNonSolid = true

	tail := newNativeFeatures(false, nil)
	defer tail.free()

	dci := vk.DeviceCreateInfo{PNext: tail.root}
	release := applyFeatures(&dci, in.Chain(), true, true)
	defer release()

	c.Assert(dci.PEnabledFeatures, qt.HasLen, 0)
	c.Assert(sType(dci.PNext), qt.Equals, uint32(structureTypeFeatures2))
	v12 := pNext(dci.PNext)
	c.Assert(sType(v12), qt.Equals, uint32(structureTypeVulkan12Features))
	c.Assert(pNext(v12), qt.Equals, tail.root)

	fill := fieldIndex(device.BaseFeatures{}, "FillModeNonSolid")
	c.Assert(*word(dci.PNext, fill), qt.Equals, uint32(1))
}

func TestApplyFeaturesNone(t *testing.T) {
	c := qt.New(t)

	var dci vk.DeviceCreateInfo
	applyFeatures(&dci, nil, true, true)()

	c.Assert(dci.PNext, qt.Equals, unsafe.Pointer(nil))
	c.Assert(dci.PEnabledFeatures, qt.HasLen, 0)
}
