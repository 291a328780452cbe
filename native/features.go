// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package native

/*
#include <stdlib.h>

typedef void (*featuresFunc)(void*, void*);

static void callFeatures(void* fn, void* physicalDevice, void* features) {
	((featuresFunc)fn)(physicalDevice, features);
}
*/
import "C"

import (
	"reflect"
	"unsafe"

	"github.com/devblok/kdev/device"
)

// Structure types of the chained feature structures.
const (
	structureTypeFeatures2        = 1000059000
	structureTypeVulkan12Features = 51
)

var (
	ptrSize = unsafe.Sizeof(uintptr(0))

	// sType, padding and pNext
	headerSize = 2 * ptrSize

	baseFeatureCount     = reflect.TypeOf(device.BaseFeatures{}).NumField()
	vulkan12FeatureCount = reflect.TypeOf(device.Vulkan12Features{}).NumField()
)

// nativeFeatures is a feature chain laid out in C memory, ready
// to be handed to the driver as a pNext chain. It must be freed.
type nativeFeatures struct {
	root unsafe.Pointer
	v12  unsafe.Pointer
}

// newNativeFeatures allocates the base structure and, when v12 is set,
// the versioned structure behind it. next is linked after the last one.
func newNativeFeatures(v12 bool, next unsafe.Pointer) *nativeFeatures {
	nf := &nativeFeatures{
		root: C.calloc(1, C.size_t(structSize(baseFeatureCount))),
	}
	if v12 {
		nf.v12 = C.calloc(1, C.size_t(structSize(vulkan12FeatureCount)))
		writeHeader(nf.v12, structureTypeVulkan12Features, next)
		next = nf.v12
	}
	writeHeader(nf.root, structureTypeFeatures2, next)
	return nf
}

func structSize(fields int) uintptr {
	size := headerSize + uintptr(fields)*4
	return (size + ptrSize - 1) &^ (ptrSize - 1)
}

func writeHeader(p unsafe.Pointer, sType uint32, next unsafe.Pointer) {
	*(*uint32)(p) = sType
	*(*unsafe.Pointer)(unsafe.Pointer(uintptr(p) + ptrSize)) = next
}

func word(p unsafe.Pointer, i int) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(p) + headerSize + uintptr(i)*4))
}

// store copies the chain into C memory.
func (nf *nativeFeatures) store(chain *device.FeaturesChain) {
	writeBools(nf.root, &chain.Features)
	if nf.v12 != nil && chain.Next() != nil {
		writeBools(nf.v12, chain.Next())
	}
}

// load copies C memory back into the chain.
func (nf *nativeFeatures) load(chain *device.FeaturesChain) {
	readBools(nf.root, &chain.Features)
	if nf.v12 != nil && chain.Next() != nil {
		readBools(nf.v12, chain.Next())
	}
}

func (nf *nativeFeatures) free() {
	if nf.v12 != nil {
		C.free(nf.v12)
		nf.v12 = nil
	}
	if nf.root != nil {
		C.free(nf.root)
		nf.root = nil
	}
}

func writeBools(p unsafe.Pointer, v interface{}) {
	rv := reflect.ValueOf(v).Elem()
	for i := 0; i < rv.NumField(); i++ {
		var b uint32
		if rv.Field(i).Bool() {
			b = 1
		}
		*word(p, i) = b
	}
}

func readBools(p unsafe.Pointer, v interface{}) {
	rv := reflect.ValueOf(v).Elem()
	for i := 0; i < rv.NumField(); i++ {
		rv.Field(i).SetBool(*word(p, i) != 0)
	}
}

func callFeatures2(fn, physicalDevice, features unsafe.Pointer) {
	C.callFeatures(fn, physicalDevice, features)
}
