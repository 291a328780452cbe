// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// BaseFeatures is the core feature set. Field order matches the
// native structure, drivers rely on it when marshalling.
type BaseFeatures struct {
	RobustBufferAccess                      bool
	FullDrawIndexUint32                     bool
	ImageCubeArray                          bool
	IndependentBlend                        bool
	GeometryShader                          bool
	TessellationShader                      bool
	SampleRateShading                       bool
	DualSrcBlend                            bool
	LogicOp                                 bool
	MultiDrawIndirect                       bool
	DrawIndirectFirstInstance               bool
	DepthClamp                              bool
	DepthBiasClamp                          bool
	FillModeNonSolid                        bool
	DepthBounds                             bool
	WideLines                               bool
	LargePoints                             bool
	AlphaToOne                              bool
	MultiViewport                           bool
	SamplerAnisotropy                       bool
	TextureCompressionETC2                  bool
	TextureCompressionASTC_LDR              bool
	TextureCompressionBC                    bool
	OcclusionQueryPrecise                   bool
	PipelineStatisticsQuery                 bool
	VertexPipelineStoresAndAtomics          bool
	FragmentStoresAndAtomics                bool
	ShaderTessellationAndGeometryPointSize  bool
	ShaderImageGatherExtended               bool
	ShaderStorageImageExtendedFormats       bool
	ShaderStorageImageMultisample           bool
	ShaderStorageImageReadWithoutFormat     bool
	ShaderStorageImageWriteWithoutFormat    bool
	ShaderUniformBufferArrayDynamicIndexing bool
	ShaderSampledImageArrayDynamicIndexing  bool
	ShaderStorageBufferArrayDynamicIndexing bool
	ShaderStorageImageArrayDynamicIndexing  bool
	ShaderClipDistance                      bool
	ShaderCullDistance                      bool
	ShaderFloat64                           bool
	ShaderInt64                             bool
	ShaderInt16                             bool
	ShaderResourceResidency                 bool
	ShaderResourceMinLod                    bool
	SparseBinding                           bool
	SparseResidencyBuffer                   bool
	SparseResidencyImage2D                  bool
	SparseResidencyImage3D                  bool
	SparseResidency2Samples                 bool
	SparseResidency4Samples                 bool
	SparseResidency8Samples                 bool
	SparseResidency16Samples                bool
	SparseResidencyAliased                  bool
	VariableMultisampleRate                 bool
	InheritedQueries                        bool
}

// Vulkan12Features is the versioned feature set chained behind
// BaseFeatures. Field order matches the native structure.
type Vulkan12Features struct {
	SamplerMirrorClampToEdge                           bool
	DrawIndirectCount                                  bool
	StorageBuffer8BitAccess                            bool
	UniformAndStorageBuffer8BitAccess                  bool
	StoragePushConstant8                               bool
	ShaderBufferInt64Atomics                           bool
	ShaderSharedInt64Atomics                           bool
	ShaderFloat16                                      bool
	ShaderInt8                                         bool
	DescriptorIndexing                                 bool
	ShaderInputAttachmentArrayDynamicIndexing          bool
	ShaderUniformTexelBufferArrayDynamicIndexing       bool
	ShaderStorageTexelBufferArrayDynamicIndexing       bool
	ShaderUniformBufferArrayNonUniformIndexing         bool
	ShaderSampledImageArrayNonUniformIndexing          bool
	ShaderStorageBufferArrayNonUniformIndexing         bool
	ShaderStorageImageArrayNonUniformIndexing          bool
	ShaderInputAttachmentArrayNonUniformIndexing       bool
	ShaderUniformTexelBufferArrayNonUniformIndexing    bool
	ShaderStorageTexelBufferArrayNonUniformIndexing    bool
	DescriptorBindingUniformBufferUpdateAfterBind      bool
	DescriptorBindingSampledImageUpdateAfterBind       bool
	DescriptorBindingStorageImageUpdateAfterBind       bool
	DescriptorBindingStorageBufferUpdateAfterBind      bool
	DescriptorBindingUniformTexelBufferUpdateAfterBind bool
	DescriptorBindingStorageTexelBufferUpdateAfterBind bool
	DescriptorBindingUpdateUnusedWhilePending          bool
	DescriptorBindingPartiallyBound                    bool
	DescriptorBindingVariableDescriptorCount           bool
	RuntimeDescriptorArray                             bool
	SamplerFilterMinmax                                bool
	ScalarBlockLayout                                  bool
	ImagelessFramebuffer                               bool
	UniformBufferStandardLayout                        bool
	ShaderSubgroupExtendedTypes                        bool
	SeparateDepthStencilLayouts                        bool
	HostQueryReset                                     bool
	TimelineSemaphore                                  bool
	BufferDeviceAddress                                bool
	BufferDeviceAddressCaptureReplay                   bool
	BufferDeviceAddressMultiDevice                     bool
	VulkanMemoryModel                                  bool
	VulkanMemoryModelDeviceScope                       bool
	VulkanMemoryModelAvailabilityVisibilityChains      bool
	ShaderOutputViewportIndex                          bool
	ShaderOutputLayer                                  bool
	SubgroupBroadcastDynamicID                         bool
}

// FeaturesChain is the root of a feature chain: the base feature set
// plus a link to the extended set that is queried and requested with it.
type FeaturesChain struct {
	Features BaseFeatures

	next *Vulkan12Features
}

// Next returns the extended set linked behind the base set.
func (c *FeaturesChain) Next() *Vulkan12Features {
	return c.next
}

// Features is a base and an extended feature set that are always
// negotiated together. The chain link lives inside the value, so
// every accessor first points it back at this value's own extended
// set. After a copy the link is correct again as soon as the copy
// is used through any accessor.
type Features struct {
	chain    FeaturesChain
	vulkan12 Vulkan12Features
}

func (f *Features) link() {
	f.chain.next = &f.vulkan12
}

// V1 returns the mutable base feature set.
func (f *Features) V1() *BaseFeatures {
	f.link()
	return &f.chain.Features
}

// V12 returns the mutable extended feature set.
func (f *Features) V12() *Vulkan12Features {
	f.link()
	return &f.vulkan12
}

// Chain returns the linked root that is handed to the driver.
func (f *Features) Chain() *FeaturesChain {
	f.link()
	return &f.chain
}

// Clone returns a copy whose chain points at its own extended set.
func (f *Features) Clone() Features {
	c := Features{
		chain:    FeaturesChain{Features: f.chain.Features},
		vulkan12: f.vulkan12,
	}
	c.link()
	return c
}
