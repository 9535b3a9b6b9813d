package backend

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// textureFormats pairs the gputypes formats the renderer uses with their wgpu values.
var textureFormats = []struct {
	gfx  gputypes.TextureFormat
	wgpu wgpu.TextureFormat
}{
	{gputypes.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8Unorm},
	{gputypes.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb},
	{gputypes.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm},
	{gputypes.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb},
	{gputypes.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float},
	{gputypes.TextureFormatRGBA32Float, wgpu.TextureFormatRGBA32Float},
	{gputypes.TextureFormatR32Float, wgpu.TextureFormatR32Float},
	{gputypes.TextureFormatDepth24Plus, wgpu.TextureFormatDepth24Plus},
	{gputypes.TextureFormatDepth24PlusStencil8, wgpu.TextureFormatDepth24PlusStencil8},
	{gputypes.TextureFormatDepth32Float, wgpu.TextureFormatDepth32Float},
}

func toTextureFormat(f gputypes.TextureFormat) (wgpu.TextureFormat, bool) {
	for _, p := range textureFormats {
		if p.gfx == f {
			return p.wgpu, true
		}
	}
	return wgpu.TextureFormatUndefined, false
}

func fromTextureFormat(f wgpu.TextureFormat) (gputypes.TextureFormat, bool) {
	for _, p := range textureFormats {
		if p.wgpu == f {
			return p.gfx, true
		}
	}
	return gputypes.TextureFormatUndefined, false
}

var vertexFormats = map[gputypes.VertexFormat]wgpu.VertexFormat{
	gputypes.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	gputypes.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	gputypes.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	gputypes.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	gputypes.VertexFormatUint32:    wgpu.VertexFormatUint32,
	gputypes.VertexFormatUint32x2:  wgpu.VertexFormatUint32x2,
	gputypes.VertexFormatUint32x3:  wgpu.VertexFormatUint32x3,
	gputypes.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
	gputypes.VertexFormatSint32:    wgpu.VertexFormatSint32,
	gputypes.VertexFormatSint32x2:  wgpu.VertexFormatSint32x2,
	gputypes.VertexFormatSint32x3:  wgpu.VertexFormatSint32x3,
	gputypes.VertexFormatSint32x4:  wgpu.VertexFormatSint32x4,
	gputypes.VertexFormatFloat16x2: wgpu.VertexFormatFloat16x2,
	gputypes.VertexFormatFloat16x4: wgpu.VertexFormatFloat16x4,
	gputypes.VertexFormatUnorm8x4:  wgpu.VertexFormatUnorm8x4,
	gputypes.VertexFormatSnorm8x4:  wgpu.VertexFormatSnorm8x4,
	gputypes.VertexFormatUint8x4:   wgpu.VertexFormatUint8x4,
}

func toVertexFormat(f gputypes.VertexFormat) (wgpu.VertexFormat, bool) {
	v, ok := vertexFormats[f]
	return v, ok
}

func toTopology(t gputypes.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	case gputypes.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gputypes.PrimitiveTopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func toCullMode(m gputypes.CullMode) wgpu.CullMode {
	switch m {
	case gputypes.CullModeFront:
		return wgpu.CullModeFront
	case gputypes.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func toFrontFace(f gputypes.FrontFace) wgpu.FrontFace {
	if f == gputypes.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func toCompare(c gputypes.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gputypes.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	case gputypes.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gputypes.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case gputypes.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gputypes.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gputypes.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gputypes.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func toBlendFactor(f gputypes.BlendFactor) wgpu.BlendFactor {
	switch f {
	case gputypes.BlendFactorZero:
		return wgpu.BlendFactorZero
	case gputypes.BlendFactorSrc:
		return wgpu.BlendFactorSrc
	case gputypes.BlendFactorOneMinusSrc:
		return wgpu.BlendFactorOneMinusSrc
	case gputypes.BlendFactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case gputypes.BlendFactorDst:
		return wgpu.BlendFactorDst
	case gputypes.BlendFactorOneMinusDst:
		return wgpu.BlendFactorOneMinusDst
	case gputypes.BlendFactorDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case gputypes.BlendFactorOneMinusDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	case gputypes.BlendFactorSrcAlphaSaturated:
		return wgpu.BlendFactorSrcAlphaSaturated
	case gputypes.BlendFactorConstant:
		return wgpu.BlendFactorConstant
	case gputypes.BlendFactorOneMinusConstant:
		return wgpu.BlendFactorOneMinusConstant
	default:
		return wgpu.BlendFactorOne
	}
}

func toBlendOperation(op gputypes.BlendOperation) wgpu.BlendOperation {
	switch op {
	case gputypes.BlendOperationSubtract:
		return wgpu.BlendOperationSubtract
	case gputypes.BlendOperationReverseSubtract:
		return wgpu.BlendOperationReverseSubtract
	case gputypes.BlendOperationMin:
		return wgpu.BlendOperationMin
	case gputypes.BlendOperationMax:
		return wgpu.BlendOperationMax
	default:
		return wgpu.BlendOperationAdd
	}
}

func toBlendState(s gputypes.BlendState) *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: toBlendFactor(s.Color.SrcFactor),
			DstFactor: toBlendFactor(s.Color.DstFactor),
			Operation: toBlendOperation(s.Color.Operation),
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: toBlendFactor(s.Alpha.SrcFactor),
			DstFactor: toBlendFactor(s.Alpha.DstFactor),
			Operation: toBlendOperation(s.Alpha.Operation),
		},
	}
}

func toBufferBindingType(t gputypes.BufferBindingType) wgpu.BufferBindingType {
	switch t {
	case gputypes.BufferBindingTypeStorage:
		return wgpu.BufferBindingTypeStorage
	case gputypes.BufferBindingTypeReadOnlyStorage:
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeUniform
	}
}

// Buffer usage, color write mask and shader stage flags share their bit values with webgpu.h.

func toBufferUsage(u gputypes.BufferUsage) wgpu.BufferUsage {
	return wgpu.BufferUsage(u) | wgpu.BufferUsageCopyDst
}

func toWriteMask(m gputypes.ColorWriteMask) wgpu.ColorWriteMask {
	return wgpu.ColorWriteMask(m)
}

func toShaderStage(s gputypes.ShaderStage) wgpu.ShaderStage {
	return wgpu.ShaderStage(s)
}

// toLayoutEntries converts the buffer bindings of a descriptor set layout, sorted by binding.
func toLayoutEntries(info gfx.DescriptorSetLayoutInfo) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(info.Bindings))
	for _, b := range info.Bindings {
		e := wgpu.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: toShaderStage(b.Visibility),
		}
		if b.Buffer != nil {
			e.Buffer = wgpu.BufferBindingLayout{
				Type:             toBufferBindingType(b.Buffer.Type),
				HasDynamicOffset: b.Buffer.HasDynamicOffset,
				MinBindingSize:   b.Buffer.MinBindingSize,
			}
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int {
		return cmp.Compare(a.Binding, b.Binding)
	})
	return entries
}

// vertexLayouts builds one vertex buffer layout per stream from resolved attributes. Offsets follow
// declaration order within a stream. Attributes without a shader location still take up space.
func vertexLayouts(attrs []gfx.Attribute) []wgpu.VertexBufferLayout {
	var streams uint32
	for _, a := range attrs {
		streams = max(streams, a.Stream+1)
	}
	layouts := make([]wgpu.VertexBufferLayout, streams)
	offsets := make([]uint64, streams)
	for _, a := range attrs {
		l := &layouts[a.Stream]
		if a.IsInstanced {
			l.StepMode = wgpu.VertexStepModeInstance
		}
		format, ok := toVertexFormat(a.Format)
		if ok && a.Location != gfx.UnresolvedLocation {
			l.Attributes = append(l.Attributes, wgpu.VertexAttribute{
				Format:         format,
				Offset:         offsets[a.Stream],
				ShaderLocation: a.Location,
			})
		}
		offsets[a.Stream] += uint64(gfx.FormatSize(a))
	}
	for i := range layouts {
		layouts[i].ArrayStride = offsets[i]
		if layouts[i].StepMode != wgpu.VertexStepModeInstance {
			layouts[i].StepMode = wgpu.VertexStepModeVertex
		}
	}
	return layouts
}

// padOffsets returns exactly n dynamic offsets: missing offsets are zero, extra ones are dropped.
func padOffsets(dst, offsets []uint32, n int) []uint32 {
	dst = dst[:0]
	for i := range n {
		if i < len(offsets) {
			dst = append(dst, offsets[i])
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// alignUp4 rounds n up to the copy alignment of queue writes.
func alignUp4(n uint64) uint64 {
	return (n + 3) &^ 3
}
