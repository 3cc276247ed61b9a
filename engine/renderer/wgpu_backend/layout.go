package wgpu_backend

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormats maps reflected vertex formats to wgpu formats.
var vertexFormats = map[string]wgpu.VertexFormat{
	"float32":   wgpu.VertexFormatFloat32,
	"float32x2": wgpu.VertexFormatFloat32x2,
	"float32x3": wgpu.VertexFormatFloat32x3,
	"float32x4": wgpu.VertexFormatFloat32x4,
	"uint32":    wgpu.VertexFormatUint32,
	"uint32x2":  wgpu.VertexFormatUint32x2,
	"uint32x3":  wgpu.VertexFormatUint32x3,
	"uint32x4":  wgpu.VertexFormatUint32x4,
	"sint32":    wgpu.VertexFormatSint32,
	"sint32x2":  wgpu.VertexFormatSint32x2,
	"sint32x3":  wgpu.VertexFormatSint32x3,
	"sint32x4":  wgpu.VertexFormatSint32x4,
}

// textureFormats maps the G-buffer format names to wgpu formats.
var textureFormats = map[string]wgpu.TextureFormat{
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"depth24plus": wgpu.TextureFormatDepth24Plus,
}

// stageVisibility returns the stages a binding is visible to. Uniforms are shared by
// the vertex and fragment stages of a render pipeline; storage and textures are
// fragment-only, since vertex stages cannot bind writable storage.
func stageVisibility(t shader.ShaderType, kind shader.BindingKind) wgpu.ShaderStage {
	switch t {
	case shader.ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		if kind == shader.BindingUniform {
			return wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
		}
		return wgpu.ShaderStageFragment
	}
}

// layoutEntry converts one reflected binding into a bind group layout entry.
//
// Parameters:
//   - b: the reflected binding
//   - visibility: the stages the binding is visible to
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
//   - error: an error for binding kinds the engine never declares
func layoutEntry(b shader.Binding, visibility wgpu.ShaderStage) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: visibility,
	}
	switch b.Kind {
	case shader.BindingUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case shader.BindingStorageRead:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case shader.BindingStorageReadWrite:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case shader.BindingTexture:
		// G-buffer textures are read with textureLoad; rgba32float is not filterable
		entry.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case shader.BindingDepthTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case shader.BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
	default:
		return entry, fmt.Errorf("wgpu: binding %s has unsupported kind %s", b.Name, b.Kind)
	}
	return entry, nil
}

// pipelineLayouts builds the per-group layout descriptors of a pipeline from the
// reflected bindings of its stages. A binding declared by several stages gets the
// union of their visibilities.
//
// Parameters:
//   - label: the debug label prefix
//   - stages: the pipeline's shaders
//
// Returns:
//   - []wgpu.BindGroupLayoutDescriptor: one descriptor per group index, possibly with no entries
//   - error: an unsupported binding
func pipelineLayouts(label string, stages ...shader.Shader) ([]wgpu.BindGroupLayoutDescriptor, error) {
	groups := 0
	for _, s := range stages {
		groups = max(groups, s.Groups())
	}

	merged := make([]map[uint32]wgpu.BindGroupLayoutEntry, groups)
	for i := range merged {
		merged[i] = make(map[uint32]wgpu.BindGroupLayoutEntry)
	}
	for _, s := range stages {
		for _, b := range s.Bindings() {
			entry, err := layoutEntry(b, stageVisibility(s.ShaderType(), b.Kind))
			if err != nil {
				return nil, err
			}
			if existing, ok := merged[b.Group][entry.Binding]; ok {
				existing.Visibility |= entry.Visibility
				entry = existing
			}
			merged[b.Group][entry.Binding] = entry
		}
	}

	descs := make([]wgpu.BindGroupLayoutDescriptor, groups)
	for g, entries := range merged {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].Binding < list[j].Binding
		})
		descs[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Entries: list,
		}
	}
	return descs, nil
}

// vertexLayout builds the single interleaved vertex buffer layout of a vertex shader.
//
// Returns:
//   - []wgpu.VertexBufferLayout: nil when the shader takes no vertex inputs
//   - error: an unsupported vertex format
func vertexLayout(vs shader.Shader) ([]wgpu.VertexBufferLayout, error) {
	inputs := vs.VertexAttributes()
	if len(inputs) == 0 {
		return nil, nil
	}
	attrs := make([]wgpu.VertexAttribute, 0, len(inputs))
	for _, in := range inputs {
		f, ok := vertexFormats[in.Format]
		if !ok {
			return nil, fmt.Errorf("wgpu: vertex input %s has unsupported format %s", in.Name, in.Format)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         f,
			Offset:         in.Offset,
			ShaderLocation: uint32(in.Location),
		})
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: vs.VertexStride(),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}}, nil
}
