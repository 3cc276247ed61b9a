// Package passes defines the frame's pipelines once for every backend: their WGSL,
// their entry points and their fixed-function state. Backends realize the same
// definitions, so a pass behaves alike on the CPU and the GPU.
package passes

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
)

// Pipeline keys.
const (
	KeyClusterLights = "cluster_lights"
	KeyForwardPlus   = "forward_plus"
	KeyNaive         = "naive"
	KeyGBuffer       = "gbuffer"
	KeyResolve       = "resolve"
)

// Entry points shared by the render pass sources.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// Bind group indices used by the render pass sources.
const (
	GroupFrame    = 0
	GroupModel    = 1
	GroupMaterial = 2

	// GroupGBuffer holds the resolve's G-buffer textures and clear color.
	GroupGBuffer = 1
)

// Bindings within GroupFrame and GroupGBuffer.
const (
	BindingFrame    = 0
	BindingLightSet = 1
	BindingClusters = 2

	BindingGBufferAlbedo   = 0
	BindingGBufferNormal   = 1
	BindingGBufferPosition = 2
	BindingResolveUniforms = 3
)

// ForwardPlusSource shades in the fragment stage against the fragment's cluster.
//
//go:embed assets/forward_plus.wgsl
var ForwardPlusSource string

// NaiveSource shades in the fragment stage against every light.
//
//go:embed assets/naive.wgsl
var NaiveSource string

// GBufferSource writes albedo, view-space normal and view-space position.
//
//go:embed assets/gbuffer.wgsl
var GBufferSource string

// ResolveSource is the fullscreen deferred lighting stage.
//
//go:embed assets/resolve.wgsl
var ResolveSource string

// Keys lists every pipeline in creation order.
var Keys = []string{KeyClusterLights, KeyForwardPlus, KeyNaive, KeyGBuffer, KeyResolve}

// State returns the fixed-function state of a pass. Shaders are not included, so
// the result suits backends that do not compile WGSL.
//
// Parameters:
//   - key: one of Keys
//
// Returns:
//   - pipeline.PipelineType: compute or render
//   - []pipeline.PipelineBuilderOption: the pass's state
func State(key string) (pipeline.PipelineType, []pipeline.PipelineBuilderOption) {
	switch key {
	case KeyClusterLights:
		return pipeline.PipelineTypeCompute, nil
	case KeyGBuffer:
		formats := make([]string, 0, len(gbuffer.Attachments)-1)
		for _, a := range gbuffer.Attachments {
			if a.Format != gbuffer.FormatDepth24Plus {
				formats = append(formats, string(a.Format))
			}
		}
		return pipeline.PipelineTypeRender, []pipeline.PipelineBuilderOption{
			pipeline.WithColorFormats(formats...),
			pipeline.WithDepthFormat(string(gbuffer.FormatDepth24Plus)),
		}
	case KeyResolve:
		return pipeline.PipelineTypeRender, []pipeline.PipelineBuilderOption{
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithCullMode(pipeline.CullModeNone),
		}
	default:
		return pipeline.PipelineTypeRender, []pipeline.PipelineBuilderOption{
			pipeline.WithDepthFormat(string(gbuffer.FormatDepth24Plus)),
		}
	}
}

// Source returns the WGSL of a pass.
func Source(key string) string {
	switch key {
	case KeyClusterLights:
		return cluster.ClusterLightsSource
	case KeyForwardPlus:
		return ForwardPlusSource
	case KeyNaive:
		return NaiveSource
	case KeyGBuffer:
		return GBufferSource
	case KeyResolve:
		return ResolveSource
	default:
		return ""
	}
}

// NewPipeline pre-processes and reflects a pass's WGSL against cfg and returns the
// pipeline with its shaders and state.
//
// Parameters:
//   - key: one of Keys
//   - cfg: the cluster grid compiled into the shaders
//
// Returns:
//   - pipeline.Pipeline: the validated pipeline
//   - error: a shader or validation error
func NewPipeline(key string, cfg cluster.Config) (pipeline.Pipeline, error) {
	src := Source(key)
	if src == "" {
		return nil, fmt.Errorf("passes: unknown pipeline %q", key)
	}
	pp := shader.NewPreProcessor(cfg)
	typ, opts := State(key)

	if typ == pipeline.PipelineTypeCompute {
		cs, err := shader.NewShader(key, shader.ShaderTypeCompute, src,
			shader.WithPreProcessor(pp),
			shader.WithEntryPoint(cluster.ClusterLightsEntryPoint),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithComputeShader(cs))
	} else {
		vs, err := shader.NewShader(key+"_vs", shader.ShaderTypeVertex, src,
			shader.WithPreProcessor(pp),
			shader.WithEntryPoint(VertexEntryPoint),
		)
		if err != nil {
			return nil, err
		}
		fs, err := shader.NewShader(key+"_fs", shader.ShaderTypeFragment, src,
			shader.WithPreProcessor(pp),
			shader.WithEntryPoint(FragmentEntryPoint),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithVertexShader(vs), pipeline.WithFragmentShader(fs))
	}

	p := pipeline.NewPipeline(key, typ, opts...)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewCache builds every pass against cfg.
//
// Parameters:
//   - cfg: the cluster grid compiled into the shaders
//
// Returns:
//   - *pipeline.Cache: a cache holding every key in Keys
//   - error: the first pipeline that failed to build
func NewCache(cfg cluster.Config) (*pipeline.Cache, error) {
	cache := pipeline.NewCache()
	for _, key := range Keys {
		p, err := NewPipeline(key, cfg)
		if err != nil {
			return nil, fmt.Errorf("passes: %s: %w", key, err)
		}
		if err := cache.Register(p); err != nil {
			return nil, err
		}
	}
	return cache, nil
}
