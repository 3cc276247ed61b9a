// Package pipeline describes render and compute pipelines independently of the
// graphics API. Backends read the fixed-function state from a Pipeline and attach
// their compiled pipeline object with SetHandle.
package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace selects the winding order of front-facing triangles in screen space
// with y pointing up.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// CompareFunction is the depth test comparison. A fragment passes when
// compare(fragment, stored) holds.
type CompareFunction int

const (
	CompareLess CompareFunction = iota
	CompareLessEqual
	CompareAlways
)

// Topology is the primitive assembly mode.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
	TopologyPointList
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexShader, fragmentShader, computeShader shader.Shader

	// handle is the backend's compiled pipeline object
	handle any

	// The following properties only apply to render pipelines.

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      CompareFunction
	depthFormat       string
	colorFormats      []string
	cullMode          CullMode
	topology          Topology
	frontFace         FrontFace
}

// Pipeline encapsulates either a render pipeline (vertex + fragment shaders) or a
// compute pipeline (compute shader) with the fixed-function state used to create it.
type Pipeline interface {
	// Type returns the type of the pipeline
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Handle returns the backend's compiled pipeline object, nil until SetHandle.
	// The caller is responsible for type asserting the returned value.
	Handle() any

	// SetHandle attaches the backend's compiled pipeline object.
	//
	// Parameters:
	//   - h: the compiled pipeline
	SetHandle(h any)

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthCompare() CompareFunction

	// DepthFormat returns the depth attachment format, empty when the pipeline has no
	// depth attachment.
	DepthFormat() string

	// ColorFormats returns the formats of the color attachments in location order.
	ColorFormats() []string

	CullMode() CullMode
	Topology() Topology
	FrontFace() FrontFace

	// Culls reports whether a triangle with the given screen-space winding is
	// discarded by this pipeline.
	//
	// Parameters:
	//   - ccw: true if the triangle winds counter-clockwise with y pointing up
	//
	// Returns:
	//   - bool: true if the triangle is culled
	Culls(ccw bool) bool

	// DepthPasses applies the depth test.
	//
	// Parameters:
	//   - fragment: the incoming depth
	//   - stored: the depth already in the buffer
	//
	// Returns:
	//   - bool: true if the fragment survives
	DepthPasses(fragment, stored float32) bool

	// Validate checks that the shaders required by the pipeline type are present.
	Validate() error
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      CompareLess,
		cullMode:          CullModeBack,
		topology:          TopologyTriangleList,
		frontFace:         FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Handle() any {
	return p.handle
}

func (p *pipeline) SetHandle(h any) {
	p.handle = h
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() CompareFunction {
	return p.depthCompare
}

func (p *pipeline) DepthFormat() string {
	return p.depthFormat
}

func (p *pipeline) ColorFormats() []string {
	return p.colorFormats
}

func (p *pipeline) CullMode() CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() Topology {
	return p.topology
}

func (p *pipeline) FrontFace() FrontFace {
	return p.frontFace
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) Culls(ccw bool) bool {
	front := ccw == (p.frontFace == FrontFaceCCW)
	switch p.cullMode {
	case CullModeFront:
		return front
	case CullModeBack:
		return !front
	default:
		return false
	}
}

func (p *pipeline) DepthPasses(fragment, stored float32) bool {
	if !p.depthTestEnabled {
		return true
	}
	switch p.depthCompare {
	case CompareLessEqual:
		return fragment <= stored
	case CompareAlways:
		return true
	default:
		return fragment < stored
	}
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return fmt.Errorf("pipeline: %s requires a compute shader", p.pipelineKey)
		}
	case PipelineTypeRender:
		if p.vertexShader == nil || p.fragmentShader == nil {
			return fmt.Errorf("pipeline: %s requires vertex and fragment shaders", p.pipelineKey)
		}
	}
	return nil
}
