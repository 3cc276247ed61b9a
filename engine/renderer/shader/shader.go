package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
)

// ShaderType identifies the pipeline stage an entry point runs in.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and binding.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint EntryPoint
	bindings   []Binding
	included   []string

	entryName string
	pp        PreProcessor
}

// Shader is a pre-processed and reflected WGSL module viewed through one entry
// point. It exposes what pipeline creation needs: the source, the entry point, its
// workgroup size or vertex inputs, and the module's resource bindings.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	Source() string

	// ShaderType returns the stage of the selected entry point.
	ShaderType() ShaderType

	// EntryPoint returns the selected entry point name.
	EntryPoint() string

	// WorkgroupSize returns the workgroup size for compute shaders and [0, 0, 0]
	// otherwise. A compute entry point without @workgroup_size reports [1, 1, 1].
	WorkgroupSize() [3]uint32

	// VertexAttributes returns the vertex inputs of a vertex entry point in location order.
	VertexAttributes() []VertexAttribute

	// VertexStride returns the byte stride of one interleaved vertex.
	VertexStride() uint64

	// Bindings returns every resource binding declared by the module, sorted by
	// group then binding.
	Bindings() []Binding

	// GroupBindings returns the bindings of one group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - []Binding: the group's bindings, nil when the group is unused
	GroupBindings(group int) []Binding

	// BindingFromVarName returns the binding index of a named variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindingFromVarName(group int, varName string) (int, bool)

	// Groups returns the number of bind groups the module uses (highest group + 1).
	Groups() int

	// Included returns the pre-processor includes expanded into the source.
	Included() []string
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL module and selects one entry point of
// the requested type.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage to select an entry point for
//   - source: the raw WGSL source, possibly with @oxy: annotations
//   - options: optional ShaderBuilderOption values
//
// Returns:
//   - Shader: the reflected shader
//   - error: a pre-processing, parse or entry-point selection error
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.pp == nil {
		s.pp = NewPreProcessor(cluster.DefaultConfig())
	}

	processed, err := s.pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to pre-process %s: %w", key, err)
	}
	s.source = processed
	s.included = append([]string(nil), s.pp.Included()...)

	r, err := Reflect(processed)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to reflect %s: %w", key, err)
	}
	s.bindings = r.Bindings

	found := false
	for _, ep := range r.EntryPoints {
		if ep.Stage != shaderType {
			continue
		}
		if s.entryName != "" && ep.Name != s.entryName {
			continue
		}
		s.entryPoint = ep
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("shader: %s has no %s entry point %q", key, shaderType, s.entryName)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint.Name
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.entryPoint.WorkgroupSize
}

func (s *shader) VertexAttributes() []VertexAttribute {
	return s.entryPoint.Inputs
}

func (s *shader) VertexStride() uint64 {
	var stride uint64
	for _, a := range s.entryPoint.Inputs {
		stride = max(stride, a.Offset+a.Size)
	}
	return stride
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) GroupBindings(group int) []Binding {
	var out []Binding
	for _, b := range s.bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

func (s *shader) BindingFromVarName(group int, varName string) (int, bool) {
	for _, b := range s.bindings {
		if b.Group == group && b.Name == varName {
			return b.Binding, true
		}
	}
	return -1, false
}

func (s *shader) Groups() int {
	n := 0
	for _, b := range s.bindings {
		n = max(n, b.Group+1)
	}
	return n
}

func (s *shader) Included() []string {
	return s.included
}
