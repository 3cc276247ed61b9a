// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations and replaces them with registered WGSL sources.
//
// The registry is seeded with the engine's shared GPU structs and helpers:
//   - frame_uniforms, light, model, material, vertex: struct definitions matching
//     the Go marshal code byte for byte
//   - cluster_config: the grid shape as WGSL constants
//   - cluster_partition: the single cluster-index derivation
//   - lighting, lighting_clustered: the shading formula
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/lighting"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

// maxIncludeDepth bounds nested includes.
const maxIncludeDepth = 8

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// registry maps include names to WGSL source.
	registry map[string]string

	// included records the includes emitted during the most recent Process call.
	included []string
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands every @oxy:include in source, recursively. An include already
	// emitted in this call expands to nothing.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed or names an unknown include
	Process(source string) (string, error)

	// Register adds or replaces an include.
	//
	// Parameters:
	//   - name: the include name used in //@oxy:include
	//   - source: the WGSL source it expands to
	Register(name, source string)

	// Included returns the include names emitted by the most recent Process call, in
	// emission order.
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's includes registered. The
// cluster_config include is rendered from cfg.
//
// Parameters:
//   - cfg: the cluster grid the shaders are compiled against
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(cfg cluster.Config) PreProcessor {
	return &preProcessor{
		registry: map[string]string{
			IncludeFrameUniforms:     camera.GPUFrameUniformsSource,
			IncludeLight:             light.GPULightSource,
			IncludeClusterConfig:     cfg.WGSLConstants(),
			IncludeClusterPartition:  cluster.PartitionSource,
			IncludeLighting:          lighting.ShadeSource,
			IncludeLightingClustered: lighting.ClusteredShadeSource,
			IncludeModel:             scene.GPUModelSource,
			IncludeMaterial:          scene.GPUMaterialSource,
			IncludeVertex:            scene.GPUVertexSource,
		},
	}
}

func (p *preProcessor) Register(name, source string) {
	p.registry[name] = source
}

func (p *preProcessor) Included() []string {
	return p.included
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)
	return p.expand(source, seen, 0)
}

func (p *preProcessor) expand(source string, seen map[string]bool, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("includes nested deeper than %d", maxIncludeDepth)
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			name := a.Args[0]
			src, ok := p.registry[name]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, name)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			expanded, err := p.expand(src, seen, depth+1)
			if err != nil {
				return "", fmt.Errorf("include %s: %w", name, err)
			}
			p.included = append(p.included, name)
			out = append(out, expanded)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}
