// annotations.go defines the annotation syntax of the WGSL pre-processor. Annotations
// are single-line WGSL comments prefixed with @oxy: that inject registered WGSL
// sources (shared structs, grid constants, partition and shading helpers) so every
// shader stage compiles against the same definitions.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL source at the annotation site.
	// Each include is emitted once per shader; later repeats expand to nothing.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include frame_uniforms
	AnnotationTypeInclude AnnotationType = "include"
)

// Include names registered by NewPreProcessor.
const (
	IncludeFrameUniforms     = "frame_uniforms"
	IncludeLight             = "light"
	IncludeClusterConfig     = "cluster_config"
	IncludeClusterPartition  = "cluster_partition"
	IncludeLighting          = "lighting"
	IncludeLightingClustered = "lighting_clustered"
	IncludeModel             = "model"
	IncludeMaterial          = "material"
	IncludeVertex            = "vertex"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. For include: [0] = the include name.
	Args []string

	// Line is the 1-based line number in the source where the annotation was found.
	Line int
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(AnnotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []string{args[1]},
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
