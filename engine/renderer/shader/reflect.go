package shader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/wgsl"
)

// BindingKind classifies a resource binding for layout creation.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorageRead
	BindingStorageReadWrite
	BindingTexture
	BindingDepthTexture
	BindingStorageTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorageRead:
		return "storage_read"
	case BindingStorageReadWrite:
		return "storage_read_write"
	case BindingTexture:
		return "texture"
	case BindingDepthTexture:
		return "depth_texture"
	case BindingStorageTexture:
		return "storage_texture"
	case BindingSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Binding is one @group/@binding resource declared at module scope.
type Binding struct {
	Group    int
	Binding  int
	Name     string
	Kind     BindingKind
	TypeName string
}

// VertexAttribute is one @location input of a vertex entry point.
type VertexAttribute struct {
	Location int
	Name     string
	Format   string
	Offset   uint64
	Size     uint64
}

// EntryPoint is one @vertex, @fragment or @compute function.
type EntryPoint struct {
	Name          string
	Stage         ShaderType
	WorkgroupSize [3]uint32
	Inputs        []VertexAttribute
}

// Reflection is what the engine needs to know about a WGSL module to build
// pipelines and bind group layouts for it.
type Reflection struct {
	EntryPoints []EntryPoint
	Bindings    []Binding
}

// vertexFormats maps WGSL vertex input types to vertex formats and byte sizes.
var vertexFormats = map[string]struct {
	format string
	size   uint64
}{
	"f32":       {"float32", 4},
	"vec2<f32>": {"float32x2", 8},
	"vec3<f32>": {"float32x3", 12},
	"vec4<f32>": {"float32x4", 16},
	"u32":       {"uint32", 4},
	"vec2<u32>": {"uint32x2", 8},
	"vec3<u32>": {"uint32x3", 12},
	"vec4<u32>": {"uint32x4", 16},
	"i32":       {"sint32", 4},
	"vec2<i32>": {"sint32x2", 8},
	"vec3<i32>": {"sint32x3", 12},
	"vec4<i32>": {"sint32x4", 16},
	"vec2f":     {"float32x2", 8},
	"vec3f":     {"float32x3", 12},
	"vec4f":     {"float32x4", 16},
}

// Reflect parses WGSL source and extracts entry points and resource bindings.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - *Reflection: the module's entry points in source order and bindings sorted by group and binding
//   - error: a parse error, or an error describing an unsupported declaration
func Reflect(source string) (*Reflection, error) {
	mod, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}

	consts := make(map[string]wgsl.Expr, len(mod.Constants))
	for _, c := range mod.Constants {
		consts[c.Name] = c.Init
	}
	structs := make(map[string]*wgsl.StructDecl, len(mod.Structs))
	for _, s := range mod.Structs {
		structs[s.Name] = s
	}

	r := &Reflection{}
	for _, fn := range mod.Functions {
		ep, ok, err := reflectEntryPoint(fn, consts, structs)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		if ok {
			r.EntryPoints = append(r.EntryPoints, ep)
		}
	}

	for _, v := range mod.GlobalVars {
		group, hasGroup := intAttribute(v.Attributes, "group", consts)
		binding, hasBinding := intAttribute(v.Attributes, "binding", consts)
		if !hasGroup || !hasBinding {
			continue
		}
		kind, err := bindingKind(v)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", v.Name, err)
		}
		r.Bindings = append(r.Bindings, Binding{
			Group:    group,
			Binding:  binding,
			Name:     v.Name,
			Kind:     kind,
			TypeName: typeString(v.Type),
		})
	}
	sort.Slice(r.Bindings, func(i, j int) bool {
		if r.Bindings[i].Group != r.Bindings[j].Group {
			return r.Bindings[i].Group < r.Bindings[j].Group
		}
		return r.Bindings[i].Binding < r.Bindings[j].Binding
	})
	return r, nil
}

func reflectEntryPoint(fn *wgsl.FunctionDecl, consts map[string]wgsl.Expr, structs map[string]*wgsl.StructDecl) (EntryPoint, bool, error) {
	ep := EntryPoint{Name: fn.Name}
	switch {
	case hasAttribute(fn.Attributes, "vertex"):
		ep.Stage = ShaderTypeVertex
		inputs, err := vertexInputs(fn, structs)
		if err != nil {
			return ep, false, err
		}
		ep.Inputs = inputs
	case hasAttribute(fn.Attributes, "fragment"):
		ep.Stage = ShaderTypeFragment
	case hasAttribute(fn.Attributes, "compute"):
		ep.Stage = ShaderTypeCompute
		ep.WorkgroupSize = [3]uint32{1, 1, 1}
		for _, a := range fn.Attributes {
			if a.Name != "workgroup_size" {
				continue
			}
			for i, arg := range a.Args {
				if i > 2 {
					break
				}
				v, ok := evalInt(arg, consts, 0)
				if !ok || v <= 0 {
					return ep, false, fmt.Errorf("workgroup_size argument %d is not a positive constant", i)
				}
				ep.WorkgroupSize[i] = uint32(v)
			}
		}
	default:
		return ep, false, nil
	}
	return ep, true, nil
}

// vertexInputs collects @location inputs from parameters, flattening struct
// parameters. Offsets assume one tightly packed interleaved buffer in location order.
func vertexInputs(fn *wgsl.FunctionDecl, structs map[string]*wgsl.StructDecl) ([]VertexAttribute, error) {
	var attrs []VertexAttribute
	add := func(name string, t wgsl.Type, attributes []wgsl.Attribute) error {
		loc, ok := intAttribute(attributes, "location", nil)
		if !ok {
			return nil
		}
		typ := typeString(t)
		f, ok := vertexFormats[typ]
		if !ok {
			return fmt.Errorf("input %s: unsupported vertex type %s", name, typ)
		}
		attrs = append(attrs, VertexAttribute{Location: loc, Name: name, Format: f.format, Size: f.size})
		return nil
	}

	for _, p := range fn.Params {
		if nt, ok := p.Type.(*wgsl.NamedType); ok {
			if s, ok := structs[nt.Name]; ok {
				for _, m := range s.Members {
					if err := add(m.Name, m.Type, m.Attributes); err != nil {
						return nil, err
					}
				}
				continue
			}
		}
		if err := add(p.Name, p.Type, p.Attributes); err != nil {
			return nil, err
		}
	}

	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })
	var offset uint64
	for i := range attrs {
		attrs[i].Offset = offset
		offset += attrs[i].Size
	}
	return attrs, nil
}

func bindingKind(v *wgsl.VarDecl) (BindingKind, error) {
	switch v.AddressSpace {
	case "uniform":
		return BindingUniform, nil
	case "storage":
		if v.AccessMode == "read_write" || v.AccessMode == "write" {
			return BindingStorageReadWrite, nil
		}
		return BindingStorageRead, nil
	}

	name := typeString(v.Type)
	switch {
	case strings.HasPrefix(name, "texture_depth"):
		return BindingDepthTexture, nil
	case strings.HasPrefix(name, "texture_storage"):
		return BindingStorageTexture, nil
	case strings.HasPrefix(name, "texture"):
		return BindingTexture, nil
	case strings.HasPrefix(name, "sampler"):
		return BindingSampler, nil
	}
	return 0, fmt.Errorf("unsupported resource type %s", name)
}

func hasAttribute(attrs []wgsl.Attribute, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

func intAttribute(attrs []wgsl.Attribute, name string, consts map[string]wgsl.Expr) (int, bool) {
	for _, a := range attrs {
		if a.Name == name && len(a.Args) == 1 {
			return evalInt(a.Args[0], consts, 0)
		}
	}
	return 0, false
}

// evalInt resolves an integer literal or a chain of constants naming one.
func evalInt(e wgsl.Expr, consts map[string]wgsl.Expr, depth int) (int, bool) {
	if depth > 8 {
		return 0, false
	}
	switch v := e.(type) {
	case *wgsl.Literal:
		n, err := strconv.ParseInt(strings.TrimRight(v.Value, "ui"), 0, 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	case *wgsl.Ident:
		init, ok := consts[v.Name]
		if !ok {
			return 0, false
		}
		return evalInt(init, consts, depth+1)
	}
	return 0, false
}

// typeString renders a type as written in WGSL, without spaces.
func typeString(t wgsl.Type) string {
	switch v := t.(type) {
	case *wgsl.NamedType:
		if len(v.TypeParams) == 0 {
			return v.Name
		}
		params := make([]string, len(v.TypeParams))
		for i, p := range v.TypeParams {
			params[i] = typeString(p)
		}
		return v.Name + "<" + strings.Join(params, ",") + ">"
	case *wgsl.ArrayType:
		if v.Size == nil {
			return "array<" + typeString(v.Element) + ">"
		}
		if n, ok := evalInt(v.Size, nil, 0); ok {
			return fmt.Sprintf("array<%s,%d>", typeString(v.Element), n)
		}
		return "array<" + typeString(v.Element) + ",?>"
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", t)
}
