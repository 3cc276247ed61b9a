package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Material is the per-material state bound before a group of draws.
type Material struct {
	Name   string
	Albedo mgl32.Vec4
}

// DefaultMaterial is used for primitives without a material.
var DefaultMaterial = &Material{Name: "default", Albedo: mgl32.Vec4{1, 1, 1, 1}}

// Primitive is an indexed triangle list in model space.
type Primitive struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

// TriangleCount returns the number of indexed triangles.
func (p *Primitive) TriangleCount() int {
	return len(p.Indices) / 3
}

// MaterialGroup is a material with the primitives drawn using it.
type MaterialGroup struct {
	Material   *Material
	Primitives []*Primitive
}

// Node is one transform in the scene tree.
type Node struct {
	Name     string
	Local    mgl32.Mat4
	Groups   []MaterialGroup
	Children []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Local: mgl32.Ident4()}
}

// Add appends primitives to the node under the given material. Consecutive adds
// with the same material share one group.
//
// Parameters:
//   - m: the material, nil for DefaultMaterial
//   - prims: the primitives drawn with it
//
// Returns:
//   - *Node: the node, for chaining
func (n *Node) Add(m *Material, prims ...*Primitive) *Node {
	if m == nil {
		m = DefaultMaterial
	}
	if last := len(n.Groups) - 1; last >= 0 && n.Groups[last].Material == m {
		n.Groups[last].Primitives = append(n.Groups[last].Primitives, prims...)
		return n
	}
	n.Groups = append(n.Groups, MaterialGroup{Material: m, Primitives: prims})
	return n
}

// AddChild appends a child node.
func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return n
}
