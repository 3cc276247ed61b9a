package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeVisitor is called once per node with its world transform.
type NodeVisitor func(n *Node, world mgl32.Mat4)

// MaterialVisitor is called once per material group of the current node.
type MaterialVisitor func(m *Material)

// PrimitiveVisitor is called once per primitive of the current material group.
type PrimitiveVisitor func(p *Primitive)

// Scene is a tree of nodes, each owning primitives grouped by material.
// Traversal is depth-first and node-major: a node's materials are visited after the
// node itself, and a material's primitives after the material, so a consumer can
// bind per-node and per-material resources before each draw.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// AddNode appends a root node.
	//
	// Parameters:
	//   - n: the node to add
	AddNode(n *Node)

	// Nodes returns the root nodes.
	Nodes() []*Node

	// Iterate walks the scene depth-first. Nil visitors are skipped.
	//
	// Parameters:
	//   - onNode: called per node with its accumulated world transform
	//   - onMaterial: called per material group of the visited node
	//   - onPrimitive: called per primitive of the visited material group
	Iterate(onNode NodeVisitor, onMaterial MaterialVisitor, onPrimitive PrimitiveVisitor)

	// Bounds returns the world-space bounding box of every primitive.
	// An empty scene returns zero vectors and false.
	//
	// Returns:
	//   - mgl32.Vec3: the minimum corner
	//   - mgl32.Vec3: the maximum corner
	//   - bool: whether the scene holds any geometry
	Bounds() (mgl32.Vec3, mgl32.Vec3, bool)

	// TriangleCount returns the number of triangles drawn per frame.
	TriangleCount() int

	// Clear removes every node.
	Clear()
}

type scene struct {
	mu    sync.RWMutex
	name  string
	nodes []*Node
}

var _ Scene = &scene{}

// NewScene creates an empty scene configured with the given options.
//
// Parameters:
//   - name: the scene identifier
//   - options: optional SceneBuilderOption values
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{name: name}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, n)
}

func (s *scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.nodes...)
}

func (s *scene) Iterate(onNode NodeVisitor, onMaterial MaterialVisitor, onPrimitive PrimitiveVisitor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		walk(n, mgl32.Ident4(), onNode, onMaterial, onPrimitive)
	}
}

func walk(n *Node, parent mgl32.Mat4, onNode NodeVisitor, onMaterial MaterialVisitor, onPrimitive PrimitiveVisitor) {
	world := parent.Mul4(n.Local)
	if onNode != nil {
		onNode(n, world)
	}
	for _, g := range n.Groups {
		if onMaterial != nil {
			onMaterial(g.Material)
		}
		if onPrimitive != nil {
			for _, p := range g.Primitives {
				onPrimitive(p)
			}
		}
	}
	for _, c := range n.Children {
		walk(c, world, onNode, onMaterial, onPrimitive)
	}
}

func (s *scene) Bounds() (mgl32.Vec3, mgl32.Vec3, bool) {
	var lo, hi mgl32.Vec3
	found := false
	var world mgl32.Mat4
	s.Iterate(
		func(_ *Node, w mgl32.Mat4) { world = w },
		nil,
		func(p *Primitive) {
			for _, v := range p.Positions {
				w := world.Mul4x1(v.Vec4(1)).Vec3()
				if !found {
					lo, hi, found = w, w, true
					continue
				}
				for i := range 3 {
					lo[i] = min(lo[i], w[i])
					hi[i] = max(hi[i], w[i])
				}
			}
		},
	)
	return lo, hi, found
}

func (s *scene) TriangleCount() int {
	total := 0
	s.Iterate(nil, nil, func(p *Primitive) {
		total += p.TriangleCount()
	})
	return total
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
}
