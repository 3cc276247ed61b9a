package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// gltfLoaderBackend converts glTF 2.0 documents into scenes. Only triangle
// primitives with positions are kept; materials contribute their base color factor.
type gltfLoaderBackend struct {
	log *zap.Logger
}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend(log *zap.Logger) *gltfLoaderBackend {
	return &gltfLoaderBackend{log: log}
}

func (b *gltfLoaderBackend) Load(path string) (scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.convert(name, doc)
}

func (b *gltfLoaderBackend) LoadReader(name string, r io.Reader) (scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, err
	}
	return b.convert(name, doc)
}

// convert builds a scene from the document's default scene, or from every root
// node when no scene is declared.
func (b *gltfLoaderBackend) convert(name string, doc *gltf.Document) (scene.Scene, error) {
	materials := make([]*scene.Material, len(doc.Materials))
	for i, m := range doc.Materials {
		materials[i] = convertMaterial(m)
	}

	meshes := make([][]meshPrimitive, len(doc.Meshes))
	for i, mesh := range doc.Meshes {
		prims, err := b.convertMesh(doc, mesh, materials)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		meshes[i] = prims
	}

	s := scene.NewScene(name)
	for _, idx := range rootNodes(doc) {
		n, err := convertNode(doc, idx, meshes, 0)
		if err != nil {
			return nil, err
		}
		s.AddNode(n)
	}
	return s, nil
}

type meshPrimitive struct {
	material  *scene.Material
	primitive *scene.Primitive
}

func (b *gltfLoaderBackend) convertMesh(doc *gltf.Document, mesh *gltf.Mesh, materials []*scene.Material) ([]meshPrimitive, error) {
	var out []meshPrimitive
	for pi, p := range mesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			b.log.Debug("skipping non-triangle primitive", zap.String("mesh", mesh.Name), zap.Int("primitive", pi))
			continue
		}
		posIdx, ok := p.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}
		prim := &scene.Primitive{Positions: make([]mgl32.Vec3, len(positions))}
		for i, v := range positions {
			prim.Positions[i] = mgl32.Vec3(v)
		}

		if nIdx, ok := p.Attributes[gltf.NORMAL]; ok {
			normals, err := modeler.ReadNormal(doc, doc.Accessors[nIdx], nil)
			if err != nil {
				return nil, fmt.Errorf("normals: %w", err)
			}
			prim.Normals = make([]mgl32.Vec3, len(normals))
			for i, v := range normals {
				prim.Normals[i] = mgl32.Vec3(v)
			}
		}

		if p.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("indices: %w", err)
			}
			prim.Indices = indices
		} else {
			prim.Indices = make([]uint32, len(prim.Positions))
			for i := range prim.Indices {
				prim.Indices[i] = uint32(i)
			}
		}

		if prim.Normals == nil {
			prim.Normals = flatNormals(prim)
		}

		mat := scene.DefaultMaterial
		if p.Material != nil && *p.Material < len(materials) {
			mat = materials[*p.Material]
		}
		out = append(out, meshPrimitive{material: mat, primitive: prim})
	}
	return out, nil
}

func convertMaterial(m *gltf.Material) *scene.Material {
	out := &scene.Material{Name: m.Name, Albedo: mgl32.Vec4{1, 1, 1, 1}}
	if m.PBRMetallicRoughness != nil && m.PBRMetallicRoughness.BaseColorFactor != nil {
		c := *m.PBRMetallicRoughness.BaseColorFactor
		out.Albedo = mgl32.Vec4{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
	}
	return out
}

// maxNodeDepth guards against cyclic node references in malformed documents.
const maxNodeDepth = 64

func convertNode(doc *gltf.Document, idx int, meshes [][]meshPrimitive, depth int) (*scene.Node, error) {
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxNodeDepth)
	}
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	src := doc.Nodes[idx]

	n := scene.NewNode(src.Name)
	n.Local = nodeTransform(src)
	if src.Mesh != nil && *src.Mesh < len(meshes) {
		for _, mp := range meshes[*src.Mesh] {
			n.Add(mp.material, mp.primitive)
		}
	}
	for _, c := range src.Children {
		child, err := convertNode(doc, c, meshes, depth+1)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

// nodeTransform returns the node's matrix when one is given, else T * R * S.
func nodeTransform(n *gltf.Node) mgl32.Mat4 {
	m := n.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			si = *doc.Scene
		}
		return doc.Scenes[si].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// flatNormals computes per-vertex normals by accumulating face normals.
func flatNormals(p *scene.Primitive) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(p.Positions))
	for i := 0; i+2 < len(p.Indices); i += 3 {
		a, b, c := p.Indices[i], p.Indices[i+1], p.Indices[i+2]
		if int(a) >= len(normals) || int(b) >= len(normals) || int(c) >= len(normals) {
			continue
		}
		face := p.Positions[b].Sub(p.Positions[a]).Cross(p.Positions[c].Sub(p.Positions[a]))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}
