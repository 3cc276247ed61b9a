package scene

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUModelSource is the WGSL struct matching GPUModel.
//
//go:embed assets/model.wgsl
var GPUModelSource string

// GPUMaterialSource is the WGSL struct matching GPUMaterial.
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// GPUVertexSource is the WGSL vertex input matching VertexStride.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

const (
	// VertexStride is the byte size of one interleaved position+normal vertex.
	VertexStride = 24
	// NormalOffset is the byte offset of the normal inside a vertex.
	NormalOffset = 12
)

// GPUModel is the per-node uniform (128 bytes): the world transform and the normal
// matrix derived from it.
type GPUModel struct {
	Model mgl32.Mat4
}

func (g *GPUModel) Size() int {
	return 128
}

// Marshal encodes the uniform in little-endian std140 order.
func (g *GPUModel) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutMat4(buf, 0, g.Model)
	common.PutMat4(buf, off, common.NormalMatrix(g.Model))
	return buf
}

// GPUMaterial is the per-material uniform (16 bytes).
type GPUMaterial struct {
	Albedo mgl32.Vec4
}

func (g *GPUMaterial) Size() int {
	return 16
}

// Marshal encodes the uniform in little-endian order.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.Albedo[:]...)
	return buf
}

// VertexData interleaves positions and normals into one vertex buffer. Missing
// normals are written as zero.
//
// Returns:
//   - []byte: len(Positions) * VertexStride bytes
func (p *Primitive) VertexData() []byte {
	buf := make([]byte, len(p.Positions)*VertexStride)
	for i, pos := range p.Positions {
		off := common.PutFloat32s(buf, i*VertexStride, pos[:]...)
		var n mgl32.Vec3
		if i < len(p.Normals) {
			n = p.Normals[i]
		}
		common.PutFloat32s(buf, off, n[:]...)
	}
	return buf
}

// IndexData encodes the indices as little-endian uint32.
func (p *Primitive) IndexData() []byte {
	buf := make([]byte, len(p.Indices)*4)
	for i, idx := range p.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}
