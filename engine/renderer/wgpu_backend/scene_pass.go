package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// scenePass is the part of a render pass encoder the scene walk records into.
type scenePass interface {
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset uint64, size uint64)
	SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset uint64, size uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

var _ scenePass = (*wgpu.RenderPassEncoder)(nil)

// sceneResources supplies the cached GPU resources of scene nodes, materials and
// primitives.
type sceneResources interface {
	model(n *scene.Node) (bind_group_provider.BindGroupProvider, error)
	material(m *scene.Material) (bind_group_provider.BindGroupProvider, error)
	mesh(p *scene.Primitive) (bind_group_provider.BindGroupProvider, error)
}

// recordScene walks s into pass. The node visitor binds the node's model group, the
// material visitor binds the material group, and the primitive visitor only sets
// the mesh buffers and draws.
//
// Parameters:
//   - pass: the open geometry render pass, with the frame group already bound
//   - res: the resource cache
//   - s: the scene to draw
//
// Returns:
//   - []bind_group_provider.BufferWrite: the model and material uniform writes to stage
//   - int: the number of draws recorded
//   - error: the first resource error; recording stops at it
func recordScene(pass scenePass, res sceneResources, s scene.Scene) ([]bind_group_provider.BufferWrite, int, error) {
	var (
		writes []bind_group_provider.BufferWrite
		draws  int
		err    error
	)
	s.Iterate(
		func(n *scene.Node, world mgl32.Mat4) {
			if err != nil {
				return
			}
			var model bind_group_provider.BindGroupProvider
			if model, err = res.model(n); err != nil {
				return
			}
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: model,
				Data:     (&scene.GPUModel{Model: world}).Marshal(),
			})
			pass.SetBindGroup(passes.GroupModel, model.BindGroup(), nil)
		},
		func(m *scene.Material) {
			if err != nil {
				return
			}
			if m == nil {
				m = scene.DefaultMaterial
			}
			var mat bind_group_provider.BindGroupProvider
			if mat, err = res.material(m); err != nil {
				return
			}
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: mat,
				Data:     (&scene.GPUMaterial{Albedo: m.Albedo}).Marshal(),
			})
			pass.SetBindGroup(passes.GroupMaterial, mat.BindGroup(), nil)
		},
		func(prim *scene.Primitive) {
			if err != nil || len(prim.Indices) == 0 {
				return
			}
			var m bind_group_provider.BindGroupProvider
			if m, err = res.mesh(prim); err != nil {
				return
			}
			pass.SetVertexBuffer(0, m.VertexBuffer(), 0, wgpu.WholeSize)
			pass.SetIndexBuffer(m.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(m.IndexCount()), 1, 0, 0, 0)
			draws++
		},
	)
	return writes, draws, err
}
