package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

var errSubmitted = errors.New("wgpu: encoder already submitted")

// wgpuEncoder records one frame into a single command encoder. Buffer writes are
// staged and flushed to the queue right before the one submission.
type wgpuEncoder struct {
	backend   *wgpuBackend
	encoder   *wgpu.CommandEncoder
	writes    []bind_group_provider.BufferWrite
	uploaded  bool
	submitted bool
	queued    bool
}

var _ renderer.CommandEncoder = &wgpuEncoder{}

// upload stages the frame uniforms, the light set and the resolve clear color once
// per frame.
func (e *wgpuEncoder) upload(fs *renderer.FrameState) {
	if e.uploaded {
		return
	}
	e.uploaded = true
	b := e.backend

	u := fs.Frame.Uniforms()
	b.lightScratch = light.MarshalLightSet(b.lightScratch, fs.Lights, fs.Ambient)
	clearColor := b.ctx.ClearColor
	e.writes = append(e.writes,
		bind_group_provider.BufferWrite{Provider: b.frame, Binding: passes.BindingFrame, Data: u.Marshal()},
		bind_group_provider.BufferWrite{Provider: b.frame, Binding: passes.BindingLightSet, Data: b.lightScratch},
		bind_group_provider.BufferWrite{
			Provider: b.resolve,
			Binding:  passes.BindingResolveUniforms,
			Data:     (&scene.GPUMaterial{Albedo: clearColor.Vec4(1)}).Marshal(),
		},
	)
}

func (e *wgpuEncoder) EncodeClusterPass(fs *renderer.FrameState) error {
	if e.submitted {
		return errSubmitted
	}
	e.upload(fs)
	b := e.backend

	p := compiled(b.cache.MustGet(passes.KeyClusterLights))
	pass := e.encoder.BeginComputePass(nil)
	pass.SetPipeline(p.compute)
	pass.SetBindGroup(passes.GroupFrame, b.frameGroups[passes.KeyClusterLights].BindGroup(), nil)
	pass.DispatchWorkgroups(uint32(b.ctx.Grid.Workgroups()), 1, 1)
	pass.End()
	return nil
}

func (e *wgpuEncoder) EncodeGeometryPass(fs *renderer.FrameState, s scene.Scene) error {
	if e.submitted {
		return errSubmitted
	}
	e.upload(fs)
	b := e.backend

	key := passes.KeyForwardPlus
	cc := b.ctx.ClearColor
	colors := []wgpu.RenderPassColorAttachment{{
		View:       b.frameView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: float64(cc[0]), G: float64(cc[1]), B: float64(cc[2]), A: 1},
	}}
	switch fs.Mode {
	case renderer.ModeNaive:
		key = passes.KeyNaive
	case renderer.ModeDeferred:
		key = passes.KeyGBuffer
		colors = colors[:0]
		for _, t := range b.targets.gbuffer {
			colors = append(colors, wgpu.RenderPassColorAttachment{
				View:       t.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			})
		}
	}
	p := compiled(b.cache.MustGet(key))

	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: colors,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.targets.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(p.render)
	pass.SetBindGroup(passes.GroupFrame, b.frameGroups[key].BindGroup(), nil)

	writes, draws, err := recordScene(pass, b, s)
	pass.End()
	e.writes = append(e.writes, writes...)
	if err != nil {
		return fmt.Errorf("wgpu: geometry pass after %d draws: %w", draws, err)
	}
	return nil
}

func (e *wgpuEncoder) EncodeResolvePass(fs *renderer.FrameState) error {
	if e.submitted {
		return errSubmitted
	}
	e.upload(fs)
	b := e.backend

	p := compiled(b.cache.MustGet(passes.KeyResolve))
	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    b.frameView,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(p.render)
	pass.SetBindGroup(passes.GroupFrame, b.frameGroups[passes.KeyResolve].BindGroup(), nil)
	pass.SetBindGroup(passes.GroupGBuffer, b.resolve.BindGroup(), nil)
	// fullscreen quad, two triangles
	pass.Draw(6, 1, 0, 0)
	pass.End()
	return nil
}

func (e *wgpuEncoder) Submit() error {
	if e.submitted {
		return errSubmitted
	}
	e.submitted = true
	b := e.backend

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range e.writes {
		if err := w.Apply(b.queue); err != nil {
			e.releaseEncoder()
			return err
		}
	}

	commandBuffer, err := e.encoder.Finish(nil)
	e.releaseEncoder()
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	e.queued = true
	return nil
}

// Discard releases the command encoder and the surface texture of a frame that never
// reached the queue, so the next BeginEncoding can acquire a new one.
func (e *wgpuEncoder) Discard() {
	if e.queued {
		return
	}
	e.submitted = true
	e.writes = nil
	b := e.backend

	b.mu.Lock()
	defer b.mu.Unlock()

	e.releaseEncoder()
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (e *wgpuEncoder) releaseEncoder() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}
