package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// compiledPipeline is what a registered pipeline keeps on the device. It is stored on
// the pipeline through SetHandle.
type compiledPipeline struct {
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
	layouts []*wgpu.BindGroupLayout
	descs   []wgpu.BindGroupLayoutDescriptor
}

func (c *compiledPipeline) release() {
	if c.render != nil {
		c.render.Release()
	}
	if c.compute != nil {
		c.compute.Release()
	}
	for _, l := range c.layouts {
		l.Release()
	}
}

// compiled returns the device objects of a registered pipeline.
func compiled(p pipeline.Pipeline) *compiledPipeline {
	c, _ := p.Handle().(*compiledPipeline)
	return c
}

func (b *wgpuBackend) createModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
}

func (b *wgpuBackend) createLayouts(label string, stages ...shader.Shader) (*compiledPipeline, *wgpu.PipelineLayout, error) {
	descs, err := pipelineLayouts(label, stages...)
	if err != nil {
		return nil, nil, err
	}
	layouts := make([]*wgpu.BindGroupLayout, len(descs))
	for g := range descs {
		layout, err := b.device.CreateBindGroupLayout(&descs[g])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	c := &compiledPipeline{layouts: layouts, descs: descs}
	pl, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		c.release()
		return nil, nil, err
	}
	return c, pl, nil
}

// registerComputePipeline compiles a compute pipeline and stores it on p.
func (b *wgpuBackend) registerComputePipeline(p pipeline.Pipeline) error {
	cs := p.Shader(shader.ShaderTypeCompute)
	if cs == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}
	module, err := b.createModule(cs)
	if err != nil {
		return err
	}
	defer module.Release()

	c, pl, err := b.createLayouts(p.PipelineKey(), cs)
	if err != nil {
		return err
	}
	defer pl.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: pl,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: cs.EntryPoint(),
		},
	})
	if err != nil {
		c.release()
		return err
	}
	c.compute = created
	p.SetHandle(c)
	return nil
}

// registerRenderPipeline compiles a render pipeline and stores it on p. Color targets
// default to the surface format when the pipeline names none.
func (b *wgpuBackend) registerRenderPipeline(p pipeline.Pipeline) error {
	vs := p.Shader(shader.ShaderTypeVertex)
	fs := p.Shader(shader.ShaderTypeFragment)
	if vs == nil || fs == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vsModule, err := b.createModule(vs)
	if err != nil {
		return err
	}
	defer vsModule.Release()
	fsModule, err := b.createModule(fs)
	if err != nil {
		return err
	}
	defer fsModule.Release()

	c, pl, err := b.createLayouts(p.PipelineKey(), vs, fs)
	if err != nil {
		return err
	}
	defer pl.Release()

	buffers, err := vertexLayout(vs)
	if err != nil {
		c.release()
		return err
	}

	targets := []wgpu.ColorTargetState{{Format: b.surfaceFormat, WriteMask: wgpu.ColorWriteMaskAll}}
	if formats := p.ColorFormats(); len(formats) > 0 {
		targets = targets[:0]
		for _, name := range formats {
			f, ok := textureFormats[name]
			if !ok {
				c.release()
				return fmt.Errorf("unsupported color format %s", name)
			}
			targets = append(targets, wgpu.ColorTargetState{Format: f, WriteMask: wgpu.ColorWriteMaskAll})
		}
	}

	var depth *wgpu.DepthStencilState
	if p.DepthFormat() != "" {
		f, ok := textureFormats[p.DepthFormat()]
		if !ok {
			c.release()
			return fmt.Errorf("unsupported depth format %s", p.DepthFormat())
		}
		compare := compareFunction(p.DepthCompare())
		if !p.DepthTestEnabled() {
			compare = wgpu.CompareFunctionAlways
		}
		depth = &wgpu.DepthStencilState{
			Format:            f,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pl,
		Vertex: wgpu.VertexState{
			Module:     vsModule,
			EntryPoint: vs.EntryPoint(),
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: fs.EntryPoint(),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(p.Topology()),
			FrontFace: frontFace(p.FrontFace()),
			CullMode:  cullMode(p.CullMode()),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depth,
	})
	if err != nil {
		c.release()
		return err
	}
	c.render = created
	p.SetHandle(c)
	return nil
}

func compareFunction(c pipeline.CompareFunction) wgpu.CompareFunction {
	switch c {
	case pipeline.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case pipeline.CompareAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionLess
	}
}

func cullMode(c pipeline.CullMode) wgpu.CullMode {
	switch c {
	case pipeline.CullModeFront:
		return wgpu.CullModeFront
	case pipeline.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func frontFace(f pipeline.FrontFace) wgpu.FrontFace {
	if f == pipeline.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func topology(t pipeline.Topology) wgpu.PrimitiveTopology {
	switch t {
	case pipeline.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case pipeline.TopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}
