// Package wgpu_backend realizes the clustered renderer on WebGPU: the cluster stage
// is a compute dispatch, the geometry and resolve stages are render passes, and the
// whole frame is one command buffer submitted to the queue.
package wgpu_backend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// resolveUniformsSize is the size of the resolve stage's clear color uniform.
const resolveUniformsSize = 16

type wgpuBackend struct {
	mu  *sync.Mutex
	log *zap.Logger
	ctx *renderer.Context

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	presentMode          wgpu.PresentMode
	forceFallbackAdapter bool

	cache   *pipeline.Cache
	targets *targets

	// frame owns the frame uniform, light set and cluster buffers; the per-pipeline
	// frame groups share them.
	frame       bind_group_provider.BindGroupProvider
	frameGroups map[string]bind_group_provider.BindGroupProvider
	resolve     bind_group_provider.BindGroupProvider

	meshes    map[*scene.Primitive]bind_group_provider.BindGroupProvider
	materials map[*scene.Material]bind_group_provider.BindGroupProvider
	models    map[*scene.Node]bind_group_provider.BindGroupProvider

	lightScratch []byte

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// WGPUBackend is a renderer backend drawing to a WebGPU surface.
type WGPUBackend interface {
	renderer.RendererBackend

	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// Pipelines returns the compiled pipelines keyed by the passes package keys.
	Pipelines() *pipeline.Cache
}

var (
	_ WGPUBackend    = &wgpuBackend{}
	_ sceneResources = &wgpuBackend{}
)

// NewWGPUBackend creates an instance, surface, adapter and device for a window
// surface. Pipelines and buffers are created by Init.
//
// Parameters:
//   - surfaceDescriptor: the platform surface of the window
//   - options: optional WGPUBackendOption values
//
// Returns:
//   - WGPUBackend: the backend
//   - error: an error if no adapter or device is available
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) (WGPUBackend, error) {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		log:         zap.NewNop(),
		presentMode: wgpu.PresentModeFifo,
		frameGroups: make(map[string]bind_group_provider.BindGroupProvider),
		meshes:      make(map[*scene.Primitive]bind_group_provider.BindGroupProvider),
		materials:   make(map[*scene.Material]bind_group_provider.BindGroupProvider),
		models:      make(map[*scene.Node]bind_group_provider.BindGroupProvider),
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

func (b *wgpuBackend) Name() string {
	return "wgpu"
}

func (b *wgpuBackend) Init(ctx *renderer.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ctx = ctx
	b.log = ctx.Logger.Named("wgpu")

	w, h := ctx.Camera.Resolution()
	b.configureSurface(w, h)

	cache, err := passes.NewCache(ctx.Grid)
	if err != nil {
		return err
	}
	for _, key := range passes.Keys {
		p := cache.MustGet(key)
		if p.Type() == pipeline.PipelineTypeCompute {
			err = b.registerComputePipeline(p)
		} else {
			err = b.registerRenderPipeline(p)
		}
		if err != nil {
			return fmt.Errorf("wgpu: failed to create %s pipeline: %w", key, err)
		}
	}
	b.cache = cache

	if err := b.createFrameBuffers(ctx); err != nil {
		return err
	}
	if err := b.allocateTargets(w, h); err != nil {
		return err
	}
	if err := b.createResolveGroup(); err != nil {
		return err
	}

	b.log.Info("wgpu backend initialized",
		zap.Uint32("width", w),
		zap.Uint32("height", h),
		zap.Int("cluster_buffer_bytes", ctx.Grid.BufferSize()),
		zap.Int("light_buffer_bytes", light.BufferSize(ctx.Lights.Capacity())),
	)
	return nil
}

// configureSurface is a wrapper for the boilerplate required whenever the surface
// size changes.
func (b *wgpuBackend) configureSurface(width, height uint32) {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

// createFrameBuffers allocates the buffers every frame group binds and one frame
// group per pipeline.
func (b *wgpuBackend) createFrameBuffers(ctx *renderer.Context) error {
	var uniforms camera.GPUFrameUniforms
	sizes := map[int]uint64{
		passes.BindingFrame:    uint64(uniforms.Size()),
		passes.BindingLightSet: uint64(light.BufferSize(max(ctx.Lights.Capacity(), 1))),
		passes.BindingClusters: uint64(ctx.Grid.BufferSize()),
	}
	usages := map[int]wgpu.BufferUsage{
		passes.BindingFrame:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		passes.BindingLightSet: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		passes.BindingClusters: wgpu.BufferUsageStorage,
	}

	b.frame = bind_group_provider.NewBindGroupProvider("Frame")
	for binding, size := range sizes {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s Buffer %d", b.frame.Label(), binding),
			Size:  size,
			Usage: usages[binding],
		})
		if err != nil {
			return err
		}
		b.frame.SetBuffer(binding, buf)
	}

	for _, key := range passes.Keys {
		c := compiled(b.cache.MustGet(key))
		if len(c.layouts) <= passes.GroupFrame {
			continue
		}
		var opts []bind_group_provider.BindGroupProviderOption
		for binding, buf := range b.frame.Buffers() {
			opts = append(opts, bind_group_provider.WithBuffer(binding, buf))
		}
		provider := bind_group_provider.NewBindGroupProvider(key+" Frame", opts...)
		if err := b.initBindGroup(provider, c, passes.GroupFrame, nil); err != nil {
			return fmt.Errorf("wgpu: %s frame group: %w", key, err)
		}
		b.frameGroups[key] = provider
	}
	return nil
}

// createResolveGroup binds the current G-buffer views to the resolve stage. It runs
// again after every reallocation of the targets.
func (b *wgpuBackend) createResolveGroup() error {
	if b.resolve == nil {
		b.resolve = bind_group_provider.NewBindGroupProvider("Resolve")
	}
	views := []int{passes.BindingGBufferAlbedo, passes.BindingGBufferNormal, passes.BindingGBufferPosition}
	for i, binding := range views {
		b.resolve.SetTextureView(binding, b.targets.gbuffer[i].view)
	}
	c := compiled(b.cache.MustGet(passes.KeyResolve))
	return b.initBindGroup(b.resolve, c, passes.GroupGBuffer, map[int]uint64{
		passes.BindingResolveUniforms: resolveUniformsSize,
	})
}

// initBindGroup creates the missing buffers of a group and the bind group itself
// against a compiled pipeline's layout.
//
// Parameters:
//   - provider: receives the created buffers and bind group
//   - c: the compiled pipeline whose layout is used
//   - group: the group index
//   - sizes: buffer sizes by binding, for buffers the provider does not hold yet
//
// Returns:
//   - error: a missing texture view, size, or a device error
func (b *wgpuBackend) initBindGroup(provider bind_group_provider.BindGroupProvider, c *compiledPipeline, group int, sizes map[int]uint64) error {
	desc := c.descs[group]
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		binding := int(entry.Binding)

		if entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("texture binding %d has no texture view", binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}
			continue
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			size, ok := sizes[binding]
			if !ok {
				return fmt.Errorf("buffer binding %d has no size", binding)
			}
			usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			if entry.Buffer.Type == wgpu.BufferBindingTypeUniform {
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			}
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: provider.Label() + " Buffer",
				Size:  size,
				Usage: usage,
			})
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, buf)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  c.layouts[group],
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bg)
	return nil
}

// mesh returns the vertex and index buffers of a primitive, uploading them on first
// use.
func (b *wgpuBackend) mesh(p *scene.Primitive) (bind_group_provider.BindGroupProvider, error) {
	if m, ok := b.meshes[p]; ok {
		return m, nil
	}
	m := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Mesh %d", len(b.meshes)))
	for _, data := range []struct {
		bytes []byte
		usage wgpu.BufferUsage
		set   func(*wgpu.Buffer)
	}{
		{p.VertexData(), wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst, m.SetVertexBuffer},
		{p.IndexData(), wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst, m.SetIndexBuffer},
	} {
		if len(data.bytes) == 0 {
			continue
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: m.Label(),
			Size:  uint64(len(data.bytes)),
			Usage: data.usage,
		})
		if err != nil {
			m.Release()
			return nil, err
		}
		b.queue.WriteBuffer(buf, 0, data.bytes)
		data.set(buf)
	}
	m.SetIndexCount(len(p.Indices))
	b.meshes[p] = m
	return m, nil
}

// material returns the bind group of a material, creating it on first use.
func (b *wgpuBackend) material(m *scene.Material) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := b.materials[m]; ok {
		return p, nil
	}
	var u scene.GPUMaterial
	p := bind_group_provider.NewBindGroupProvider("Material " + m.Name)
	c := compiled(b.cache.MustGet(passes.KeyForwardPlus))
	if err := b.initBindGroup(p, c, passes.GroupMaterial, map[int]uint64{0: uint64(u.Size())}); err != nil {
		return nil, err
	}
	b.materials[m] = p
	return p, nil
}

// model returns the model bind group of a node, creating it on first use. Each node
// owns its uniform buffer, written once per frame with the node's world transform.
func (b *wgpuBackend) model(n *scene.Node) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := b.models[n]; ok {
		return p, nil
	}
	var u scene.GPUModel
	p := bind_group_provider.NewBindGroupProvider("Model " + n.Name)
	c := compiled(b.cache.MustGet(passes.KeyForwardPlus))
	if err := b.initBindGroup(p, c, passes.GroupModel, map[int]uint64{0: uint64(u.Size())}); err != nil {
		return nil, err
	}
	b.models[n] = p
	return p, nil
}

func (b *wgpuBackend) Resize(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.configureSurface(width, height)
	if err := b.allocateTargets(width, height); err != nil {
		return err
	}
	return b.createResolveGroup()
}

func (b *wgpuBackend) CheckTargets(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.targets.validate(width, height)
}

func (b *wgpuBackend) BeginEncoding() (renderer.CommandEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return nil, fmt.Errorf("wgpu: previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return &wgpuEncoder{backend: b, encoder: encoder}, nil
}

func (b *wgpuBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return nil
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.meshes {
		m.Release()
	}
	clear(b.meshes)
	for _, m := range b.materials {
		m.Release()
	}
	clear(b.materials)
	for _, m := range b.models {
		m.Release()
	}
	clear(b.models)
	for _, g := range b.frameGroups {
		g.Release()
	}
	clear(b.frameGroups)
	if b.resolve != nil {
		b.resolve.Release()
		b.resolve = nil
	}
	if b.frame != nil {
		b.frame.Release()
		b.frame = nil
	}
	if b.targets != nil {
		b.targets.release()
		b.targets = nil
	}
	if b.cache != nil {
		for _, key := range passes.Keys {
			if c := compiled(b.cache.MustGet(key)); c != nil {
				c.release()
			}
		}
		b.cache = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
}

func (b *wgpuBackend) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuBackend) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuBackend) Pipelines() *pipeline.Cache {
	return b.cache
}
