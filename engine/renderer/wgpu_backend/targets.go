package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/gbuffer"
	"github.com/cogentcore/webgpu/wgpu"
)

// target is one resolution-sized texture and its view.
type target struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *target) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// targets holds every resolution-sized texture: the depth buffer and the G-buffer
// attachments in gbuffer.Attachments order.
type targets struct {
	width  uint32
	height uint32

	depth   target
	gbuffer []target
}

// createTarget allocates a 2D single-sample texture and its default view.
func (b *wgpuBackend) createTarget(label string, format wgpu.TextureFormat, usage wgpu.TextureUsage, width, height uint32) (target, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return target{}, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return target{}, err
	}
	return target{texture: tex, view: view}, nil
}

// allocateTargets releases the current targets and creates new ones at the given
// size.
func (b *wgpuBackend) allocateTargets(width, height uint32) error {
	if b.targets != nil {
		b.targets.release()
	}
	t := &targets{width: width, height: height}

	var err error
	t.depth, err = b.createTarget("Depth Texture", wgpu.TextureFormatDepth24Plus, wgpu.TextureUsageRenderAttachment, width, height)
	if err != nil {
		return fmt.Errorf("failed to create depth texture: %w", err)
	}
	for _, a := range gbuffer.Attachments {
		if a.Format == gbuffer.FormatDepth24Plus {
			continue
		}
		format, ok := textureFormats[string(a.Format)]
		if !ok {
			t.release()
			return fmt.Errorf("unsupported G-buffer format %s", a.Format)
		}
		tg, err := b.createTarget("G-Buffer "+a.Name, format,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, width, height)
		if err != nil {
			t.release()
			return fmt.Errorf("failed to create G-buffer %s: %w", a.Name, err)
		}
		t.gbuffer = append(t.gbuffer, tg)
	}
	b.targets = t
	return nil
}

func (t *targets) release() {
	t.depth.release()
	for i := range t.gbuffer {
		t.gbuffer[i].release()
	}
	t.gbuffer = nil
}

// validate reports whether the targets match a frame's resolution.
func (t *targets) validate(width, height uint32) error {
	if t == nil {
		return fmt.Errorf("%w: targets not allocated", gbuffer.ErrSizeMismatch)
	}
	if t.width != width || t.height != height {
		return fmt.Errorf("%w: targets are %dx%d, frame is %dx%d", gbuffer.ErrSizeMismatch, t.width, t.height, width, height)
	}
	return nil
}
