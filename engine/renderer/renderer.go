// Package renderer sequences one frame of clustered lighting: light assignment,
// geometry and, in deferred mode, the lighting resolve, submitted to the device as
// one ordered unit. Backends supply the device; the orchestration here is shared.
package renderer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrStaleTarget is returned by Frame when a resolution-sized target no longer
// matches the camera's resolution. Call Resize before the next frame.
var ErrStaleTarget = errors.New("renderer: render target size does not match the frame")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	ctx     *Context
	backend RendererBackend
	mode    Mode
	log     *zap.Logger

	lights []light.Light
	frames uint64
}

// Renderer drives a backend one frame at a time. Each frame snapshots the camera
// and the light store, encodes the stages of the current mode in order and submits
// them once. Frames are serialized.
type Renderer interface {
	// Frame renders one frame.
	//
	// Parameters:
	//   - timestamp: the frame time fed to the frame uniforms; the renderer never reads a clock
	//
	// Returns:
	//   - error: ErrStaleTarget if a target needs Resize, or an encoding/submission error
	Frame(timestamp time.Duration) error

	// Resize sets the camera resolution and reallocates every resolution-sized target.
	//
	// Parameters:
	//   - width, height: the new resolution in pixels
	//
	// Returns:
	//   - error: an error if the backend cannot reallocate
	Resize(width, height uint32) error

	Mode() Mode

	// SetMode switches the lighting strategy from the next frame on.
	SetMode(m Mode)

	Backend() RendererBackend
	Context() *Context

	// Frames returns the number of frames submitted.
	Frames() uint64

	// Present displays the last submitted frame.
	Present() error

	// Release frees the backend's resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer validates ctx, initializes the backend against it and returns the
// renderer.
//
// Parameters:
//   - backend: the device realization
//   - ctx: the renderer context shared with the backend
//   - options: optional RendererBuilderOption values
//
// Returns:
//   - Renderer: the renderer
//   - error: a context validation or backend initialization error
func NewRenderer(backend RendererBackend, ctx *Context, options ...RendererBuilderOption) (Renderer, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	r := &renderer{
		mu:      &sync.Mutex{},
		ctx:     ctx,
		backend: backend,
		mode:    ModeForwardPlus,
	}
	for _, opt := range options {
		opt(r)
	}
	r.log = ctx.Logger.Named("renderer")

	if err := backend.Init(ctx); err != nil {
		return nil, fmt.Errorf("renderer: failed to initialize %s backend: %w", backend.Name(), err)
	}
	r.log.Info("renderer initialized",
		zap.String("backend", backend.Name()),
		zap.Stringer("mode", r.mode),
		zap.Int("clusters", ctx.Grid.ClusterCount()),
		zap.Int("cluster_buffer_bytes", ctx.Grid.BufferSize()),
	)
	return r, nil
}

func (r *renderer) Frame(timestamp time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, h := r.ctx.Camera.Resolution()
	if err := r.backend.CheckTargets(w, h); err != nil {
		return fmt.Errorf("%w: %w", ErrStaleTarget, err)
	}

	var ambient mgl32.Vec3
	r.lights, ambient = r.ctx.Lights.Snapshot(r.lights)
	fs := &FrameState{
		Frame:   r.ctx.Camera.Frame(timestamp),
		Lights:  r.lights,
		Ambient: ambient,
		Mode:    r.mode,
	}

	enc, err := r.backend.BeginEncoding()
	if err != nil {
		return fmt.Errorf("renderer: failed to begin frame: %w", err)
	}
	if err := r.encode(enc, fs); err != nil {
		enc.Discard()
		return err
	}
	r.frames++
	return nil
}

// encode records the stages of fs.Mode in order and submits them.
func (r *renderer) encode(enc CommandEncoder, fs *FrameState) error {
	if fs.Mode.Clustered() {
		if err := enc.EncodeClusterPass(fs); err != nil {
			return fmt.Errorf("renderer: cluster pass: %w", err)
		}
	}
	if err := enc.EncodeGeometryPass(fs, r.ctx.Scene); err != nil {
		return fmt.Errorf("renderer: geometry pass: %w", err)
	}
	if fs.Mode == ModeDeferred {
		if err := enc.EncodeResolvePass(fs); err != nil {
			return fmt.Errorf("renderer: resolve pass: %w", err)
		}
	}
	if err := enc.Submit(); err != nil {
		return fmt.Errorf("renderer: submit: %w", err)
	}
	return nil
}

func (r *renderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("renderer: invalid size %dx%d", width, height)
	}
	r.ctx.Camera.SetResolution(width, height)
	if err := r.backend.Resize(width, height); err != nil {
		return fmt.Errorf("renderer: resize to %dx%d: %w", width, height, err)
	}
	r.log.Debug("targets resized", zap.Uint32("width", width), zap.Uint32("height", height))
	return nil
}

func (r *renderer) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *renderer) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m != r.mode {
		r.log.Info("lighting mode changed", zap.Stringer("from", r.mode), zap.Stringer("to", m))
	}
	r.mode = m
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Context() *Context {
	return r.ctx
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) Present() error {
	return r.backend.Present()
}

func (r *renderer) Release() {
	r.backend.Release()
}
