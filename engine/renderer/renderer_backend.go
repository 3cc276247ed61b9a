package renderer

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Pass names used by encoders when recording a submission.
const (
	PassCluster  = "cluster"
	PassGeometry = "geometry"
	PassResolve  = "resolve"
)

// FrameState is the immutable per-frame input every stage reads. It is built once
// by Renderer.Frame before any stage is encoded.
type FrameState struct {
	Frame   camera.FrameData
	Lights  []light.Light
	Ambient mgl32.Vec3
	Mode    Mode
}

// CommandEncoder records the stages of one frame. Nothing executes until Submit,
// which hands the whole sequence over at once; stages run in encoding order.
type CommandEncoder interface {
	// EncodeClusterPass records the light-assignment stage.
	EncodeClusterPass(fs *FrameState) error

	// EncodeGeometryPass records one draw per primitive of s. In the forward modes
	// fragments are shaded here; in deferred mode they fill the G-buffer.
	EncodeGeometryPass(fs *FrameState, s scene.Scene) error

	// EncodeResolvePass records the fullscreen deferred lighting stage.
	EncodeResolvePass(fs *FrameState) error

	// Submit hands the recorded sequence to the device. The encoder is spent afterwards.
	Submit() error

	// Discard abandons a frame that was not submitted successfully and releases what
	// BeginEncoding acquired. It does nothing after a successful Submit.
	Discard()
}

// RendererBackend realizes frames on one device: a CPU rasterizer or a GPU API.
type RendererBackend interface {
	// Name identifies the backend in logs.
	Name() string

	// Init creates every pipeline, buffer and resolution-sized target for ctx.
	//
	// Parameters:
	//   - ctx: the renderer context
	//
	// Returns:
	//   - error: an error if resource creation fails
	Init(ctx *Context) error

	// Resize reallocates every resolution-sized target.
	//
	// Parameters:
	//   - width, height: the new resolution in pixels
	//
	// Returns:
	//   - error: an error if reallocation fails
	Resize(width, height uint32) error

	// CheckTargets verifies that every resolution-sized target matches the frame's
	// resolution.
	//
	// Returns:
	//   - error: an error wrapping gbuffer.ErrSizeMismatch, or nil
	CheckTargets(width, height uint32) error

	// BeginEncoding starts recording a frame.
	//
	// Returns:
	//   - CommandEncoder: the frame's encoder
	//   - error: an error if the backend cannot record (e.g. no surface texture)
	BeginEncoding() (CommandEncoder, error)

	// Present displays the last submitted frame. Backends without a surface do nothing.
	Present() error

	// Release frees device resources.
	Release()
}
