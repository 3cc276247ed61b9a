package camera

import (
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	near   float32
	far    float32
	width  uint32
	height uint32

	view     mgl32.Mat4
	proj     mgl32.Mat4
	invProj  mgl32.Mat4
	viewProj mgl32.Mat4
}

// FrameData is the read-only camera block consumed by one frame's stages.
// It is captured once at the start of the frame, so later camera mutations never
// reach a frame already being encoded.
type FrameData struct {
	View     mgl32.Mat4
	Proj     mgl32.Mat4
	InvProj  mgl32.Mat4
	ViewProj mgl32.Mat4
	Eye      mgl32.Vec3
	Width    uint32
	Height   uint32
	Near     float32
	Far      float32
	// Time is the injected frame timestamp.
	Time time.Duration
}

// Camera defines the interface for the perspective camera that feeds each frame.
// Camera input handling lives outside this package; callers move the camera with
// SetPosition and SetTarget between frames.
type Camera interface {
	Position() mgl32.Vec3
	Target() mgl32.Vec3
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32
	Near() float32
	Far() float32

	// Aspect returns width / height of the current resolution.
	Aspect() float32

	// Resolution returns the output resolution in pixels.
	//
	// Returns:
	//   - width, height: the resolution
	Resolution() (width, height uint32)

	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	InverseProjectionMatrix() mgl32.Mat4
	ViewProjectionMatrix() mgl32.Mat4

	// SetPosition moves the eye and recomputes the view matrix.
	SetPosition(x, y, z float32)

	// SetTarget sets the look-at point and recomputes the view matrix.
	SetTarget(x, y, z float32)

	SetUp(x, y, z float32)

	// SetFov sets the vertical field of view in radians and recomputes matrices.
	SetFov(fov float32)

	// SetPlanes sets the near and far planes and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance (> 0)
	//   - far: far plane distance (> near)
	SetPlanes(near, far float32)

	// SetResolution records the output resolution and recomputes the projection
	// for the new aspect ratio. Resolution-sized render targets are NOT resized here;
	// the renderer compares its targets against this value every frame.
	//
	// Parameters:
	//   - width, height: the new resolution in pixels
	SetResolution(width, height uint32)

	// Frame captures the camera block for one frame.
	//
	// Parameters:
	//   - timestamp: the injected frame timestamp
	//
	// Returns:
	//   - FrameData: an immutable copy of the camera state
	Frame(timestamp time.Duration) FrameData
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera looking down -Z from the origin with a 45° field
// of view and a 1x1 resolution, then applies the options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		target: mgl32.Vec3{0, 0, -1},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0),
		near:   0.1,
		far:    100.0,
		width:  1,
		height: 1,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect()
}

func (c *cameraImpl) Resolution() (uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invProj
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
	c.updateMatrices()
}

func (c *cameraImpl) SetResolution(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = max(width, 1), max(height, 1)
	c.updateMatrices()
}

func (c *cameraImpl) Frame(timestamp time.Duration) FrameData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FrameData{
		View:     c.view,
		Proj:     c.proj,
		InvProj:  c.invProj,
		ViewProj: c.viewProj,
		Eye:      c.position,
		Width:    c.width,
		Height:   c.height,
		Near:     c.near,
		Far:      c.far,
		Time:     timestamp,
	}
}

func (c *cameraImpl) aspect() float32 {
	return float32(c.width) / float32(c.height)
}

// updateMatrices recalculates the view, projection, view-projection, and inverse projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)
	c.proj = common.Perspective(c.fov, c.aspect(), c.near, c.far)
	c.viewProj = c.proj.Mul4(c.view)
	c.invProj = c.proj.Inv()
}
