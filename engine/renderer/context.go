package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Context is the renderer context: everything a backend needs to create and read
// resources, passed by reference instead of reached through package state.
type Context struct {
	// Grid is the cluster grid shape compiled into buffers and shaders.
	Grid cluster.Config

	// Camera supplies the frame's camera block and output resolution.
	Camera camera.Camera

	// Lights is the light store snapshotted once per frame.
	Lights light.Store

	// Scene is traversed by the geometry stage.
	Scene scene.Scene

	// ClearColor is written where no geometry is drawn.
	ClearColor mgl32.Vec3

	// Logger is the parent logger; components derive named children.
	Logger *zap.Logger
}

// Validate checks that the context is complete.
//
// Returns:
//   - error: a description of the first missing or invalid field
func (c *Context) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	switch {
	case c.Camera == nil:
		return fmt.Errorf("renderer: context has no camera")
	case c.Lights == nil:
		return fmt.Errorf("renderer: context has no light store")
	case c.Scene == nil:
		return fmt.Errorf("renderer: context has no scene")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}
