package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/lighting"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// resolveBandRows is the number of rows one resolve task shades.
const resolveBandRows = 16

// softwareOp is one recorded pass.
type softwareOp struct {
	name string
	run  func() error
}

// softwareDraw is one primitive drawn with its world transform and material.
type softwareDraw struct {
	world  mgl32.Mat4
	albedo mgl32.Vec3
	prim   *scene.Primitive
}

// softwareEncoder records passes for the software backend and runs them in order on
// Submit.
type softwareEncoder struct {
	backend   *softwareBackend
	ops       []softwareOp
	submitted bool

	// view-space copy of the frame's lights, shared by geometry and resolve
	viewLights []light.Light
}

var _ CommandEncoder = &softwareEncoder{}

func (e *softwareEncoder) EncodeClusterPass(fs *FrameState) error {
	if e.submitted {
		return fmt.Errorf("software: encoder already submitted")
	}
	b := e.backend
	e.ops = append(e.ops, softwareOp{name: PassCluster, run: func() error {
		res, err := b.builder.Build(b.grid, fs.Frame, fs.Lights)
		if err != nil {
			return err
		}
		b.lastResult = res
		return nil
	}})
	return nil
}

func (e *softwareEncoder) EncodeGeometryPass(fs *FrameState, s scene.Scene) error {
	if e.submitted {
		return fmt.Errorf("software: encoder already submitted")
	}

	var draws []softwareDraw
	var world mgl32.Mat4
	var albedo mgl32.Vec3
	s.Iterate(
		func(_ *scene.Node, w mgl32.Mat4) { world = w },
		func(m *scene.Material) {
			if m == nil {
				m = scene.DefaultMaterial
			}
			albedo = m.Albedo.Vec3()
		},
		func(p *scene.Primitive) {
			draws = append(draws, softwareDraw{world: world, albedo: albedo, prim: p})
		},
	)

	e.ops = append(e.ops, softwareOp{name: PassGeometry, run: func() error {
		return e.runGeometry(fs, draws)
	}})
	return nil
}

func (e *softwareEncoder) EncodeResolvePass(fs *FrameState) error {
	if e.submitted {
		return fmt.Errorf("software: encoder already submitted")
	}
	e.ops = append(e.ops, softwareOp{name: PassResolve, run: func() error {
		return e.runResolve(fs)
	}})
	return nil
}

func (e *softwareEncoder) Submit() error {
	if e.submitted {
		return fmt.Errorf("software: encoder already submitted")
	}
	e.submitted = true

	b := e.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.builder == nil {
		return fmt.Errorf("software: backend released")
	}

	b.submissions++
	b.lastPasses = b.lastPasses[:0]
	for _, op := range e.ops {
		if err := op.run(); err != nil {
			return fmt.Errorf("%s pass: %w", op.name, err)
		}
		b.lastPasses = append(b.lastPasses, op.name)
	}
	return nil
}

func (e *softwareEncoder) Discard() {
	e.submitted = true
	e.ops = nil
}

func (e *softwareEncoder) runGeometry(fs *FrameState, draws []softwareDraw) error {
	b := e.backend
	f := fs.Frame
	width, height := int(f.Width), int(f.Height)
	cfg := b.grid.Config()

	e.viewLights = lighting.ToView(e.viewLights, fs.Lights, f.View)

	var (
		p     = b.pipelines[passes.KeyForwardPlus]
		depth = b.depth.Depth
		shade func(albedo mgl32.Vec3) func(*fragment)
	)
	switch fs.Mode {
	case ModeDeferred:
		p = b.pipelines[passes.KeyGBuffer]
		b.gbuf.Clear()
		depth = b.gbuf.Depth
		shade = func(albedo mgl32.Vec3) func(*fragment) {
			return func(fr *fragment) {
				b.gbuf.Albedo[fr.index] = albedo
				b.gbuf.Normal[fr.index] = fr.normal
				b.gbuf.Position[fr.index] = fr.view
			}
		}
	case ModeNaive:
		p = b.pipelines[passes.KeyNaive]
		b.depth.Clear()
		b.color.Fill(b.ctx.ClearColor)
		shade = func(albedo mgl32.Vec3) func(*fragment) {
			return func(fr *fragment) {
				s := lighting.Surface{Albedo: albedo, Normal: fr.normal, Position: fr.view}
				b.color.Pix[fr.index] = lighting.Shade(s, e.viewLights, nil, fs.Ambient)
			}
		}
	default:
		b.depth.Clear()
		b.color.Fill(b.ctx.ClearColor)
		shade = func(albedo mgl32.Vec3) func(*fragment) {
			return func(fr *fragment) {
				idx := cfg.IndexAt(fr.screenX(), fr.screenY(), -fr.view.Z(), f)
				s := lighting.Surface{Albedo: albedo, Normal: fr.normal, Position: fr.view}
				b.color.Pix[fr.index] = lighting.Shade(s, e.viewLights, b.grid.Lights(idx), fs.Ambient)
			}
		}
	}

	for _, d := range draws {
		prim := d.prim
		if len(prim.Normals) != len(prim.Positions) {
			return fmt.Errorf("primitive has %d positions and %d normals", len(prim.Positions), len(prim.Normals))
		}
		modelView := f.View.Mul4(d.world)
		normalMat := common.NormalMatrix(modelView)
		fn := shade(d.albedo)
		for t := 0; t+2 < len(prim.Indices); t += 3 {
			var tri [3]rasterVertex
			for k := range 3 {
				vi := prim.Indices[t+k]
				if int(vi) >= len(prim.Positions) {
					return fmt.Errorf("index %d out of range for %d vertices", vi, len(prim.Positions))
				}
				tri[k] = transformVertex(prim.Positions[vi], prim.Normals[vi], modelView, normalMat, f.Proj)
			}
			rasterizeTriangle(tri, width, height, f.Near, p, depth, fn)
		}
	}
	return nil
}

func (e *softwareEncoder) runResolve(fs *FrameState) error {
	b := e.backend
	f := fs.Frame
	width, height := int(f.Width), int(f.Height)
	cfg := b.grid.Config()
	clearColor := b.ctx.ClearColor

	var wg sync.WaitGroup
	for band := 0; band*resolveBandRows < height; band++ {
		y0 := band * resolveBandRows
		y1 := min(y0+resolveBandRows, height)

		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				for y := y0; y < y1; y++ {
					for x := 0; x < width; x++ {
						i := y*width + x
						if !b.gbuf.Covered(i) {
							b.color.Pix[i] = clearColor
							continue
						}
						pos := b.gbuf.Position[i]
						idx := cfg.IndexAt(float32(x)+0.5, float32(y)+0.5, -pos.Z(), f)
						s := lighting.Surface{Albedo: b.gbuf.Albedo[i], Normal: b.gbuf.Normal[i], Position: pos}
						b.color.Pix[i] = lighting.Shade(s, e.viewLights, b.grid.Lights(idx), fs.Ambient)
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return nil
}
