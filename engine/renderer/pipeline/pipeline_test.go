package pipeline

import (
	"testing"
)

func TestCulls(t *testing.T) {
	tests := []struct {
		name  string
		mode  CullMode
		front FrontFace
		ccw   bool
		want  bool
	}{
		{"back ccw front-facing", CullModeBack, FrontFaceCCW, true, false},
		{"back ccw back-facing", CullModeBack, FrontFaceCCW, false, true},
		{"back cw", CullModeBack, FrontFaceCW, true, true},
		{"front ccw", CullModeFront, FrontFaceCCW, true, true},
		{"none", CullModeNone, FrontFaceCCW, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline("p", PipelineTypeRender, WithCullMode(tt.mode), WithFrontFace(tt.front))
			if got := p.Culls(tt.ccw); got != tt.want {
				t.Errorf("Culls(%v) = %v, want %v", tt.ccw, got, tt.want)
			}
		})
	}
}

func TestDepthPasses(t *testing.T) {
	less := NewPipeline("less", PipelineTypeRender)
	if less.DepthPasses(0.5, 0.5) || !less.DepthPasses(0.4, 0.5) {
		t.Error("CompareLess should require strictly less")
	}
	lessEq := NewPipeline("le", PipelineTypeRender, WithDepthCompare(CompareLessEqual))
	if !lessEq.DepthPasses(0.5, 0.5) {
		t.Error("CompareLessEqual should accept equal depth")
	}
	off := NewPipeline("off", PipelineTypeRender, WithDepthTestEnabled(false))
	if !off.DepthPasses(1, 0) {
		t.Error("disabled depth test should always pass")
	}
}

func TestCacheRejectsIncompletePipelines(t *testing.T) {
	c := NewCache()
	if err := c.Register(NewPipeline("compute", PipelineTypeCompute)); err == nil {
		t.Error("compute pipeline without a shader should not register")
	}
	if err := c.Register(NewPipeline("render", PipelineTypeRender)); err == nil {
		t.Error("render pipeline without shaders should not register")
	}
	if c.Len() != 0 || c.Get("compute") != nil {
		t.Error("cache should be empty")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustGet should panic for a missing key")
		}
	}()
	c.MustGet("missing")
}

func TestHandle(t *testing.T) {
	p := NewPipeline("p", PipelineTypeRender, WithColorFormats("rgba16float", "rgba16float"), WithDepthFormat("depth24plus"), WithTopology(TopologyLineList))
	if p.Handle() != nil {
		t.Error("new pipeline should have no handle")
	}
	p.SetHandle(42)
	if p.Handle() != 42 || len(p.ColorFormats()) != 2 || p.DepthFormat() != "depth24plus" {
		t.Errorf("unexpected state %v %v %v", p.Handle(), p.ColorFormats(), p.DepthFormat())
	}
	if p.Topology() != TopologyLineList {
		t.Errorf("Topology = %v, want line list", p.Topology())
	}
}
