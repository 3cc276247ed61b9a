package wgpu_backend

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestPipelineLayoutsVisibility(t *testing.T) {
	cfg := cluster.DefaultConfig()

	forward, err := passes.NewPipeline(passes.KeyForwardPlus, cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	descs, err := pipelineLayouts("forward", forward.Shader(shader.ShaderTypeVertex), forward.Shader(shader.ShaderTypeFragment))
	if err != nil {
		t.Fatalf("pipelineLayouts: %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("forward layout has %d groups, want 3", len(descs))
	}
	frame := descs[passes.GroupFrame].Entries
	if len(frame) != 3 {
		t.Fatalf("frame group has %d entries, want 3", len(frame))
	}
	if frame[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("frame uniform visibility = %v", frame[0].Visibility)
	}
	for _, e := range frame[1:] {
		if e.Visibility != wgpu.ShaderStageFragment {
			t.Errorf("binding %d visibility = %v, want fragment only", e.Binding, e.Visibility)
		}
		if e.Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
			t.Errorf("binding %d type = %v, want read-only storage", e.Binding, e.Buffer.Type)
		}
	}

	compute, err := passes.NewPipeline(passes.KeyClusterLights, cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	descs, err = pipelineLayouts("cluster", compute.Shader(shader.ShaderTypeCompute))
	if err != nil {
		t.Fatalf("pipelineLayouts: %v", err)
	}
	clusters := descs[passes.GroupFrame].Entries[passes.BindingClusters]
	if clusters.Buffer.Type != wgpu.BufferBindingTypeStorage || clusters.Visibility != wgpu.ShaderStageCompute {
		t.Errorf("clusters entry = %+v, want compute-only read_write storage", clusters)
	}
}

func TestResolveLayoutTextures(t *testing.T) {
	resolve, err := passes.NewPipeline(passes.KeyResolve, cluster.DefaultConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	descs, err := pipelineLayouts("resolve", resolve.Shader(shader.ShaderTypeVertex), resolve.Shader(shader.ShaderTypeFragment))
	if err != nil {
		t.Fatalf("pipelineLayouts: %v", err)
	}
	for _, e := range descs[passes.GroupGBuffer].Entries[:3] {
		if e.Texture.SampleType != wgpu.TextureSampleTypeUnfilterableFloat {
			t.Errorf("G-buffer binding %d sample type = %v", e.Binding, e.Texture.SampleType)
		}
	}
	layout, err := vertexLayout(resolve.Shader(shader.ShaderTypeVertex))
	if err != nil || layout != nil {
		t.Errorf("fullscreen pass vertex layout = %v, %v; want none", layout, err)
	}
}

func TestVertexLayout(t *testing.T) {
	forward, err := passes.NewPipeline(passes.KeyForwardPlus, cluster.DefaultConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	layout, err := vertexLayout(forward.Shader(shader.ShaderTypeVertex))
	if err != nil {
		t.Fatalf("vertexLayout: %v", err)
	}
	if len(layout) != 1 || layout[0].ArrayStride != scene.VertexStride {
		t.Fatalf("layout = %+v, want one buffer of stride %d", layout, scene.VertexStride)
	}
	attrs := layout[0].Attributes
	if len(attrs) != 2 || attrs[1].Offset != scene.NormalOffset || attrs[1].Format != wgpu.VertexFormatFloat32x3 {
		t.Errorf("attributes = %+v", attrs)
	}
}

func TestLayoutEntryRejectsStorageTextures(t *testing.T) {
	_, err := layoutEntry(shader.Binding{Name: "out", Kind: shader.BindingStorageTexture}, wgpu.ShaderStageCompute)
	if err == nil {
		t.Error("storage textures are not supported and should be rejected")
	}
}
