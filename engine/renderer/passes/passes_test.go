package passes

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

func TestNewCacheBuildsEveryPass(t *testing.T) {
	cache, err := NewCache(cluster.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if cache.Len() != len(Keys) {
		t.Fatalf("cache holds %d pipelines, want %d", cache.Len(), len(Keys))
	}

	cs := cache.MustGet(KeyClusterLights).Shader(shader.ShaderTypeCompute)
	if got := cs.WorkgroupSize(); got != [3]uint32{128, 1, 1} {
		t.Errorf("cluster workgroup size = %v, want [128 1 1]", got)
	}
	if b, ok := cs.BindingFromVarName(GroupFrame, "clusters"); !ok || b != BindingClusters {
		t.Errorf("clusters binding = %d, %v", b, ok)
	}
}

func TestRenderPassBindings(t *testing.T) {
	cfg := cluster.Config{X: 4, Y: 4, Z: 4, MaxLightsPerCluster: 8, WorkgroupSize: 16}
	tests := []struct {
		key      string
		clusters bool
		lights   bool
	}{
		{KeyForwardPlus, true, true},
		{KeyNaive, false, true},
		{KeyGBuffer, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p, err := NewPipeline(tt.key, cfg)
			if err != nil {
				t.Fatalf("NewPipeline: %v", err)
			}
			vs := p.Shader(shader.ShaderTypeVertex)
			if vs.VertexStride() != scene.VertexStride {
				t.Errorf("vertex stride = %d, want %d", vs.VertexStride(), scene.VertexStride)
			}
			if len(vs.VertexAttributes()) != 2 {
				t.Errorf("vertex attributes = %+v", vs.VertexAttributes())
			}

			_, hasClusters := vs.BindingFromVarName(GroupFrame, "clusters")
			_, hasLights := vs.BindingFromVarName(GroupFrame, "light_set")
			if hasClusters != tt.clusters || hasLights != tt.lights {
				t.Errorf("clusters=%v lights=%v, want %v and %v", hasClusters, hasLights, tt.clusters, tt.lights)
			}
			for _, b := range vs.Bindings() {
				if b.Kind == shader.BindingStorageReadWrite {
					t.Errorf("render pass binds %s read_write", b.Name)
				}
			}
			if _, ok := vs.BindingFromVarName(GroupModel, "model"); !ok {
				t.Error("model uniform missing")
			}
			if _, ok := vs.BindingFromVarName(GroupMaterial, "material"); !ok {
				t.Error("material uniform missing")
			}
		})
	}
}

func TestResolvePass(t *testing.T) {
	p, err := NewPipeline(KeyResolve, cluster.DefaultConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.DepthTestEnabled() || p.CullMode() != pipeline.CullModeNone {
		t.Error("resolve must not depth test or cull")
	}
	fs := p.Shader(shader.ShaderTypeFragment)
	textures := 0
	for _, b := range fs.GroupBindings(GroupGBuffer) {
		if b.Kind == shader.BindingTexture {
			textures++
		}
	}
	if textures != 3 {
		t.Errorf("resolve binds %d G-buffer textures, want 3", textures)
	}
	if b, ok := fs.BindingFromVarName(GroupGBuffer, "resolve"); !ok || b != BindingResolveUniforms {
		t.Errorf("resolve uniforms at %d, %v", b, ok)
	}
}

func TestState(t *testing.T) {
	typ, _ := State(KeyClusterLights)
	if typ != pipeline.PipelineTypeCompute {
		t.Errorf("cluster pass type = %v", typ)
	}
	typ, opts := State(KeyGBuffer)
	p := pipeline.NewPipeline(KeyGBuffer, typ, opts...)
	if got := p.ColorFormats(); len(got) != 3 || got[2] != "rgba32float" {
		t.Errorf("gbuffer color formats = %v", got)
	}
	if _, err := NewPipeline("shadow", cluster.DefaultConfig()); err == nil {
		t.Error("unknown pass should fail")
	}
}
