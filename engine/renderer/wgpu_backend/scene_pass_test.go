package wgpu_backend

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// recorder logs resource lookups and pass commands in call order.
type recorder struct {
	log     []string
	models  map[*scene.Node]int
	failing *scene.Material
}

func (r *recorder) SetBindGroup(group uint32, _ *wgpu.BindGroup, _ []uint32) {
	r.log = append(r.log, fmt.Sprintf("bind %d", group))
}

func (r *recorder) SetVertexBuffer(uint32, *wgpu.Buffer, uint64, uint64) {}

func (r *recorder) SetIndexBuffer(*wgpu.Buffer, wgpu.IndexFormat, uint64, uint64) {}

func (r *recorder) DrawIndexed(count, _, _ uint32, _ int32, _ uint32) {
	r.log = append(r.log, fmt.Sprintf("draw %d", count))
}

func (r *recorder) model(n *scene.Node) (bind_group_provider.BindGroupProvider, error) {
	r.models[n]++
	r.log = append(r.log, "model "+n.Name)
	return bind_group_provider.NewBindGroupProvider(n.Name), nil
}

func (r *recorder) material(m *scene.Material) (bind_group_provider.BindGroupProvider, error) {
	if m == r.failing {
		return nil, errors.New("out of memory")
	}
	r.log = append(r.log, "material "+m.Name)
	return bind_group_provider.NewBindGroupProvider(m.Name), nil
}

func (r *recorder) mesh(p *scene.Primitive) (bind_group_provider.BindGroupProvider, error) {
	m := bind_group_provider.NewBindGroupProvider("mesh")
	m.SetIndexCount(len(p.Indices))
	return m, nil
}

func TestRecordSceneBindsModelPerNode(t *testing.T) {
	red := &scene.Material{Name: "red", Albedo: mgl32.Vec4{1, 0, 0, 1}}
	blue := &scene.Material{Name: "blue", Albedo: mgl32.Vec4{0, 0, 1, 1}}
	box := scene.NewBox(mgl32.Vec3{1, 1, 1})
	plane := scene.NewPlane(4)

	a := scene.NewNode("a").Add(red, box, box, plane).Add(blue, box)
	b := scene.NewNode("b").Add(blue, plane)
	b.Local = mgl32.Translate3D(0, 2, 0)
	a.AddChild(b)
	s := scene.NewScene("test", scene.WithNodes(a))

	r := &recorder{models: make(map[*scene.Node]int)}
	writes, draws, err := recordScene(r, r, s)
	if err != nil {
		t.Fatalf("recordScene: %v", err)
	}

	boxDraw := fmt.Sprintf("draw %d", len(box.Indices))
	planeDraw := fmt.Sprintf("draw %d", len(plane.Indices))
	model, material := fmt.Sprintf("bind %d", passes.GroupModel), fmt.Sprintf("bind %d", passes.GroupMaterial)
	want := []string{
		"model a", model,
		"material red", material, boxDraw, boxDraw, planeDraw,
		"material blue", material, boxDraw,
		"model b", model,
		"material blue", material, planeDraw,
	}
	if !slices.Equal(r.log, want) {
		t.Errorf("recorded\n%v\nwant\n%v", r.log, want)
	}
	if draws != 5 {
		t.Errorf("draws = %d, want 5", draws)
	}
	for n, c := range r.models {
		if c != 1 {
			t.Errorf("node %s model looked up %d times", n.Name, c)
		}
	}

	// one model write per node, one material write per group
	if len(writes) != 5 {
		t.Fatalf("staged %d writes, want 5", len(writes))
	}
	var u scene.GPUModel
	if got := writes[4].Data; len(got) != 16 {
		t.Errorf("last write is %d bytes, want a material uniform", len(got))
	}
	if got := writes[3].Data; len(got) != u.Size() || got[13*4+2] != 0 || got[13*4+3] != 0x40 {
		t.Errorf("node b model write does not carry its translation: % x", got[52:56])
	}
}

func TestRecordSceneStopsOnResourceError(t *testing.T) {
	bad := &scene.Material{Name: "bad"}
	s := scene.NewScene("test", scene.WithNodes(
		scene.NewNode("a").Add(bad, scene.NewPlane(1)),
		scene.NewNode("b").Add(nil, scene.NewPlane(1)),
	))

	r := &recorder{models: make(map[*scene.Node]int), failing: bad}
	_, draws, err := recordScene(r, r, s)
	if err == nil {
		t.Fatal("expected the material error")
	}
	if draws != 0 {
		t.Errorf("draws = %d after the error, want 0", draws)
	}
	if len(r.models) != 1 {
		t.Errorf("walk continued past the error: %v", r.log)
	}
}
