package light

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(WithPosition(1, 2, 3), WithRadius(-4))
	if l.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position = %v", l.Position)
	}
	if l.Radius != 0 {
		t.Errorf("negative radius should clamp to 0, got %v", l.Radius)
	}
	if l.Radiance() != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("default radiance = %v, want white", l.Radiance())
	}
}

func TestStoreCapacity(t *testing.T) {
	s := NewStore(2)
	for i := range 2 {
		idx, err := s.Add(NewLight())
		if err != nil || idx != i {
			t.Fatalf("Add #%d = (%d, %v)", i, idx, err)
		}
	}
	if _, err := s.Add(NewLight()); !errors.Is(err, ErrStoreFull) {
		t.Errorf("expected ErrStoreFull, got %v", err)
	}
	if s.Count() != 2 {
		t.Errorf("count = %d, want 2", s.Count())
	}
	if err := s.SetCount(3); err == nil {
		t.Error("SetCount beyond capacity should fail")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(4)
	_, _ = s.Add(NewLight(WithPosition(1, 0, 0)))
	s.SetAmbient(0.1, 0.2, 0.3)

	snap, ambient := s.Snapshot(nil)
	s.Set(0, NewLight(WithPosition(9, 9, 9)))

	if snap[0].Position != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("snapshot observed a later mutation: %v", snap[0].Position)
	}
	if ambient != (mgl32.Vec3{0.1, 0.2, 0.3}) {
		t.Errorf("ambient = %v", ambient)
	}
}

func TestMarshalLightSetLayout(t *testing.T) {
	lights := []Light{
		NewLight(WithPosition(1, 2, 3), WithRadius(4), WithColor(0.5, 0.25, 1), WithIntensity(2)),
		NewLight(WithPosition(-1, -2, -3)),
	}
	buf := MarshalLightSet(nil, lights, mgl32.Vec3{0.1, 0.1, 0.1})

	if len(buf) != 16+2*32 {
		t.Fatalf("buffer length = %d, want %d", len(buf), 16+2*32)
	}
	if got := binary.LittleEndian.Uint32(buf[12:]); got != 2 {
		t.Errorf("header count = %d, want 2", got)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if f(16) != 1 || f(24) != 3 || f(28) != 4 {
		t.Errorf("first light position/radius encoded wrong: %v %v %v", f(16), f(24), f(28))
	}
	if f(32) != 0.5 || f(44) != 2 {
		t.Errorf("first light color/intensity encoded wrong: %v %v", f(32), f(44))
	}
	if f(48) != -1 {
		t.Errorf("second light starts at wrong offset: %v", f(48))
	}

	var g GPULight
	var h GPULightSetHeader
	if g.Size() != 32 || h.Size() != 16 || BufferSize(10) != 336 {
		t.Errorf("unexpected sizes: light=%d header=%d buffer=%d", g.Size(), h.Size(), BufferSize(10))
	}
}

func TestScatterDeterministicAndBounded(t *testing.T) {
	b := Bounds{Min: mgl32.Vec3{-5, 0, -2}, Max: mgl32.Vec3{5, 3, 2}}
	a, c := NewStore(100), NewStore(100)
	Scatter(a, 150, b, 1.5, 1, 7)
	Scatter(c, 150, b, 1.5, 1, 7)

	if a.Count() != 100 {
		t.Fatalf("scatter should clamp to capacity, got %d", a.Count())
	}
	for i := range a.Count() {
		la, lc := a.At(i), c.At(i)
		if la != lc {
			t.Fatalf("light %d differs between identical seeds", i)
		}
		for k := range 3 {
			if la.Position[k] < b.Min[k] || la.Position[k] > b.Max[k] {
				t.Errorf("light %d outside bounds: %v", i, la.Position)
			}
		}
	}
}

func TestAnimatorIsPureFunctionOfTime(t *testing.T) {
	b := Bounds{Min: mgl32.Vec3{-1, 0, -1}, Max: mgl32.Vec3{1, 4, 1}}
	s := NewStore(16)
	Scatter(s, 16, b, 1, 1, 3)
	anim := NewAnimator(s, b, 1.5)

	anim.Apply(s, 2*time.Second)
	first, _ := s.Snapshot(nil)
	anim.Apply(s, 7*time.Second)
	anim.Apply(s, 2*time.Second)
	second, _ := s.Snapshot(nil)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("light %d differs for the same timestamp", i)
		}
		if y := first[i].Position[1]; y < b.Min[1] || y > b.Max[1] {
			t.Errorf("light %d left the vertical range: %v", i, y)
		}
	}
}
