package world

import (
	"errors"
	"testing"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/frustum"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/gpu/nullgpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/pkg/math"
)

type countingLock struct {
	locks, unlocks int
}

func (l *countingLock) Lock()   { l.locks++ }
func (l *countingLock) Unlock() { l.unlocks++ }

func boxesAlongX(xs ...float32) *SceneFile {
	sf := &SceneFile{}
	for _, x := range xs {
		sf.Objects = append(sf.Objects, ObjectDef{Name: "box", Position: [3]float32{x, 0, 0}})
	}
	return sf
}

func newTestDrawer(t *testing.T, sf *SceneFile, lock gpu.ResourceLock) (*Drawer, *nullgpu.Context, *config.LightingConfig) {
	t.Helper()
	s, err := FromFile(sf)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	lighting := config.DefaultLighting()
	d, err := NewDrawer(nullgpu.NewDevice(4096), s, &lighting, lock)
	if err != nil {
		t.Fatalf("NewDrawer: %v", err)
	}
	return d, nullgpu.NewContext(640, 480), &lighting
}

func TestDrawerRadius(t *testing.T) {
	d, ctx, _ := newTestDrawer(t, boxesAlongX(0, 500, 2000), nil)
	d.DrawWorldAround(ctx, math.Vec3{}, 1000, shadow.DrawOptions{})

	if got := ctx.Count(nullgpu.OpDrawMesh); got != 2 {
		t.Errorf("draws = %d, want 2", got)
	}
	st := d.Stats()
	if st.Draws != 1 || st.Instances != 2 || st.Culled != 1 {
		t.Errorf("stats = %+v", st)
	}
	if got := ctx.Calls(nullgpu.OpDrawMesh)[1].World.Translation(); got != (math.Vec3{X: 500}) {
		t.Errorf("second instance at %v", got)
	}
}

func TestDrawerSmallVobRadius(t *testing.T) {
	sf := &SceneFile{Objects: []ObjectDef{
		{Name: "pebble", Position: [3]float32{1000, 0, 0}, Size: [3]float32{60, 60, 60}},
		{Name: "house", Position: [3]float32{1000, 0, 0}, Size: [3]float32{400, 400, 400}},
	}}
	d, ctx, lighting := newTestDrawer(t, sf, nil)
	lighting.OutdoorSmallVobDrawRadius = 200

	d.DrawWorldAround(ctx, math.Vec3{}, 5000, shadow.DrawOptions{})
	calls := ctx.Calls(nullgpu.OpDrawMesh)
	if len(calls) != 1 {
		t.Fatalf("draws = %d, want 1", len(calls))
	}
	if calls[0].World[0] != 400 {
		t.Errorf("drew the wrong instance, scale %v", calls[0].World[0])
	}
}

func TestDrawerFilters(t *testing.T) {
	sf := &SceneFile{Objects: []ObjectDef{
		{Name: "wall"},
		{Name: "guard", Kind: KindNPC},
		{Name: "floor", Indoor: true},
	}}
	tests := []struct {
		name string
		opts shadow.DrawOptions
		want int
	}{
		{"all", shadow.DrawOptions{}, 3},
		{"no npcs", shadow.DrawOptions{NoNPCs: true}, 2},
		{"indoor", shadow.DrawOptions{Indoor: true}, 1},
		{"indoor no npcs", shadow.DrawOptions{Indoor: true, NoNPCs: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ctx, _ := newTestDrawer(t, sf, nil)
			d.DrawWorldAround(ctx, math.Vec3{}, 1000, tt.opts)
			if got := ctx.Count(nullgpu.OpDrawMesh); got != tt.want {
				t.Errorf("draws = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDrawerFrustumBatches(t *testing.T) {
	d, ctx, _ := newTestDrawer(t, boxesAlongX(0, 200, 400, 1000, 1200, 1400), nil)

	var f frustum.Frustum
	f.BuildCubemapFace(math.Vec3{}, 500, 0)
	d.DrawWorldAround(ctx, math.Vec3{}, 10000, shadow.DrawOptions{Pass: shadow.PassCubeFace, Frustum: &f})

	if got := ctx.Count(nullgpu.OpDrawMesh); got != 3 {
		t.Errorf("draws = %d, want 3", got)
	}
	if st := d.Stats(); st.Culled != 3 {
		t.Errorf("culled = %d, want 3", st.Culled)
	}
}

func TestDrawerLockAndCull(t *testing.T) {
	lock := &countingLock{}
	d, ctx, _ := newTestDrawer(t, boxesAlongX(0), lock)

	d.DrawWorldAround(ctx, math.Vec3{}, 100, shadow.DrawOptions{})
	if ctx.RasterState().Cull != gpu.CullBack {
		t.Error("raster state changed without NoCull")
	}
	d.DrawWorldAround(ctx, math.Vec3{}, 100, shadow.DrawOptions{NoCull: true})
	if ctx.RasterState().Cull != gpu.CullNone {
		t.Error("NoCull did not disable culling")
	}
	if lock.locks != 2 || lock.unlocks != 2 {
		t.Errorf("lock %d/%d, want 2/2", lock.locks, lock.unlocks)
	}

	d.ResetStats()
	if d.Stats() != (DrawerStats{}) {
		t.Error("ResetStats kept counters")
	}
}

func TestDrawerRelease(t *testing.T) {
	s, err := FromFile(boxesAlongX(0))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	lighting := config.DefaultLighting()
	dev := nullgpu.NewDevice(4096)
	d, err := NewDrawer(dev, s, &lighting, nil)
	if err != nil {
		t.Fatalf("NewDrawer: %v", err)
	}
	d.Release()
	if dev.Live() != 0 {
		t.Errorf("%d resources leaked", dev.Live())
	}

	ctx := nullgpu.NewContext(64, 64)
	d.DrawWorldAround(ctx, math.Vec3{}, 100, shadow.DrawOptions{})
	if ctx.Count(nullgpu.OpDrawMesh) != 0 {
		t.Error("released drawer still draws")
	}

	dev.Fail = func(op, label string) error {
		if op == nullgpu.OpMesh {
			return errors.New("boom")
		}
		return nil
	}
	if _, err := NewDrawer(dev, s, &lighting, nil); err == nil {
		t.Error("expected mesh failure")
	}
}

func TestUnitBox(t *testing.T) {
	positions, indices := UnitBox()
	if len(positions) != 8 || len(indices) != 36 {
		t.Fatalf("%d positions, %d indices", len(positions), len(indices))
	}
	for _, i := range indices {
		if int(i) >= len(positions) {
			t.Fatalf("index %d out of range", i)
		}
	}
}
