package world

import (
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/umbra/internal/engine/lighting"
	"github.com/Faultbox/umbra/pkg/math"
)

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-3
}

func TestDemoScene(t *testing.T) {
	s, err := Demo()
	if err != nil {
		t.Fatalf("Demo: %v", err)
	}
	if s.Name != "NEWWORLD" {
		t.Errorf("Name = %q", s.Name)
	}
	if len(s.Instances) != 11 || len(s.Lights) != 6 {
		t.Fatalf("instances %d, lights %d", len(s.Instances), len(s.Lights))
	}

	npcs := 0
	for _, inst := range s.Instances {
		if inst.NPC {
			npcs++
		}
	}
	if npcs != 2 {
		t.Errorf("npcs = %d, want 2", npcs)
	}

	byName := make(map[string]*lighting.PointLight)
	for _, l := range s.Lights {
		byName[l.Name] = l
	}
	if !byName["lantern"].Dynamic {
		t.Error("orbiting lantern should be dynamic")
	}
	if !byName["tower-candle"].Indoor {
		t.Error("tower candle should be indoor")
	}
	if !byName["campfire"].UpdateShadows || byName["window-glow"].UpdateShadows {
		t.Error("shadow flags not carried over")
	}
}

func TestInstanceSizeClass(t *testing.T) {
	s, err := Demo()
	if err != nil {
		t.Fatalf("Demo: %v", err)
	}
	tests := []struct {
		name  string
		small bool
	}{
		{"ground", false},
		{"tower", false},
		{"barrel-a", true},
		{"crate", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, inst := range s.Instances {
				if inst.Name == tt.name {
					if inst.Small != tt.small {
						t.Errorf("Small = %v, want %v (radius %v)", inst.Small, tt.small, inst.Radius)
					}
					return
				}
			}
			t.Fatalf("instance %s not found", tt.name)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no objects", "world: EMPTY\n"},
		{"unknown kind", "objects:\n  - {name: x, kind: tree}\n"},
		{"negative size", "objects:\n  - {name: x, size: [10, -1, 10]}\n"},
		{"bad yaml", "objects: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte("objects:\n  - {name: box, position: [10, 20, 30]}\nlights:\n  - {name: l}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Camera.FovY != 60 || s.Camera.Near != 1 || s.Camera.Far != 40000 {
		t.Errorf("camera defaults = %+v", s.Camera)
	}
	inst := s.Instances[0]
	if !near(inst.Radius, 86.6025) {
		t.Errorf("Radius = %v", inst.Radius)
	}
	if got := inst.World.Translation(); got != (math.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Errorf("translation = %v", got)
	}
	if s.Lights[0].Range != lighting.DefaultLightRange {
		t.Errorf("light range = %v", s.Lights[0].Range)
	}
}

func TestSceneUpdate(t *testing.T) {
	s, err := Parse([]byte(`
sun: {longitude: 10, latitude: 45, speed: 2}
objects:
  - {name: box}
lights:
  - {name: orbiting, position: [0, 50, 0], range: 200, orbit: 100}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l := s.Lights[0]
	if p := l.Position; !near(p.X, 100) || !near(p.Y, 50) || !near(p.Z, 0) {
		t.Errorf("initial position = %v", p)
	}

	s.Update(gomath.Pi / 2)
	if p := l.Position; !near(p.X, 0) || !near(p.Z, 100) {
		t.Errorf("position after a quarter turn = %v", p)
	}
	if want := 10 + 2*float32(gomath.Pi/2); !near(s.Sun.Longitude, want) {
		t.Errorf("sun longitude = %v, want %v", s.Sun.Longitude, want)
	}
}

func TestSceneFrame(t *testing.T) {
	s, err := Parse([]byte(`
world: OLDWORLD
indoor: true
wetness: 0.4
rain_weight: 0.2
player: [1, 2, 3]
sun: {longitude: 0, latitude: 90}
camera: {position: [0, 0, 0], target: [0, 0, 0]}
objects:
  - {name: box}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cam := s.CameraState(16.0 / 9.0)
	if cam.Position == cam.LookAt {
		t.Fatal("camera position should move off a coincident target")
	}

	f := s.Frame(cam, 1920, 1080)
	if f.World != "OLDWORLD" || !f.Indoor || f.Wetness != 0.4 || f.RainWeight != 0.2 {
		t.Errorf("frame = %+v", f)
	}
	if f.Player != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Player = %v", f.Player)
	}
	if !near(f.SunDir.Y, 1) {
		t.Errorf("SunDir = %v", f.SunDir)
	}
	if !near(f.Atmosphere.LightPos[1], 1) {
		t.Errorf("atmosphere sun = %v", f.Atmosphere.LightPos)
	}
	if f.Width != 1920 || f.Height != 1080 {
		t.Errorf("size = %dx%d", f.Width, f.Height)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte("world: TEST\nobjects:\n  - {name: box}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "TEST" {
		t.Errorf("Name = %q", s.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadOrDemo(t *testing.T) {
	s, demo, err := LoadOrDemo(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDemo(missing): %v", err)
	}
	if !demo || s == nil {
		t.Errorf("missing file: demo = %v, scene = %v", demo, s)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("objects: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadOrDemo(bad); err == nil {
		t.Error("LoadOrDemo(bad) succeeded")
	}
}
