// Package world loads the YAML scene files the tools render and draws their
// geometry for the shadow passes.
package world

import (
	"errors"
	"fmt"
	gomath "math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/lighting"
	"github.com/Faultbox/umbra/pkg/math"
)

// Object kinds of a scene file.
const (
	KindBox = "box"
	KindNPC = "npc"
)

// Small objects are culled with the small vob draw radius.
const smallObjectRadius = 150

var errNoObjects = errors.New("scene has no objects")

// --- YAML types ---

// SceneFile is the on-disk scene description.
type SceneFile struct {
	World      string      `yaml:"world"`
	Indoor     bool        `yaml:"indoor"`
	Wetness    float32     `yaml:"wetness"`
	RainWeight float32     `yaml:"rain_weight"`
	Sun        SunDef      `yaml:"sun"`
	Camera     CameraDef   `yaml:"camera"`
	Player     [3]float32  `yaml:"player"`
	Objects    []ObjectDef `yaml:"objects"`
	Lights     []LightDef  `yaml:"lights"`
}

// SunDef places the sun in degrees. Speed is degrees of longitude per second.
type SunDef struct {
	Longitude float32 `yaml:"longitude"`
	Latitude  float32 `yaml:"latitude"`
	Speed     float32 `yaml:"speed"`
}

// CameraDef is the initial camera.
type CameraDef struct {
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	FovY     float32    `yaml:"fov_y"` // degrees
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

// ObjectDef is a box shaped world object.
type ObjectDef struct {
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Position [3]float32 `yaml:"position"`
	Size     [3]float32 `yaml:"size"`
	Indoor   bool       `yaml:"indoor"`
}

// LightDef is a point light. Orbit makes the light circle its position at
// the given radius, which marks it dynamic.
type LightDef struct {
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position"`
	Color    [3]float32 `yaml:"color"`
	Range    float32    `yaml:"range"`
	Shadows  bool       `yaml:"shadows"`
	Indoor   bool       `yaml:"indoor"`
	Orbit    float32    `yaml:"orbit"`
}

// Instance is a placed object.
type Instance struct {
	Name   string
	NPC    bool
	Indoor bool
	Small  bool
	Center math.Vec3
	Radius float32
	World  math.Mat4
}

type orbit struct {
	light  *lighting.PointLight
	center math.Vec3
	radius float32
	phase  float32
}

// Scene is a loaded scene ready to feed the lighting pipeline.
type Scene struct {
	Name       string
	Indoor     bool
	Wetness    float32
	RainWeight float32
	Sun        SunDef
	Camera     CameraDef
	Player     math.Vec3
	Instances  []Instance
	Lights     []*lighting.PointLight

	orbits []orbit
	time   float32
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene from YAML.
func Parse(data []byte) (*Scene, error) {
	var sf SceneFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, err
	}
	return FromFile(&sf)
}

// FromFile builds a scene from its description.
func FromFile(sf *SceneFile) (*Scene, error) {
	if len(sf.Objects) == 0 {
		return nil, errNoObjects
	}

	s := &Scene{
		Name:       sf.World,
		Indoor:     sf.Indoor,
		Wetness:    sf.Wetness,
		RainWeight: sf.RainWeight,
		Sun:        sf.Sun,
		Camera:     sf.Camera,
		Player:     math.V3(sf.Player),
	}
	if s.Camera.FovY <= 0 {
		s.Camera.FovY = 60
	}
	if s.Camera.Near <= 0 {
		s.Camera.Near = 1
	}
	if s.Camera.Far <= s.Camera.Near {
		s.Camera.Far = 40000
	}

	for i, o := range sf.Objects {
		switch o.Kind {
		case "", KindBox, KindNPC:
		default:
			return nil, fmt.Errorf("object %d (%s): unknown kind %q", i, o.Name, o.Kind)
		}
		size := math.V3(o.Size)
		if size == (math.Vec3{}) {
			size = math.Vec3{X: 100, Y: 100, Z: 100}
		}
		if size.X < 0 || size.Y < 0 || size.Z < 0 {
			return nil, fmt.Errorf("object %d (%s): negative size", i, o.Name)
		}
		pos := math.V3(o.Position)
		radius := size.Scale(0.5).Length()
		s.Instances = append(s.Instances, Instance{
			Name:   o.Name,
			NPC:    o.Kind == KindNPC,
			Indoor: o.Indoor,
			Small:  radius < smallObjectRadius,
			Center: pos,
			Radius: radius,
			World:  math.Translate(pos.X, pos.Y, pos.Z).Mul(math.Scale(size.X, size.Y, size.Z)),
		})
	}

	for _, d := range sf.Lights {
		l := lighting.NewPointLight(d.Name, math.V3(d.Position), d.Color, d.Range, d.Shadows)
		l.Indoor = d.Indoor
		if d.Orbit > 0 {
			l.Dynamic = true
			s.orbits = append(s.orbits, orbit{light: l, center: l.Position, radius: d.Orbit, phase: float32(len(s.orbits))})
		}
		s.Lights = append(s.Lights, l)
	}
	s.Update(0)
	return s, nil
}

// Update advances the sun and the orbiting lights by dt seconds.
func (s *Scene) Update(dt float32) {
	s.time += dt
	s.Sun.Longitude += s.Sun.Speed * dt
	for _, o := range s.orbits {
		a := float64(s.time + o.phase)
		o.light.MoveTo(o.center.Add(math.Vec3{
			X: o.radius * float32(gomath.Cos(a)),
			Z: o.radius * float32(gomath.Sin(a)),
		}))
	}
}

// SunDirection returns the direction towards the sun.
func (s *Scene) SunDirection() math.Vec3 {
	return lighting.SunDirection(s.Sun.Longitude, s.Sun.Latitude)
}

// CameraState returns the scene camera for a viewport aspect ratio.
func (s *Scene) CameraState(aspect float32) camera.State {
	pos, target := math.V3(s.Camera.Position), math.V3(s.Camera.Target)
	if pos == target {
		pos = target.Add(math.Vec3{Y: 500, Z: 1000})
	}
	return camera.State{
		Position:   pos,
		LookAt:     target,
		View:       math.LookAt(pos, target, math.Vec3{Y: 1}),
		Projection: math.Perspective(s.Camera.FovY*gomath.Pi/180, aspect, s.Camera.Near, s.Camera.Far),
		Near:       s.Camera.Near,
		Far:        s.Camera.Far,
	}
}

// Frame fills a lighting frame from the scene and a camera.
func (s *Scene) Frame(cam camera.State, width, height int) *lighting.Frame {
	sun := s.SunDirection()
	return &lighting.Frame{
		Camera:     cam,
		Player:     s.Player,
		SunDir:     sun,
		Indoor:     s.Indoor,
		Wetness:    s.Wetness,
		RainWeight: s.RainWeight,
		World:      s.Name,
		Width:      width,
		Height:     height,
		Atmosphere: lighting.DefaultAtmosphere(sun),
		Lights:     s.Lights,
	}
}
