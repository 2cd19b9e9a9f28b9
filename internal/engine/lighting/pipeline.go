package lighting

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

// Frame is what the host provides every frame.
type Frame struct {
	Camera     camera.State // the real camera
	Player     math.Vec3
	SunDir     math.Vec3 // toward the sun
	Indoor     bool
	Wetness    float32
	RainWeight float32
	World      string

	Width, Height int

	Atmosphere AtmosphereConstants
	Lights     []*PointLight
	Targets    GBuffer
}

// FrameStats are the counters of one RenderFrame.
type FrameStats struct {
	Frame            uint64
	LightsDrawn      int
	LightsSkipped    int
	ImportantUpdates int
	BudgetedUpdates  int
	CubeRenders      int
	CubeFailures     int
	QueueLength      int
	CascadesRendered int
	CascadeClears    int
	RainRendered     bool
}

// PipelineOptions are the collaborators of a Pipeline.
type PipelineOptions struct {
	Device   gpu.Device
	Context  gpu.Context
	Shaders  gpu.ShaderLibrary
	Drawer   shadow.WorldDrawer
	Camera   *camera.Stack
	Shadows  *config.ShadowConfig
	Lighting *config.LightingConfig
}

// Pipeline runs the lighting of a frame: point light cube updates, sun
// cascades, the rain map and finally the deferred pass.
type Pipeline struct {
	ctx       gpu.Context
	cams      *camera.Stack
	shadows   *config.ShadowConfig
	lighting  *config.LightingConfig
	cascades  *shadow.CascadeRenderer
	scheduler *Scheduler
	deferred  *DeferredPass
	rain      RainShadow
	stats     FrameStats
	log       *zap.Logger
}

// NewPipeline creates every renderer. Only a failure to create the cascade
// buffer is fatal; the rain map and the light volume degrade with a warning.
func NewPipeline(o PipelineOptions) (*Pipeline, error) {
	cascades, err := shadow.NewCascadeRenderer(shadow.RendererOptions{
		Device:   o.Device,
		Context:  o.Context,
		Shaders:  o.Shaders,
		Drawer:   o.Drawer,
		Camera:   o.Camera,
		Shadows:  o.Shadows,
		Lighting: o.Lighting,
	})
	if err != nil {
		return nil, fmt.Errorf("creating shadow renderer: %w", err)
	}

	p := &Pipeline{
		ctx:      o.Context,
		cams:     o.Camera,
		shadows:  o.Shadows,
		lighting: o.Lighting,
		cascades: cascades,
		deferred: NewDeferredPass(o.Device, o.Context, o.Shaders, o.Shadows, o.Lighting),
		log:      logger.Named("lighting"),
	}
	p.scheduler = NewScheduler(o.Shadows, func(l *PointLight) (*shadow.PointCube, error) {
		return shadow.NewPointCube(o.Device, cascades, shadow.PointCubeSize)
	})

	if o.Shadows.RainShadows {
		rain, err := NewRainMap(o.Device, cascades, o.Shadows.RainMapSize)
		if err != nil {
			p.log.Warn("rain shadows disabled", zap.Error(err))
		} else {
			p.rain = rain
		}
	}
	return p, nil
}

// SetRainShadow replaces the rain map. nil disables rain shadows.
func (p *Pipeline) SetRainShadow(r RainShadow) {
	if p.rain != nil {
		p.rain.Release()
	}
	p.rain = r
}

// Cascades returns the sun shadow renderer.
func (p *Pipeline) Cascades() *shadow.CascadeRenderer { return p.cascades }

// Scheduler returns the point light shadow scheduler.
func (p *Pipeline) Scheduler() *Scheduler { return p.scheduler }

// Stats returns the counters of the last RenderFrame.
func (p *Pipeline) Stats() FrameStats { return p.stats }

// Forget releases the shadow resources of a light leaving the world.
func (p *Pipeline) Forget(l *PointLight) { p.scheduler.Forget(l) }

// RenderFrame renders the lighting of f. The cube updates run first, then
// the cascades, the rain map and the deferred pass.
func (p *Pipeline) RenderFrame(f *Frame) error {
	p.cams.SetBase(f.Camera)
	p.cascades.ResetStats()

	p.scheduler.Update(f.Lights, f.Player)

	if err := p.cascades.RenderCascades(shadow.SceneState{
		CameraPosition: f.Camera.Position,
		Near:           f.Camera.Near,
		Far:            f.Camera.Far,
		SunDir:         f.SunDir,
		Outdoor:        !f.Indoor,
	}); err != nil {
		return fmt.Errorf("rendering cascades: %w", err)
	}

	rainDrawn := false
	if p.rain != nil && f.Wetness > WetnessThreshold {
		p.rain.Render(f)
		rainDrawn = true
	}

	p.cams.SetFar(p.lighting.SectionDrawRadius * shadow.WorldSectionSize)
	p.deferred.Draw(f, p.cascades, p.rain)

	ss := p.scheduler.Stats()
	cs := p.cascades.Stats()
	ds := p.deferred.Stats()
	p.stats = FrameStats{
		Frame:            p.scheduler.Frame(),
		LightsDrawn:      ds.LightsDrawn,
		LightsSkipped:    ds.LightsSkipped,
		ImportantUpdates: ss.Important,
		BudgetedUpdates:  ss.Budgeted,
		CubeRenders:      cs.CubeRenders,
		CubeFailures:     ss.CubeFailures,
		QueueLength:      ss.QueueLength,
		CascadesRendered: cs.CascadesRendered,
		CascadeClears:    cs.CascadeClears,
		RainRendered:     rainDrawn,
	}
	return nil
}

// Release frees every resource, including the cubes of lights.
func (p *Pipeline) Release(lights []*PointLight) {
	for _, l := range lights {
		p.scheduler.Forget(l)
	}
	if p.rain != nil {
		p.rain.Release()
		p.rain = nil
	}
	p.deferred.Release()
	p.cascades.Release()
}
