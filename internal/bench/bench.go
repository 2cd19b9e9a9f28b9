// Package bench runs the lighting pipeline headless on the recording
// device and sums up what it did.
package bench

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/gpu/nullgpu"
	"github.com/Faultbox/umbra/internal/engine/lighting"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/internal/world"
)

// Options configures a run.
type Options struct {
	Config *config.Config
	Scene  *world.Scene
	Frames int
	// FrameTime is the simulated seconds per frame.
	FrameTime float32
	// MaxTextureSize and Features describe the simulated device.
	MaxTextureSize int
	Features       gpu.Features
}

// Report sums the frame statistics of a run.
type Report struct {
	Frames           int
	Lights           int
	Instances        int
	LightsDrawn      int
	CubeRenders      int
	ImportantUpdates int
	BudgetedUpdates  int
	CubeFailures     int
	MaxQueue         int
	CascadesRendered int
	CascadeClears    int
	RainFrames       int
	WorldDraws       int
	Commands         int
	Leaked           int
	Elapsed          time.Duration
}

// Fields returns the report as log fields.
func (r Report) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("frames", r.Frames),
		zap.Int("lights", r.Lights),
		zap.Int("instances", r.Instances),
		zap.Int("lights_drawn", r.LightsDrawn),
		zap.Int("cube_renders", r.CubeRenders),
		zap.Int("important_updates", r.ImportantUpdates),
		zap.Int("budgeted_updates", r.BudgetedUpdates),
		zap.Int("cube_failures", r.CubeFailures),
		zap.Int("max_queue", r.MaxQueue),
		zap.Int("cascades_rendered", r.CascadesRendered),
		zap.Int("cascade_clears", r.CascadeClears),
		zap.Int("rain_frames", r.RainFrames),
		zap.Int("world_draws", r.WorldDraws),
		zap.Int("commands", r.Commands),
		zap.Int("leaked", r.Leaked),
		zap.Duration("elapsed", r.Elapsed),
	}
}

// Run renders o.Frames frames of the scene.
func Run(o Options) (Report, error) {
	if o.Config == nil || o.Scene == nil {
		return Report{}, errors.New("bench needs a config and a scene")
	}
	if o.Frames <= 0 {
		o.Frames = 1
	}
	if o.FrameTime <= 0 {
		o.FrameTime = 1.0 / 60
	}
	if o.MaxTextureSize <= 0 {
		o.MaxTextureSize = 16384
	}
	log := logger.Named("bench")

	width, height := o.Config.Graphics.Width, o.Config.Graphics.Height
	aspect := float32(width) / float32(max(height, 1))

	dev := nullgpu.NewDevice(o.MaxTextureSize)
	dev.Feats = o.Features
	ctx := nullgpu.NewContext(width, height)
	cams := camera.NewStack(o.Scene.CameraState(aspect))

	drawer, err := world.NewDrawer(dev, o.Scene, &o.Config.Lighting, nil)
	if err != nil {
		return Report{}, fmt.Errorf("creating world drawer: %w", err)
	}
	defer drawer.Release()

	pipeline, err := lighting.NewPipeline(lighting.PipelineOptions{
		Device:   dev,
		Context:  ctx,
		Shaders:  nullgpu.NewLibrary(),
		Drawer:   drawer,
		Camera:   cams,
		Shadows:  &o.Config.Shadows,
		Lighting: &o.Config.Lighting,
	})
	if err != nil {
		return Report{}, fmt.Errorf("creating pipeline: %w", err)
	}

	r := Report{
		Frames:    o.Frames,
		Lights:    len(o.Scene.Lights),
		Instances: len(o.Scene.Instances),
	}
	start := time.Now()
	for i := 0; i < o.Frames; i++ {
		o.Scene.Update(o.FrameTime)
		frame := o.Scene.Frame(o.Scene.CameraState(aspect), width, height)

		ctx.Reset()
		if err := pipeline.RenderFrame(frame); err != nil {
			pipeline.Release(o.Scene.Lights)
			return r, fmt.Errorf("frame %d: %w", i, err)
		}
		r.Commands += len(ctx.Calls())

		st := pipeline.Stats()
		r.LightsDrawn += st.LightsDrawn
		r.CubeRenders += st.CubeRenders
		r.ImportantUpdates += st.ImportantUpdates
		r.BudgetedUpdates += st.BudgetedUpdates
		r.CubeFailures += st.CubeFailures
		r.MaxQueue = max(r.MaxQueue, st.QueueLength)
		r.CascadesRendered += st.CascadesRendered
		r.CascadeClears += st.CascadeClears
		if st.RainRendered {
			r.RainFrames++
		}
		log.Debug("frame",
			zap.Uint64("frame", st.Frame),
			zap.Int("lights_drawn", st.LightsDrawn),
			zap.Int("cube_renders", st.CubeRenders),
			zap.Int("queue", st.QueueLength),
			zap.Int("cascades", st.CascadesRendered),
		)
	}
	r.Elapsed = time.Since(start)
	r.WorldDraws = drawer.Stats().Draws

	pipeline.Release(o.Scene.Lights)
	drawer.Release()
	r.Leaked = dev.Live()
	return r, nil
}
