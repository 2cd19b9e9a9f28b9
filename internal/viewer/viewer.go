// Package viewer implements the interactive loop: it draws a scene into the
// G-buffer and lights it with the shadow pipeline. With the panel enabled the
// ImGui backend owns the window and the lit image is shown behind the stats
// and settings windows; otherwise a plain SDL window presents it.
package viewer

import (
	"fmt"
	gomath "math"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/debug"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/gpu/glgpu"
	"github.com/Faultbox/umbra/internal/engine/input"
	"github.com/Faultbox/umbra/internal/engine/lighting"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/internal/engine/ui"
	"github.com/Faultbox/umbra/internal/engine/window"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/internal/world"
)

// Shaders of the geometry pass.
const (
	vsScene = "VS_Ex"
	psScene = glgpu.PSGBuffer
)

// Viewer is the interactive viewer instance.
type Viewer struct {
	cfg     *config.Config
	scene   *world.Scene
	running bool

	window   *window.Window // plain front end
	ui       *ui.Backend    // panel front end
	panel    *panel
	input    *input.Input
	orbit    *camera.OrbitCamera
	device   *glgpu.Device
	ctx      *glgpu.Context
	shaders  *glgpu.Library
	gbuf     *glgpu.GBuffer
	drawer   *world.Drawer
	pipeline *lighting.Pipeline
	toggles  toggles
	shots    *debug.Screenshots

	width, height int
	last          time.Time
	frames        int
	fpsTimer      time.Time
	log           *zap.Logger
}

// New opens the window and creates every renderer.
func New(cfg *config.Config, scene *world.Scene) (*Viewer, error) {
	v := &Viewer{
		cfg:   cfg,
		scene: scene,
		log:   logger.Named("viewer"),
	}
	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("scene", scene.Name),
	)

	var err error
	if cfg.Graphics.Panel {
		v.ui, err = ui.NewBackend("Umbra", cfg.Graphics.Width, cfg.Graphics.Height)
		if err == nil {
			v.ui.OnClose(v.release)
		}
		v.panel = newPanel()
	} else {
		v.window, err = window.New(window.FromGraphics("Umbra", cfg.Graphics))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	if err := v.init(); err != nil {
		v.Close()
		return nil, err
	}

	v.input = input.New()
	v.shots = debug.NewScreenshots("screenshots", "umbra")
	v.orbit = camera.NewOrbitCamera()
	v.orbit.FovY = scene.Camera.FovY * gomath.Pi / 180
	v.orbit.Near = scene.Camera.Near
	v.orbit.Far = scene.Camera.Far
	st := scene.CameraState(1)
	v.orbit.LookFrom(st.Position, st.LookAt)

	v.log.Info("viewer initialized")
	return v, nil
}

// init creates the GPU side once the GL context exists.
func (v *Viewer) init() error {
	var err error
	if v.device, err = glgpu.Init(); err != nil {
		return fmt.Errorf("failed to init OpenGL: %w", err)
	}
	v.width, v.height = v.drawableSize()
	v.ctx = glgpu.NewContext(v.device, v.width, v.height)
	v.ctx.MapSampler(gpu.StagePixel, lighting.SlotShadowSampler, lighting.SlotCascades)
	v.shaders = glgpu.NewLibrary()

	if v.gbuf, err = glgpu.NewGBuffer(v.device, v.width, v.height); err != nil {
		return fmt.Errorf("failed to create gbuffer: %w", err)
	}
	if v.drawer, err = world.NewDrawer(v.device, v.scene, &v.cfg.Lighting, nil); err != nil {
		return fmt.Errorf("failed to create world drawer: %w", err)
	}

	aspect := float32(v.width) / float32(max(v.height, 1))
	v.pipeline, err = lighting.NewPipeline(lighting.PipelineOptions{
		Device:   v.device,
		Context:  v.ctx,
		Shaders:  v.shaders,
		Drawer:   v.drawer,
		Camera:   camera.NewStack(v.scene.CameraState(aspect)),
		Shadows:  &v.cfg.Shadows,
		Lighting: &v.cfg.Lighting,
	})
	if err != nil {
		return fmt.Errorf("failed to create lighting pipeline: %w", err)
	}
	return nil
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true
	v.last = time.Now()
	v.fpsTimer = v.last

	v.log.Info("starting viewer loop", zap.Bool("panel", v.ui != nil))
	if v.ui != nil {
		var err error
		v.ui.Run(func() bool {
			if err = v.frame(); err != nil {
				return false
			}
			return v.running
		})
		return err
	}

	for v.running {
		if err := v.frame(); err != nil {
			return err
		}
		if v.running {
			v.window.SwapBuffers()
		}
	}
	return nil
}

// frame runs one iteration: input, settings, simulation and rendering.
func (v *Viewer) frame() error {
	now := time.Now()
	dt := now.Sub(v.last)
	v.last = now

	var quit bool
	if v.ui != nil {
		quit = v.input.UpdateFromUI()
	} else {
		quit = v.input.Update()
	}
	if quit {
		v.running = false
		return nil
	}
	if err := v.resize(); err != nil {
		return err
	}
	v.input.DriveCamera(v.orbit)

	actions := v.input.Actions()
	if v.panel != nil {
		// Submitted first so it stays behind the panel windows.
		ui.DrawBackground(v.gbuf.HDRTexture())
		actions = append(actions, v.panel.render(v.cfg, v.scene, &v.toggles, v.log)...)
		for _, a := range actions {
			if a == input.ActionTogglePanel {
				v.panel.visible = !v.panel.visible
			}
		}
		if status := saveSettings(actions, v.cfg.Save, v.log); status != "" {
			v.panel.status = status
		}
	}
	v.toggles.apply(actions, v.cfg, v.scene, v.log)

	v.scene.Update(float32(dt.Seconds()))
	if err := v.render(); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	if v.panel != nil {
		v.panel.update(float64(dt.Microseconds())/1000, v)
	} else {
		v.gbuf.Present(v.width, v.height)
	}
	v.capture(actions)

	v.frames++
	if time.Since(v.fpsTimer) >= time.Second {
		st := v.pipeline.Stats()
		v.log.Debug("fps",
			zap.Int("count", v.frames),
			zap.Int("lights_drawn", st.LightsDrawn),
			zap.Int("cube_renders", st.CubeRenders),
			zap.Int("queue", st.QueueLength),
		)
		if v.ui != nil {
			v.ui.SetWindowTitle(fmt.Sprintf("Umbra - %s (%d fps)", v.scene.Name, v.frames))
		}
		v.frames = 0
		v.fpsTimer = time.Now()
	}
	return nil
}

// drawableSize returns the framebuffer size of whichever front end is open.
// Before the first ImGui frame the display size is unknown and the
// configured size stands in.
func (v *Viewer) drawableSize() (int, int) {
	if v.window != nil {
		return v.window.DrawableSize()
	}
	w, h := ui.DrawableSize()
	if w <= 0 || h <= 0 {
		return v.cfg.Graphics.Width, v.cfg.Graphics.Height
	}
	return w, h
}

func (v *Viewer) resize() error {
	w, h := v.drawableSize()
	if w == v.width && h == v.height || w == 0 || h == 0 {
		return nil
	}
	v.width, v.height = w, h
	v.ctx.SetViewport(gpu.Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1})
	if err := v.gbuf.Resize(w, h); err != nil {
		return err
	}
	v.log.Debug("resized", zap.Int("width", w), zap.Int("height", h))
	return nil
}

// render draws the geometry pass, then lights it into the HDR target.
func (v *Viewer) render() error {
	cam := v.orbit.State(float32(v.width) / float32(v.height))

	v.ctx.BeginEvent("Geometry")
	v.gbuf.Begin(v.ctx)
	v.ctx.SetViewport(gpu.Viewport{Width: float32(v.width), Height: float32(v.height), MaxDepth: 1})
	v.ctx.SetDepthState(gpu.DefaultDepthState())
	v.ctx.SetBlendState(gpu.OpaqueBlendState())
	v.ctx.SetShaders(gpu.ShaderSet{
		Vertex: v.shaders.Shader(gpu.StageVertex, vsScene),
		Pixel:  v.shaders.Shader(gpu.StagePixel, psScene),
	})
	if err := v.ctx.UpdateConstants(gpu.StageVertex, 0, &shadow.PassConstants{ViewProj: cam.ViewProjection()}); err != nil {
		v.ctx.EndEvent()
		return err
	}
	v.drawer.DrawWorldAround(v.ctx, cam.Position, cam.Far, shadow.DrawOptions{
		Pass:   shadow.PassScene,
		Indoor: v.scene.Indoor,
		Camera: cam,
	})
	v.ctx.EndEvent()

	v.gbuf.CopyDepth()

	frame := v.scene.Frame(cam, v.width, v.height)
	frame.Player = v.orbit.Center
	frame.Targets = lighting.GBuffer{
		Diffuse:   v.gbuf.Diffuse,
		Normals:   v.gbuf.Normals,
		DepthCopy: v.gbuf.DepthCopy,
		HDR:       v.gbuf.HDR,
		Depth:     v.gbuf.Depth,
	}
	return v.pipeline.RenderFrame(frame)
}

// capture writes the lit frame or the cascade depth maps.
func (v *Viewer) capture(actions []input.Action) {
	for _, a := range actions {
		switch a {
		case input.ActionScreenshot:
			pixels, w, h, err := v.gbuf.ReadLit()
			if err != nil {
				v.log.Warn("reading lit image failed", zap.Error(err))
				continue
			}
			name, err := v.shots.CaptureRGBA(pixels, w, h)
			if err != nil {
				v.log.Warn("screenshot failed", zap.Error(err))
				continue
			}
			v.log.Info("screenshot saved", zap.String("file", name))

		case input.ActionDumpCascades:
			buf := v.pipeline.Cascades().Buffer()
			for i := 0; i < buf.NumCascades(); i++ {
				depth, w, h, err := glgpu.ReadDepth(buf.CascadeDepthView(i))
				if err != nil {
					v.log.Warn("reading cascade failed", zap.Int("cascade", i), zap.Error(err))
					continue
				}
				name, err := v.shots.CaptureDepth(depth, w, h, 0, 1)
				if err != nil {
					v.log.Warn("cascade dump failed", zap.Int("cascade", i), zap.Error(err))
					continue
				}
				v.log.Info("cascade saved", zap.Int("cascade", i), zap.String("file", name))
			}
		}
	}
}

// Close releases every resource and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	v.release()
	if v.window != nil {
		v.window.Close()
		v.window = nil
	}
}

// release frees the GPU side. Under the ImGui backend it runs from the
// backend's teardown, while the GL context is still current.
func (v *Viewer) release() {
	if v.pipeline != nil {
		v.pipeline.Release(v.scene.Lights)
		v.pipeline = nil
	}
	if v.drawer != nil {
		v.drawer.Release()
		v.drawer = nil
	}
	if v.gbuf != nil {
		v.gbuf.Release()
		v.gbuf = nil
	}
	if v.shaders != nil {
		v.shaders.Release()
		v.shaders = nil
	}
	if v.ctx != nil {
		v.ctx.Release()
		v.ctx = nil
	}
}
