package shadow

import (
	"errors"
	"testing"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/frustum"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/gpu/nullgpu"
	"github.com/Faultbox/umbra/pkg/math"
)

type drawRecord struct {
	center      math.Vec3
	radius      float32
	opts        DrawOptions
	vobRadius   float32
	smallRadius float32
	camDepth    int
	viewport    gpu.Viewport
	depthTarget gpu.DepthView
}

type recordingDrawer struct {
	lighting *config.LightingConfig
	cams     *camera.Stack
	ctx      *nullgpu.Context
	draws    []drawRecord
}

func (d *recordingDrawer) DrawWorldAround(ctx gpu.Context, center math.Vec3, radius float32, opts DrawOptions) {
	_, target := d.ctx.Targets()
	d.draws = append(d.draws, drawRecord{
		center:      center,
		radius:      radius,
		opts:        opts,
		vobRadius:   d.lighting.OutdoorVobDrawRadius,
		smallRadius: d.lighting.OutdoorSmallVobDrawRadius,
		camDepth:    d.cams.Depth(),
		viewport:    ctx.Viewport(),
		depthTarget: target,
	})
}

type rendererFixture struct {
	dev      *nullgpu.Device
	ctx      *nullgpu.Context
	drawer   *recordingDrawer
	cams     *camera.Stack
	shadows  *config.ShadowConfig
	lighting *config.LightingConfig
	r        *CascadeRenderer
}

func newRendererFixture(t *testing.T, feats gpu.Features, missing ...string) *rendererFixture {
	t.Helper()
	shadows := config.DefaultShadows()
	lighting := config.DefaultLighting()
	f := &rendererFixture{
		dev:      nullgpu.NewDevice(8192),
		ctx:      nullgpu.NewContext(800, 600),
		cams:     camera.NewStack(camera.State{View: math.Identity(), Projection: math.Identity(), Near: 1, Far: 1000}),
		shadows:  &shadows,
		lighting: &lighting,
	}
	f.dev.Feats = feats
	f.drawer = &recordingDrawer{lighting: f.lighting, cams: f.cams, ctx: f.ctx}

	r, err := NewCascadeRenderer(RendererOptions{
		Device:   f.dev,
		Context:  f.ctx,
		Shaders:  nullgpu.NewLibrary(missing...),
		Drawer:   f.drawer,
		Camera:   f.cams,
		Shadows:  f.shadows,
		Lighting: f.lighting,
	})
	if err != nil {
		t.Fatalf("NewCascadeRenderer: %v", err)
	}
	f.r = r
	return f
}

func outdoorScene() SceneState {
	return SceneState{
		CameraPosition: math.Vec3{X: 1000, Y: 200, Z: -500},
		Near:           1,
		Far:            40000,
		SunDir:         math.Vec3{X: 0.3, Y: 0.8, Z: 0.2},
		Outdoor:        true,
	}
}

func depthClears(ctx *nullgpu.Context) []nullgpu.Call {
	return ctx.Calls(nullgpu.OpClearDepth)
}

func TestRenderCascadesOutdoor(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	if err := f.r.RenderCascades(outdoorScene()); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}

	if len(f.drawer.draws) != 3 {
		t.Fatalf("got %d world draws, want 3", len(f.drawer.draws))
	}
	splits := f.r.Splits()
	if len(splits) != 4 || splits[3] != 40000 {
		t.Fatalf("splits = %v", splits)
	}
	cascades := f.r.Cascades()
	for i, d := range f.drawer.draws {
		if d.opts.Pass != PassCascade {
			t.Errorf("draw %d pass = %v", i, d.opts.Pass)
		}
		if d.camDepth != 1 {
			t.Errorf("draw %d camera depth = %d, want 1", i, d.camDepth)
		}
		if d.opts.Camera.View != cascades[i].View {
			t.Errorf("draw %d did not use the cascade camera", i)
		}
		if d.opts.Frustum == nil || d.opts.Frustum.Kind() != frustum.KindOrthographic {
			t.Errorf("draw %d frustum = %v", i, d.opts.Frustum)
		}
		if d.depthTarget != f.r.Buffer().CascadeDepthView(i) {
			t.Errorf("draw %d rendered into the wrong slice", i)
		}
		if d.viewport != gpu.SquareViewport(2048) {
			t.Errorf("draw %d viewport = %+v", i, d.viewport)
		}
		if d.radius != DrawAroundRange {
			t.Errorf("draw %d radius = %v", i, d.radius)
		}
		want := min(float32(30000), splits[i+1]*1.2)
		if d.vobRadius != want {
			t.Errorf("draw %d vob radius = %v, want %v", i, d.vobRadius, want)
		}
		if d.smallRadius > 10000 {
			t.Errorf("draw %d small vob radius = %v raised", i, d.smallRadius)
		}
	}

	if f.lighting.OutdoorVobDrawRadius != 30000 || f.lighting.OutdoorSmallVobDrawRadius != 10000 {
		t.Errorf("draw radii not restored: %v %v", f.lighting.OutdoorVobDrawRadius, f.lighting.OutdoorSmallVobDrawRadius)
	}
	if f.cams.Depth() != 0 {
		t.Errorf("camera stack depth = %d after render", f.cams.Depth())
	}
	if got := f.cams.Base().Far; got != 4*WorldSectionSize {
		t.Errorf("far plane = %v, want %v", got, 4*WorldSectionSize)
	}
	if got := f.ctx.Viewport(); got.Width != 800 || got.Height != 600 {
		t.Errorf("viewport not restored: %+v", got)
	}
	if len(f.ctx.OpenEvents()) != 0 {
		t.Errorf("unbalanced events: %v", f.ctx.OpenEvents())
	}
	clears := depthClears(f.ctx)
	if len(clears) != 3 {
		t.Errorf("got %d depth clears, want 3", len(clears))
	}
	for _, c := range clears {
		if c.Depth != DepthLit {
			t.Errorf("cascade cleared to %v", c.Depth)
		}
	}
	st := f.r.Stats()
	if st.CascadesRendered != 3 || st.WorldDraws != 3 {
		t.Errorf("stats = %+v", st)
	}
	f.r.ResetStats()
	if f.r.Stats() != (Stats{}) {
		t.Error("ResetStats kept counters")
	}
}

func TestRenderCascadesIndoorToOutdoor(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	f.shadows.NumCascades = 2

	indoor := outdoorScene()
	indoor.Outdoor = false
	if err := f.r.RenderCascades(indoor); err != nil {
		t.Fatalf("indoor frame: %v", err)
	}
	if len(f.drawer.draws) != 0 {
		t.Errorf("indoor frame drew %d times", len(f.drawer.draws))
	}
	clears := depthClears(f.ctx)
	if len(clears) != 2 {
		t.Fatalf("outdoor to indoor cleared %d slices, want 2", len(clears))
	}
	for _, c := range clears {
		if c.Depth != DepthShadowed {
			t.Errorf("indoor clear to %v, want %v", c.Depth, DepthShadowed)
		}
	}
	for i, c := range f.r.Cascades() {
		if c.Size != 40000 {
			t.Errorf("indoor cascade %d size = %v, want the far plane", i, c.Size)
		}
	}

	// A second indoor frame does not clear again.
	f.ctx.Reset()
	if err := f.r.RenderCascades(indoor); err != nil {
		t.Fatalf("second indoor frame: %v", err)
	}
	if n := f.ctx.Count(nullgpu.OpClearDepth); n != 0 {
		t.Errorf("second indoor frame cleared %d times", n)
	}

	f.ctx.Reset()
	if err := f.r.RenderCascades(outdoorScene()); err != nil {
		t.Fatalf("outdoor frame: %v", err)
	}
	var before []nullgpu.Call
	for _, c := range f.ctx.Calls(nullgpu.OpClearDepth, nullgpu.OpBeginEvent) {
		if c.Op == nullgpu.OpBeginEvent && c.Name == "Cascade 0" {
			break
		}
		if c.Op == nullgpu.OpClearDepth {
			before = append(before, c)
		}
	}
	if len(before) != 2 {
		t.Fatalf("cleared %d slices before the first cascade, want 2", len(before))
	}
	for i, c := range before {
		if c.Depth != DepthLit || c.Target != f.r.Buffer().CascadeDepthView(i) {
			t.Errorf("transition clear %d: depth %v target %v", i, c.Depth, c.Target)
		}
	}
	if len(f.drawer.draws) != 2 {
		t.Errorf("outdoor frame drew %d cascades, want 2", len(f.drawer.draws))
	}
}

func TestRenderCascadesSkipsGeometry(t *testing.T) {
	tests := []struct {
		name      string
		sunY      float32
		enabled   bool
		geometry  bool
		wantDepth float32
	}{
		{"sun below horizon", -0.5, true, true, DepthShadowed},
		{"shadows disabled", 0.8, false, true, DepthLit},
		{"geometry disabled", 0.8, true, false, DepthLit},
		{"night and disabled", -0.2, false, true, DepthShadowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRendererFixture(t, gpu.Features{})
			f.shadows.Enabled = tt.enabled
			f.shadows.DrawGeometry = tt.geometry
			scene := outdoorScene()
			scene.SunDir.Y = tt.sunY

			if err := f.r.RenderCascades(scene); err != nil {
				t.Fatalf("RenderCascades: %v", err)
			}
			if len(f.drawer.draws) != 0 {
				t.Errorf("drew %d times", len(f.drawer.draws))
			}
			clears := depthClears(f.ctx)
			if len(clears) != 3 {
				t.Fatalf("got %d clears, want 3", len(clears))
			}
			for _, c := range clears {
				if c.Depth != tt.wantDepth {
					t.Errorf("cleared to %v, want %v", c.Depth, tt.wantDepth)
				}
			}
			if f.cams.Depth() != 0 {
				t.Errorf("camera stack depth = %d", f.cams.Depth())
			}
		})
	}
}

func TestRenderCascadesClampsSettings(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	f.shadows.NumCascades = 9
	f.shadows.MapSize = 1024
	if err := f.r.RenderCascades(outdoorScene()); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	if f.shadows.NumCascades != MaxCascades {
		t.Errorf("NumCascades = %d, want %d written back", f.shadows.NumCascades, MaxCascades)
	}
	if f.r.Buffer().Size() != 1024 {
		t.Errorf("buffer size = %d, want 1024", f.r.Buffer().Size())
	}

	f.shadows.NumCascades = 0
	if err := f.r.RenderCascades(outdoorScene()); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	if f.shadows.NumCascades != 1 || f.r.Buffer().NumCascades() != 1 {
		t.Errorf("cascades = %d, buffer = %d, want 1", f.shadows.NumCascades, f.r.Buffer().NumCascades())
	}
	if len(f.r.Cascades()) != 1 || len(f.r.Splits()) != 2 {
		t.Errorf("got %d cascades and %d splits", len(f.r.Cascades()), len(f.r.Splits()))
	}
}

func TestRenderCascadesQuantizesSun(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	scene := outdoorScene()
	scene.SunDir = math.Vec3{X: 0.30001, Y: 0.9}
	if err := f.r.RenderCascades(scene); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	first := f.r.Cascades()[0].View

	scene.SunDir.X = 0.30002
	if err := f.r.RenderCascades(scene); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	if f.r.Cascades()[0].View != first {
		t.Error("sub-quantum sun motion moved the cascade")
	}
}

func TestRenderShadowmapRain(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	tex, err := f.dev.CreateTexture(gpu.TextureDesc{
		Label: "RainShadowMap", Kind: gpu.Texture2D, Width: 1024, Height: 1024,
		Format: gpu.FormatDepth32F, Usage: gpu.UsageDepth | gpu.UsageShader,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	dv, err := f.dev.CreateDepthView(tex, 0)
	if err != nil {
		t.Fatalf("CreateDepthView: %v", err)
	}
	view, eye := LightView(math.Vec3{}, math.Vec3{Y: 1})
	repl := camera.Replacement{View: view, Projection: math.OrthoSized(4000, 4000, 1, 20000), Position: eye}

	// Rain is rendered regardless of the sun.
	f.r.RenderShadowmap(dv, 1024, repl, ShadowmapOptions{Pass: PassRain, ExpandBack: 5000, ExpandSides: 100})
	if len(f.drawer.draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(f.drawer.draws))
	}
	d := f.drawer.draws[0]
	if d.opts.Pass != PassRain || d.opts.Frustum.Kind() != frustum.KindExpandedAABB {
		t.Errorf("rain draw pass %v frustum %v", d.opts.Pass, d.opts.Frustum.Kind())
	}
	if d.vobRadius != 30000 {
		t.Errorf("rain pass lowered the vob radius to %v", d.vobRadius)
	}
	if f.ctx.BoundView(gpu.StagePixel, ArraySlot) != nil {
		t.Error("cascade array still bound while rendering")
	}

	f.r.RenderShadowmap(nil, 1024, repl, ShadowmapOptions{})
	if len(f.drawer.draws) != 1 {
		t.Error("nil target was rendered")
	}
}

func TestRenderShadowCubePaths(t *testing.T) {
	tests := []struct {
		name      string
		feats     gpu.Features
		missing   []string
		wantPass  Pass
		wantDraws int
		wantStage gpu.Stage
		wantColor bool
	}{
		{"layered", gpu.Features{LayeredFromAnyShader: true}, nil, PassCubeLayered, 1, gpu.StageVertex, true},
		{"geometry shader", gpu.Features{}, nil, PassCubeGeometry, 1, gpu.StageGeometry, true},
		{"layered without shader", gpu.Features{LayeredFromAnyShader: true}, []string{VSLayered}, PassCubeGeometry, 1, gpu.StageGeometry, true},
		{"depth only", gpu.Features{DepthOnlyCube: true}, nil, PassCubeGeometry, 1, gpu.StageGeometry, false},
		{"per face", gpu.Features{}, []string{GSCube}, PassCubeFace, 6, gpu.StageVertex, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRendererFixture(t, tt.feats, tt.missing...)
			cube, err := NewPointCube(f.dev, f.r, PointCubeSize)
			if err != nil {
				t.Fatalf("NewPointCube: %v", err)
			}
			cube.SetLight(math.Vec3{X: 10, Y: 20, Z: 30}, 800, false, false)
			if !cube.RenderCubemap(1, false) {
				t.Fatal("cube not rendered")
			}

			if len(f.drawer.draws) != tt.wantDraws {
				t.Fatalf("got %d draws, want %d", len(f.drawer.draws), tt.wantDraws)
			}
			for i, d := range f.drawer.draws {
				if d.opts.Pass != tt.wantPass {
					t.Errorf("draw %d pass = %v, want %v", i, d.opts.Pass, tt.wantPass)
				}
				if !d.opts.NoNPCs || !d.opts.CullFront {
					t.Errorf("draw %d options = %+v", i, d.opts)
				}
				if d.radius != 800 || d.center != cube.Position() {
					t.Errorf("draw %d around %v radius %v", i, d.center, d.radius)
				}
				if d.viewport != gpu.SquareViewport(PointCubeSize) {
					t.Errorf("draw %d viewport = %+v", i, d.viewport)
				}
				if d.opts.Frustum == nil || d.opts.Frustum.Kind() != frustum.KindSphere {
					t.Errorf("draw %d frustum = %v", i, d.opts.Frustum)
				}
				if tt.wantPass == PassCubeFace {
					if d.opts.Face != i || d.camDepth != 1 || d.depthTarget != cube.FaceView(i) {
						t.Errorf("face draw %d: face %d depth %d", i, d.opts.Face, d.camDepth)
					}
				} else if d.depthTarget != cube.DepthView() {
					t.Errorf("draw %d did not target the layered view", i)
				}
			}

			consts := f.ctx.Calls(nullgpu.OpUpdateConstants)
			if len(consts) != tt.wantDraws {
				t.Fatalf("got %d constant uploads, want %d", len(consts), tt.wantDraws)
			}
			if consts[0].Stage != tt.wantStage {
				t.Errorf("constants uploaded to %v, want %v", consts[0].Stage, tt.wantStage)
			}
			if tt.wantPass != PassCubeFace {
				cc, ok := consts[0].Data.(CubeConstants)
				if !ok {
					t.Fatalf("uploaded %T, want CubeConstants", consts[0].Data)
				}
				if cc.LightPos != [4]float32{10, 20, 30, 800} {
					t.Errorf("LightPos = %v", cc.LightPos)
				}
			}

			var color gpu.RenderTargetView
			for _, c := range f.ctx.Calls(nullgpu.OpSetRenderTargets) {
				color = c.Color
			}
			if (color != nil) != tt.wantColor {
				t.Errorf("color target bound = %v, want %v", color != nil, tt.wantColor)
			}

			if f.ctx.Shaders().Vertex.Name() != VSShadow || f.ctx.Shaders().Geometry != nil {
				t.Errorf("shaders not restored: %+v", f.ctx.Shaders())
			}
			if got := f.ctx.Viewport(); got.Width != 800 {
				t.Errorf("viewport not restored: %+v", got)
			}
			if f.cams.Depth() != 0 {
				t.Errorf("camera stack depth = %d", f.cams.Depth())
			}
			if f.r.Stats().CubeRenders != 1 {
				t.Errorf("CubeRenders = %d", f.r.Stats().CubeRenders)
			}
		})
	}
}

func TestCascadeRendererRelease(t *testing.T) {
	f := newRendererFixture(t, gpu.Features{})
	if err := f.r.RenderCascades(outdoorScene()); err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	f.r.BindSampler(f.ctx, 2)
	s := f.ctx.BoundSampler(gpu.StagePixel, 2)
	if s == nil || s.Desc().Compare != gpu.CompareLessEqual {
		t.Errorf("bound sampler = %v", s)
	}
	f.r.Release()
	if f.dev.Live() != 0 {
		t.Errorf("%d resources leaked", f.dev.Live())
	}
}

func TestNewCascadeRendererFailures(t *testing.T) {
	errBoom := errors.New("boom")
	shadows := config.DefaultShadows()
	lighting := config.DefaultLighting()
	opts := RendererOptions{
		Context:  nullgpu.NewContext(800, 600),
		Shaders:  nullgpu.NewLibrary(),
		Drawer:   &recordingDrawer{},
		Camera:   camera.NewStack(camera.State{}),
		Shadows:  &shadows,
		Lighting: &lighting,
	}
	if _, err := NewCascadeRenderer(opts); !errors.Is(err, ErrNoDevice) {
		t.Errorf("nil device: err = %v", err)
	}

	dev := nullgpu.NewDevice(8192)
	dev.Fail = func(op, label string) error {
		if label == "CascadedShadowMap" {
			return errBoom
		}
		return nil
	}
	opts.Device = dev
	if _, err := NewCascadeRenderer(opts); !errors.Is(err, errBoom) {
		t.Errorf("buffer failure: err = %v", err)
	}
	if dev.Live() != 0 {
		t.Errorf("failed construction leaked %d resources", dev.Live())
	}

	// Sampler and dummy cube failures only degrade.
	dev = nullgpu.NewDevice(8192)
	dev.Fail = func(op, label string) error {
		if op == nullgpu.OpSampler || label == "DummyCubeRT" {
			return errBoom
		}
		return nil
	}
	opts.Device = dev
	r, err := NewCascadeRenderer(opts)
	if err != nil {
		t.Fatalf("degraded construction failed: %v", err)
	}
	ctx := nullgpu.NewContext(800, 600)
	r.BindSampler(ctx, 2)
	if ctx.Count(nullgpu.OpBindSampler) != 0 {
		t.Error("bound a missing sampler")
	}
	r.Release()
}
