package lighting

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/gpu/nullgpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/pkg/math"
)

type nopDrawer struct {
	passes []shadow.Pass
}

func (d *nopDrawer) DrawWorldAround(ctx gpu.Context, center math.Vec3, radius float32, opts shadow.DrawOptions) {
	d.passes = append(d.passes, opts.Pass)
}

type deferredFixture struct {
	dev      *nullgpu.Device
	ctx      *nullgpu.Context
	shadows  *config.ShadowConfig
	lighting *config.LightingConfig
	cascades *shadow.CascadeRenderer
	pass     *DeferredPass
}

func testCamera() camera.State {
	return camera.State{
		Position:   math.Vec3{},
		LookAt:     math.Vec3{Z: -1},
		View:       math.LookAt(math.Vec3{}, math.Vec3{Z: -1}, math.Vec3{Y: 1}),
		Projection: math.Perspective(gomath.Pi/3, 4.0/3.0, 1, 40000),
		Near:       1,
		Far:        40000,
	}
}

func newDeferredFixture(t *testing.T, missing ...string) *deferredFixture {
	t.Helper()
	shadows := config.DefaultShadows()
	lighting := config.DefaultLighting()
	f := &deferredFixture{
		dev:      nullgpu.NewDevice(8192),
		ctx:      nullgpu.NewContext(800, 600),
		shadows:  &shadows,
		lighting: &lighting,
	}
	shaders := nullgpu.NewLibrary(missing...)
	cams := camera.NewStack(testCamera())
	cascades, err := shadow.NewCascadeRenderer(shadow.RendererOptions{
		Device:   f.dev,
		Context:  f.ctx,
		Shaders:  shaders,
		Drawer:   &nopDrawer{},
		Camera:   cams,
		Shadows:  f.shadows,
		Lighting: f.lighting,
	})
	if err != nil {
		t.Fatalf("NewCascadeRenderer: %v", err)
	}
	err = cascades.RenderCascades(shadow.SceneState{Near: 1, Far: 40000, SunDir: math.Vec3{Y: 1}, Outdoor: true})
	if err != nil {
		t.Fatalf("RenderCascades: %v", err)
	}
	f.cascades = cascades
	f.pass = NewDeferredPass(f.dev, f.ctx, shaders, f.shadows, f.lighting)
	f.ctx.Reset()
	return f
}

func (f *deferredFixture) shadowedLight(t *testing.T, pos math.Vec3, lightRange float32) *PointLight {
	t.Helper()
	l := NewPointLight("shadowed", pos, [3]float32{1, 1, 1}, lightRange, true)
	cube, err := shadow.NewPointCube(f.dev, &nopCubeRenderer{}, shadow.PointCubeSize)
	if err != nil {
		t.Fatalf("NewPointCube: %v", err)
	}
	l.cube = cube
	return l
}

func TestFadeFactor(t *testing.T) {
	tests := []struct {
		dist, lightRange, cutoff, want float32
	}{
		{0, 100, 8000, 1},
		{7800, 100, 8000, 1},
		{7850, 100, 8000, 0.5},
		{7900, 100, 8000, 0},
		{9000, 100, 8000, 0},
		{10, 0, 8000, 0},
	}
	for _, tt := range tests {
		if got := FadeFactor(tt.dist, tt.lightRange, tt.cutoff); math.Abs(got-tt.want) > 1e-5 {
			t.Errorf("FadeFactor(%v, %v, %v) = %v, want %v", tt.dist, tt.lightRange, tt.cutoff, got, tt.want)
		}
	}

	// No jumps while a light drifts toward the cutoff.
	prev := FadeFactor(7000, 100, 8000)
	for d := float32(7000); d <= 8100; d += 1 {
		cur := FadeFactor(d, 100, 8000)
		if math.Abs(cur-prev) > 1.0/100+1e-4 {
			t.Fatalf("fade jumps from %v to %v at %v", prev, cur, d)
		}
		prev = cur
	}
}

func TestDeferredPointLights(t *testing.T) {
	f := newDeferredFixture(t)
	outside := NewPointLight("outside", math.Vec3{Z: -1000}, [3]float32{1, 0.5, 0.25}, 200, false)
	inside := NewPointLight("inside", math.Vec3{Z: -50}, [3]float32{1, 1, 1}, 300, false)
	disabled := NewPointLight("disabled", math.Vec3{Z: -100}, [3]float32{1, 1, 1}, 100, false)
	disabled.Disabled = true
	shadowed := f.shadowedLight(t, math.Vec3{X: 500, Z: -2000}, 400)
	lights := []*PointLight{outside, inside, disabled, shadowed}
	for _, l := range lights {
		l.VisibleInRenderPass = true
	}

	frame := &Frame{Camera: testCamera(), SunDir: math.Vec3{Y: 1}, Width: 800, Height: 600, Lights: lights}
	f.pass.Draw(frame, f.cascades, nil)

	for _, l := range lights {
		if l.VisibleInRenderPass {
			t.Errorf("%s still visible in render pass", l.Name)
		}
	}

	draws := f.ctx.Calls(nullgpu.OpDrawMesh)
	if len(draws) != 3 {
		t.Fatalf("drew %d light volumes, want 3", len(draws))
	}
	wantCull := []gpu.CullMode{gpu.CullBack, gpu.CullFront, gpu.CullBack}
	wantPS := []string{PSPointLight, PSPointLight, PSPointLightShadowed}
	for i, d := range draws {
		if d.Raster.Cull != wantCull[i] {
			t.Errorf("draw %d cull = %v, want %v", i, d.Raster.Cull, wantCull[i])
		}
		if d.Shaders.Pixel.Name() != wantPS[i] || d.Shaders.Vertex.Name() != VSPointLight {
			t.Errorf("draw %d shaders = %s/%s", i, d.Shaders.Vertex.Name(), d.Shaders.Pixel.Name())
		}
	}
	if s := draws[0].World.Translation(); s != outside.Position {
		t.Errorf("volume translated to %v", s)
	}

	depth := f.ctx.Calls(nullgpu.OpSetDepthState)
	if len(depth) != 4 {
		t.Fatalf("got %d depth state changes, want 4", len(depth))
	}
	if !depth[0].DepthSt.Test || depth[1].DepthSt.Test || !depth[2].DepthSt.Test {
		t.Errorf("depth test sequence = %v %v %v", depth[0].DepthSt, depth[1].DepthSt, depth[2].DepthSt)
	}
	if depth[3].DepthSt.Compare != gpu.CompareAlways {
		t.Errorf("screen pass depth compare = %v", depth[3].DepthSt.Compare)
	}
	for _, d := range depth[:3] {
		if d.DepthSt.Write {
			t.Error("light volumes write depth")
		}
	}

	var pixel, vertex []nullgpu.Call
	for _, c := range f.ctx.Calls(nullgpu.OpUpdateConstants) {
		if _, ok := c.Data.(PointLightConstants); !ok {
			continue
		}
		if c.Stage == gpu.StagePixel && c.Slot == 0 {
			pixel = append(pixel, c)
		}
		if c.Stage == gpu.StageVertex && c.Slot == 0 {
			vertex = append(vertex, c)
		}
	}
	if len(pixel) != 3 || len(vertex) != 3 {
		t.Fatalf("uploaded %d pixel and %d vertex light constants", len(pixel), len(vertex))
	}
	pc := pixel[0].Data.(PointLightConstants)
	want := [4]float32{1.2, 0.6, 0.3, 1}
	for i := range want {
		if math.Abs(pc.Color[i]-want[i]) > 1e-5 {
			t.Errorf("Color = %v, want %v", pc.Color, want)
			break
		}
	}
	if math.Abs(pc.ScreenPos[0]-0.5) > 1e-4 || math.Abs(pc.ScreenPos[1]-0.5) > 1e-4 {
		t.Errorf("ScreenPos = %v, want center", pc.ScreenPos)
	}
	if math.Abs(pc.PositionView[2]+1000) > 1e-2 {
		t.Errorf("PositionView = %v", pc.PositionView)
	}
	if pc.ViewportSize != [2]float32{800, 600} || pc.Outdoor != 1 || pc.Range != 200 {
		t.Errorf("constants = %+v", pc)
	}

	cubeBound := false
	for _, c := range f.ctx.Calls(nullgpu.OpBindShaderView) {
		if c.Slot == SlotShadowCube && c.View == shadowed.Cube().ShaderView() {
			cubeBound = true
		}
	}
	if !cubeBound {
		t.Error("shadow cube not bound for the shadowed light")
	}

	blend := f.ctx.Calls(nullgpu.OpSetBlendState)[0].Blend
	if blend != gpu.AdditiveBlendState(gpu.BlendOpAdd) {
		t.Errorf("light blend = %+v", blend)
	}
	st := f.pass.Stats()
	if st.LightsDrawn != 3 || st.ScreenPasses != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDeferredLimitLightIntensity(t *testing.T) {
	f := newDeferredFixture(t)
	f.lighting.LimitLightIntensity = true
	frame := &Frame{Camera: testCamera(), Lights: []*PointLight{
		NewPointLight("a", math.Vec3{Z: -500}, [3]float32{1, 1, 1}, 100, false),
	}}
	f.pass.Draw(frame, f.cascades, nil)

	blends := f.ctx.Calls(nullgpu.OpSetBlendState)
	if blends[0].Blend.Op != gpu.BlendOpMax {
		t.Errorf("light blend op = %v, want max", blends[0].Blend.Op)
	}
	if last := blends[len(blends)-1].Blend; last.Op != gpu.BlendOpAdd || !last.Enabled {
		t.Errorf("screen pass blend = %+v", last)
	}
}

func TestDeferredMissingShadowShader(t *testing.T) {
	f := newDeferredFixture(t, PSPointLightShadowed)
	l := f.shadowedLight(t, math.Vec3{Z: -500}, 100)
	f.pass.Draw(&Frame{Camera: testCamera(), Lights: []*PointLight{l}}, f.cascades, nil)

	draws := f.ctx.Calls(nullgpu.OpDrawMesh)
	if len(draws) != 1 || draws[0].Shaders.Pixel.Name() != PSPointLight {
		t.Fatalf("shadowed light without its shader: %d draws", len(draws))
	}
	for _, c := range f.ctx.Calls(nullgpu.OpBindShaderView) {
		if c.View != nil && c.View == l.Cube().ShaderView() {
			t.Error("cube bound for an unshadowed draw")
		}
	}
}

func screenConstants(t *testing.T, ctx *nullgpu.Context) ScreenQuadConstants {
	t.Helper()
	for _, c := range ctx.Calls(nullgpu.OpUpdateConstants) {
		if sq, ok := c.Data.(ScreenQuadConstants); ok {
			if c.Stage != gpu.StagePixel || c.Slot != 0 {
				t.Errorf("screen constants uploaded to %v slot %d", c.Stage, c.Slot)
			}
			return sq
		}
	}
	t.Fatal("no screen constants uploaded")
	return ScreenQuadConstants{}
}

func TestDeferredScreenPass(t *testing.T) {
	f := newDeferredFixture(t)
	gb := GBuffer{
		DepthCopy: &nullgpu.ShaderView{},
		Specular:  &nullgpu.ShaderView{},
	}
	frame := &Frame{Camera: testCamera(), SunDir: math.Vec3{Y: 1}, Targets: gb, Atmosphere: DefaultAtmosphere(math.Vec3{Y: 1})}
	f.pass.Draw(frame, f.cascades, nil)

	if n := f.ctx.Count(nullgpu.OpDrawFullScreen); n != 1 {
		t.Fatalf("drew %d full screen passes", n)
	}
	quad := f.ctx.Calls(nullgpu.OpDrawFullScreen)[0]
	if quad.Shaders.Pixel.Name() != PSAtmosphere || quad.Shaders.Vertex.Name() != VSScreenQuad {
		t.Errorf("screen pass shaders = %s/%s", quad.Shaders.Vertex.Name(), quad.Shaders.Pixel.Name())
	}
	if f.ctx.RasterState().Cull != gpu.CullNone {
		t.Errorf("cull = %v, want none", f.ctx.RasterState().Cull)
	}

	sq := screenConstants(t, f.ctx)
	splits := f.cascades.Splits()
	if sq.CascadeSplits[0] != splits[1] || sq.CascadeSplits[2] != splits[3] {
		t.Errorf("CascadeSplits = %v, splits %v", sq.CascadeSplits, splits)
	}
	if sq.ShadowView[1] != f.cascades.Cascades()[1].View {
		t.Error("cascade 1 view not uploaded")
	}
	if sq.ShadowmapSize != float32(f.cascades.Buffer().Size()) {
		t.Errorf("ShadowmapSize = %v", sq.ShadowmapSize)
	}
	if sq.LightColor != [4]float32{1, 1, 1, 1} {
		t.Errorf("LightColor = %v", sq.LightColor)
	}
	if sq.ShadowStrength != f.shadows.Strength || sq.WorldAOStrength != f.lighting.WorldAOStrength {
		t.Errorf("strengths = %v %v", sq.ShadowStrength, sq.WorldAOStrength)
	}
	// The sun straight up is +Y in view space for a camera looking down -Z.
	if math.Abs(sq.LightDirectionVS[1]-1) > 1e-5 {
		t.Errorf("LightDirectionVS = %v", sq.LightDirectionVS)
	}

	if f.ctx.BoundView(gpu.StagePixel, SlotCascades) != f.cascades.Buffer().ShaderView() {
		t.Error("cascades not bound")
	}
	if f.ctx.BoundSampler(gpu.StagePixel, SlotShadowSampler) == nil {
		t.Error("shadow sampler not bound")
	}
	if f.ctx.BoundView(gpu.StagePixel, SlotDepthCopy) != nil || f.ctx.BoundView(gpu.StagePixel, SlotSpecular) != nil {
		t.Error("depth copy or specular still bound after the pass")
	}
	if len(f.ctx.OpenEvents()) != 0 {
		t.Errorf("unbalanced events %v", f.ctx.OpenEvents())
	}
}

func TestDeferredIndoorOverride(t *testing.T) {
	tests := []struct {
		name     string
		game     string
		world    string
		strength float32
	}{
		{"gothic 2", config.GameGothic2, "NEWWORLD", 0},
		{"gothic 1", config.GameGothic1, "WORLD", 0.3},
		{"gothic 1 temple", config.GameGothic1, "orctempel", 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDeferredFixture(t)
			f.lighting.GameVersion = tt.game
			frame := &Frame{Camera: testCamera(), SunDir: math.Vec3{Y: 1}, Indoor: true, World: tt.world}
			f.pass.Draw(frame, f.cascades, nil)

			sq := screenConstants(t, f.ctx)
			if sq.ShadowStrength != tt.strength {
				t.Errorf("ShadowStrength = %v, want %v", sq.ShadowStrength, tt.strength)
			}
			if sq.WorldAOStrength != 1 {
				t.Errorf("WorldAOStrength = %v, want 1", sq.WorldAOStrength)
			}
			if sq.LightColor != [4]float32{1, 1, 1, config.DefaultIndoorAmbient} {
				t.Errorf("LightColor = %v", sq.LightColor)
			}
		})
	}
}

type fakeRain struct {
	srv  gpu.ShaderView
	repl camera.Replacement
}

func (r *fakeRain) Render(*Frame)                   {}
func (r *fakeRain) Replacement() camera.Replacement { return r.repl }
func (r *fakeRain) ShaderView() gpu.ShaderView      { return r.srv }
func (r *fakeRain) Release()                        {}

func TestDeferredRain(t *testing.T) {
	f := newDeferredFixture(t)
	rain := &fakeRain{
		srv:  &nullgpu.ShaderView{},
		repl: camera.Replacement{View: math.Translate(1, 2, 3), Projection: math.OrthoSized(10, 10, 1, 100)},
	}
	frame := &Frame{Camera: testCamera(), SunDir: math.Vec3{Y: 1}, Wetness: 0.5, RainWeight: 0.25}
	f.pass.Draw(frame, f.cascades, rain)

	quad := f.ctx.Calls(nullgpu.OpDrawFullScreen)[0]
	if quad.Shaders.Pixel.Name() != PSAtmosphereRain {
		t.Errorf("rain pass shader = %s", quad.Shaders.Pixel.Name())
	}
	sq := screenConstants(t, f.ctx)
	if math.Abs(sq.LightColor[3]-0.675) > 1e-5 {
		t.Errorf("sun strength = %v, want 0.675", sq.LightColor[3])
	}
	if sq.RainView != rain.repl.View || sq.RainProj != rain.repl.Projection {
		t.Error("rain camera not uploaded")
	}
	if f.ctx.BoundView(gpu.StagePixel, SlotRainShadow) != rain.srv {
		t.Error("rain map not bound")
	}
}

func TestDeferredMissingScreenShader(t *testing.T) {
	f := newDeferredFixture(t, PSAtmosphere)
	f.pass.Draw(&Frame{Camera: testCamera()}, f.cascades, nil)
	if n := f.ctx.Count(nullgpu.OpDrawFullScreen); n != 0 {
		t.Errorf("drew %d screen passes without a shader", n)
	}
	if len(f.ctx.OpenEvents()) != 0 {
		t.Errorf("unbalanced events %v", f.ctx.OpenEvents())
	}
}

func TestCascadeSplitsPadding(t *testing.T) {
	tests := []struct {
		in   []float32
		want [4]float32
	}{
		{nil, [4]float32{}},
		{[]float32{1, 100}, [4]float32{100, 100, 100, 0}},
		{[]float32{1, 10, 100, 1000}, [4]float32{10, 100, 1000, 0}},
	}
	for _, tt := range tests {
		if got := cascadeSplits(tt.in); got != tt.want {
			t.Errorf("cascadeSplits(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
