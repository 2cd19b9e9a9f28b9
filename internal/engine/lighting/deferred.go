package lighting

import (
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

// Pixel texture slots of the lighting pass.
const (
	SlotDiffuse        = 0
	SlotNormals        = 1
	SlotDepthCopy      = 2
	SlotShadowCube     = 3
	SlotCascades       = shadow.ArraySlot
	SlotRainShadow     = 4
	SlotReflectionCube = 5
	SlotDistortion     = 6
	SlotSpecular       = 7

	// SlotShadowSampler is the sampler slot of the cascade comparison sampler.
	SlotShadowSampler = 2
)

// Full screen pass shaders.
const (
	VSScreenQuad     = "VS_PFX"
	PSAtmosphere     = "PS_DS_AtmosphericScattering"
	PSAtmosphereRain = "PS_DS_AtmosphericScattering_Rain"
)

// LightBrightness scales every point light color.
const LightBrightness = 1.2

// GBuffer holds the views the lighting pass reads and writes. Nil views are
// left unbound.
type GBuffer struct {
	Diffuse        gpu.ShaderView
	Normals        gpu.ShaderView
	Specular       gpu.ShaderView
	DepthCopy      gpu.ShaderView
	ReflectionCube gpu.ShaderView
	Distortion     gpu.ShaderView
	HDR            gpu.RenderTargetView
	Depth          gpu.DepthView
}

// PointLightConstants are uploaded per light to pixel and vertex slot 0. The
// world matrix of the volume travels in the instance slot.
type PointLightConstants struct {
	Color         [4]float32
	PositionWorld [3]float32
	Range         float32
	PositionView  [3]float32
	Outdoor       float32
	ViewportSize  [2]float32
	Pad0          [2]float32
	InvProj       math.Mat4
	InvView       math.Mat4
	ViewProj      math.Mat4
	ScreenPos     [3]float32
	Pad1          float32
}

// ScreenQuadConstants are the pixel constants of the full screen pass.
type ScreenQuadConstants struct {
	InvProj          math.Mat4
	InvView          math.Mat4
	View             math.Mat4
	LightDirectionVS [3]float32
	Pad0             float32
	LightColor       [4]float32 // rgb color, a strength
	ShadowView       [shadow.MaxCascades]math.Mat4
	ShadowProj       [shadow.MaxCascades]math.Mat4
	CascadeSplits    [4]float32
	RainView         math.Mat4
	RainProj         math.Mat4
	ShadowmapSize    float32
	ShadowStrength   float32
	ShadowAOStrength float32
	WorldAOStrength  float32
}

// ScreenQuadVSConstants are the vertex constants of the full screen pass.
type ScreenQuadVSConstants struct {
	InvProj math.Mat4
}

// AtmosphereConstants describe the sky scattering. The host fills them and
// the pass uploads them to pixel slot 1 unchanged.
type AtmosphereConstants struct {
	LightPos           [3]float32
	Km4PI              float32
	Kr4PI              float32
	G                  float32
	InnerRadius        float32
	OuterRadius        float32
	RayleighScaleDepth float32
	SceneWetness       float32
	RainWeight         float32
	Time               float32
}

// DefaultAtmosphere returns earth-like scattering toward sunDir.
func DefaultAtmosphere(sunDir math.Vec3) AtmosphereConstants {
	return AtmosphereConstants{
		LightPos:           sunDir.Normalize().Array(),
		Km4PI:              0.0010 * 4 * 3.14159265,
		Kr4PI:              0.0025 * 4 * 3.14159265,
		G:                  -0.99,
		InnerRadius:        800000,
		OuterRadius:        820000,
		RayleighScaleDepth: 0.25,
	}
}

// DeferredStats counts the work of the last Draw.
type DeferredStats struct {
	LightsDrawn   int
	LightsSkipped int
	ScreenPasses  int
}

// DeferredPass draws point light volumes and the full screen sun pass into
// the HDR target.
type DeferredPass struct {
	ctx      gpu.Context
	shaders  gpu.ShaderLibrary
	shadows  *config.ShadowConfig
	lighting *config.LightingConfig
	sphere   gpu.Mesh
	stats    DeferredStats
	log      *zap.Logger
}

// NewDeferredPass creates the light volume mesh. Without it point lights are
// skipped.
func NewDeferredPass(dev gpu.Device, ctx gpu.Context, shaders gpu.ShaderLibrary, shadows *config.ShadowConfig, lighting *config.LightingConfig) *DeferredPass {
	p := &DeferredPass{
		ctx:      ctx,
		shaders:  shaders,
		shadows:  shadows,
		lighting: lighting,
		log:      logger.Named("lighting"),
	}
	positions, indices := InverseUnitSphere()
	sphere, err := dev.CreateMesh(positions, indices)
	if err != nil {
		p.log.Warn("creating light volume mesh failed, point lights disabled", zap.Error(err))
	} else {
		p.sphere = sphere
	}
	return p
}

// Release frees the light volume mesh.
func (p *DeferredPass) Release() {
	if p.sphere != nil {
		p.sphere.Release()
		p.sphere = nil
	}
}

// Stats returns the counters of the last Draw.
func (p *DeferredPass) Stats() DeferredStats { return p.stats }

// FadeFactor fades a light out as its volume approaches cutoff. It is 1 for
// lights whose volume ends at least one range before cutoff and 0 for lights
// reaching past it.
func FadeFactor(dist, lightRange, cutoff float32) float32 {
	if lightRange <= 0 {
		return 0
	}
	return math.Clamp((cutoff-(dist+lightRange))/lightRange, 0, 1)
}

// Draw renders every light of f and then the full screen pass that applies
// the sun, its cascades and the atmosphere. rain may be nil.
func (p *DeferredPass) Draw(f *Frame, cascades *shadow.CascadeRenderer, rain RainShadow) {
	p.stats = DeferredStats{}
	p.ctx.BeginEvent("DrawLighting")
	defer p.ctx.EndEvent()

	invProj := f.Camera.Projection.Inverse()
	invView := f.Camera.View.Inverse()

	p.drawPointLights(f, invProj, invView)
	p.drawScreenPass(f, cascades, rain, invProj, invView)
}

func (p *DeferredPass) bind(slot int, view gpu.ShaderView) {
	if view != nil {
		p.ctx.BindShaderView(gpu.StagePixel, slot, view)
	}
}

func (p *DeferredPass) drawPointLights(f *Frame, invProj, invView math.Mat4) {
	op := gpu.BlendOpAdd
	if p.lighting.LimitLightIntensity {
		op = gpu.BlendOpMax
	}
	depthOn := gpu.DepthState{Test: true, Compare: gpu.CompareLessEqual}
	depthOff := gpu.DepthState{Compare: gpu.CompareLessEqual}

	p.ctx.SetBlendState(gpu.AdditiveBlendState(op))
	p.ctx.SetDepthState(depthOn)
	p.ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullBack})
	p.ctx.SetRenderTargets(f.Targets.HDR, f.Targets.Depth)

	p.bind(SlotDiffuse, f.Targets.Diffuse)
	p.bind(SlotNormals, f.Targets.Normals)
	p.bind(SlotSpecular, f.Targets.Specular)
	p.bind(SlotDepthCopy, f.Targets.DepthCopy)

	vs := p.shaders.Shader(gpu.StageVertex, VSPointLight)
	var table [numVariants]gpu.Shader
	for v := range table {
		table[v] = p.shaders.Shader(gpu.StagePixel, ShadowVariant(v).ShaderName())
	}

	consts := PointLightConstants{
		InvProj:      invProj,
		InvView:      invView,
		ViewProj:     f.Camera.ViewProjection(),
		ViewportSize: [2]float32{float32(f.Width), float32(f.Height)},
	}
	var current gpu.Shader
	inside := false
	cam := f.Camera

	for _, l := range f.Lights {
		l.VisibleInRenderPass = false
		if l.Disabled {
			continue
		}

		v := VariantFor(l, p.shadows)
		ps := table[v]
		if ps == nil {
			v, ps = Unshadowed, table[Unshadowed]
		}
		if p.sphere == nil || vs == nil || ps == nil || l.Range <= 0 {
			p.stats.LightsSkipped++
			continue
		}
		if ps != current {
			p.ctx.SetShaders(gpu.ShaderSet{Vertex: vs, Pixel: ps})
			current = ps
		}

		dist := l.Position.Distance(cam.Position)
		scale := FadeFactor(dist, l.Range, p.lighting.VisualFXDrawRadius) * LightBrightness
		consts.Color = [4]float32{l.Color[0] * scale, l.Color[1] * scale, l.Color[2] * scale, l.Color[3]}
		consts.Range = l.Range
		consts.PositionWorld = l.Position.Array()
		consts.Outdoor = 1
		if l.Indoor {
			consts.Outdoor = 0
		}
		pv := cam.View.TransformVec3(l.Position)
		consts.PositionView = pv.Array()
		clip := cam.Projection.TransformVec3(pv)
		consts.ScreenPos = [3]float32{clip.X/2 + 0.5, clip.Y/-2 + 0.5, clip.Z}

		// Inside the volume only its back faces are visible.
		if in := dist < l.Range; in != inside {
			inside = in
			if in {
				p.ctx.SetDepthState(depthOff)
				p.ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullFront})
			} else {
				p.ctx.SetDepthState(depthOn)
				p.ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullBack})
			}
		}

		if err := p.ctx.UpdateConstants(gpu.StagePixel, 0, &consts); err != nil {
			p.log.Warn("uploading point light constants failed", zap.String("light", l.Name), zap.Error(err))
			continue
		}
		if err := p.ctx.UpdateConstants(gpu.StageVertex, 0, &consts); err != nil {
			p.log.Warn("uploading point light constants failed", zap.String("light", l.Name), zap.Error(err))
			continue
		}
		if v != Unshadowed {
			l.cube.Bind(p.ctx, SlotShadowCube)
		}

		world := math.Translate(l.Position.X, l.Position.Y, l.Position.Z).Mul(math.Scale(l.Range, l.Range, l.Range))
		p.ctx.DrawMesh(p.sphere, world)
		p.stats.LightsDrawn++
	}
}

// cascadeSplits returns the far distance of up to three cascades. Missing
// cascades repeat the last split.
func cascadeSplits(splits []float32) [4]float32 {
	var out [4]float32
	if len(splits) == 0 {
		return out
	}
	last := splits[len(splits)-1]
	for i := 0; i < 3; i++ {
		if i+1 < len(splits) {
			out[i] = splits[i+1]
		} else {
			out[i] = last
		}
	}
	return out
}

func (p *DeferredPass) drawScreenPass(f *Frame, cascades *shadow.CascadeRenderer, rain RainShadow, invProj, invView math.Mat4) {
	p.ctx.SetBlendState(gpu.AdditiveBlendState(gpu.BlendOpAdd))
	p.ctx.SetDepthState(gpu.DepthState{Test: true, Compare: gpu.CompareAlways})
	p.ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullNone})

	defer func() {
		p.ctx.BindShaderView(gpu.StagePixel, SlotDepthCopy, nil)
		p.ctx.BindShaderView(gpu.StagePixel, SlotSpecular, nil)
		p.ctx.SetRenderTargets(f.Targets.HDR, f.Targets.Depth)
	}()

	psName := PSAtmosphere
	if f.Wetness > 0 {
		psName = PSAtmosphereRain
	}
	vs := p.shaders.Shader(gpu.StageVertex, VSScreenQuad)
	ps := p.shaders.Shader(gpu.StagePixel, psName)
	if vs == nil || ps == nil {
		p.log.Warn("sun lighting shaders missing, pass skipped", zap.String("shader", psName))
		return
	}
	p.ctx.SetShaders(gpu.ShaderSet{Vertex: vs, Pixel: ps})

	cam := f.Camera
	sq := ScreenQuadConstants{
		InvProj:          invProj,
		InvView:          invView,
		View:             cam.View,
		LightDirectionVS: cam.View.TransformDirection(f.SunDir).Array(),
		ShadowmapSize:    float32(cascades.Buffer().Size()),
		CascadeSplits:    cascadeSplits(cascades.Splits()),
		ShadowStrength:   p.shadows.Strength,
		ShadowAOStrength: p.shadows.AOStrength,
		WorldAOStrength:  p.lighting.WorldAOStrength,
	}
	c := p.lighting.SunLightColor
	sq.LightColor = [4]float32{c[0], c[1], c[2], SunStrength(p.lighting.SunLightStrength, p.lighting.RainSunLightStrength, f.RainWeight)}

	for i, cs := range cascades.AllCascades() {
		sq.ShadowView[i] = cs.View
		sq.ShadowProj[i] = cs.Projection
	}
	if rain != nil {
		r := rain.Replacement()
		sq.RainView, sq.RainProj = r.View, r.Projection
	}

	if f.Indoor {
		prof := p.lighting.IndoorProfile()
		sq.ShadowStrength = prof.ShadowStrengthFor(f.World)
		sq.WorldAOStrength = prof.WorldAOStrength
		sq.LightColor = [4]float32{1, 1, 1, prof.LightStrength}
	}

	atm := f.Atmosphere
	atm.SceneWetness = f.Wetness
	atm.RainWeight = f.RainWeight
	vsc := ScreenQuadVSConstants{InvProj: invProj}
	for _, u := range []struct {
		stage gpu.Stage
		slot  int
		data  any
	}{
		{gpu.StagePixel, 1, &atm},
		{gpu.StagePixel, 0, &sq},
		{gpu.StageVertex, 0, &vsc},
	} {
		if err := p.ctx.UpdateConstants(u.stage, u.slot, u.data); err != nil {
			p.log.Warn("uploading sun lighting constants failed", zap.Error(err))
			return
		}
	}

	cascades.Buffer().BindToPixelShader(p.ctx, SlotCascades)
	if rain != nil {
		p.bind(SlotRainShadow, rain.ShaderView())
	}
	cascades.BindSampler(p.ctx, SlotShadowSampler)
	p.bind(SlotReflectionCube, f.Targets.ReflectionCube)
	p.bind(SlotDistortion, f.Targets.Distortion)

	p.ctx.DrawFullScreenQuad()
	p.stats.ScreenPasses++
}
