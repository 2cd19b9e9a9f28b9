package shadow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/frustum"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

const (
	// WorldSectionSize is the edge length of a world section.
	WorldSectionSize = 16384
	// DrawAroundRange is the radius of cascade world draws.
	DrawAroundRange = 10000
	// ArraySlot is the pixel slot the lighting pass samples the cascades
	// from. Shadow passes unbind it before rendering into the array.
	ArraySlot = 3
)

// Depth clear values. A cleared shadow map is fully lit at 1 and fully
// shadowed at 0.
const (
	DepthLit      = 1.0
	DepthShadowed = 0.0
)

// SceneState is what the cascade renderer reads from the world each frame.
type SceneState struct {
	CameraPosition math.Vec3
	Near, Far      float32
	SunDir         math.Vec3 // toward the sun
	Outdoor        bool
}

// Stats counts the shadow work since the last ResetStats.
type Stats struct {
	CascadesRendered int
	CascadeClears    int
	CubeRenders      int
	WorldDraws       int
}

// RendererOptions are the collaborators of a CascadeRenderer.
type RendererOptions struct {
	Device   gpu.Device
	Context  gpu.Context
	Shaders  gpu.ShaderLibrary
	Drawer   WorldDrawer
	Camera   *camera.Stack
	Shadows  *config.ShadowConfig
	Lighting *config.LightingConfig
}

// ShadowmapOptions configure RenderShadowmap.
type ShadowmapOptions struct {
	Pass   Pass
	Center math.Vec3
	// CascadeFar lowers the vob draw radii to CascadeFar*1.2 when positive.
	CascadeFar float32
	// SunCheck clears instead of drawing when the sun is down or shadows
	// are off.
	SunCheck    bool
	ExpandBack  float32
	ExpandSides float32
	Debug       gpu.RenderTargetView
}

// CascadeRenderer renders the sun cascades and point light cubes.
type CascadeRenderer struct {
	dev      gpu.Device
	ctx      gpu.Context
	shaders  gpu.ShaderLibrary
	drawer   WorldDrawer
	cams     *camera.Stack
	shadows  *config.ShadowConfig
	lighting *config.LightingConfig
	log      *zap.Logger

	buffer    *CascadedBuffer
	sampler   gpu.Sampler
	dummyCube gpu.Texture
	dummyRT   gpu.RenderTargetView

	anchor      Anchor
	lastOutdoor bool
	sunUp       bool
	sunDir      math.Vec3
	cascades    [MaxCascades]Cascade
	numActive   int
	splits      []float32
	stats       Stats
}

var cascadeEvents = [MaxCascades]string{"Cascade 0", "Cascade 1", "Cascade 2"}

// NewCascadeRenderer creates the shadow sampler, the dummy cube target and
// the cascade buffer. Failing to create the buffer is fatal; the sampler and
// dummy target degrade with a warning.
func NewCascadeRenderer(o RendererOptions) (*CascadeRenderer, error) {
	if o.Device == nil {
		return nil, ErrNoDevice
	}
	r := &CascadeRenderer{
		dev:         o.Device,
		ctx:         o.Context,
		shaders:     o.Shaders,
		drawer:      o.Drawer,
		cams:        o.Camera,
		shadows:     o.Shadows,
		lighting:    o.Lighting,
		log:         logger.Named("shadow"),
		lastOutdoor: true,
		buffer:      &CascadedBuffer{},
	}

	var err error
	r.sampler, err = r.dev.CreateSampler(gpu.SamplerDesc{
		Filter:  gpu.FilterLinear,
		Address: gpu.AddressWrap,
		Compare: gpu.CompareLessEqual,
	})
	if err != nil {
		r.log.Warn("creating shadow sampler failed", zap.Error(err))
	}

	r.createDummyCube()

	n, _ := r.shadows.ClampCascades()
	if err := r.buffer.Init(r.dev, r.shadows.MapSize, n); err != nil {
		r.Release()
		return nil, fmt.Errorf("creating cascaded shadow buffer: %w", err)
	}
	return r, nil
}

func (r *CascadeRenderer) createDummyCube() {
	tex, err := r.dev.CreateTexture(gpu.TextureDesc{
		Label:  "DummyCubeRT",
		Kind:   gpu.TextureCube,
		Width:  PointCubeSize,
		Height: PointCubeSize,
		Format: gpu.FormatRGBA8,
		Usage:  gpu.UsageRenderTarget,
	})
	if err != nil {
		r.log.Warn("creating dummy cube target failed", zap.Int("size", PointCubeSize), zap.Error(err))
		return
	}
	rt, err := r.dev.CreateRenderTargetView(tex, gpu.AllLayers)
	if err != nil {
		tex.Release()
		r.log.Warn("creating dummy cube view failed", zap.Error(err))
		return
	}
	r.dummyCube, r.dummyRT = tex, rt
}

// Release frees every device resource.
func (r *CascadeRenderer) Release() {
	r.buffer.Release()
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
	if r.dummyRT != nil {
		r.dummyRT.Release()
		r.dummyRT = nil
	}
	if r.dummyCube != nil {
		r.dummyCube.Release()
		r.dummyCube = nil
	}
}

// Buffer returns the cascade texture array.
func (r *CascadeRenderer) Buffer() *CascadedBuffer { return r.buffer }

// Cascades returns the cascade cameras of the last RenderCascades call.
func (r *CascadeRenderer) Cascades() []Cascade { return r.cascades[:r.numActive] }

// AllCascades returns every cascade slot, including inactive ones.
func (r *CascadeRenderer) AllCascades() [MaxCascades]Cascade { return r.cascades }

// Splits returns the split distances of the last RenderCascades call.
func (r *CascadeRenderer) Splits() []float32 { return r.splits }

// Anchor returns the ground position the cascades are centered on.
func (r *CascadeRenderer) Anchor() math.Vec3 { return r.anchor.Position() }

// SunDirection returns the (possibly quantized) light direction in use.
func (r *CascadeRenderer) SunDirection() math.Vec3 { return r.sunDir }

// Stats returns the counters since the last ResetStats.
func (r *CascadeRenderer) Stats() Stats { return r.stats }

// ResetStats zeroes the counters.
func (r *CascadeRenderer) ResetStats() { r.stats = Stats{} }

// BindSampler binds the comparison sampler to a pixel slot.
func (r *CascadeRenderer) BindSampler(ctx gpu.Context, slot int) {
	if r.sampler != nil {
		ctx.BindSampler(gpu.StagePixel, slot, r.sampler)
	}
}

func (r *CascadeRenderer) ensureBuffer(n int) error {
	if r.buffer.NumCascades() != n || r.buffer.ShaderView() == nil {
		if err := r.buffer.Init(r.dev, r.shadows.MapSize, n); err != nil {
			return fmt.Errorf("reallocating %d cascades: %w", n, err)
		}
		return nil
	}
	return r.buffer.Resize(r.shadows.MapSize)
}

func (r *CascadeRenderer) clearAll(depth float32) {
	for i := 0; i < r.buffer.NumCascades(); i++ {
		if dv := r.buffer.CascadeDepthView(i); dv != nil {
			r.ctx.ClearDepth(dv, depth)
			r.stats.CascadeClears++
		}
	}
}

// RenderCascades computes the cascade cameras for this frame and renders
// world depth into every slice. Indoors no slice is rendered and every
// cascade uses a fixed volume.
func (r *CascadeRenderer) RenderCascades(scene SceneState) error {
	n, corrected := r.shadows.ClampCascades()
	if corrected {
		r.log.Warn("shadow cascade count out of range, corrected", zap.Int("cascades", n))
	}
	if err := r.ensureBuffer(n); err != nil {
		r.numActive = 0
		return err
	}

	near := max(1, scene.Near)
	baseFar := scene.Far
	far := baseFar * max(0.1, r.shadows.WorldRangeScale)

	r.splits = ComputeCascadeSplits(near, far, n, r.shadows.SplitLambda)
	// The last cascade always reaches the real far plane.
	r.splits[n] = baseFar

	dir := lightDir(scene.SunDir)
	if r.shadows.SmoothCameraUpdate {
		dir = QuantizeSunDirection(dir)
	}
	r.sunDir = dir
	r.sunUp = scene.SunDir.Y > 0

	anchor := r.anchor.Update(scene.CameraPosition)
	size := r.buffer.Size()
	r.numActive = n

	r.ctx.BeginEvent("Cascades")
	defer r.ctx.EndEvent()

	if !scene.Outdoor {
		if r.shadows.Enabled && r.lastOutdoor {
			r.clearAll(DepthShadowed)
		}
		r.lastOutdoor = false
		for i := 0; i < n; i++ {
			c := IndoorCascade(i, anchor, dir, far, size)
			c.Near, c.Far = r.splits[i], r.splits[i+1]
			r.cascades[i] = c
		}
		return nil
	}

	if r.shadows.Enabled && !r.lastOutdoor {
		r.clearAll(DepthLit)
	}
	r.lastOutdoor = true

	for i := 0; i < n; i++ {
		c := SnapCascade(i, anchor, dir, CascadeSize(far, r.splits, i), size)
		c.Near, c.Far = r.splits[i], r.splits[i+1]
		r.cascades[i] = c

		r.ctx.BeginEvent(cascadeEvents[i])
		r.RenderShadowmap(r.buffer.CascadeDepthView(i), size, c.Replacement(), ShadowmapOptions{
			Pass:       PassCascade,
			Center:     anchor,
			CascadeFar: r.splits[i+1],
			SunCheck:   true,
		})
		r.ctx.EndEvent()
		r.stats.CascadesRendered++
	}
	return nil
}

// lowerDrawRadii caps the vob draw radii for a cascade and returns a func
// restoring them.
func (r *CascadeRenderer) lowerDrawRadii(cascadeFar float32) func() {
	l := r.lighting
	oldVob, oldSmall := l.OutdoorVobDrawRadius, l.OutdoorSmallVobDrawRadius
	if cascadeFar > 0.01 {
		l.OutdoorVobDrawRadius = min(oldVob, cascadeFar*1.2)
		l.OutdoorSmallVobDrawRadius = min(oldSmall, cascadeFar*1.2)
	}
	return func() {
		l.OutdoorVobDrawRadius = oldVob
		l.OutdoorSmallVobDrawRadius = oldSmall
	}
}

func (r *CascadeRenderer) restoreFarPlane() {
	r.cams.SetFar(r.lighting.SectionDrawRadius * WorldSectionSize)
}

// RenderShadowmap renders world depth into target through the camera repl.
func (r *CascadeRenderer) RenderShadowmap(target gpu.DepthView, size int, repl camera.Replacement, opts ShadowmapOptions) {
	if target == nil {
		return
	}
	r.ctx.BeginEvent("RenderShadowmaps")
	defer r.ctx.EndEvent()

	oldVP := r.ctx.Viewport()
	r.ctx.SetViewport(gpu.SquareViewport(size))
	defer func() {
		r.ctx.SetViewport(oldVP)
		r.restoreFarPlane()
	}()

	r.ctx.BindShaderView(gpu.StagePixel, ArraySlot, nil)
	r.ctx.SetRenderTargets(opts.Debug, target)
	r.ctx.SetBlendState(gpu.BlendState{ColorWrites: opts.Debug != nil})

	if opts.SunCheck && !(r.sunUp && r.shadows.DrawGeometry && r.shadows.Enabled) {
		// Always shadowed at night, fully lit when shadows are off.
		depth := float32(DepthLit)
		if !r.sunUp {
			depth = DepthShadowed
		}
		r.ctx.ClearDepth(target, depth)
		r.stats.CascadeClears++
		return
	}

	r.ctx.ClearDepth(target, DepthLit)
	defer r.lowerDrawRadii(opts.CascadeFar)()

	r.cams.With(repl, func() {
		cam := r.cams.Active()
		var f frustum.Frustum
		f.BuildOrthographic(cam.View, cam.Projection, opts.ExpandBack, opts.ExpandSides)

		r.ctx.SetShaders(gpu.ShaderSet{Vertex: r.shaders.Shader(gpu.StageVertex, VSShadow)})
		r.ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullFront})
		r.ctx.SetDepthState(gpu.DefaultDepthState())

		consts := PassConstants{ViewProj: cam.ViewProjection()}
		if err := r.ctx.UpdateConstants(gpu.StageVertex, 0, &consts); err != nil {
			r.log.Warn("uploading shadow pass constants failed", zap.Error(err))
			return
		}
		r.drawer.DrawWorldAround(r.ctx, opts.Center, DrawAroundRange, DrawOptions{
			Pass:      opts.Pass,
			CullFront: true,
			Frustum:   &f,
			Camera:    cam,
		})
		r.stats.WorldDraws++
	})
}

// cubePath picks how a cube is rendered: one layered draw, one geometry
// shader draw, or six face draws when neither shader set exists.
func (r *CascadeRenderer) cubePath() (Pass, gpu.ShaderSet) {
	ps := r.shaders.Shader(gpu.StagePixel, PSCube)
	if r.dev.Features().LayeredFromAnyShader {
		if vs := r.shaders.Shader(gpu.StageVertex, VSLayered); vs != nil {
			return PassCubeLayered, gpu.ShaderSet{Vertex: vs, Pixel: ps}
		}
	}
	vs := r.shaders.Shader(gpu.StageVertex, VSCube)
	gs := r.shaders.Shader(gpu.StageGeometry, GSCube)
	if vs != nil && gs != nil {
		return PassCubeGeometry, gpu.ShaderSet{Vertex: vs, Geometry: gs, Pixel: ps}
	}
	return PassCubeFace, gpu.ShaderSet{Vertex: r.shaders.Shader(gpu.StageVertex, VSShadow), Pixel: ps}
}

// cubeColorTarget returns the color target bound next to a layered cube
// depth target: none when the device renders depth-only cubes.
func (r *CascadeRenderer) cubeColorTarget(cube *PointCube) gpu.RenderTargetView {
	if r.dev.Features().DepthOnlyCube || r.dummyRT == nil || cube.Size() != PointCubeSize {
		return nil
	}
	return r.dummyRT
}

// RenderShadowCube renders world depth around a point light into its cube.
func (r *CascadeRenderer) RenderShadowCube(cube *PointCube, opts CubeOptions) {
	r.ctx.BeginEvent("RenderShadowCube")
	defer r.ctx.EndEvent()

	oldVP := r.ctx.Viewport()
	r.ctx.SetViewport(gpu.SquareViewport(cube.Size()))
	defer func() {
		r.ctx.SetViewport(oldVP)
		r.ctx.SetShaders(gpu.ShaderSet{Vertex: r.shaders.Shader(gpu.StageVertex, VSShadow)})
		r.restoreFarPlane()
	}()

	r.ctx.BindShaderView(gpu.StagePixel, ArraySlot, nil)
	// The cube pixel shader writes depth, which needs color writes on.
	r.ctx.SetBlendState(gpu.BlendState{ColorWrites: true})
	r.ctx.SetDepthState(gpu.DefaultDepthState())
	cull := gpu.CullBack
	if opts.CullFront {
		cull = gpu.CullFront
	}
	r.ctx.SetRasterState(gpu.RasterState{Cull: cull})

	pos, rng := cube.Position(), cube.Range()
	lightPos := [4]float32{pos.X, pos.Y, pos.Z, rng}
	proj := CubeProjection(rng)
	draw := DrawOptions{CullFront: opts.CullFront, Indoor: opts.Indoor, NoNPCs: opts.NoNPCs}

	pass, set := r.cubePath()
	r.ctx.SetShaders(set)
	draw.Pass = pass

	var f frustum.Frustum
	switch pass {
	case PassCubeLayered, PassCubeGeometry:
		r.ctx.SetRenderTargets(r.cubeColorTarget(cube), cube.DepthView())
		r.ctx.ClearDepth(cube.DepthView(), DepthLit)

		consts := CubeConstants{LightPos: lightPos}
		for i := range consts.Faces {
			consts.Faces[i] = proj.Mul(CubeFaceView(pos, i))
		}
		stage := gpu.StageGeometry
		if pass == PassCubeLayered {
			stage = gpu.StageVertex
		}
		if err := r.ctx.UpdateConstants(stage, 0, &consts); err != nil {
			r.log.Warn("uploading cube constants failed", zap.Error(err))
			return
		}
		f.BuildCubemapFace(pos, rng, 0)
		draw.Frustum = &f
		draw.Camera = r.cams.Active()
		r.drawer.DrawWorldAround(r.ctx, pos, rng, draw)
		r.stats.WorldDraws++

	default:
		for face := 0; face < gpu.CubeFaces; face++ {
			dv := cube.FaceView(face)
			r.ctx.SetRenderTargets(nil, dv)
			r.ctx.ClearDepth(dv, DepthLit)

			view := CubeFaceView(pos, face)
			repl := camera.Replacement{
				View:       view,
				Projection: proj,
				Position:   pos,
				LookAt:     pos.Add(cubeFaces[face].dir),
			}
			r.cams.With(repl, func() {
				consts := PassConstants{ViewProj: proj.Mul(view), LightPos: lightPos}
				if err := r.ctx.UpdateConstants(gpu.StageVertex, 0, &consts); err != nil {
					r.log.Warn("uploading cube face constants failed", zap.Int("face", face), zap.Error(err))
					return
				}
				f.BuildCubemapFace(pos, rng, face)
				draw.Face = face
				draw.Frustum = &f
				draw.Camera = r.cams.Active()
				r.drawer.DrawWorldAround(r.ctx, pos, rng, draw)
				r.stats.WorldDraws++
			})
		}
	}
	r.stats.CubeRenders++
}

var _ CubeRenderer = (*CascadeRenderer)(nil)
