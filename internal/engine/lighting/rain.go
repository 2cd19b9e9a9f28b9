package lighting

import (
	"fmt"

	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/pkg/math"
)

// WetnessThreshold is the scene wetness above which the rain map is drawn.
const WetnessThreshold = 0.00001

// Rain map volume in world units.
const (
	RainVolumeSize  = 8000
	rainExpandBack  = 5000
	rainExpandSides = 500
)

// RainShadow renders the map that keeps rain out of covered areas.
type RainShadow interface {
	Render(f *Frame)
	Replacement() camera.Replacement
	ShaderView() gpu.ShaderView
	Release()
}

// RainMap is a depth map looking straight down on the camera. Its frustum
// is stretched upward so roofs above the volume still occlude.
type RainMap struct {
	renderer *shadow.CascadeRenderer
	tex      gpu.Texture
	dv       gpu.DepthView
	srv      gpu.ShaderView
	size     int
	repl     camera.Replacement
}

// NewRainMap allocates a size x size rain map drawn through renderer.
func NewRainMap(dev gpu.Device, renderer *shadow.CascadeRenderer, size int) (*RainMap, error) {
	m := &RainMap{renderer: renderer, size: shadow.ClampMapSize(size, dev.MaxTextureSize())}
	tex, err := dev.CreateTexture(gpu.TextureDesc{
		Label:  "RainShadowMap",
		Kind:   gpu.Texture2D,
		Width:  m.size,
		Height: m.size,
		Format: gpu.FormatDepth32F,
		Usage:  gpu.UsageDepth | gpu.UsageShader,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rain map (%d): %w", m.size, err)
	}
	m.tex = tex
	if m.dv, err = dev.CreateDepthView(tex, 0); err != nil {
		m.Release()
		return nil, fmt.Errorf("creating rain map depth view: %w", err)
	}
	if m.srv, err = dev.CreateShaderView(tex); err != nil {
		m.Release()
		return nil, fmt.Errorf("creating rain map shader view: %w", err)
	}
	return m, nil
}

// Render draws the world around the camera into the map.
func (m *RainMap) Render(f *Frame) {
	center := f.Camera.Position
	view, eye := shadow.LightView(center, math.Vec3{Y: 1})
	m.repl = camera.Replacement{
		View:       view,
		Projection: math.OrthoSized(RainVolumeSize, RainVolumeSize, shadow.CascadeNear, shadow.CascadeFar),
		Position:   eye,
		LookAt:     center,
	}
	m.renderer.RenderShadowmap(m.dv, m.size, m.repl, shadow.ShadowmapOptions{
		Pass:        shadow.PassRain,
		Center:      center,
		ExpandBack:  rainExpandBack,
		ExpandSides: rainExpandSides,
	})
}

// Replacement returns the camera of the last Render.
func (m *RainMap) Replacement() camera.Replacement { return m.repl }

// ShaderView returns the view sampled by the lighting pass.
func (m *RainMap) ShaderView() gpu.ShaderView { return m.srv }

// Release frees the map.
func (m *RainMap) Release() {
	for _, r := range []gpu.Resource{m.srv, m.dv, m.tex} {
		if r != nil {
			r.Release()
		}
	}
	m.srv, m.dv, m.tex = nil, nil, nil
}
