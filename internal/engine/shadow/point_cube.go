package shadow

import (
	"fmt"

	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/pkg/math"
)

// PointCubeSize is the face resolution of point light shadow cubes.
const PointCubeSize = 64

// CubeRenderer renders world depth into a point light cube.
type CubeRenderer interface {
	RenderShadowCube(cube *PointCube, opts CubeOptions)
}

// CubeOptions select what a cube render includes.
type CubeOptions struct {
	CullFront bool
	Indoor    bool
	NoNPCs    bool
}

// PointCube is the six-face depth cube of one shadowed point light.
type PointCube struct {
	renderer CubeRenderer
	tex      gpu.Texture
	layered  gpu.DepthView
	faces    [gpu.CubeFaces]gpu.DepthView
	srv      gpu.ShaderView
	size     int

	position math.Vec3
	lastPos  math.Vec3
	lrange   float32
	indoor   bool
	dynamic  bool

	inited        bool
	dirty         bool
	rendered      bool
	renderedFrame uint64
}

// NewPointCube allocates a cube. The cube is inited once every resource
// exists; a failed allocation releases what was created.
func NewPointCube(dev gpu.Device, renderer CubeRenderer, size int) (*PointCube, error) {
	c := &PointCube{renderer: renderer, size: size, dirty: true}
	if err := c.allocate(dev); err != nil {
		c.Release()
		return nil, err
	}
	c.inited = true
	return c, nil
}

func (c *PointCube) allocate(dev gpu.Device) error {
	tex, err := dev.CreateTexture(gpu.TextureDesc{
		Label:  "PointLightShadowCube",
		Kind:   gpu.TextureCube,
		Width:  c.size,
		Height: c.size,
		Format: gpu.FormatDepth16,
		Usage:  gpu.UsageDepth | gpu.UsageShader,
	})
	if err != nil {
		return fmt.Errorf("creating point light cube (%d): %w", c.size, err)
	}
	c.tex = tex

	if c.layered, err = dev.CreateDepthView(tex, gpu.AllLayers); err != nil {
		return fmt.Errorf("creating layered cube depth view: %w", err)
	}
	for i := range c.faces {
		if c.faces[i], err = dev.CreateDepthView(tex, i); err != nil {
			return fmt.Errorf("creating depth view for cube face %d: %w", i, err)
		}
	}
	if c.srv, err = dev.CreateShaderView(tex); err != nil {
		return fmt.Errorf("creating cube shader view: %w", err)
	}
	return nil
}

// Release frees the device resources. The cube is no longer inited.
func (c *PointCube) Release() {
	for i, f := range c.faces {
		if f != nil {
			f.Release()
			c.faces[i] = nil
		}
	}
	for _, r := range []gpu.Resource{c.layered, c.srv, c.tex} {
		if r != nil {
			r.Release()
		}
	}
	c.layered, c.srv, c.tex = nil, nil, nil
	c.inited = false
}

// SetLight updates the light the cube belongs to. Moving the light marks the
// cube for an update.
func (c *PointCube) SetLight(position math.Vec3, lightRange float32, indoor, dynamic bool) {
	c.position = position
	if lightRange != c.lrange {
		c.dirty = true
	}
	c.lrange = lightRange
	c.indoor = indoor
	c.dynamic = dynamic
}

// IsInited reports whether the cube's resources exist.
func (c *PointCube) IsInited() bool { return c.inited }

// NeedsUpdate reports whether the light changed since the last render: it
// moved, its range changed or the cube was marked dirty. A cube that was
// never rendered does not need an update; its first render is requested by
// the light.
func (c *PointCube) NeedsUpdate() bool {
	return c.inited && c.rendered && (c.dirty || c.position != c.lastPos)
}

// Rendered reports whether the cube holds a rendered depth map.
func (c *PointCube) Rendered() bool { return c.rendered }

// MarkDirty forces the next render.
func (c *PointCube) MarkDirty() { c.dirty = true }

// Dynamic reports whether NPCs are rendered into the cube.
func (c *PointCube) Dynamic() bool { return c.dynamic }

// RenderCubemap renders the cube at most once per frame. Static cubes that
// are up to date are only re-rendered when forced. It reports whether a
// render happened.
func (c *PointCube) RenderCubemap(frame uint64, force bool) bool {
	if !c.inited {
		return false
	}
	if c.rendered && c.renderedFrame == frame {
		return false
	}
	if !force && !c.dynamic && c.rendered && !c.NeedsUpdate() {
		return false
	}

	c.renderer.RenderShadowCube(c, CubeOptions{
		CullFront: true,
		Indoor:    c.indoor,
		NoNPCs:    !c.dynamic,
	})

	c.rendered = true
	c.renderedFrame = frame
	c.dirty = false
	c.lastPos = c.position
	return true
}

// Bind binds the cube to a pixel shader slot for the lighting pass.
func (c *PointCube) Bind(ctx gpu.Context, slot int) {
	if c.srv != nil {
		ctx.BindShaderView(gpu.StagePixel, slot, c.srv)
	}
}

// Position returns the light position.
func (c *PointCube) Position() math.Vec3 { return c.position }

// Range returns the light range.
func (c *PointCube) Range() float32 { return c.lrange }

// Size returns the face resolution.
func (c *PointCube) Size() int { return c.size }

// DepthView returns the view over all six faces.
func (c *PointCube) DepthView() gpu.DepthView { return c.layered }

// FaceView returns the depth view of one face, or nil.
func (c *PointCube) FaceView(face int) gpu.DepthView {
	if face < 0 || face >= len(c.faces) {
		return nil
	}
	return c.faces[face]
}

// ShaderView returns the view sampled by the lighting pass.
func (c *PointCube) ShaderView() gpu.ShaderView { return c.srv }
