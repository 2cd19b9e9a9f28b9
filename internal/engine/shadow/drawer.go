package shadow

import (
	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/internal/engine/frustum"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/pkg/math"
)

// Pass identifies what a world draw renders into.
type Pass int

const (
	PassCascade Pass = iota
	PassRain
	PassCubeGeometry // one draw, a geometry shader fans out to six faces
	PassCubeLayered  // one draw, the vertex shader picks the face
	PassCubeFace     // one draw per face
	PassScene        // the camera geometry pass of the viewer
)

func (p Pass) String() string {
	switch p {
	case PassCascade:
		return "cascade"
	case PassRain:
		return "rain"
	case PassCubeGeometry:
		return "cube-gs"
	case PassCubeLayered:
		return "cube-layered"
	case PassCubeFace:
		return "cube-face"
	case PassScene:
		return "scene"
	default:
		return "unknown"
	}
}

// DrawOptions configures one depth-only world draw.
type DrawOptions struct {
	Pass      Pass
	Face      int // cube face for PassCubeFace
	CullFront bool
	NoCull    bool
	Indoor    bool
	NoNPCs    bool

	// Frustum culls instances; nil draws everything within the radius.
	Frustum *frustum.Frustum
	// Camera is the active (overridden) camera of the pass.
	Camera camera.State
}

// WorldDrawer draws world geometry around a point with depth-only shaders
// already bound. Implementations read the vob draw radii from the lighting
// settings shared with the renderer.
type WorldDrawer interface {
	DrawWorldAround(ctx gpu.Context, center math.Vec3, radius float32, opts DrawOptions)
}

// Shader names looked up by the shadow passes.
const (
	VSShadow  = "VS_Ex"
	VSLayered = "VS_ExLayered"
	VSCube    = "VS_ExCube"
	GSCube    = "GS_Cubemap"
	PSCube    = "PS_ShadowCube"
)

// PassConstants are uploaded to vertex slot 0 before a cascade, rain or
// single cube face draw.
type PassConstants struct {
	ViewProj math.Mat4
	LightPos [4]float32 // xyz position, w range (cube passes)
}

// CubeConstants are uploaded to slot 0 of the stage that expands a cube
// draw to six faces.
type CubeConstants struct {
	Faces    [6]math.Mat4
	LightPos [4]float32
}
