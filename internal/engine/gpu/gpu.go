// Package gpu defines the device abstraction the shadow and lighting passes
// render through. Implementations live in the glgpu (OpenGL) and nullgpu
// (recording) subpackages.
package gpu

import (
	"errors"

	"github.com/Faultbox/umbra/pkg/math"
)

var (
	// ErrUnsupported is returned when a device cannot provide a feature.
	ErrUnsupported = errors.New("gpu: unsupported")
	// ErrInvalidDesc is returned for malformed resource descriptions.
	ErrInvalidDesc = errors.New("gpu: invalid descriptor")
)

// Resource is anything owning device memory.
type Resource interface {
	Release()
}

// Texture is a device texture.
type Texture interface {
	Resource
	Desc() TextureDesc
}

// DepthView is a depth-stencil target over one layer of a texture, or over
// all of its layers for layered rendering.
type DepthView interface {
	Resource
	Texture() Texture
	// Layer returns the bound layer, or AllLayers.
	Layer() int
}

// ShaderView exposes a whole texture to shaders.
type ShaderView interface {
	Resource
	Texture() Texture
}

// RenderTargetView is a color target over one layer of a texture, or all of
// them.
type RenderTargetView interface {
	Resource
	Texture() Texture
	Layer() int
}

// Sampler is a texture sampler state.
type Sampler interface {
	Resource
	Desc() SamplerDesc
}

// Mesh is an indexed triangle list uploaded to the device.
type Mesh interface {
	Resource
	IndexCount() int
}

// Shader is a compiled shader stage.
type Shader interface {
	Stage() Stage
	Name() string
}

// ShaderSet is the group of shaders bound for a draw. A nil geometry shader
// means none.
type ShaderSet struct {
	Vertex   Shader
	Geometry Shader
	Pixel    Shader
}

// Device creates GPU resources.
type Device interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	// CreateDepthView creates a depth target over layer, or over every layer
	// when layer is AllLayers.
	CreateDepthView(tex Texture, layer int) (DepthView, error)
	CreateShaderView(tex Texture) (ShaderView, error)
	CreateRenderTargetView(tex Texture, layer int) (RenderTargetView, error)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	CreateMesh(positions []math.Vec3, indices []uint32) (Mesh, error)

	MaxTextureSize() int
	Features() Features
}

// Context records rendering commands. It is used from the render thread only.
type Context interface {
	// SetRenderTargets binds a color target (nil for depth-only) and a depth
	// target (nil for none).
	SetRenderTargets(color RenderTargetView, depth DepthView)
	ClearDepth(view DepthView, depth float32)

	Viewport() Viewport
	SetViewport(vp Viewport)

	// BindShaderView binds view to a texture slot; nil unbinds the slot.
	BindShaderView(stage Stage, slot int, view ShaderView)
	BindSampler(stage Stage, slot int, s Sampler)

	SetRasterState(s RasterState)
	SetDepthState(s DepthState)
	SetBlendState(s BlendState)
	SetShaders(set ShaderSet)

	// UpdateConstants uploads data into the constant buffer at slot. data
	// must be a pointer to a struct of fixed-size fields.
	UpdateConstants(stage Stage, slot int, data any) error

	// DrawMesh draws mesh with world written to the instance constant slot.
	DrawMesh(mesh Mesh, world math.Mat4)
	DrawFullScreenQuad()

	BeginEvent(name string)
	EndEvent()
}

// ShaderLibrary looks up compiled shaders. A missing shader returns nil and
// the caller skips the feature that needs it.
type ShaderLibrary interface {
	Shader(stage Stage, name string) Shader
}

// ResourceLock is held by code that streams textures onto the device. The
// render core never loads textures itself.
type ResourceLock interface {
	Lock()
	Unlock()
}
