package glgpu

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/umbra/internal/engine/gpu"
)

type glFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var formats = map[gpu.Format]glFormat{
	gpu.FormatDepth16:  {gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT},
	gpu.FormatDepth32F: {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT},
	gpu.FormatRGBA8:    {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	gpu.FormatRGBA16F:  {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT},
}

var targets = map[gpu.TextureKind]uint32{
	gpu.Texture2D:      gl.TEXTURE_2D,
	gpu.Texture2DArray: gl.TEXTURE_2D_ARRAY,
	gpu.TextureCube:    gl.TEXTURE_CUBE_MAP,
}

var compareFuncs = map[gpu.CompareFunc]uint32{
	gpu.CompareNever:     gl.NEVER,
	gpu.CompareLess:      gl.LESS,
	gpu.CompareLessEqual: gl.LEQUAL,
	gpu.CompareAlways:    gl.ALWAYS,
}

// Texture is a GL texture object.
type Texture struct {
	id     uint32
	target uint32
	desc   gpu.TextureDesc
}

func (t *Texture) Desc() gpu.TextureDesc { return t.desc }

// ID returns the GL texture name.
func (t *Texture) ID() uint32 { return t.id }

func (t *Texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// DepthView owns a depth-only framebuffer over its layer.
type DepthView struct {
	dev   *Device
	tex   *Texture
	layer int
	fbo   uint32
}

func (v *DepthView) Texture() gpu.Texture { return v.tex }
func (v *DepthView) Layer() int           { return v.layer }

func (v *DepthView) Release() {
	if v.fbo != 0 {
		v.dev.forget(nil, v)
		gl.DeleteFramebuffers(1, &v.fbo)
		v.fbo = 0
	}
}

// ShaderView binds the whole texture; GL needs no separate object.
type ShaderView struct {
	tex *Texture
}

func (v *ShaderView) Texture() gpu.Texture { return v.tex }
func (v *ShaderView) Release()             {}

// RenderTargetView draws into one or more color textures. More than one
// texture means multiple render targets, written by fragment outputs 0..n.
type RenderTargetView struct {
	dev         *Device
	textures    []*Texture
	layer       int
	drawBuffers []uint32
}

func (v *RenderTargetView) Texture() gpu.Texture { return v.textures[0] }
func (v *RenderTargetView) Layer() int           { return v.layer }

func (v *RenderTargetView) Release() {
	if v.dev != nil {
		v.dev.forget(v, nil)
		v.dev = nil
	}
}

// Sampler is a GL sampler object.
type Sampler struct {
	id   uint32
	desc gpu.SamplerDesc
}

func (s *Sampler) Desc() gpu.SamplerDesc { return s.desc }

func (s *Sampler) Release() {
	if s.id != 0 {
		gl.DeleteSamplers(1, &s.id)
		s.id = 0
	}
}

// Mesh is an indexed triangle list in a vertex array object.
type Mesh struct {
	vao, vbo, ebo uint32
	count         int32
}

func (m *Mesh) IndexCount() int { return int(m.count) }

func (m *Mesh) Release() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
		m.vbo = 0
	}
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
		m.ebo = 0
	}
}
