package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/umbra/internal/engine/gpu"
)

// PSGBuffer writes albedo and normals into a GBuffer.
const PSGBuffer = "PS_GBuffer"

// GBuffer is the geometry buffer the viewer renders before lighting:
// albedo and normals written together through one multiple render target
// view, the scene depth, a copy of it the lighting pass samples, and the HDR
// target lighting accumulates into.
type GBuffer struct {
	dev           *Device
	width, height int
	textures      []*Texture

	Target    *RenderTargetView // albedo + normals
	Depth     *DepthView
	HDR       *RenderTargetView
	Diffuse   *ShaderView
	Normals   *ShaderView
	DepthCopy *ShaderView

	copyView *DepthView
	hdr      *Texture
}

// NewGBuffer creates a width x height geometry buffer.
func NewGBuffer(dev *Device, width, height int) (*GBuffer, error) {
	g := &GBuffer{dev: dev, width: max(width, 1), height: max(height, 1)}
	if err := g.create(); err != nil {
		g.Release()
		return nil, fmt.Errorf("creating gbuffer: %w", err)
	}
	return g, nil
}

func (g *GBuffer) texture(label string, format gpu.Format, usage gpu.Usage) (*Texture, error) {
	tex, err := g.dev.CreateTexture(gpu.TextureDesc{
		Label:  label,
		Kind:   gpu.Texture2D,
		Width:  g.width,
		Height: g.height,
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		return nil, err
	}
	t := tex.(*Texture)
	g.textures = append(g.textures, t)
	return t, nil
}

func (g *GBuffer) create() error {
	albedo, err := g.texture("GBufferAlbedo", gpu.FormatRGBA8, gpu.UsageRenderTarget|gpu.UsageShader)
	if err != nil {
		return err
	}
	normals, err := g.texture("GBufferNormals", gpu.FormatRGBA16F, gpu.UsageRenderTarget|gpu.UsageShader)
	if err != nil {
		return err
	}
	hdr, err := g.texture("HDR", gpu.FormatRGBA16F, gpu.UsageRenderTarget|gpu.UsageShader)
	if err != nil {
		return err
	}
	depth, err := g.texture("GBufferDepth", gpu.FormatDepth32F, gpu.UsageDepth|gpu.UsageShader)
	if err != nil {
		return err
	}
	depthCopy, err := g.texture("GBufferDepthCopy", gpu.FormatDepth32F, gpu.UsageDepth|gpu.UsageShader)
	if err != nil {
		return err
	}

	g.Target = g.dev.newRenderTarget(0, albedo, normals)
	g.HDR = g.dev.newRenderTarget(0, hdr)
	g.hdr = hdr
	g.Diffuse = &ShaderView{tex: albedo}
	g.Normals = &ShaderView{tex: normals}
	g.DepthCopy = &ShaderView{tex: depthCopy}

	dv, err := g.dev.CreateDepthView(depth, 0)
	if err != nil {
		return err
	}
	g.Depth = dv.(*DepthView)
	cv, err := g.dev.CreateDepthView(depthCopy, 0)
	if err != nil {
		return err
	}
	g.copyView = cv.(*DepthView)

	// Build the combined framebuffers now so failures surface here.
	if _, err := g.dev.framebuffer(g.Target, g.Depth); err != nil {
		return err
	}
	_, err = g.dev.framebuffer(g.HDR, g.Depth)
	return err
}

// Size returns the buffer dimensions.
func (g *GBuffer) Size() (width, height int) { return g.width, g.height }

// Resize recreates the buffer when the size changed.
func (g *GBuffer) Resize(width, height int) error {
	width, height = max(width, 1), max(height, 1)
	if width == g.width && height == g.height {
		return nil
	}
	g.Release()
	g.width, g.height = width, height
	if err := g.create(); err != nil {
		g.Release()
		return fmt.Errorf("resizing gbuffer: %w", err)
	}
	return nil
}

// Begin binds the geometry targets and clears them and the HDR target.
func (g *GBuffer) Begin(ctx *Context) {
	ctx.SetRenderTargets(g.HDR, g.Depth)
	gl.ColorMask(true, true, true, true)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	ctx.SetRenderTargets(g.Target, g.Depth)
	gl.DepthMask(true)
	gl.ClearColor(0, 0, 0, 0)
	gl.ClearDepth(1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.DepthMask(ctx.depth.Write)
}

// CopyDepth copies the scene depth into the texture the lighting pass reads.
func (g *GBuffer) CopyDepth() {
	w, h := int32(g.width), int32(g.height)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, g.Depth.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, g.copyView.fbo)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.DEPTH_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// HDRTexture returns the GL name of the lit image, for display as an ImGui
// image instead of Present.
func (g *GBuffer) HDRTexture() uint32 {
	if g.hdr == nil {
		return 0
	}
	return g.hdr.ID()
}

// Present copies the HDR target onto the default framebuffer.
func (g *GBuffer) Present(width, height int) {
	fbo, err := g.dev.framebuffer(g.HDR, g.Depth)
	if err != nil {
		return
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(g.width), int32(g.height), 0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Release deletes every texture and framebuffer.
func (g *GBuffer) Release() {
	for _, v := range []*RenderTargetView{g.Target, g.HDR} {
		if v != nil {
			v.Release()
		}
	}
	for _, v := range []*DepthView{g.Depth, g.copyView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range g.textures {
		t.Release()
	}
	g.textures = nil
	g.Target, g.HDR, g.Depth, g.copyView = nil, nil, nil, nil
	g.Diffuse, g.Normals, g.DepthCopy, g.hdr = nil, nil, nil, nil
}
