// Package glgpu implements the gpu interfaces on OpenGL 4.1 core. Every call
// must come from the thread owning the GL context.
package glgpu

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

// Extensions that let a vertex shader write gl_Layer.
var layerExtensions = []string{
	"GL_ARB_shader_viewport_layer_array",
	"GL_AMD_vertex_shader_layer",
}

type fboKey struct {
	color *RenderTargetView
	depth *DepthView
}

// Device creates OpenGL resources.
type Device struct {
	maxSize  int
	features gpu.Features
	// framebuffers combining a color and a depth view, built on first use
	combined map[fboKey]uint32
	log      *zap.Logger
}

// Init loads the GL entry points and returns a device for the current
// context.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func Init() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{
		combined: make(map[fboKey]uint32),
		log:      logger.Named("glgpu"),
	}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	d.maxSize = int(maxSize)

	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make(map[string]bool, n)
	for i := int32(0); i < n; i++ {
		exts[gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i)))] = true
	}
	for _, e := range layerExtensions {
		if exts[e] {
			d.features.LayeredFromAnyShader = true
		}
	}
	// Framebuffers without color attachments are complete in core GL.
	d.features.DepthOnlyCube = true

	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("max_texture_size", d.maxSize),
		zap.Bool("layered_vertex_shader", d.features.LayeredFromAnyShader),
	)
	return d, nil
}

// MaxTextureSize implements gpu.Device.
func (d *Device) MaxTextureSize() int { return d.maxSize }

// Features implements gpu.Device.
func (d *Device) Features() gpu.Features { return d.features }

// checkError turns a pending GL error into an error about op.
func checkError(op, label string) error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("0x%x", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("%s %q: gl error %s", op, label, strings.Join(codes, ","))
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Width > d.maxSize || desc.Height > d.maxSize {
		return nil, fmt.Errorf("%w: %q %dx%d exceeds %d", gpu.ErrUnsupported, desc.Label, desc.Width, desc.Height, d.maxSize)
	}
	f, ok := formats[desc.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q format %v", gpu.ErrUnsupported, desc.Label, desc.Format)
	}

	t := &Texture{desc: desc, target: targets[desc.Kind]}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(t.target, t.id)

	w, h := int32(desc.Width), int32(desc.Height)
	switch desc.Kind {
	case gpu.Texture2D:
		gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, w, h, 0, f.format, f.xtype, nil)
	case gpu.Texture2DArray:
		gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, f.internal, w, h, int32(desc.Layers), 0, f.format, f.xtype, nil)
	case gpu.TextureCube:
		for face := uint32(0); face < gpu.CubeFaces; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, f.internal, w, h, 0, f.format, f.xtype, nil)
		}
	}
	setTextureParams(t.target, desc)
	gl.BindTexture(t.target, 0)

	if err := checkError("creating texture", desc.Label); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func setTextureParams(target uint32, desc gpu.TextureDesc) {
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	if desc.Format.IsDepth() && desc.Kind != gpu.Texture2D {
		// Shadow arrays and cubes are sampled with comparison.
		gl.TexParameteri(target, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.TexParameteri(target, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)
	}
}

// attach attaches layer of tex, or every layer, to the bound framebuffer.
func attach(attachment uint32, t *Texture, layer int) {
	switch {
	case layer == gpu.AllLayers:
		gl.FramebufferTexture(gl.FRAMEBUFFER, attachment, t.id, 0)
	case t.desc.Kind == gpu.Texture2D:
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, t.id, 0)
	case t.desc.Kind == gpu.TextureCube:
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(layer), t.id, 0)
	default:
		gl.FramebufferTextureLayer(gl.FRAMEBUFFER, attachment, t.id, 0, int32(layer))
	}
}

// newFramebuffer builds a framebuffer with the given attachments. A nil
// color leaves the draw buffer at NONE.
func newFramebuffer(label string, color *RenderTargetView, depth *DepthView) (uint32, error) {
	var prev int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev))

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	if depth != nil {
		attach(gl.DEPTH_ATTACHMENT, depth.tex, depth.layer)
	}
	if color != nil {
		for i, t := range color.textures {
			attach(gl.COLOR_ATTACHMENT0+uint32(i), t, color.layer)
		}
		gl.DrawBuffers(int32(len(color.drawBuffers)), &color.drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("%w: framebuffer %q incomplete: 0x%x", gpu.ErrUnsupported, label, status)
	}
	return fbo, nil
}

func asTexture(tex gpu.Texture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil || t.id == 0 {
		return nil, fmt.Errorf("%w: not a live OpenGL texture: %T", gpu.ErrInvalidDesc, tex)
	}
	return t, nil
}

// CreateDepthView implements gpu.Device. Each depth view owns a framebuffer
// with only the depth attachment.
func (d *Device) CreateDepthView(tex gpu.Texture, layer int) (gpu.DepthView, error) {
	t, err := asTexture(tex)
	if err != nil {
		return nil, err
	}
	if t.desc.Usage&gpu.UsageDepth == 0 {
		return nil, fmt.Errorf("%w: %q has no depth usage", gpu.ErrInvalidDesc, t.desc.Label)
	}
	if err := gpu.CheckLayer(t.desc, layer); err != nil {
		return nil, err
	}
	v := &DepthView{dev: d, tex: t, layer: layer}
	if v.fbo, err = newFramebuffer(t.desc.Label, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateShaderView implements gpu.Device.
func (d *Device) CreateShaderView(tex gpu.Texture) (gpu.ShaderView, error) {
	t, err := asTexture(tex)
	if err != nil {
		return nil, err
	}
	if t.desc.Usage&gpu.UsageShader == 0 {
		return nil, fmt.Errorf("%w: %q has no shader usage", gpu.ErrInvalidDesc, t.desc.Label)
	}
	return &ShaderView{tex: t}, nil
}

// CreateRenderTargetView implements gpu.Device.
func (d *Device) CreateRenderTargetView(tex gpu.Texture, layer int) (gpu.RenderTargetView, error) {
	t, err := asTexture(tex)
	if err != nil {
		return nil, err
	}
	if t.desc.Usage&gpu.UsageRenderTarget == 0 {
		return nil, fmt.Errorf("%w: %q has no render target usage", gpu.ErrInvalidDesc, t.desc.Label)
	}
	if err := gpu.CheckLayer(t.desc, layer); err != nil {
		return nil, err
	}
	return d.newRenderTarget(layer, t), nil
}

func (d *Device) newRenderTarget(layer int, textures ...*Texture) *RenderTargetView {
	v := &RenderTargetView{dev: d, textures: textures, layer: layer}
	for i := range textures {
		v.drawBuffers = append(v.drawBuffers, gl.COLOR_ATTACHMENT0+uint32(i))
	}
	return v
}

// framebuffer returns the framebuffer drawing into color and depth.
func (d *Device) framebuffer(color *RenderTargetView, depth *DepthView) (uint32, error) {
	switch {
	case color == nil && depth == nil:
		return 0, nil
	case color == nil:
		return depth.fbo, nil
	}
	key := fboKey{color, depth}
	if fbo, ok := d.combined[key]; ok {
		return fbo, nil
	}
	fbo, err := newFramebuffer(color.textures[0].desc.Label, color, depth)
	if err != nil {
		return 0, err
	}
	d.combined[key] = fbo
	return fbo, nil
}

// forget deletes the combined framebuffers using a released view.
func (d *Device) forget(color *RenderTargetView, depth *DepthView) {
	for k, fbo := range d.combined {
		if (color != nil && k.color == color) || (depth != nil && k.depth == depth) {
			gl.DeleteFramebuffers(1, &fbo)
			delete(d.combined, k)
		}
	}
}

// CreateSampler implements gpu.Device.
func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Sampler, error) {
	s := &Sampler{desc: desc}
	gl.GenSamplers(1, &s.id)

	filter := int32(gl.LINEAR)
	if desc.Filter == gpu.FilterPoint {
		filter = gl.NEAREST
	}
	wrap := int32(gl.REPEAT)
	if desc.Address == gpu.AddressClamp {
		wrap = gl.CLAMP_TO_EDGE
	}
	gl.SamplerParameteri(s.id, gl.TEXTURE_MIN_FILTER, filter)
	gl.SamplerParameteri(s.id, gl.TEXTURE_MAG_FILTER, filter)
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_S, wrap)
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_T, wrap)
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_R, wrap)
	if desc.Compare != gpu.CompareNever {
		gl.SamplerParameteri(s.id, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.SamplerParameteri(s.id, gl.TEXTURE_COMPARE_FUNC, int32(compareFuncs[desc.Compare]))
	}

	if err := checkError("creating sampler", ""); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// CreateMesh implements gpu.Device. Positions feed attribute location 0.
func (d *Device) CreateMesh(positions []math.Vec3, indices []uint32) (gpu.Mesh, error) {
	if len(positions) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", gpu.ErrInvalidDesc)
	}
	m := &Mesh{count: int32(len(indices))}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(positions)*int(unsafe.Sizeof(positions[0])), unsafe.Pointer(&positions[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, int32(unsafe.Sizeof(positions[0])), nil)
	gl.EnableVertexAttribArray(0)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := checkError("creating mesh", ""); err != nil {
		m.Release()
		return nil, err
	}
	d.log.Debug("mesh created",
		zap.Uint32("vao", m.vao),
		zap.Int("vertices", len(positions)),
		zap.Int("indices", len(indices)),
	)
	return m, nil
}
