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

type instanceConstants struct {
	World math.Mat4
}

type unit struct {
	target uint32
	id     uint32
}

// Context issues GL commands for the gpu.Context interface.
type Context struct {
	dev *Device

	viewport gpu.Viewport
	depth    gpu.DepthState
	programs map[programKey]uint32
	failed   map[programKey]bool
	program  uint32
	faces    int32

	ubos     [len(stagePrefix) * slotsPerStage]uint32
	units    [len(stagePrefix) * slotsPerStage]unit
	samplers map[uint32]uint32 // sampler slot binding -> texture unit
	packer   packer
	quadVAO  uint32

	events []string
	log    *zap.Logger
}

// NewContext sets up the state every pass relies on.
func NewContext(dev *Device, width, height int) *Context {
	c := &Context{
		dev:      dev,
		programs: make(map[programKey]uint32),
		failed:   make(map[programKey]bool),
		samplers: make(map[uint32]uint32),
		faces:    1,
		log:      logger.Named("glgpu"),
	}
	gl.GenBuffers(int32(len(c.ubos)), &c.ubos[0])
	// The full screen triangle is generated from gl_VertexID.
	gl.GenVertexArrays(1, &c.quadVAO)
	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)

	c.SetViewport(gpu.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1})
	c.SetRasterState(gpu.RasterState{Cull: gpu.CullBack})
	c.SetDepthState(gpu.DefaultDepthState())
	c.SetBlendState(gpu.OpaqueBlendState())
	return c
}

// MapSampler applies samplers bound at samplerSlot to the texture bound at
// textureSlot of the same stage. GL couples samplers to texture units while
// the passes address them separately.
func (c *Context) MapSampler(stage gpu.Stage, samplerSlot, textureSlot int) {
	c.samplers[binding(stage, samplerSlot)] = binding(stage, textureSlot)
}

// Release deletes the context objects and every linked program.
func (c *Context) Release() {
	gl.DeleteBuffers(int32(len(c.ubos)), &c.ubos[0])
	gl.DeleteVertexArrays(1, &c.quadVAO)
	for k, p := range c.programs {
		gl.DeleteProgram(p)
		delete(c.programs, k)
	}
}

func (c *Context) SetRenderTargets(color gpu.RenderTargetView, depth gpu.DepthView) {
	cv, _ := color.(*RenderTargetView)
	dv, _ := depth.(*DepthView)
	fbo, err := c.dev.framebuffer(cv, dv)
	if err != nil {
		c.log.Warn("binding render targets failed", zap.Strings("events", c.events), zap.Error(err))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
}

func (c *Context) ClearDepth(view gpu.DepthView, depth float32) {
	v, ok := view.(*DepthView)
	if !ok || v == nil || v.fbo == 0 {
		return
	}
	var prev int32
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, v.fbo)
	gl.DepthMask(true)
	gl.ClearDepth(float64(depth))
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.DepthMask(c.depth.Write)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(prev))
}

func (c *Context) Viewport() gpu.Viewport { return c.viewport }

func (c *Context) SetViewport(vp gpu.Viewport) {
	c.viewport = vp
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))
	gl.DepthRange(float64(vp.MinDepth), float64(vp.MaxDepth))
}

func (c *Context) BindShaderView(stage gpu.Stage, slot int, view gpu.ShaderView) {
	if !validSlot(stage, slot) {
		return
	}
	b := binding(stage, slot)
	gl.ActiveTexture(gl.TEXTURE0 + b)
	u := &c.units[b]
	if v, ok := view.(*ShaderView); ok && v != nil {
		if u.target != 0 && u.target != v.tex.target {
			gl.BindTexture(u.target, 0)
		}
		*u = unit{target: v.tex.target, id: v.tex.id}
		gl.BindTexture(u.target, u.id)
		return
	}
	if u.target != 0 {
		gl.BindTexture(u.target, 0)
	}
	*u = unit{}
}

func (c *Context) BindSampler(stage gpu.Stage, slot int, s gpu.Sampler) {
	if !validSlot(stage, slot) {
		return
	}
	b := binding(stage, slot)
	if to, ok := c.samplers[b]; ok {
		b = to
	}
	var id uint32
	if gs, ok := s.(*Sampler); ok && gs != nil {
		id = gs.id
	}
	gl.BindSampler(b, id)
}

func (c *Context) SetRasterState(s gpu.RasterState) {
	switch s.Cull {
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

func (c *Context) SetDepthState(s gpu.DepthState) {
	c.depth = s
	if s.Test {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(s.Write)
	gl.DepthFunc(compareFuncs[s.Compare])
}

func (c *Context) SetBlendState(s gpu.BlendState) {
	if s.Enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
		if s.Op == gpu.BlendOpMax {
			gl.BlendEquation(gl.MAX)
		} else {
			gl.BlendEquation(gl.FUNC_ADD)
		}
	} else {
		gl.Disable(gl.BLEND)
	}
	gl.ColorMask(s.ColorWrites, s.ColorWrites, s.ColorWrites, s.ColorWrites)
}

// SetShaders links the combination on first use. A combination failing to
// link draws nothing.
func (c *Context) SetShaders(set gpu.ShaderSet) {
	key := keyOf(set)
	c.faces = 1
	if key.vertex != nil && key.geometry == nil {
		c.faces = key.vertex.faces
	}

	p, ok := c.programs[key]
	if !ok && !c.failed[key] && key.vertex != nil {
		var err error
		p, err = linkProgram(set)
		if err != nil {
			c.failed[key] = true
			c.log.Warn("linking shaders failed", zap.String("shaders", setName(set)), zap.Error(err))
		} else {
			c.programs[key] = p
		}
	}
	c.program = p
	gl.UseProgram(p)
}

func setName(set gpu.ShaderSet) string {
	var names []string
	for _, s := range []gpu.Shader{set.Vertex, set.Geometry, set.Pixel} {
		if s != nil {
			names = append(names, s.Name())
		}
	}
	return strings.Join(names, "+")
}

func (c *Context) UpdateConstants(stage gpu.Stage, slot int, data any) error {
	if !validSlot(stage, slot) {
		return fmt.Errorf("%w: %v slot %d", gpu.ErrInvalidDesc, stage, slot)
	}
	buf, err := c.packer.pack(data)
	if err != nil {
		return err
	}
	b := binding(stage, slot)
	gl.BindBuffer(gl.UNIFORM_BUFFER, c.ubos[b])
	gl.BufferData(gl.UNIFORM_BUFFER, len(buf), unsafe.Pointer(&buf[0]), gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, b, c.ubos[b])
	return nil
}

func (c *Context) DrawMesh(mesh gpu.Mesh, world math.Mat4) {
	m, ok := mesh.(*Mesh)
	if !ok || m == nil || m.vao == 0 || c.program == 0 {
		return
	}
	if err := c.UpdateConstants(gpu.StageVertex, gpu.InstanceSlot, &instanceConstants{World: world}); err != nil {
		return
	}
	gl.BindVertexArray(m.vao)
	if c.faces > 1 {
		gl.DrawElementsInstanced(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil, c.faces)
	} else {
		gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
}

func (c *Context) DrawFullScreenQuad() {
	if c.program == 0 {
		return
	}
	gl.BindVertexArray(c.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

// BeginEvent names the commands that follow in error reports.
func (c *Context) BeginEvent(name string) {
	c.events = append(c.events, name)
}

// EndEvent reports GL errors raised inside the event.
func (c *Context) EndEvent() {
	if len(c.events) == 0 {
		return
	}
	if err := checkError("rendering", strings.Join(c.events, "/")); err != nil {
		c.log.Warn("gl errors", zap.Error(err))
	}
	c.events = c.events[:len(c.events)-1]
}

var (
	_ gpu.Device        = (*Device)(nil)
	_ gpu.Context       = (*Context)(nil)
	_ gpu.ShaderLibrary = (*Library)(nil)
)
