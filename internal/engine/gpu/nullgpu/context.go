package nullgpu

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/pkg/math"
)

// Op names a recorded context command.
type Op string

const (
	OpSetRenderTargets Op = "SetRenderTargets"
	OpClearDepth       Op = "ClearDepth"
	OpSetViewport      Op = "SetViewport"
	OpBindShaderView   Op = "BindShaderView"
	OpBindSampler      Op = "BindSampler"
	OpSetRasterState   Op = "SetRasterState"
	OpSetDepthState    Op = "SetDepthState"
	OpSetBlendState    Op = "SetBlendState"
	OpSetShaders       Op = "SetShaders"
	OpUpdateConstants  Op = "UpdateConstants"
	OpDrawMesh         Op = "DrawMesh"
	OpDrawFullScreen   Op = "DrawFullScreenQuad"
	OpBeginEvent       Op = "BeginEvent"
	OpEndEvent         Op = "EndEvent"
)

// Call is one recorded command. Only the fields relevant to Op are set.
type Call struct {
	Op       Op
	Stage    gpu.Stage
	Slot     int
	Name     string
	Depth    float32
	Color    gpu.RenderTargetView
	Target   gpu.DepthView
	View     gpu.ShaderView
	Sampler  gpu.Sampler
	Viewport gpu.Viewport
	Raster   gpu.RasterState
	DepthSt  gpu.DepthState
	Blend    gpu.BlendState
	Shaders  gpu.ShaderSet
	Data     any // copy of the uploaded struct
	Mesh     gpu.Mesh
	World    math.Mat4
	Events   []string // open debug events when the call was made
}

type bindKey struct {
	stage gpu.Stage
	slot  int
}

// Context records commands and tracks the resulting bound state.
type Context struct {
	calls    []Call
	events   []string
	viewport gpu.Viewport
	views    map[bindKey]gpu.ShaderView
	samplers map[bindKey]gpu.Sampler
	raster   gpu.RasterState
	depth    gpu.DepthState
	blend    gpu.BlendState
	shaders  gpu.ShaderSet
	color    gpu.RenderTargetView
	target   gpu.DepthView
}

// NewContext returns a context with a width x height viewport.
func NewContext(width, height int) *Context {
	return &Context{
		viewport: gpu.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1},
		views:    make(map[bindKey]gpu.ShaderView),
		samplers: make(map[bindKey]gpu.Sampler),
		raster:   gpu.RasterState{Cull: gpu.CullBack},
		depth:    gpu.DefaultDepthState(),
		blend:    gpu.OpaqueBlendState(),
	}
}

func (c *Context) record(call Call) {
	if len(c.events) > 0 {
		call.Events = append([]string(nil), c.events...)
	}
	c.calls = append(c.calls, call)
}

// Calls returns the recorded commands, filtered to ops when any are given.
func (c *Context) Calls(ops ...Op) []Call {
	if len(ops) == 0 {
		return c.calls
	}
	var out []Call
	for _, call := range c.calls {
		for _, op := range ops {
			if call.Op == op {
				out = append(out, call)
				break
			}
		}
	}
	return out
}

// Count returns how many commands of op were recorded.
func (c *Context) Count(op Op) int {
	n := 0
	for _, call := range c.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// Reset drops the recorded commands but keeps the bound state.
func (c *Context) Reset() {
	c.calls = c.calls[:0]
}

// BoundView returns the view bound at stage/slot.
func (c *Context) BoundView(stage gpu.Stage, slot int) gpu.ShaderView {
	return c.views[bindKey{stage, slot}]
}

// BoundSampler returns the sampler bound at stage/slot.
func (c *Context) BoundSampler(stage gpu.Stage, slot int) gpu.Sampler {
	return c.samplers[bindKey{stage, slot}]
}

// RasterState returns the current raster state.
func (c *Context) RasterState() gpu.RasterState { return c.raster }

// DepthState returns the current depth state.
func (c *Context) DepthState() gpu.DepthState { return c.depth }

// BlendState returns the current blend state.
func (c *Context) BlendState() gpu.BlendState { return c.blend }

// Shaders returns the current shader set.
func (c *Context) Shaders() gpu.ShaderSet { return c.shaders }

// Targets returns the bound color and depth targets.
func (c *Context) Targets() (gpu.RenderTargetView, gpu.DepthView) { return c.color, c.target }

// OpenEvents returns the debug events not yet ended.
func (c *Context) OpenEvents() []string { return c.events }

func (c *Context) SetRenderTargets(color gpu.RenderTargetView, depth gpu.DepthView) {
	c.color, c.target = color, depth
	c.record(Call{Op: OpSetRenderTargets, Color: color, Target: depth})
}

func (c *Context) ClearDepth(view gpu.DepthView, depth float32) {
	c.record(Call{Op: OpClearDepth, Target: view, Depth: depth})
}

func (c *Context) Viewport() gpu.Viewport { return c.viewport }

func (c *Context) SetViewport(vp gpu.Viewport) {
	c.viewport = vp
	c.record(Call{Op: OpSetViewport, Viewport: vp})
}

func (c *Context) BindShaderView(stage gpu.Stage, slot int, view gpu.ShaderView) {
	if view == nil {
		delete(c.views, bindKey{stage, slot})
	} else {
		c.views[bindKey{stage, slot}] = view
	}
	c.record(Call{Op: OpBindShaderView, Stage: stage, Slot: slot, View: view})
}

func (c *Context) BindSampler(stage gpu.Stage, slot int, s gpu.Sampler) {
	if s == nil {
		delete(c.samplers, bindKey{stage, slot})
	} else {
		c.samplers[bindKey{stage, slot}] = s
	}
	c.record(Call{Op: OpBindSampler, Stage: stage, Slot: slot, Sampler: s})
}

func (c *Context) SetRasterState(s gpu.RasterState) {
	c.raster = s
	c.record(Call{Op: OpSetRasterState, Raster: s})
}

func (c *Context) SetDepthState(s gpu.DepthState) {
	c.depth = s
	c.record(Call{Op: OpSetDepthState, DepthSt: s})
}

func (c *Context) SetBlendState(s gpu.BlendState) {
	c.blend = s
	c.record(Call{Op: OpSetBlendState, Blend: s})
}

func (c *Context) SetShaders(set gpu.ShaderSet) {
	c.shaders = set
	c.record(Call{Op: OpSetShaders, Shaders: set})
}

// UpdateConstants implements gpu.Context. It enforces the fixed-size layout
// rule of the real backends so layout bugs surface in tests.
func (c *Context) UpdateConstants(stage gpu.Stage, slot int, data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: constants must be a struct pointer, got %T", gpu.ErrInvalidDesc, data)
	}
	if binary.Size(data) <= 0 {
		return fmt.Errorf("%w: %T is not fixed-size", gpu.ErrInvalidDesc, data)
	}
	c.record(Call{Op: OpUpdateConstants, Stage: stage, Slot: slot, Data: v.Elem().Interface()})
	return nil
}

func (c *Context) DrawMesh(mesh gpu.Mesh, world math.Mat4) {
	c.record(Call{Op: OpDrawMesh, Mesh: mesh, World: world, Shaders: c.shaders, Raster: c.raster})
}

func (c *Context) DrawFullScreenQuad() {
	c.record(Call{Op: OpDrawFullScreen, Shaders: c.shaders})
}

func (c *Context) BeginEvent(name string) {
	c.record(Call{Op: OpBeginEvent, Name: name})
	c.events = append(c.events, name)
}

func (c *Context) EndEvent() {
	if len(c.events) > 0 {
		c.events = c.events[:len(c.events)-1]
	}
	c.record(Call{Op: OpEndEvent})
}

var (
	_ gpu.Device  = (*Device)(nil)
	_ gpu.Context = (*Context)(nil)
)
