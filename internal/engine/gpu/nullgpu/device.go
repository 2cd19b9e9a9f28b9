// Package nullgpu is a gpu.Device that allocates nothing and records every
// context command. The headless bench and the tests render through it.
package nullgpu

import (
	"fmt"

	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/pkg/math"
)

// Resource operations a FailFunc can fail.
const (
	OpTexture      = "texture"
	OpDepthView    = "depth-view"
	OpShaderView   = "shader-view"
	OpRenderTarget = "render-target-view"
	OpSampler      = "sampler"
	OpMesh         = "mesh"
)

// FailFunc decides whether a resource creation fails. label is the texture
// label, or empty for samplers and meshes.
type FailFunc func(op, label string) error

// Device is a recording gpu.Device.
type Device struct {
	MaxSize  int
	Feats    gpu.Features
	Fail     FailFunc
	nextID   int
	live     int
	created  map[string]int
	released map[string]int
}

// NewDevice returns a device reporting maxSize as its texture limit.
func NewDevice(maxSize int) *Device {
	return &Device{
		MaxSize:  maxSize,
		created:  make(map[string]int),
		released: make(map[string]int),
	}
}

// Live returns the number of resources created and not yet released.
func (d *Device) Live() int { return d.live }

// Created returns how many resources of op were created.
func (d *Device) Created(op string) int { return d.created[op] }

// Released returns how many resources of op were released.
func (d *Device) Released(op string) int { return d.released[op] }

func (d *Device) fail(op, label string) error {
	if d.Fail == nil {
		return nil
	}
	if err := d.Fail(op, label); err != nil {
		return fmt.Errorf("nullgpu: creating %s %q: %w", op, label, err)
	}
	return nil
}

func (d *Device) track(op string) base {
	d.nextID++
	d.live++
	d.created[op]++
	return base{id: d.nextID, op: op, dev: d}
}

// MaxTextureSize implements gpu.Device.
func (d *Device) MaxTextureSize() int { return d.MaxSize }

// Features implements gpu.Device.
func (d *Device) Features() gpu.Features { return d.Feats }

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Width > d.MaxSize || desc.Height > d.MaxSize {
		return nil, fmt.Errorf("%w: %q %dx%d exceeds %d", gpu.ErrUnsupported, desc.Label, desc.Width, desc.Height, d.MaxSize)
	}
	if err := d.fail(OpTexture, desc.Label); err != nil {
		return nil, err
	}
	return &Texture{base: d.track(OpTexture), desc: desc}, nil
}

func (d *Device) view(op string, tex gpu.Texture, need gpu.Usage, layer int) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s over a foreign texture", gpu.ErrInvalidDesc, op)
	}
	if t.released {
		return nil, fmt.Errorf("%w: %s over released texture %q", gpu.ErrInvalidDesc, op, t.desc.Label)
	}
	if t.desc.Usage&need == 0 {
		return nil, fmt.Errorf("%w: %s over %q without usage", gpu.ErrInvalidDesc, op, t.desc.Label)
	}
	if err := gpu.CheckLayer(t.desc, layer); err != nil {
		return nil, err
	}
	if err := d.fail(op, t.desc.Label); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateDepthView implements gpu.Device.
func (d *Device) CreateDepthView(tex gpu.Texture, layer int) (gpu.DepthView, error) {
	t, err := d.view(OpDepthView, tex, gpu.UsageDepth, layer)
	if err != nil {
		return nil, err
	}
	return &DepthView{base: d.track(OpDepthView), tex: t, layer: layer}, nil
}

// CreateShaderView implements gpu.Device.
func (d *Device) CreateShaderView(tex gpu.Texture) (gpu.ShaderView, error) {
	t, err := d.view(OpShaderView, tex, gpu.UsageShader, gpu.AllLayers)
	if err != nil {
		return nil, err
	}
	return &ShaderView{base: d.track(OpShaderView), tex: t}, nil
}

// CreateRenderTargetView implements gpu.Device.
func (d *Device) CreateRenderTargetView(tex gpu.Texture, layer int) (gpu.RenderTargetView, error) {
	t, err := d.view(OpRenderTarget, tex, gpu.UsageRenderTarget, layer)
	if err != nil {
		return nil, err
	}
	return &RenderTargetView{base: d.track(OpRenderTarget), tex: t, layer: layer}, nil
}

// CreateSampler implements gpu.Device.
func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Sampler, error) {
	if err := d.fail(OpSampler, ""); err != nil {
		return nil, err
	}
	return &Sampler{base: d.track(OpSampler), desc: desc}, nil
}

// CreateMesh implements gpu.Device.
func (d *Device) CreateMesh(positions []math.Vec3, indices []uint32) (gpu.Mesh, error) {
	if len(positions) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: mesh with %d vertices and %d indices", gpu.ErrInvalidDesc, len(positions), len(indices))
	}
	for _, i := range indices {
		if int(i) >= len(positions) {
			return nil, fmt.Errorf("%w: mesh index %d out of %d vertices", gpu.ErrInvalidDesc, i, len(positions))
		}
	}
	if err := d.fail(OpMesh, ""); err != nil {
		return nil, err
	}
	return &Mesh{base: d.track(OpMesh), indices: len(indices)}, nil
}

type base struct {
	id       int
	op       string
	dev      *Device
	released bool
}

// ID returns a unique, non-zero resource id.
func (b *base) ID() int { return b.id }

// Released reports whether Release was called.
func (b *base) Released() bool { return b.released }

// Release implements gpu.Resource. Releasing twice is a no-op.
func (b *base) Release() {
	if b.released {
		return
	}
	b.released = true
	b.dev.live--
	b.dev.released[b.op]++
}

// Texture is a recorded texture.
type Texture struct {
	base
	desc gpu.TextureDesc
}

// Desc implements gpu.Texture.
func (t *Texture) Desc() gpu.TextureDesc { return t.desc }

// DepthView is a recorded depth target.
type DepthView struct {
	base
	tex   *Texture
	layer int
}

func (v *DepthView) Texture() gpu.Texture { return v.tex }
func (v *DepthView) Layer() int           { return v.layer }

// ShaderView is a recorded shader view.
type ShaderView struct {
	base
	tex *Texture
}

func (v *ShaderView) Texture() gpu.Texture { return v.tex }

// RenderTargetView is a recorded color target.
type RenderTargetView struct {
	base
	tex   *Texture
	layer int
}

func (v *RenderTargetView) Texture() gpu.Texture { return v.tex }
func (v *RenderTargetView) Layer() int           { return v.layer }

// Sampler is a recorded sampler.
type Sampler struct {
	base
	desc gpu.SamplerDesc
}

func (s *Sampler) Desc() gpu.SamplerDesc { return s.desc }

// Mesh is a recorded mesh.
type Mesh struct {
	base
	indices int
}

func (m *Mesh) IndexCount() int { return m.indices }
