package gpu

import "fmt"

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageGeometry
	StagePixel
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageGeometry:
		return "geometry"
	case StagePixel:
		return "pixel"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// InstanceSlot is the vertex constant slot DrawMesh writes the world matrix to.
const InstanceSlot = 1

// AllLayers selects every layer of a texture in a view.
const AllLayers = -1

// TextureKind is the dimensionality of a texture.
type TextureKind int

const (
	Texture2D TextureKind = iota
	Texture2DArray
	TextureCube
)

func (k TextureKind) String() string {
	switch k {
	case Texture2D:
		return "2d"
	case Texture2DArray:
		return "2d-array"
	case TextureCube:
		return "cube"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Format is a texel format.
type Format int

const (
	FormatDepth16 Format = iota
	FormatDepth32F
	FormatRGBA8
	FormatRGBA16F
)

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth16 || f == FormatDepth32F
}

func (f Format) String() string {
	switch f {
	case FormatDepth16:
		return "d16"
	case FormatDepth32F:
		return "d32f"
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16F:
		return "rgba16f"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Usage is a set of ways a texture can be bound.
type Usage uint8

const (
	UsageShader Usage = 1 << iota
	UsageDepth
	UsageRenderTarget
)

// CubeFaces is the layer count of a cube texture.
const CubeFaces = 6

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label  string
	Kind   TextureKind
	Width  int
	Height int
	Layers int // array slices; cubes always have CubeFaces
	Format Format
	Usage  Usage
}

// Validate checks the description and fills in the layer count of cubes
// and plain 2D textures.
func (d *TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %q size %dx%d", ErrInvalidDesc, d.Label, d.Width, d.Height)
	}
	switch d.Kind {
	case Texture2D:
		d.Layers = 1
	case Texture2DArray:
		if d.Layers < 1 {
			return fmt.Errorf("%w: %q array with %d layers", ErrInvalidDesc, d.Label, d.Layers)
		}
	case TextureCube:
		if d.Width != d.Height {
			return fmt.Errorf("%w: %q cube faces must be square", ErrInvalidDesc, d.Label)
		}
		d.Layers = CubeFaces
	default:
		return fmt.Errorf("%w: %q kind %v", ErrInvalidDesc, d.Label, d.Kind)
	}
	if d.Usage == 0 {
		return fmt.Errorf("%w: %q has no usage", ErrInvalidDesc, d.Label)
	}
	if d.Usage&UsageDepth != 0 && !d.Format.IsDepth() {
		return fmt.Errorf("%w: %q depth usage with %v", ErrInvalidDesc, d.Label, d.Format)
	}
	if d.Usage&UsageRenderTarget != 0 && d.Format.IsDepth() {
		return fmt.Errorf("%w: %q color usage with %v", ErrInvalidDesc, d.Label, d.Format)
	}
	return nil
}

// CheckLayer validates a view layer against a texture.
func CheckLayer(desc TextureDesc, layer int) error {
	if layer == AllLayers || (layer >= 0 && layer < desc.Layers) {
		return nil
	}
	return fmt.Errorf("%w: %q layer %d of %d", ErrInvalidDesc, desc.Label, layer, desc.Layers)
}

// Features lists optional device capabilities.
type Features struct {
	// LayeredFromAnyShader means a vertex shader can select the target
	// layer, so cube shadows render without a geometry shader.
	LayeredFromAnyShader bool
	// DepthOnlyCube means cube passes may render without a color target.
	DepthOnlyCube bool
}

// Viewport is the rasterized region of the bound targets.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// SquareViewport covers a size x size target with the full depth range.
func SquareViewport(size int) Viewport {
	return Viewport{Width: float32(size), Height: float32(size), MaxDepth: 1}
}

// Filter is a texture filter.
type Filter int

const (
	FilterLinear Filter = iota
	FilterPoint
)

// AddressMode controls sampling outside [0, 1].
type AddressMode int

const (
	AddressWrap AddressMode = iota
	AddressClamp
)

// CompareFunc is a depth or sampler comparison.
type CompareFunc int

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareLessEqual
	CompareAlways
)

// SamplerDesc describes a sampler. A Compare other than CompareNever makes a
// comparison sampler.
type SamplerDesc struct {
	Filter  Filter
	Address AddressMode
	Compare CompareFunc
}

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (c CullMode) String() string {
	switch c {
	case CullNone:
		return "none"
	case CullBack:
		return "back"
	case CullFront:
		return "front"
	default:
		return fmt.Sprintf("cull(%d)", int(c))
	}
}

// RasterState is the rasterizer configuration.
type RasterState struct {
	Cull CullMode
}

// DepthState is the depth test configuration.
type DepthState struct {
	Test    bool
	Write   bool
	Compare CompareFunc
}

// DefaultDepthState tests and writes with LESS_EQUAL.
func DefaultDepthState() DepthState {
	return DepthState{Test: true, Write: true, Compare: CompareLessEqual}
}

// BlendOp combines source and destination colors.
type BlendOp int

const (
	BlendOpAdd BlendOp = iota
	BlendOpMax
)

// BlendState is the output merger configuration. When Enabled the blend is
// additive (one, one) with Op.
type BlendState struct {
	Enabled     bool
	Op          BlendOp
	ColorWrites bool
}

// OpaqueBlendState disables blending and writes color.
func OpaqueBlendState() BlendState {
	return BlendState{ColorWrites: true}
}

// AdditiveBlendState adds into the target with op.
func AdditiveBlendState(op BlendOp) BlendState {
	return BlendState{Enabled: true, Op: op, ColorWrites: true}
}
