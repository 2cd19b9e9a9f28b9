package shadow

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/logger"
)

// MaxCascades is the largest number of cascade slices.
const MaxCascades = config.MaxCascades

// MinMapSize is the smallest cascade resolution.
const MinMapSize = 512

// ErrNoDevice is returned when a buffer is used before Init.
var ErrNoDevice = errors.New("shadow: no device")

// CascadedBuffer owns a depth texture array with one slice per cascade, a
// depth view per slice and one shader view over the whole array.
type CascadedBuffer struct {
	dev         gpu.Device
	tex         gpu.Texture
	srv         gpu.ShaderView
	slices      [MaxCascades]gpu.DepthView
	size        int
	numCascades int
	log         *zap.Logger
}

// NewCascadedBuffer creates and initializes a buffer.
func NewCascadedBuffer(dev gpu.Device, size, numCascades int) (*CascadedBuffer, error) {
	b := &CascadedBuffer{}
	if err := b.Init(dev, size, numCascades); err != nil {
		return nil, err
	}
	return b, nil
}

// ClampMapSize limits size to [MinMapSize, maxSize].
func ClampMapSize(size, maxSize int) int {
	size = max(size, MinMapSize)
	if maxSize > 0 {
		size = min(size, maxSize)
	}
	return size
}

// Init allocates the buffer. numCascades is clamped to [1, MaxCascades].
func (b *CascadedBuffer) Init(dev gpu.Device, size, numCascades int) error {
	if b.log == nil {
		b.log = logger.Named("shadow")
	}
	b.release()
	b.dev = dev
	b.numCascades = min(max(numCascades, 1), MaxCascades)
	b.size = 0
	return b.Resize(size)
}

// Resize reallocates every slice at the clamped size. Resizing to the current
// size is a no-op.
func (b *CascadedBuffer) Resize(size int) error {
	if b.log == nil {
		b.log = logger.Named("shadow")
	}
	if b.dev == nil {
		b.log.Error("resizing cascaded shadow map without a device")
		return ErrNoDevice
	}

	size = ClampMapSize(size, b.dev.MaxTextureSize())
	if size == b.size && b.tex != nil {
		return nil
	}

	b.release()

	if err := b.allocate(size); err != nil {
		b.release()
		b.log.Error("creating cascaded shadow map failed",
			zap.Int("size", size),
			zap.Int("cascades", b.numCascades),
			zap.Error(err))
		return err
	}

	b.size = size
	b.log.Info("cascaded shadow map created",
		zap.Int("size", size),
		zap.Int("cascades", b.numCascades))
	return nil
}

func (b *CascadedBuffer) allocate(size int) error {
	tex, err := b.dev.CreateTexture(gpu.TextureDesc{
		Label:  "CascadedShadowMap",
		Kind:   gpu.Texture2DArray,
		Width:  size,
		Height: size,
		Layers: b.numCascades,
		Format: gpu.FormatDepth16,
		Usage:  gpu.UsageDepth | gpu.UsageShader,
	})
	if err != nil {
		return fmt.Errorf("creating cascade texture array (%dx%d, %d slices): %w", size, size, b.numCascades, err)
	}
	b.tex = tex

	for i := 0; i < b.numCascades; i++ {
		dv, err := b.dev.CreateDepthView(tex, i)
		if err != nil {
			return fmt.Errorf("creating depth view for cascade %d: %w", i, err)
		}
		b.slices[i] = dv
	}

	srv, err := b.dev.CreateShaderView(tex)
	if err != nil {
		return fmt.Errorf("creating cascade shader view: %w", err)
	}
	b.srv = srv
	return nil
}

func (b *CascadedBuffer) release() {
	for i, dv := range b.slices {
		if dv != nil {
			dv.Release()
			b.slices[i] = nil
		}
	}
	if b.srv != nil {
		b.srv.Release()
		b.srv = nil
	}
	if b.tex != nil {
		b.tex.Release()
		b.tex = nil
	}
}

// Release frees every device resource.
func (b *CascadedBuffer) Release() {
	b.release()
	b.size = 0
}

// CascadeDepthView returns the depth view of a slice, or nil when index is
// out of range.
func (b *CascadedBuffer) CascadeDepthView(index int) gpu.DepthView {
	if index < 0 || index >= b.numCascades {
		return nil
	}
	return b.slices[index]
}

// ShaderView returns the view over all slices.
func (b *CascadedBuffer) ShaderView() gpu.ShaderView {
	return b.srv
}

// Texture returns the underlying texture array.
func (b *CascadedBuffer) Texture() gpu.Texture {
	return b.tex
}

// BindToPixelShader binds the array to a pixel shader slot.
func (b *CascadedBuffer) BindToPixelShader(ctx gpu.Context, slot int) {
	if b.srv != nil {
		ctx.BindShaderView(gpu.StagePixel, slot, b.srv)
	}
}

// BindToVertexShader binds the array to a vertex shader slot.
func (b *CascadedBuffer) BindToVertexShader(ctx gpu.Context, slot int) {
	if b.srv != nil {
		ctx.BindShaderView(gpu.StageVertex, slot, b.srv)
	}
}

// Size returns the resolution of each slice.
func (b *CascadedBuffer) Size() int {
	return b.size
}

// NumCascades returns the slice count.
func (b *CascadedBuffer) NumCascades() int {
	return b.numCascades
}
