package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/umbra/internal/engine/gpu"
)

// ReadLit reads the lit HDR image as bottom-up RGBA rows, clamped to
// eight bits. It works whether or not the image was presented.
func (g *GBuffer) ReadLit() (pixels []byte, width, height int, err error) {
	fbo, err := g.dev.framebuffer(g.HDR, g.Depth)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading lit image: %w", err)
	}
	width, height = g.width, g.height
	pixels = make([]byte, width*height*4)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if err := checkError("read lit image", "HDR"); err != nil {
		return nil, 0, 0, err
	}
	return pixels, width, height, nil
}

// ReadDepth reads the layer a depth view renders to as bottom-up rows.
func ReadDepth(view gpu.DepthView) (depth []float32, width, height int, err error) {
	v, ok := view.(*DepthView)
	if !ok || v == nil || v.fbo == 0 {
		return nil, 0, 0, fmt.Errorf("reading depth: %w", gpu.ErrInvalidDesc)
	}
	desc := v.tex.Desc()
	width, height = desc.Width, desc.Height
	depth = make([]float32, width*height)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, v.fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(depth))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if err := checkError("read depth", desc.Label); err != nil {
		return nil, 0, 0, err
	}
	return depth, width, height, nil
}
