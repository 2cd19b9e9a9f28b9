// Package debug writes frame captures for inspecting the lighting output.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshots writes PNG captures into a directory.
type Screenshots struct {
	dir    string
	prefix string
	now    func() time.Time
	taken  int
}

// NewScreenshots creates a capture writer. An empty dir writes into the
// working directory.
func NewScreenshots(dir, prefix string) *Screenshots {
	return &Screenshots{dir: dir, prefix: prefix, now: time.Now}
}

// Taken returns how many captures were written.
func (s *Screenshots) Taken() int { return s.taken }

// Filename returns the path the next capture is written to.
func (s *Screenshots) Filename() string {
	name := fmt.Sprintf("%s_%s_%03d.png", s.prefix, s.now().Format("2006-01-02_15-04-05"), s.taken)
	if s.dir != "" {
		name = filepath.Join(s.dir, name)
	}
	return name
}

// CaptureRGBA writes bottom-up RGBA rows as read back from the GPU.
func (s *Screenshots) CaptureRGBA(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return s.write(img)
}

// CaptureDepth writes a bottom-up depth map as grayscale, near is black.
// Values are remapped from [lo, hi] so a shadow map with a narrow depth
// range stays readable.
func (s *Screenshots) CaptureDepth(depth []float32, width, height int, lo, hi float32) (string, error) {
	if len(depth) != width*height {
		return "", fmt.Errorf("depth data size mismatch: expected %d, got %d", width*height, len(depth))
	}
	if hi <= lo {
		lo, hi = 0, 1
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * width
		for x := 0; x < width; x++ {
			v := (depth[src+x] - lo) / (hi - lo)
			img.Pix[y*img.Stride+x] = uint8(min(max(v, 0), 1) * 255)
		}
	}
	return s.write(img)
}

func (s *Screenshots) write(img image.Image) (string, error) {
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	name := s.Filename()
	file, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	s.taken++
	return name, nil
}
