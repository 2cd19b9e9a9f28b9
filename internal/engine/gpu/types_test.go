package gpu

import (
	"errors"
	"testing"
)

func TestTextureDescValidate(t *testing.T) {
	tests := []struct {
		name       string
		desc       TextureDesc
		wantErr    bool
		wantLayers int
	}{
		{
			name:       "depth array",
			desc:       TextureDesc{Kind: Texture2DArray, Width: 512, Height: 512, Layers: 3, Format: FormatDepth16, Usage: UsageDepth | UsageShader},
			wantLayers: 3,
		},
		{
			name:       "cube gets six faces",
			desc:       TextureDesc{Kind: TextureCube, Width: 64, Height: 64, Format: FormatDepth16, Usage: UsageDepth},
			wantLayers: CubeFaces,
		},
		{
			name:       "plain 2d has one layer",
			desc:       TextureDesc{Kind: Texture2D, Width: 8, Height: 4, Layers: 9, Format: FormatRGBA8, Usage: UsageRenderTarget},
			wantLayers: 1,
		},
		{
			name:    "zero size",
			desc:    TextureDesc{Kind: Texture2D, Format: FormatRGBA8, Usage: UsageShader},
			wantErr: true,
		},
		{
			name:    "empty array",
			desc:    TextureDesc{Kind: Texture2DArray, Width: 4, Height: 4, Format: FormatDepth16, Usage: UsageDepth},
			wantErr: true,
		},
		{
			name:    "non-square cube",
			desc:    TextureDesc{Kind: TextureCube, Width: 64, Height: 32, Format: FormatDepth16, Usage: UsageDepth},
			wantErr: true,
		},
		{
			name:    "depth usage on color format",
			desc:    TextureDesc{Kind: Texture2D, Width: 4, Height: 4, Format: FormatRGBA8, Usage: UsageDepth},
			wantErr: true,
		},
		{
			name:    "color usage on depth format",
			desc:    TextureDesc{Kind: Texture2D, Width: 4, Height: 4, Format: FormatDepth32F, Usage: UsageRenderTarget},
			wantErr: true,
		},
		{
			name:    "no usage",
			desc:    TextureDesc{Kind: Texture2D, Width: 4, Height: 4, Format: FormatRGBA8},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.desc
			err := d.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDesc) {
					t.Errorf("Validate() = %v, want ErrInvalidDesc", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if d.Layers != tt.wantLayers {
				t.Errorf("layers = %d, want %d", d.Layers, tt.wantLayers)
			}
		})
	}
}

func TestCheckLayer(t *testing.T) {
	desc := TextureDesc{Label: "csm", Layers: 3}
	for _, layer := range []int{AllLayers, 0, 2} {
		if err := CheckLayer(desc, layer); err != nil {
			t.Errorf("CheckLayer(%d) = %v", layer, err)
		}
	}
	for _, layer := range []int{3, -2} {
		if err := CheckLayer(desc, layer); !errors.Is(err, ErrInvalidDesc) {
			t.Errorf("CheckLayer(%d) = %v, want ErrInvalidDesc", layer, err)
		}
	}
}

func TestStageString(t *testing.T) {
	if StagePixel.String() != "pixel" || Stage(9).String() != "stage(9)" {
		t.Errorf("unexpected stage names %q %q", StagePixel, Stage(9))
	}
}
