package lighting

import (
	"testing"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/gpu/nullgpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/pkg/math"
)

type nopCubeRenderer struct{ renders int }

func (r *nopCubeRenderer) RenderShadowCube(*shadow.PointCube, shadow.CubeOptions) { r.renders++ }

func TestVariantFor(t *testing.T) {
	dev := nullgpu.NewDevice(4096)
	cube, err := shadow.NewPointCube(dev, &nopCubeRenderer{}, shadow.PointCubeSize)
	if err != nil {
		t.Fatalf("NewPointCube: %v", err)
	}

	tests := []struct {
		name    string
		level   config.PointLightShadowLevel
		hasCube bool
		dynamic bool
		want    ShadowVariant
	}{
		{"shadows off", config.PointLightShadowsOff, true, true, Unshadowed},
		{"no cube", config.PointLightShadowsFull, false, false, Unshadowed},
		{"static light", config.PointLightShadowsStatic, true, false, ShadowedStatic},
		{"dynamic light at static level", config.PointLightShadowsStatic, true, true, ShadowedStatic},
		{"dynamic light", config.PointLightShadowsDynamic, true, true, ShadowedDynamic},
		{"full level", config.PointLightShadowsFull, true, true, ShadowedDynamic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultShadows()
			s.PointLightShadows = tt.level
			l := NewPointLight("l", math.Vec3{}, [3]float32{1, 1, 1}, 100, true)
			l.Dynamic = tt.dynamic
			if tt.hasCube {
				l.cube = cube
			}
			if got := VariantFor(l, &s); got != tt.want {
				t.Errorf("VariantFor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariantShaderTable(t *testing.T) {
	if Unshadowed.ShaderName() != PSPointLight {
		t.Errorf("Unshadowed uses %q", Unshadowed.ShaderName())
	}
	for _, v := range []ShadowVariant{ShadowedStatic, ShadowedDynamic} {
		if v.ShaderName() != PSPointLightShadowed {
			t.Errorf("%v uses %q", v, v.ShaderName())
		}
	}
	if ShadowVariant(42).ShaderName() != PSPointLight {
		t.Error("unknown variant should fall back to the unshadowed shader")
	}
}

func TestNewPointLight(t *testing.T) {
	l := NewPointLight("torch", math.Vec3{X: 1}, [3]float32{1.5, -0.2, 0.5}, 0, true)
	if l.Color != [4]float32{1, 0, 0.5, 1} {
		t.Errorf("Color = %v", l.Color)
	}
	if l.Range != DefaultLightRange {
		t.Errorf("Range = %v, want %v", l.Range, DefaultLightRange)
	}
	if !l.UpdateShadows || !l.Enabled() || l.HasShadow() {
		t.Errorf("unexpected light state %+v", l)
	}
}
