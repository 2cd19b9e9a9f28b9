package lighting

import "github.com/Faultbox/umbra/internal/config"

// ShadowVariant selects the pixel shader of a point light.
type ShadowVariant int

const (
	Unshadowed ShadowVariant = iota
	ShadowedStatic
	ShadowedDynamic
	numVariants
)

func (v ShadowVariant) String() string {
	switch v {
	case Unshadowed:
		return "unshadowed"
	case ShadowedStatic:
		return "shadowed-static"
	case ShadowedDynamic:
		return "shadowed-dynamic"
	default:
		return "unknown"
	}
}

// Point light shader names.
const (
	VSPointLight         = "VS_ExPointLight"
	PSPointLight         = "PS_DS_PointLight"
	PSPointLightShadowed = "PS_DS_PointLightDynShadow"
)

// variantShaders maps each variant to its pixel shader.
var variantShaders = [numVariants]string{
	Unshadowed:      PSPointLight,
	ShadowedStatic:  PSPointLightShadowed,
	ShadowedDynamic: PSPointLightShadowed,
}

// ShaderName returns the pixel shader of the variant.
func (v ShadowVariant) ShaderName() string {
	if v < 0 || v >= numVariants {
		return PSPointLight
	}
	return variantShaders[v]
}

// VariantFor picks the variant of a light under the current settings.
func VariantFor(l *PointLight, s *config.ShadowConfig) ShadowVariant {
	if !s.PointLightShadowsEnabled() || !l.HasShadow() {
		return Unshadowed
	}
	if l.Dynamic && s.PointLightShadows >= config.PointLightShadowsDynamic {
		return ShadowedDynamic
	}
	return ShadowedStatic
}
