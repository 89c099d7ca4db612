package formats

import (
	"fmt"
	"image/color"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// Version thresholds of the material chunk.
const (
	materialAuxFilesVersion       = 2
	materialDepthBiasVersion      = 3
	materialDepthBiasClampVersion = 4
	materialAlphaThresholdVersion = 7
	materialLightingVersion       = 9
)

// MaxSortKey is the exclusive upper bound of Material.SortKey.
const MaxSortKey = 15

// SurfaceFlags is the surface flag bitset of a material.
type SurfaceFlags uint32

const (
	SurfaceDoubleSided       SurfaceFlags = 1 << 0
	SurfaceCastStaticShadows SurfaceFlags = 1 << 1
	SurfaceNoDynamicLights   SurfaceFlags = 1 << 2
	SurfacePrimaryOpaquePass SurfaceFlags = 1 << 3
	SurfaceAlphaTestShadows  SurfaceFlags = 1 << 4
	SurfaceNoFog             SurfaceFlags = 1 << 5
)

var surfaceFlagNames = []struct {
	flag SurfaceFlags
	name string
}{
	{SurfaceDoubleSided, "DoubleSided"},
	{SurfaceCastStaticShadows, "CastStaticShadows"},
	{SurfaceNoDynamicLights, "NoDynamicLights"},
	{SurfacePrimaryOpaquePass, "PrimaryOpaquePass"},
	{SurfaceAlphaTestShadows, "AlphaTestShadows"},
	{SurfaceNoFog, "NoFog"},
}

// Has reports whether all bits of flag are set.
func (f SurfaceFlags) Has(flag SurfaceFlags) bool {
	return f&flag == flag
}

// String lists the named flags, with any unnamed bits in hex.
func (f SurfaceFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	rest := f
	for _, n := range surfaceFlagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// LightingMethod selects how a surface is lit.
type LightingMethod uint8

const (
	LightingFullbright   LightingMethod = 0
	LightingLightmapping LightingMethod = 1
	LightingLightGrid    LightingMethod = 2
	LightingDynamicOnly  LightingMethod = 3
)

// String returns a human-readable lighting method name.
func (m LightingMethod) String() string {
	switch m {
	case LightingFullbright:
		return "Fullbright"
	case LightingLightmapping:
		return "Lightmapping"
	case LightingLightGrid:
		return "LightGrid"
	case LightingDynamicOnly:
		return "DynamicOnly"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// TransparencyType is the blending mode of a surface or render state.
type TransparencyType uint8

const (
	TransparencyNone               TransparencyType = 0
	TransparencyMultiplicative     TransparencyType = 1
	TransparencyAlpha              TransparencyType = 2
	TransparencyAdditive           TransparencyType = 3
	TransparencyColorKey           TransparencyType = 4
	TransparencyAddModulate        TransparencyType = 5
	TransparencyAdditiveNoAlpha    TransparencyType = 6
	TransparencyNoAlpha            TransparencyType = 7
	TransparencyAlphaTest          TransparencyType = 8
	TransparencyPremultipliedAlpha TransparencyType = 9
)

var transparencyNames = map[TransparencyType]string{
	TransparencyNone:               "None",
	TransparencyMultiplicative:     "Multiplicative",
	TransparencyAlpha:              "Alpha",
	TransparencyAdditive:           "Additive",
	TransparencyColorKey:           "ColorKey",
	TransparencyAddModulate:        "AddModulate",
	TransparencyAdditiveNoAlpha:    "AdditiveNoAlpha",
	TransparencyNoAlpha:            "NoAlpha",
	TransparencyAlphaTest:          "AlphaTest",
	TransparencyPremultipliedAlpha: "PremultipliedAlpha",
}

// String returns a human-readable transparency name.
func (t TransparencyType) String() string {
	if name, ok := transparencyNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// ParseTransparencyType resolves a transparency name, case-insensitively.
func ParseTransparencyType(name string) (TransparencyType, bool) {
	for t, n := range transparencyNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return TransparencyNone, false
}

// MaterialOpaque holds the trailing material fields whose meaning is not
// established. They are kept in file order so nothing is lost.
type MaterialOpaque struct {
	Value   uint32
	Strings [6]string
}

// Material is one named surface description from an MTRL chunk.
// Pointer and slice fields are nil when the chunk version predates them.
type Material struct {
	Version uint16

	Name           string
	Flags          SurfaceFlags
	LightingMethod *LightingMethod // v9+

	SortKey      uint32 // always < MaxSortKey
	SpecularMul  float32
	SpecularExp  float32
	Transparency TransparencyType
	DeferredID   uint8 // material ID written to the G-buffer

	DepthBias            *float32 // v3+
	DepthBiasClamp       *float32 // v4+
	SlopeScaledDepthBias *float32 // v4+
	CustomAlphaThreshold *float32 // v7+

	DiffuseMap  string
	SpecularMap string
	NormalMap   string
	AuxFiles    []string // v2+

	UserData      string
	UserFlags     uint32
	AmbientColor  color.NRGBA
	Brightness    uint32
	LightColor    color.NRGBA
	ParallaxScale float32
	ParallaxBias  float32

	Opaque MaterialOpaque
}

// HasTransparency reports whether the surface blends with what is behind it.
func (m *Material) HasTransparency() bool {
	return m.Transparency != TransparencyNone
}

// ReadMaterial reads one MTRL chunk, identity included.
func ReadMaterial(r *binio.Reader) (*Material, error) {
	f := newFieldReader(r, ChunkMaterial, nil)
	m := readMaterial(f)
	if f.err != nil {
		return nil, f.err
	}
	return m, nil
}

func readMaterial(f *fieldReader) *Material {
	var m *Material
	f.withScope(ChunkMaterial, func(f *fieldReader) {
		m = readMaterialBody(f)
	})
	if f.err != nil {
		return nil
	}
	return m
}

func readMaterialBody(f *fieldReader) *Material {
	m := &Material{}
	m.Version = f.u16("version")
	m.Name = f.str("name")
	m.Flags = SurfaceFlags(f.u32("surface_flags"))
	m.LightingMethod = optional(f, m.Version >= materialLightingVersion, func() LightingMethod {
		return LightingMethod(f.u8("lighting_method"))
	})

	sortKeyOffset := f.r.Offset()
	m.SortKey = f.u32("sort_key")
	if f.err == nil && m.SortKey >= MaxSortKey {
		f.violate("sort_key", sortKeyOffset, "sort key %d not in [0, %d)", m.SortKey, MaxSortKey)
	}

	m.SpecularMul = f.f32("specular_mul")
	m.SpecularExp = f.f32("specular_exp")
	m.Transparency = TransparencyType(f.u8("transparency"))
	m.DeferredID = f.u8("deferred_id")

	m.DepthBias = optional(f, m.Version >= materialDepthBiasVersion, func() float32 {
		return f.f32("depth_bias")
	})
	if m.Version >= materialDepthBiasClampVersion {
		m.DepthBiasClamp = optional(f, true, func() float32 { return f.f32("depth_bias_clamp") })
		m.SlopeScaledDepthBias = optional(f, true, func() float32 { return f.f32("slope_scaled_depth_bias") })
	}
	m.CustomAlphaThreshold = optional(f, m.Version >= materialAlphaThresholdVersion, func() float32 {
		return f.f32("custom_alpha_threshold")
	})

	m.DiffuseMap = f.str("diffuse_map")
	m.SpecularMap = f.str("specular_map")
	m.NormalMap = f.str("normal_map")

	if m.Version >= materialAuxFilesVersion {
		n := f.count("aux_files_count", maxListLength)
		m.AuxFiles = make([]string, 0, n)
		for i := uint32(0); i < n && f.err == nil; i++ {
			m.AuxFiles = append(m.AuxFiles, f.str(fmt.Sprintf("aux_files[%d]", i)))
		}
	}

	m.UserData = f.str("user_data")
	m.UserFlags = f.u32("user_flags")
	m.AmbientColor = f.color("ambient_color")
	m.Brightness = f.u32("brightness")
	m.LightColor = f.color("light_color")
	m.ParallaxScale = f.f32("parallax_scale")
	m.ParallaxBias = f.f32("parallax_bias")

	m.Opaque.Value = f.u32("opaque_value")
	for i := range m.Opaque.Strings {
		m.Opaque.Strings[i] = f.str(fmt.Sprintf("opaque_strings[%d]", i))
	}

	if f.err != nil {
		return nil
	}
	f.log.Debug("material decoded",
		zap.String("name", m.Name),
		zap.Uint16("version", m.Version),
		zap.Stringer("flags", m.Flags),
		zap.String("diffuse", m.DiffuseMap),
	)
	return m
}
