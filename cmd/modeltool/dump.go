package main

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/vismodel/pkg/formats"
)

// The dump types give decoded records stable YAML keys and render enums by name.

type dumpModel struct {
	Materials []dumpMaterial  `yaml:"materials"`
	Meshes    []dumpMesh      `yaml:"meshes,omitempty"`
	Skeletons []dumpSkeleton  `yaml:"skeletons,omitempty"`
	Weights   int             `yaml:"weight_chunks,omitempty"`
	Submeshes [][]dumpSubmesh `yaml:"submesh_tables,omitempty"`
}

type dumpMaterial struct {
	Version              uint16    `yaml:"version"`
	Name                 string    `yaml:"name"`
	Flags                string    `yaml:"flags"`
	LightingMethod       *string   `yaml:"lighting_method,omitempty"`
	SortKey              uint32    `yaml:"sort_key"`
	Specular             []float32 `yaml:"specular,flow"`
	Transparency         string    `yaml:"transparency"`
	DeferredID           uint8     `yaml:"deferred_id"`
	DepthBias            *float32  `yaml:"depth_bias,omitempty"`
	DepthBiasClamp       *float32  `yaml:"depth_bias_clamp,omitempty"`
	SlopeScaledDepthBias *float32  `yaml:"slope_scaled_depth_bias,omitempty"`
	CustomAlphaThreshold *float32  `yaml:"custom_alpha_threshold,omitempty"`
	DiffuseMap           string    `yaml:"diffuse"`
	SpecularMap          string    `yaml:"specular_map"`
	NormalMap            string    `yaml:"normal_map"`
	AuxFiles             []string  `yaml:"aux_files,omitempty"`
	UserData             string    `yaml:"user_data"`
	UserFlags            uint32    `yaml:"user_flags"`
	AmbientColor         string    `yaml:"ambient_color"`
	Brightness           uint32    `yaml:"brightness"`
	LightColor           string    `yaml:"light_color"`
	Parallax             []float32 `yaml:"parallax,flow"`
	OpaqueValue          uint32    `yaml:"opaque_value"`
	OpaqueStrings        []string  `yaml:"opaque_strings,flow"`
}

type dumpMesh struct {
	Version     uint32            `yaml:"version"`
	Primitive   string            `yaml:"primitive"`
	Descriptor  uint32            `yaml:"descriptor_version"`
	Stride      uint16            `yaml:"stride"`
	Attributes  map[string]string `yaml:"attributes"`
	VertexCount uint32            `yaml:"vertex_count"`
	IndexFormat uint32            `yaml:"index_format"`
	IndexCount  int               `yaml:"index_count"`
	BoundsMin   []float32         `yaml:"bounds_min,flow,omitempty"`
	BoundsMax   []float32         `yaml:"bounds_max,flow,omitempty"`
}

type dumpSkeleton struct {
	Version uint32     `yaml:"version"`
	Bones   []dumpBone `yaml:"bones"`
}

type dumpBone struct {
	Name     string    `yaml:"name"`
	Parent   int       `yaml:"parent"`
	Position []float32 `yaml:"position,flow"`
	Rotation []float32 `yaml:"rotation,flow"` // w, x, y, z
}

type dumpSubmesh struct {
	Material     uint16 `yaml:"material"`
	IndicesStart uint32 `yaml:"indices_start"`
	IndicesCount uint32 `yaml:"indices_count"`
	Vertices     string `yaml:"vertices,omitempty"`
	RenderState  string `yaml:"render_state,omitempty"`
}

func newDump(m *formats.Model) dumpModel {
	d := dumpModel{Materials: make([]dumpMaterial, 0, len(m.Materials)), Weights: m.WeightChunks}
	for _, mat := range m.Materials {
		d.Materials = append(d.Materials, dumpMaterialOf(mat))
	}
	for _, mesh := range m.Meshes {
		d.Meshes = append(d.Meshes, dumpMeshOf(mesh))
	}
	for _, s := range m.Skeletons {
		ds := dumpSkeleton{Version: s.Version}
		for _, b := range s.Bones {
			parent := int(b.Parent)
			if b.IsRoot() {
				parent = -1
			}
			ds.Bones = append(ds.Bones, dumpBone{
				Name:     b.Name,
				Parent:   parent,
				Position: vec(b.LocalPosition),
				Rotation: []float32{b.LocalRotation.W, b.LocalRotation.V[0], b.LocalRotation.V[1], b.LocalRotation.V[2]},
			})
		}
		d.Skeletons = append(d.Skeletons, ds)
	}
	for _, table := range m.SubmeshTables {
		var rows []dumpSubmesh
		for _, s := range table.Submeshes {
			row := dumpSubmesh{Material: s.MaterialID, IndicesStart: s.IndicesStart, IndicesCount: s.IndicesCount}
			if s.Vertices != nil {
				row.Vertices = fmt.Sprintf("%d+%d", s.Vertices.Start, s.Vertices.Count)
			}
			if s.RenderState != nil {
				row.RenderState = fmt.Sprintf("%s %s", s.RenderState.Transparency, s.RenderState.Flags)
			}
			rows = append(rows, row)
		}
		d.Submeshes = append(d.Submeshes, rows)
	}
	return d
}

func dumpMaterialOf(m *formats.Material) dumpMaterial {
	d := dumpMaterial{
		Version:              m.Version,
		Name:                 m.Name,
		Flags:                m.Flags.String(),
		SortKey:              m.SortKey,
		Specular:             []float32{m.SpecularMul, m.SpecularExp},
		Transparency:         m.Transparency.String(),
		DeferredID:           m.DeferredID,
		DepthBias:            m.DepthBias,
		DepthBiasClamp:       m.DepthBiasClamp,
		SlopeScaledDepthBias: m.SlopeScaledDepthBias,
		CustomAlphaThreshold: m.CustomAlphaThreshold,
		DiffuseMap:           m.DiffuseMap,
		SpecularMap:          m.SpecularMap,
		NormalMap:            m.NormalMap,
		AuxFiles:             m.AuxFiles,
		UserData:             m.UserData,
		UserFlags:            m.UserFlags,
		AmbientColor:         hexColor(m.AmbientColor),
		Brightness:           m.Brightness,
		LightColor:           hexColor(m.LightColor),
		Parallax:             []float32{m.ParallaxScale, m.ParallaxBias},
		OpaqueValue:          m.Opaque.Value,
		OpaqueStrings:        m.Opaque.Strings[:],
	}
	if m.LightingMethod != nil {
		s := m.LightingMethod.String()
		d.LightingMethod = &s
	}
	return d
}

func dumpMeshOf(m *formats.Mesh) dumpMesh {
	d := dumpMesh{
		Version:     m.Version,
		Primitive:   m.Primitive.String(),
		Descriptor:  m.Descriptor.Version,
		Stride:      m.Descriptor.Stride,
		Attributes:  make(map[string]string),
		VertexCount: m.VertexCount,
		IndexFormat: uint32(m.IndexFormat),
		IndexCount:  len(m.Indices),
	}
	attr := func(name string, a formats.VertexAttrib) {
		if a.Used() {
			d.Attributes[name] = fmt.Sprintf("%d %s", a.Offset, a.Format)
		}
	}
	attr("position", m.Descriptor.Position)
	attr("color", m.Descriptor.Color)
	attr("normal", m.Descriptor.Normal)
	attr("secondary_color", m.Descriptor.SecondaryColor)
	for _, set := range m.Descriptor.UsedTexCoords() {
		attr(fmt.Sprintf("texcoord%d", set), m.Descriptor.TexCoords[set])
	}
	if m.Bounds != nil {
		d.BoundsMin = vec(m.Bounds.Min)
		d.BoundsMax = vec(m.Bounds.Max)
	}
	return d
}

func vec(v mgl32.Vec3) []float32 {
	return []float32{v[0], v[1], v[2]}
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
