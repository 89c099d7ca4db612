package formats

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/vismodel/pkg/encoding"
)

// builder writes model bytes in the on-disk layout the decoders expect.
type builder struct {
	t   *testing.T
	buf bytes.Buffer
}

func newBuilder(t *testing.T) *builder {
	t.Helper()
	return &builder{t: t}
}

func (b *builder) bytes() []byte { return b.buf.Bytes() }

func (b *builder) put(v any) *builder {
	if err := binary.Write(&b.buf, binary.LittleEndian, v); err != nil {
		b.t.Fatalf("writing %T: %v", v, err)
	}
	return b
}

func (b *builder) u8(v uint8) *builder        { return b.put(v) }
func (b *builder) u16(v uint16) *builder      { return b.put(v) }
func (b *builder) u32(v uint32) *builder      { return b.put(v) }
func (b *builder) f32(v float32) *builder     { return b.put(v) }
func (b *builder) chunk(id ChunkID) *builder  { return b.u32(uint32(id)) }
func (b *builder) vec3(v mgl32.Vec3) *builder { return b.put([3]float32(v)) }

func (b *builder) raw(p []byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) color(c color.NRGBA) *builder {
	return b.put([4]uint8{c.R, c.G, c.B, c.A})
}

func (b *builder) quat(q mgl32.Quat) *builder {
	return b.put([4]float32{q.V[0], q.V[1], q.V[2], q.W})
}

func (b *builder) str(s string) *builder {
	data, err := encoding.UTF8ToCP949(s)
	if err != nil {
		b.t.Fatalf("encoding %q: %v", s, err)
	}
	b.u32(uint32(len(data)))
	return b.raw(data)
}

func (b *builder) attrib(a VertexAttrib) *builder {
	return b.u8(a.Offset).u8(uint8(a.Format))
}

func (b *builder) material(m *Material) *builder {
	b.chunk(ChunkMaterial)
	b.u16(m.Version)
	b.str(m.Name)
	b.u32(uint32(m.Flags))
	if m.Version >= 9 {
		b.u8(uint8(*m.LightingMethod))
	}
	b.u32(m.SortKey)
	b.f32(m.SpecularMul).f32(m.SpecularExp)
	b.u8(uint8(m.Transparency)).u8(m.DeferredID)
	if m.Version >= 3 {
		b.f32(*m.DepthBias)
	}
	if m.Version >= 4 {
		b.f32(*m.DepthBiasClamp).f32(*m.SlopeScaledDepthBias)
	}
	if m.Version >= 7 {
		b.f32(*m.CustomAlphaThreshold)
	}
	b.str(m.DiffuseMap).str(m.SpecularMap).str(m.NormalMap)
	if m.Version >= 2 {
		b.u32(uint32(len(m.AuxFiles)))
		for _, name := range m.AuxFiles {
			b.str(name)
		}
	}
	b.str(m.UserData).u32(m.UserFlags)
	b.color(m.AmbientColor).u32(m.Brightness).color(m.LightColor)
	b.f32(m.ParallaxScale).f32(m.ParallaxBias)
	b.u32(m.Opaque.Value)
	for _, s := range m.Opaque.Strings {
		b.str(s)
	}
	return b
}

func (b *builder) materials(ms ...*Material) *builder {
	b.chunk(ChunkMaterials).u32(uint32(len(ms)))
	for _, m := range ms {
		b.material(m)
	}
	return b
}

// vertexDescriptor writes d. secondary is the secondary color written to the
// stream, which may differ from d.SecondaryColor when the trailer is the magic.
func (b *builder) vertexDescriptor(d *VertexDescriptor, secondary VertexAttrib) *builder {
	b.u32(VertexDescriptorMagic).u32(d.Version).u16(d.Stride)
	b.attrib(d.Position).attrib(d.Color).attrib(d.Normal)
	for _, a := range d.TexCoords {
		b.attrib(a)
	}
	b.attrib(secondary)
	if d.HashInfo != nil {
		b.u8(d.HashInfo.FirstTexCoord).u8(d.HashInfo.LastTexCoord).u32(d.HashInfo.Hash)
	}
	return b.u32(d.Trailer)
}

func (b *builder) mesh(m *Mesh) *builder {
	b.chunk(ChunkMesh)
	b.u32(m.Version)
	b.vertexDescriptor(&m.Descriptor, m.Descriptor.SecondaryColor)
	b.u32(uint32(m.Primitive)).u32(m.VertexCount).raw(m.Vertices)
	b.u32(uint32(m.IndexFormat)).u32(uint32(len(m.Indices)))
	for _, idx := range m.Indices {
		if m.IndexFormat == Index16 {
			b.u16(uint16(idx))
		} else {
			b.u32(idx)
		}
	}
	if m.Version >= 2 {
		b.vec3(m.Bounds.Min).vec3(m.Bounds.Max)
	}
	return b
}

func (b *builder) skeleton(s *Skeleton) *builder {
	b.chunk(ChunkSkeleton)
	b.u32(s.Version).u32(uint32(len(s.Bones)))
	for _, bone := range s.Bones {
		b.str(bone.Name).u16(bone.Parent)
		b.vec3(bone.LocalPosition).quat(bone.LocalRotation)
		if s.Version >= 2 {
			b.vec3(*bone.LocalEuler)
		}
		if s.Version >= 3 {
			b.vec3(bone.ObjectPose.Position).quat(bone.ObjectPose.Rotation)
		}
	}
	return b
}

func (b *builder) submeshes(sb *SubmeshBinding) *builder {
	b.chunk(ChunkSubmeshes)
	b.u16(sb.Version).u32(uint32(len(sb.Submeshes)))
	for _, s := range sb.Submeshes {
		b.u16(s.MaterialID).u32(s.IndicesStart).u32(s.IndicesCount)
		if sb.Version >= 2 {
			b.u32(s.Vertices.Start).u32(s.Vertices.Count)
		}
		if sb.Version >= 3 {
			b.u8(uint8(s.RenderState.Transparency)).u8(s.RenderState.Reserved).u16(uint16(s.RenderState.Flags))
		}
	}
	return b
}

func ptr[T any](v T) *T { return &v }

// sampleMaterial returns a material with every field its version carries set
// to a distinct value.
func sampleMaterial(version uint16) *Material {
	m := &Material{
		Version:       version,
		Name:          "NPC_0001_몸통",
		Flags:         SurfaceDoubleSided | SurfaceNoFog,
		SortKey:       7,
		SpecularMul:   0.5,
		SpecularExp:   16,
		Transparency:  TransparencyAlphaTest,
		DeferredID:    3,
		DiffuseMap:    "Textures/npc_0001_d.dds",
		SpecularMap:   "Textures/npc_0001_s.dds",
		NormalMap:     "Textures/npc_0001_n.dds",
		UserData:      "glow",
		UserFlags:     0x10,
		AmbientColor:  color.NRGBA{R: 10, G: 20, B: 30, A: 255},
		Brightness:    42,
		LightColor:    color.NRGBA{R: 255, G: 240, B: 200, A: 128},
		ParallaxScale: 0.04,
		ParallaxBias:  -0.02,
		Opaque: MaterialOpaque{
			Value:   0xCAFE,
			Strings: [6]string{"a", "", "c", "효과", "", "f"},
		},
	}
	if version >= 9 {
		m.LightingMethod = ptr(LightingDynamicOnly)
	}
	if version >= 3 {
		m.DepthBias = ptr(float32(0.001))
	}
	if version >= 4 {
		m.DepthBiasClamp = ptr(float32(0.01))
		m.SlopeScaledDepthBias = ptr(float32(1.5))
	}
	if version >= 7 {
		m.CustomAlphaThreshold = ptr(float32(0.25))
	}
	if version >= 2 {
		m.AuxFiles = []string{"aux_0.dds", "보조.dds"}
	}
	return m
}

// emptyMaterial is the smallest valid material: every string empty, sort key 0.
func emptyMaterial(version uint16) *Material {
	m := &Material{Version: version}
	if version >= 9 {
		m.LightingMethod = ptr(LightingFullbright)
	}
	if version >= 3 {
		m.DepthBias = ptr(float32(0))
	}
	if version >= 4 {
		m.DepthBiasClamp = ptr(float32(0))
		m.SlopeScaledDepthBias = ptr(float32(0))
	}
	if version >= 7 {
		m.CustomAlphaThreshold = ptr(float32(0))
	}
	if version >= 2 {
		m.AuxFiles = []string{}
	}
	return m
}

func sampleDescriptor(version uint32) *VertexDescriptor {
	d := &VertexDescriptor{
		Version:        version,
		Stride:         36,
		Position:       VertexAttrib{Offset: 0, Format: FormatFloat3},
		Color:          VertexAttrib{Offset: 12, Format: FormatUByte4},
		Normal:         VertexAttrib{Offset: 16, Format: FormatFloat3},
		SecondaryColor: VertexAttrib{Offset: 4, Format: FormatUByte4N},
		Trailer:        0x0BADF00D,
	}
	for i := range d.TexCoords {
		d.TexCoords[i] = AttribUnused
	}
	d.TexCoords[0] = VertexAttrib{Offset: 28, Format: FormatFloat2}
	if version == 48 {
		d.HashInfo = &VertexHash{FirstTexCoord: 0, LastTexCoord: 0, Hash: 0x12345678}
	}
	return d
}

// sampleMesh returns a quad of two triangles with position, color, normal and uv.
func sampleMesh(version uint32) *Mesh {
	d := sampleDescriptor(48)
	var vb bytes.Buffer
	corners := []struct {
		pos mgl32.Vec3
		uv  mgl32.Vec2
	}{
		{mgl32.Vec3{0, 0, 0}, mgl32.Vec2{0, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec2{1, 0}},
		{mgl32.Vec3{1, 1, 0}, mgl32.Vec2{1, 1}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec2{0, 1}},
	}
	for i, c := range corners {
		binary.Write(&vb, binary.LittleEndian, [3]float32(c.pos))
		binary.Write(&vb, binary.LittleEndian, [4]uint8{uint8(i * 10), 0, 0, 255})
		binary.Write(&vb, binary.LittleEndian, [3]float32{0, 0, 1})
		binary.Write(&vb, binary.LittleEndian, [2]float32(c.uv))
	}
	m := &Mesh{
		Version:     version,
		Descriptor:  *d,
		Primitive:   PrimitiveTriangleList,
		VertexCount: uint32(len(corners)),
		Vertices:    vb.Bytes(),
		IndexFormat: Index16,
		Indices:     []uint32{0, 1, 2, 0, 2, 3},
	}
	if version >= 2 {
		m.Bounds = &BoundingBox{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 0}}
	}
	return m
}
