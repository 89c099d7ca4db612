package formats

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

const meshBoundsVersion = 2

// PrimitiveType is the topology of a mesh's index buffer.
type PrimitiveType uint32

const (
	PrimitiveTriangleList  PrimitiveType = 0
	PrimitiveTriangleStrip PrimitiveType = 1
	PrimitiveLineList      PrimitiveType = 2
	PrimitivePointList     PrimitiveType = 3
)

// String returns a human-readable primitive type name.
func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveTriangleList:
		return "TriangleList"
	case PrimitiveTriangleStrip:
		return "TriangleStrip"
	case PrimitiveLineList:
		return "LineList"
	case PrimitivePointList:
		return "PointList"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IndexFormat is the width in bits of one stored index.
type IndexFormat uint32

const (
	Index16 IndexFormat = 16
	Index32 IndexFormat = 32
)

// BoundingBox is an axis-aligned box in model space.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Mesh is the geometry of a VMSH chunk: a raw vertex buffer laid out by
// Descriptor and an index buffer widened to uint32.
type Mesh struct {
	Version     uint32
	Descriptor  VertexDescriptor
	Primitive   PrimitiveType
	VertexCount uint32
	Vertices    []byte // VertexCount * Descriptor.Stride bytes
	IndexFormat IndexFormat
	Indices     []uint32
	Bounds      *BoundingBox // v2+
}

// ReadMesh reads a VMSH chunk body; the identity has already been consumed.
func ReadMesh(r *binio.Reader) (*Mesh, error) {
	f := newFieldReader(r, ChunkMesh, nil)
	m := readMesh(f)
	if f.err != nil {
		return nil, f.err
	}
	return m, nil
}

func readMesh(f *fieldReader) *Mesh {
	m := &Mesh{}
	m.Version = f.u32("version")
	if d := readVertexDescriptor(f); d != nil {
		m.Descriptor = *d
	}
	m.Primitive = PrimitiveType(f.u32("primitive_type"))

	m.VertexCount = f.count("vertex_count", maxVertexCount)
	size := uint64(m.VertexCount) * uint64(m.Descriptor.Stride)
	if f.err == nil && size > maxVertexBuffer {
		f.violate("vertices", f.r.Offset(), "vertex buffer of %d bytes exceeds %d", size, maxVertexBuffer)
	}
	m.Vertices = f.bytes("vertices", int(size))

	formatOffset := f.r.Offset()
	m.IndexFormat = IndexFormat(f.u32("index_format"))
	if f.err == nil && m.IndexFormat != Index16 && m.IndexFormat != Index32 {
		f.violate("index_format", formatOffset, "index format %d is neither 16 nor 32", m.IndexFormat)
	}
	n := f.count("index_count", maxIndexCount)
	m.Indices = make([]uint32, 0, n)
	for i := uint32(0); i < n && f.err == nil; i++ {
		if m.IndexFormat == Index16 {
			m.Indices = append(m.Indices, uint32(f.u16("indices")))
		} else {
			m.Indices = append(m.Indices, f.u32("indices"))
		}
	}

	m.Bounds = optional(f, m.Version >= meshBoundsVersion, func() BoundingBox {
		return BoundingBox{Min: f.vec3("bounds.min"), Max: f.vec3("bounds.max")}
	})

	if f.err != nil {
		return nil
	}
	f.log.Debug("mesh decoded",
		zap.Uint32("version", m.Version),
		zap.Uint32("vertices", m.VertexCount),
		zap.Int("indices", len(m.Indices)),
		zap.Stringer("primitive", m.Primitive),
	)
	return m
}

// attribute decodes one attribute of every vertex into float components.
// Byte formats are scaled to [0, 1] when normalized.
func (m *Mesh) attribute(a VertexAttrib, def VertexFormat) ([][4]float32, int, error) {
	if !a.Used() {
		return nil, 0, nil
	}
	format := a.Format.resolve(def)
	width, components, ok := format.size()
	if !ok {
		return nil, 0, fmt.Errorf("unsupported vertex format %s", format)
	}
	stride := int(m.Descriptor.Stride)
	if len(m.Vertices) < int(m.VertexCount)*stride {
		return nil, 0, fmt.Errorf("vertex buffer holds %d bytes, want %d", len(m.Vertices), int(m.VertexCount)*stride)
	}
	if int(a.Offset)+width > stride {
		return nil, 0, fmt.Errorf("attribute at offset %d (%s) exceeds stride %d", a.Offset, format, stride)
	}

	out := make([][4]float32, m.VertexCount)
	for i := range out {
		v := m.Vertices[i*stride+int(a.Offset):]
		switch format {
		case FormatUByte4:
			for c := 0; c < 4; c++ {
				out[i][c] = float32(v[c])
			}
		case FormatUByte4N:
			for c := 0; c < 4; c++ {
				out[i][c] = float32(v[c]) / 255
			}
		default:
			for c := 0; c < components; c++ {
				out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(v[4*c:]))
			}
		}
	}
	return out, components, nil
}

// Positions decodes vertex positions. Position defaults to Float3.
func (m *Mesh) Positions() ([]mgl32.Vec3, error) {
	raw, _, err := m.attribute(m.Descriptor.Position, FormatFloat3)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	return toVec3(raw), nil
}

// Normals decodes vertex normals, or returns nil when the vertex has none.
func (m *Mesh) Normals() ([]mgl32.Vec3, error) {
	raw, _, err := m.attribute(m.Descriptor.Normal, FormatFloat3)
	if err != nil {
		return nil, fmt.Errorf("normals: %w", err)
	}
	return toVec3(raw), nil
}

// Colors decodes vertex colors, or returns nil when the vertex has none.
func (m *Mesh) Colors() ([]color.NRGBA, error) {
	raw, _, err := m.attribute(m.Descriptor.Color, FormatUByte4)
	if err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	out := make([]color.NRGBA, len(raw))
	for i, c := range raw {
		out[i] = color.NRGBA{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), A: uint8(c[3])}
	}
	return out, nil
}

// TexCoords decodes one texture coordinate set, or returns nil when unused.
func (m *Mesh) TexCoords(set int) ([]mgl32.Vec2, error) {
	if set < 0 || set >= MaxTexCoords {
		return nil, fmt.Errorf("texture coordinate set %d out of range", set)
	}
	raw, _, err := m.attribute(m.Descriptor.TexCoords[set], FormatFloat2)
	if err != nil {
		return nil, fmt.Errorf("tex coords %d: %w", set, err)
	}
	if raw == nil {
		return nil, nil
	}
	out := make([]mgl32.Vec2, len(raw))
	for i, c := range raw {
		out[i] = mgl32.Vec2{c[0], c[1]}
	}
	return out, nil
}

// Triangles expands the index buffer into triangles. Strips alternate winding
// and drop degenerate triangles.
func (m *Mesh) Triangles() ([][3]uint32, error) {
	idx := m.Indices
	switch m.Primitive {
	case PrimitiveTriangleList:
		if len(idx)%3 != 0 {
			return nil, fmt.Errorf("triangle list has %d indices", len(idx))
		}
		tris := make([][3]uint32, 0, len(idx)/3)
		for i := 0; i < len(idx); i += 3 {
			tris = append(tris, [3]uint32{idx[i], idx[i+1], idx[i+2]})
		}
		return tris, nil
	case PrimitiveTriangleStrip:
		var tris [][3]uint32
		for i := 2; i < len(idx); i++ {
			a, b, c := idx[i-2], idx[i-1], idx[i]
			if a == b || b == c || a == c {
				continue
			}
			if i%2 == 1 {
				a, b = b, a
			}
			tris = append(tris, [3]uint32{a, b, c})
		}
		return tris, nil
	default:
		return nil, fmt.Errorf("primitive type %s has no triangles", m.Primitive)
	}
}

func toVec3(raw [][4]float32) []mgl32.Vec3 {
	if raw == nil {
		return nil
	}
	out := make([]mgl32.Vec3, len(raw))
	for i, c := range raw {
		out[i] = mgl32.Vec3{c[0], c[1], c[2]}
	}
	return out
}
