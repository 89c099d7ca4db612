package formats

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// VertexDescriptorMagic leads every vertex descriptor and may trail it.
const VertexDescriptorMagic uint32 = 0x1020A0B

// MaxTexCoords is the number of texture coordinate slots in a descriptor.
const MaxTexCoords = 16

const (
	vertexDescriptorHashVersion      = 48
	vertexDescriptorStaleHashVersion = 42
)

// VertexFormat is the format tag stored in the high byte of an attribute offset.
type VertexFormat uint8

const (
	FormatDefault VertexFormat = 0 // attribute's natural format
	FormatFloat   VertexFormat = 1
	FormatFloat2  VertexFormat = 2
	FormatFloat3  VertexFormat = 3
	FormatFloat4  VertexFormat = 4
	FormatUByte4  VertexFormat = 5
	FormatUByte4N VertexFormat = 6
	FormatUnused  VertexFormat = 0xFF
)

// String returns a human-readable format name.
func (v VertexFormat) String() string {
	switch v {
	case FormatDefault:
		return "Default"
	case FormatFloat:
		return "Float"
	case FormatFloat2:
		return "Float2"
	case FormatFloat3:
		return "Float3"
	case FormatFloat4:
		return "Float4"
	case FormatUByte4:
		return "UByte4"
	case FormatUByte4N:
		return "UByte4N"
	case FormatUnused:
		return "Unused"
	default:
		return fmt.Sprintf("Unknown(%d)", v)
	}
}

// resolve substitutes def for FormatDefault.
func (v VertexFormat) resolve(def VertexFormat) VertexFormat {
	if v == FormatDefault {
		return def
	}
	return v
}

// size returns the byte width and component count of a resolved format.
func (v VertexFormat) size() (bytes, components int, ok bool) {
	switch v {
	case FormatFloat:
		return 4, 1, true
	case FormatFloat2:
		return 8, 2, true
	case FormatFloat3:
		return 12, 3, true
	case FormatFloat4:
		return 16, 4, true
	case FormatUByte4, FormatUByte4N:
		return 4, 4, true
	}
	return 0, 0, false
}

// VertexAttrib locates one attribute inside a vertex: a byte offset and a format
// tag, stored on disk as the two bytes of a little-endian int16. The value -1
// (both bytes 0xFF) marks an attribute the vertex does not carry.
type VertexAttrib struct {
	Offset uint8
	Format VertexFormat
}

// AttribUnused is the sentinel for an absent attribute; its Value is -1.
var AttribUnused = VertexAttrib{Offset: 0xFF, Format: FormatUnused}

// Value returns the attribute as the int16 it was stored as.
func (a VertexAttrib) Value() int16 {
	return int16(uint16(a.Offset) | uint16(a.Format)<<8)
}

// Used reports whether the attribute is present in the vertex.
func (a VertexAttrib) Used() bool {
	return a != AttribUnused
}

// VertexHash is the hash block present only in descriptor version 48.
type VertexHash struct {
	FirstTexCoord uint8
	LastTexCoord  uint8
	Hash          uint32
}

// VertexDescriptor describes the byte layout of one vertex in a mesh's vertex buffer.
type VertexDescriptor struct {
	Version uint32
	Stride  uint16

	Position       VertexAttrib
	Color          VertexAttrib
	Normal         VertexAttrib
	TexCoords      [MaxTexCoords]VertexAttrib
	SecondaryColor VertexAttrib

	HashInfo *VertexHash // v48 only

	// Trailer is the u32 read after the descriptor. When it equals
	// VertexDescriptorMagic the secondary color is absent.
	Trailer uint32
}

// UsedTexCoords returns the indices of the texture coordinate sets the vertex carries.
func (d *VertexDescriptor) UsedTexCoords() []int {
	var used []int
	for i, a := range d.TexCoords {
		if a.Used() {
			used = append(used, i)
		}
	}
	return used
}

// ReadVertexDescriptor reads a vertex descriptor, leading magic included.
func ReadVertexDescriptor(r *binio.Reader) (*VertexDescriptor, error) {
	f := newFieldReader(r, ChunkMesh, nil)
	d := readVertexDescriptor(f)
	if f.err != nil {
		return nil, f.err
	}
	return d, nil
}

func readVertexDescriptor(f *fieldReader) *VertexDescriptor {
	magicOffset := f.r.Offset()
	if magic := f.u32("vertex_descriptor.magic"); f.err == nil && magic != VertexDescriptorMagic {
		f.fail("vertex_descriptor.magic", magicOffset,
			fmt.Errorf("%w: vertex descriptor magic %#x, want %#x", ErrStructuralMismatch, magic, VertexDescriptorMagic))
	}

	d := &VertexDescriptor{}
	d.Version = f.u32("vertex_descriptor.version")
	d.Stride = f.u16("vertex_descriptor.stride")
	d.Position = f.attrib("vertex_descriptor.position")
	d.Color = f.attrib("vertex_descriptor.color")
	d.Normal = f.attrib("vertex_descriptor.normal")
	for i := range d.TexCoords {
		d.TexCoords[i] = f.attrib(fmt.Sprintf("vertex_descriptor.tex_coords[%d]", i))
	}
	d.SecondaryColor = f.attrib("vertex_descriptor.secondary_color")

	if d.Version == vertexDescriptorStaleHashVersion && f.err == nil {
		f.log.Warn("vertex descriptor hash needs recomputation", zap.Uint32("version", d.Version))
	}
	d.HashInfo = optional(f, d.Version == vertexDescriptorHashVersion, func() VertexHash {
		return VertexHash{
			FirstTexCoord: f.u8("vertex_descriptor.first_tex_coord"),
			LastTexCoord:  f.u8("vertex_descriptor.last_tex_coord"),
			Hash:          f.u32("vertex_descriptor.hash"),
		}
	})

	// The trailing value is consumed whatever it holds; only a repeated magic
	// reinterprets the secondary color already read as absent.
	d.Trailer = f.u32("vertex_descriptor.trailer")
	if d.Trailer == VertexDescriptorMagic {
		d.SecondaryColor = AttribUnused
	}

	if f.err != nil {
		return nil
	}
	return d
}
