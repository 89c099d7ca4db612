package formats

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

const (
	submeshVertexRangeVersion = 2
	submeshRenderStateVersion = 3
)

// VertexRange is a contiguous run of vertices.
type VertexRange struct {
	Start uint32
	Count uint32
}

// Submesh binds a run of the mesh's index buffer to one material.
// MaterialID indexes the materials in file order.
type Submesh struct {
	MaterialID   uint16
	IndicesStart uint32
	IndicesCount uint32
	Vertices     *VertexRange // v2+
	RenderState  *RenderState // v3+
}

// SubmeshBinding is the submesh-to-material table of a SUBM chunk.
type SubmeshBinding struct {
	Version   uint16
	Submeshes []Submesh
}

// ReadSubmeshBinding reads a SUBM chunk body; the identity has already been consumed.
func ReadSubmeshBinding(r *binio.Reader) (*SubmeshBinding, error) {
	f := newFieldReader(r, ChunkSubmeshes, nil)
	b := readSubmeshBinding(f)
	if f.err != nil {
		return nil, f.err
	}
	return b, nil
}

func readSubmeshBinding(f *fieldReader) *SubmeshBinding {
	b := &SubmeshBinding{}
	b.Version = f.u16("version")
	n := f.count("submesh_count", maxListLength)
	b.Submeshes = make([]Submesh, 0, n)
	for i := 0; i < int(n) && f.err == nil; i++ {
		prefix := fmt.Sprintf("submeshes[%d]", i)
		s := Submesh{
			MaterialID:   f.u16(prefix + ".material_id"),
			IndicesStart: f.u32(prefix + ".indices_start"),
			IndicesCount: f.u32(prefix + ".indices_count"),
		}
		s.Vertices = optional(f, b.Version >= submeshVertexRangeVersion, func() VertexRange {
			return VertexRange{Start: f.u32(prefix + ".vertices_start"), Count: f.u32(prefix + ".vertices_count")}
		})
		s.RenderState = optional(f, b.Version >= submeshRenderStateVersion, func() RenderState {
			return readRenderState(f, prefix+".render_state")
		})
		b.Submeshes = append(b.Submeshes, s)
	}
	if f.err != nil {
		return nil
	}
	f.log.Debug("submesh bindings decoded", zap.Uint16("version", b.Version), zap.Int("submeshes", len(b.Submeshes)))
	return b
}

// IndexRange returns the slice of indices a submesh covers, clamped to the buffer.
func (s Submesh) IndexRange(indices []uint32) []uint32 {
	start := int(s.IndicesStart)
	if start > len(indices) {
		return nil
	}
	end := start + int(s.IndicesCount)
	if end > len(indices) {
		end = len(indices)
	}
	return indices[start:end]
}
