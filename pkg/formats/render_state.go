package formats

import (
	"fmt"
	"strings"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// RenderStateFlags is the render flag bitset of a render state.
type RenderStateFlags uint16

const (
	RenderDoubleSided  RenderStateFlags = 1 << 0
	RenderNoDepthWrite RenderStateFlags = 1 << 1
	RenderNoDepthTest  RenderStateFlags = 1 << 2
	RenderAlphaToCover RenderStateFlags = 1 << 3
	RenderNoShadows    RenderStateFlags = 1 << 4
	RenderWireframe    RenderStateFlags = 1 << 5
)

var renderFlagNames = []struct {
	flag RenderStateFlags
	name string
}{
	{RenderDoubleSided, "DoubleSided"},
	{RenderNoDepthWrite, "NoDepthWrite"},
	{RenderNoDepthTest, "NoDepthTest"},
	{RenderAlphaToCover, "AlphaToCoverage"},
	{RenderNoShadows, "NoShadows"},
	{RenderWireframe, "Wireframe"},
}

// Has reports whether all bits of flag are set.
func (f RenderStateFlags) Has(flag RenderStateFlags) bool {
	return f&flag == flag
}

func (f RenderStateFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	rest := f
	for _, n := range renderFlagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint16(rest)))
	}
	return strings.Join(parts, "|")
}

// RenderState is the fixed-size blend and raster state block.
type RenderState struct {
	Transparency TransparencyType
	Reserved     uint8 // always read, never interpreted
	Flags        RenderStateFlags
}

// ReadRenderState reads a four-byte render state.
func ReadRenderState(r *binio.Reader) (*RenderState, error) {
	f := newFieldReader(r, ChunkSubmeshes, nil)
	rs := readRenderState(f, "render_state")
	if f.err != nil {
		return nil, f.err
	}
	return &rs, nil
}

func readRenderState(f *fieldReader, prefix string) RenderState {
	return RenderState{
		Transparency: TransparencyType(f.u8(prefix + ".transparency")),
		Reserved:     f.u8(prefix + ".reserved"),
		Flags:        RenderStateFlags(f.u16(prefix + ".flags")),
	}
}
