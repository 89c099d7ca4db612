package formats

import (
	"bytes"
	"errors"
	"image/color"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// body drops the leading chunk identity written by the builder.
func body(data []byte) []byte { return data[4:] }

func TestReadMesh_RoundTrip(t *testing.T) {
	for _, version := range []uint32{1, 2, 5} {
		t.Run("v"+itoa(int(version)), func(t *testing.T) {
			want := sampleMesh(version)
			data := body(newBuilder(t).mesh(want).bytes())
			r := binio.NewReader(bytes.NewReader(data))

			got, err := ReadMesh(r)
			if err != nil {
				t.Fatalf("ReadMesh failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
			if r.Offset() != int64(len(data)) {
				t.Errorf("consumed %d bytes, want %d", r.Offset(), len(data))
			}
		})
	}
}

func TestReadMesh_Index32(t *testing.T) {
	want := sampleMesh(2)
	want.IndexFormat = Index32
	want.Indices = []uint32{0, 1, 2, 70000, 2, 3}

	got, err := ReadMesh(binio.NewReader(bytes.NewReader(body(newBuilder(t).mesh(want).bytes()))))
	if err != nil {
		t.Fatalf("ReadMesh failed: %v", err)
	}
	if !reflect.DeepEqual(got.Indices, want.Indices) {
		t.Errorf("Indices = %v, want %v", got.Indices, want.Indices)
	}
}

func TestReadMesh_BadIndexFormat(t *testing.T) {
	m := sampleMesh(2)
	m.IndexFormat = 24
	m.Indices = nil

	_, err := ReadMesh(binio.NewReader(bytes.NewReader(body(newBuilder(t).mesh(m).bytes()))))
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "index_format" || de.Chunk != ChunkMesh {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestReadMesh_Truncated(t *testing.T) {
	data := body(newBuilder(t).mesh(sampleMesh(2)).bytes())
	for _, n := range []int{0, 3, 10, 60, len(data) / 2, len(data) - 1} {
		m, err := ReadMesh(binio.NewReader(bytes.NewReader(data[:n])))
		if !errors.Is(err, ErrTruncatedStream) || m != nil {
			t.Errorf("cut at %d: got %v, %v", n, m, err)
		}
	}
}

func TestMesh_Attributes(t *testing.T) {
	m := sampleMesh(2)

	pos, err := m.Positions()
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	wantPos := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	if !reflect.DeepEqual(pos, wantPos) {
		t.Errorf("Positions() = %v, want %v", pos, wantPos)
	}

	normals, err := m.Normals()
	if err != nil {
		t.Fatalf("Normals failed: %v", err)
	}
	for i, n := range normals {
		if n != (mgl32.Vec3{0, 0, 1}) {
			t.Errorf("normal %d = %v", i, n)
		}
	}

	colors, err := m.Colors()
	if err != nil {
		t.Fatalf("Colors failed: %v", err)
	}
	if colors[2] != (color.NRGBA{R: 20, A: 255}) {
		t.Errorf("color 2 = %v", colors[2])
	}

	uv, err := m.TexCoords(0)
	if err != nil {
		t.Fatalf("TexCoords failed: %v", err)
	}
	if uv[2] != (mgl32.Vec2{1, 1}) {
		t.Errorf("uv 2 = %v", uv[2])
	}

	unused, err := m.TexCoords(1)
	if err != nil || unused != nil {
		t.Errorf("TexCoords(1) = %v, %v; want nil, nil", unused, err)
	}
	if _, err := m.TexCoords(MaxTexCoords); err == nil {
		t.Error("expected error for out of range set")
	}
}

func TestMesh_NormalizedColor(t *testing.T) {
	m := sampleMesh(2)
	raw, components, err := m.attribute(VertexAttrib{Offset: 12, Format: FormatUByte4N}, FormatUByte4)
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if components != 4 || raw[3][3] != 1 {
		t.Errorf("components=%d alpha=%v", components, raw[3][3])
	}
}

func TestMesh_AttributeOutsideStride(t *testing.T) {
	m := sampleMesh(2)
	m.Descriptor.Normal = VertexAttrib{Offset: 30, Format: FormatFloat3}
	if _, err := m.Normals(); err == nil {
		t.Error("expected error for attribute past the stride")
	}
}

func TestMesh_Triangles(t *testing.T) {
	tests := []struct {
		name      string
		primitive PrimitiveType
		indices   []uint32
		want      [][3]uint32
		wantErr   bool
	}{
		{"list", PrimitiveTriangleList, []uint32{0, 1, 2, 0, 2, 3}, [][3]uint32{{0, 1, 2}, {0, 2, 3}}, false},
		{"list ragged", PrimitiveTriangleList, []uint32{0, 1}, nil, true},
		{"strip", PrimitiveTriangleStrip, []uint32{0, 1, 2, 3}, [][3]uint32{{0, 1, 2}, {2, 1, 3}}, false},
		{"strip degenerate", PrimitiveTriangleStrip, []uint32{0, 1, 1, 2}, nil, false},
		{"points", PrimitivePointList, []uint32{0}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Primitive: tt.primitive, Indices: tt.indices}
			got, err := m.Triangles()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Triangles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Triangles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrimitiveType_String(t *testing.T) {
	if got := PrimitiveTriangleStrip.String(); got != "TriangleStrip" {
		t.Errorf("String() = %q", got)
	}
	if got := PrimitiveType(9).String(); got != "Unknown(9)" {
		t.Errorf("String() = %q", got)
	}
}
