package formats

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/vismodel/pkg/binio"
)

func readMaterialBytes(data []byte) (*Material, error) {
	return ReadMaterial(binio.NewReader(bytes.NewReader(data)))
}

func TestReadMaterial_RoundTrip(t *testing.T) {
	for version := uint16(1); version <= 12; version++ {
		want := sampleMaterial(version)
		t.Run(want.Name+"/v"+itoa(int(version)), func(t *testing.T) {
			data := newBuilder(t).material(want).bytes()
			got, err := readMaterialBytes(data)
			if err != nil {
				t.Fatalf("ReadMaterial failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestReadMaterial_VersionGates(t *testing.T) {
	tests := []struct {
		version        uint16
		auxFiles       bool
		depthBias      bool
		depthBiasClamp bool
		alphaThreshold bool
		lightingMethod bool
	}{
		{1, false, false, false, false, false},
		{2, true, false, false, false, false},
		{3, true, true, false, false, false},
		{4, true, true, true, false, false},
		{6, true, true, true, false, false},
		{7, true, true, true, true, false},
		{8, true, true, true, true, false},
		{9, true, true, true, true, true},
		{200, true, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run("v"+itoa(int(tt.version)), func(t *testing.T) {
			m, err := readMaterialBytes(newBuilder(t).material(sampleMaterial(tt.version)).bytes())
			if err != nil {
				t.Fatalf("ReadMaterial failed: %v", err)
			}
			if got := m.AuxFiles != nil; got != tt.auxFiles {
				t.Errorf("AuxFiles present = %v, want %v", got, tt.auxFiles)
			}
			if got := m.DepthBias != nil; got != tt.depthBias {
				t.Errorf("DepthBias present = %v, want %v", got, tt.depthBias)
			}
			if got := m.DepthBiasClamp != nil && m.SlopeScaledDepthBias != nil; got != tt.depthBiasClamp {
				t.Errorf("DepthBiasClamp present = %v, want %v", got, tt.depthBiasClamp)
			}
			if got := m.CustomAlphaThreshold != nil; got != tt.alphaThreshold {
				t.Errorf("CustomAlphaThreshold present = %v, want %v", got, tt.alphaThreshold)
			}
			if got := m.LightingMethod != nil; got != tt.lightingMethod {
				t.Errorf("LightingMethod present = %v, want %v", got, tt.lightingMethod)
			}
		})
	}
}

func TestReadMaterial_SortKey(t *testing.T) {
	tests := []struct {
		sortKey uint32
		wantErr bool
	}{
		{0, false},
		{14, false},
		{15, true},
		{0xFFFFFFFF, true},
	}

	for _, tt := range tests {
		t.Run(itoa(int(tt.sortKey)), func(t *testing.T) {
			m := sampleMaterial(9)
			m.SortKey = tt.sortKey
			got, err := readMaterialBytes(newBuilder(t).material(m).bytes())
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.SortKey != tt.sortKey {
					t.Errorf("SortKey = %d, want %d", got.SortKey, tt.sortKey)
				}
				return
			}
			if !errors.Is(err, ErrConstraintViolation) {
				t.Fatalf("expected ErrConstraintViolation, got %v", err)
			}
			if got != nil {
				t.Error("expected nil material on error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Field != "sort_key" || de.Chunk != ChunkMaterial {
				t.Errorf("error located at %s/%s, want MTRL/sort_key", de.Chunk, de.Field)
			}
		})
	}
}

func TestReadMaterial_WrongChunkID(t *testing.T) {
	data := newBuilder(t).material(sampleMaterial(9)).bytes()
	copy(data, []byte{'X', 'X', 'X', 'X'})

	_, err := readMaterialBytes(data)
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("expected ErrStructuralMismatch, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Offset != 0 || de.Field != "chunk_id" {
		t.Errorf("unexpected error location: %v", err)
	}
}

func TestReadMaterial_Truncated(t *testing.T) {
	data := newBuilder(t).material(sampleMaterial(9)).bytes()

	for n := 0; n < len(data); n++ {
		m, err := readMaterialBytes(data[:n])
		if !errors.Is(err, ErrTruncatedStream) {
			t.Fatalf("cut at %d: expected ErrTruncatedStream, got %v", n, err)
		}
		if m != nil {
			t.Fatalf("cut at %d: expected nil material", n)
		}
	}
}

func TestReadMaterial_ExactConsumption(t *testing.T) {
	data := newBuilder(t).material(emptyMaterial(9)).u32(0xDEADBEEF).bytes()
	r := binio.NewReader(bytes.NewReader(data))

	m, err := ReadMaterial(r)
	if err != nil {
		t.Fatalf("ReadMaterial failed: %v", err)
	}
	if m.DiffuseMap != "" || m.Name != "" {
		t.Errorf("expected empty strings, got name %q diffuse %q", m.Name, m.DiffuseMap)
	}
	if r.Offset() != int64(len(data)-4) {
		t.Errorf("consumed %d bytes, want %d", r.Offset(), len(data)-4)
	}
}

func TestReadMaterial_EncodingError(t *testing.T) {
	b := newBuilder(t).chunk(ChunkMaterial).u16(1)
	b.u32(2).raw([]byte{0xC7, 0x0A}) // invalid CP949 name
	_, err := readMaterialBytes(b.bytes())
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "name" {
		t.Errorf("expected error on field name, got %v", err)
	}
}

func TestSurfaceFlags_String(t *testing.T) {
	tests := []struct {
		flags SurfaceFlags
		want  string
	}{
		{0, "None"},
		{SurfaceDoubleSided, "DoubleSided"},
		{SurfaceDoubleSided | SurfaceNoFog, "DoubleSided|NoFog"},
		{SurfaceNoFog | 0x100, "NoFog|0x100"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTransparencyType(t *testing.T) {
	if got := TransparencyAlphaTest.String(); got != "AlphaTest" {
		t.Errorf("String() = %q", got)
	}
	if got := TransparencyType(99).String(); got != "Unknown(99)" {
		t.Errorf("String() = %q", got)
	}
	if tt, ok := ParseTransparencyType("additive"); !ok || tt != TransparencyAdditive {
		t.Errorf("ParseTransparencyType(additive) = %v, %v", tt, ok)
	}
	if _, ok := ParseTransparencyType("glass"); ok {
		t.Error("ParseTransparencyType(glass) should fail")
	}
}

func TestLightingMethod_String(t *testing.T) {
	if got := LightingLightGrid.String(); got != "LightGrid" {
		t.Errorf("String() = %q", got)
	}
	if got := LightingMethod(40).String(); got != "Unknown(40)" {
		t.Errorf("String() = %q", got)
	}
}
