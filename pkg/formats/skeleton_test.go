package formats

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/vismodel/pkg/binio"
)

func sampleSkeleton(version uint32) *Skeleton {
	s := &Skeleton{
		Version: version,
		Bones: []Bone{
			{ID: 0, Name: "Bip01", Parent: NoParent, LocalPosition: mgl32.Vec3{0, 1, 0}, LocalRotation: mgl32.QuatIdent()},
			{ID: 1, Name: "Bip01 Spine", Parent: 0, LocalPosition: mgl32.Vec3{0, 0.5, 0}, LocalRotation: mgl32.Quat{W: 0.5, V: mgl32.Vec3{0.5, 0.5, 0.5}}},
			{ID: 2, Name: "머리", Parent: 1, LocalPosition: mgl32.Vec3{0, 0.3, 0.1}, LocalRotation: mgl32.QuatIdent()},
		},
	}
	for i := range s.Bones {
		if version >= 2 {
			s.Bones[i].LocalEuler = &mgl32.Vec3{0, float32(i), 0}
		}
		if version >= 3 {
			s.Bones[i].ObjectPose = &BonePose{Position: mgl32.Vec3{float32(i), 0, 0}, Rotation: mgl32.QuatIdent()}
		}
	}
	return s
}

func TestReadSkeleton_RoundTrip(t *testing.T) {
	for _, version := range []uint32{1, 2, 3, 4} {
		t.Run("v"+itoa(int(version)), func(t *testing.T) {
			want := sampleSkeleton(version)
			data := body(newBuilder(t).skeleton(want).bytes())
			r := binio.NewReader(bytes.NewReader(data))

			got, err := ReadSkeleton(r)
			if err != nil {
				t.Fatalf("ReadSkeleton failed: %v", err)
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

func TestReadSkeleton_FieldNames(t *testing.T) {
	data := body(newBuilder(t).skeleton(sampleSkeleton(3)).bytes())
	// cut inside the second bone's name payload
	cut := 4 + 4 + (4 + 5) + 2 + 12 + 16 + 12 + 12 + 16 + 4 + 3

	_, err := ReadSkeleton(binio.NewReader(bytes.NewReader(data[:cut])))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Field != "bones[1].name" || de.Chunk != ChunkSkeleton {
		t.Errorf("error names %s/%q, want SKEL/bones[1].name", de.Chunk, de.Field)
	}
	if !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestReadSkeleton_TooManyBones(t *testing.T) {
	data := newBuilder(t).u32(1).u32(maxListLength + 1).bytes()
	_, err := ReadSkeleton(binio.NewReader(bytes.NewReader(data)))
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestSkeleton_Hierarchy(t *testing.T) {
	s := sampleSkeleton(1)

	roots := s.Roots()
	if len(roots) != 1 || roots[0].Name != "Bip01" || !roots[0].IsRoot() {
		t.Fatalf("Roots() = %v", roots)
	}
	children := s.Children(0)
	if len(children) != 1 || children[0].Name != "Bip01 Spine" {
		t.Errorf("Children(0) = %v", children)
	}
	if got := s.BoneByName("머리"); got == nil || got.ID != 2 {
		t.Errorf("BoneByName(머리) = %v", got)
	}
	if s.BoneByName("missing") != nil {
		t.Error("BoneByName(missing) should be nil")
	}
}
