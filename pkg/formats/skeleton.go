package formats

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

const (
	skeletonEulerVersion      = 2
	skeletonObjectPoseVersion = 3
)

// NoParent is the parent index of a root bone.
const NoParent uint16 = 0xFFFF

// BonePose is a position and rotation pair.
type BonePose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Bone is one joint of a skeleton. ID is the bone's index in Skeleton.Bones.
type Bone struct {
	ID            int
	Name          string
	Parent        uint16
	LocalPosition mgl32.Vec3
	LocalRotation mgl32.Quat
	LocalEuler    *mgl32.Vec3 // v2+
	ObjectPose    *BonePose   // v3+
}

// IsRoot reports whether the bone has no parent.
func (b *Bone) IsRoot() bool {
	return b.Parent == NoParent
}

// Skeleton is the bone hierarchy of a SKEL chunk.
type Skeleton struct {
	Version uint32
	Bones   []Bone
}

// ReadSkeleton reads a SKEL chunk body; the identity has already been consumed.
func ReadSkeleton(r *binio.Reader) (*Skeleton, error) {
	f := newFieldReader(r, ChunkSkeleton, nil)
	s := readSkeleton(f)
	if f.err != nil {
		return nil, f.err
	}
	return s, nil
}

func readSkeleton(f *fieldReader) *Skeleton {
	s := &Skeleton{}
	s.Version = f.u32("version")
	n := f.count("bone_count", maxListLength)
	s.Bones = make([]Bone, 0, n)
	for i := 0; i < int(n) && f.err == nil; i++ {
		field := func(name string) string { return fmt.Sprintf("bones[%d].%s", i, name) }
		b := Bone{ID: i}
		b.Name = f.str(field("name"))
		b.Parent = f.u16(field("parent"))
		b.LocalPosition = f.vec3(field("local_position"))
		b.LocalRotation = f.quat(field("local_rotation"))
		b.LocalEuler = optional(f, s.Version >= skeletonEulerVersion, func() mgl32.Vec3 {
			return f.vec3(field("local_euler"))
		})
		b.ObjectPose = optional(f, s.Version >= skeletonObjectPoseVersion, func() BonePose {
			return BonePose{Position: f.vec3(field("object_position")), Rotation: f.quat(field("object_rotation"))}
		})
		s.Bones = append(s.Bones, b)
	}
	if f.err != nil {
		return nil
	}
	f.log.Debug("skeleton decoded", zap.Uint32("version", s.Version), zap.Int("bones", len(s.Bones)))
	return s
}

// BoneByName returns the first bone with the given name, or nil.
func (s *Skeleton) BoneByName(name string) *Bone {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return &s.Bones[i]
		}
	}
	return nil
}

// Children returns the bones whose parent is the bone with the given ID.
func (s *Skeleton) Children(id int) []*Bone {
	var children []*Bone
	for i := range s.Bones {
		if int(s.Bones[i].Parent) == id && !s.Bones[i].IsRoot() {
			children = append(children, &s.Bones[i])
		}
	}
	return children
}

// Roots returns every bone without a parent.
func (s *Skeleton) Roots() []*Bone {
	var roots []*Bone
	for i := range s.Bones {
		if s.Bones[i].IsRoot() {
			roots = append(roots, &s.Bones[i])
		}
	}
	return roots
}
