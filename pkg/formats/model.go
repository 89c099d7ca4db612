package formats

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Faultbox/vismodel/pkg/overrides"
)

// Decode reads a whole model stream and delivers its records to h.
// The stream is decoded completely before the first callback, so a file that
// fails to decode produces no callbacks at all.
func Decode(r io.Reader, h Handler, opts ...Option) error {
	events, err := Collect(r, opts...)
	if err != nil {
		return err
	}
	for _, ev := range events {
		Dispatch(h, ev)
	}
	return nil
}

// DecodeFS decodes the model at name in fsys. Unless WithOverrides is given, the
// materials.xml sidecars next to the model are loaded and applied.
func DecodeFS(fsys fs.FS, name string, h Handler, opts ...Option) error {
	o := buildOptions(opts)
	if o.overrides == nil {
		set, err := overrides.Load(fsys, name, o.log)
		if err != nil {
			return fmt.Errorf("loading material overrides: %w", err)
		}
		opts = append(opts[:len(opts):len(opts)], WithOverrides(set))
	}

	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	if err := Decode(f, h, opts...); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// DecodeFile decodes a model file from disk, applying its sidecars.
func DecodeFile(path string, h Handler, opts ...Option) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return DecodeFS(os.DirFS(dir), name, h, opts...)
}

// ParseModel decodes model data from a byte slice.
func ParseModel(data []byte, opts ...Option) (*Model, error) {
	m := &Model{}
	if err := Decode(bytes.NewReader(data), m, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseModelFile decodes a model file from disk.
func ParseModelFile(path string, opts ...Option) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer file.Close()

	m := &Model{}
	if err := Decode(file, m, opts...); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}

// Model is a Handler that keeps every record it receives.
type Model struct {
	Materials     []*Material
	Meshes        []*Mesh
	Skeletons     []*Skeleton
	WeightChunks  int
	SubmeshTables []*SubmeshBinding
}

func (m *Model) OnSurface(mat *Material) {
	m.Materials = append(m.Materials, mat)
}

func (m *Model) OnMesh(mesh *Mesh) {
	m.Meshes = append(m.Meshes, mesh)
}

func (m *Model) OnSkeleton(s *Skeleton) {
	m.Skeletons = append(m.Skeletons, s)
}

func (m *Model) OnSkeletonWeights() {
	m.WeightChunks++
}

func (m *Model) OnVerticesMaterial(b *SubmeshBinding) {
	m.SubmeshTables = append(m.SubmeshTables, b)
}

// MaterialByName returns the first material with the given name, or nil.
func (m *Model) MaterialByName(name string) *Material {
	for _, mat := range m.Materials {
		if mat.Name == name {
			return mat
		}
	}
	return nil
}

// TotalVertexCount returns the number of vertices across all meshes.
func (m *Model) TotalVertexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += int(mesh.VertexCount)
	}
	return total
}

// TotalTriangleCount returns the number of triangles across all meshes that have them.
func (m *Model) TotalTriangleCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		if tris, err := mesh.Triangles(); err == nil {
			total += len(tris)
		}
	}
	return total
}

// MaterialFor returns the material a submesh is bound to, or nil when the
// index is out of range.
func (m *Model) MaterialFor(s Submesh) *Material {
	if int(s.MaterialID) >= len(m.Materials) {
		return nil
	}
	return m.Materials[s.MaterialID]
}
