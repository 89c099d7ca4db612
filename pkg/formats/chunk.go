package formats

import (
	"fmt"

	"go.uber.org/zap"
)

// ChunkID is the four-character identity that starts every chunk.
// The value is the big-endian packing of the four letters, so 'MTRS' is stored
// on disk as the little-endian bytes "SRTM".
type ChunkID uint32

// Known chunk identities.
const (
	ChunkMaterials       ChunkID = 'M'<<24 | 'T'<<16 | 'R'<<8 | 'S'
	ChunkMaterial        ChunkID = 'M'<<24 | 'T'<<16 | 'R'<<8 | 'L'
	ChunkMesh            ChunkID = 'V'<<24 | 'M'<<16 | 'S'<<8 | 'H'
	ChunkSkeleton        ChunkID = 'S'<<24 | 'K'<<16 | 'E'<<8 | 'L'
	ChunkSkeletonWeights ChunkID = 'W'<<24 | 'G'<<16 | 'H'<<8 | 'T'
	ChunkSubmeshes       ChunkID = 'S'<<24 | 'U'<<16 | 'B'<<8 | 'M'
)

// String renders printable identities as their four letters.
func (id ChunkID) String() string {
	b := [4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("%#08x", uint32(id))
		}
	}
	return string(b[:])
}

// Known reports whether the walker has a decoder for the identity.
func (id ChunkID) Known() bool {
	switch id {
	case ChunkMaterials, ChunkMesh, ChunkSkeleton, ChunkSkeletonWeights, ChunkSubmeshes:
		return true
	}
	return false
}

// Scope is an opened chunk whose identity has been validated.
//
// The format stores no chunk length, so a Scope cannot skip bytes its body did
// not read: Close only marks the lexical end of the chunk and logs how much was
// consumed. Consuming exactly the chunk's bytes is the decoder body's contract.
type Scope struct {
	ID    ChunkID
	Start int64

	f *fieldReader
}

// openScope reads a chunk identity and asserts it equals expected.
func (f *fieldReader) openScope(expected ChunkID) *Scope {
	inner := f.nested(expected)
	start := f.r.Offset()
	got := ChunkID(inner.u32("chunk_id"))
	if inner.err == nil && got != expected {
		inner.fail("chunk_id", start, fmt.Errorf("%w: got chunk %s, want %s", ErrStructuralMismatch, got, expected))
	}
	if inner.err != nil {
		f.fail("chunk_id", start, inner.err)
		return nil
	}
	return &Scope{ID: got, Start: start, f: inner}
}

// Close ends the scope. It runs on every exit path, including a failed body.
func (s *Scope) Close() {
	s.f.log.Debug("chunk closed",
		zap.Stringer("chunk", s.ID),
		zap.Int64("start", s.Start),
		zap.Int64("consumed", s.f.r.Offset()-s.Start),
		zap.Bool("failed", s.f.err != nil),
	)
}

// withScope opens a chunk of the expected identity, runs body against a reader
// attributed to that chunk and closes the scope whatever the body did.
func (f *fieldReader) withScope(expected ChunkID, body func(inner *fieldReader)) {
	s := f.openScope(expected)
	if s == nil {
		return
	}
	defer func() {
		f.fail("", s.Start, s.f.err)
		s.Close()
	}()
	body(s.f)
}
