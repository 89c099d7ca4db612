package formats

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// Upper bounds on element counts read from the stream.
const (
	maxListLength   = 1 << 16
	maxVertexCount  = 1 << 24
	maxIndexCount   = 1 << 26
	maxVertexBuffer = 1 << 30
)

// fieldReader wraps a binio.Reader with a sticky error. After the first failure
// every read is a no-op returning the zero value, so decoders read fields in
// order and check err once per group.
type fieldReader struct {
	r     *binio.Reader
	log   *zap.Logger
	chunk ChunkID
	err   error
}

func newFieldReader(r *binio.Reader, chunk ChunkID, log *zap.Logger) *fieldReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &fieldReader{r: r, log: log, chunk: chunk}
}

// nested returns a reader for an inner chunk sharing the stream and error state.
func (f *fieldReader) nested(chunk ChunkID) *fieldReader {
	return &fieldReader{r: f.r, log: f.log, chunk: chunk, err: f.err}
}

func (f *fieldReader) fail(field string, offset int64, err error) {
	if f.err != nil || err == nil {
		return
	}
	var de *DecodeError
	if errors.As(err, &de) {
		f.err = err
		return
	}
	f.err = &DecodeError{Chunk: f.chunk, Field: field, Offset: offset, Err: err}
}

// violate records a constraint violation for a field that started at offset.
func (f *fieldReader) violate(field string, offset int64, format string, args ...any) {
	f.fail(field, offset, fmt.Errorf("%w: %s", ErrConstraintViolation, fmt.Sprintf(format, args...)))
}

func read[T any](f *fieldReader, field string, fn func() (T, error)) T {
	var zero T
	if f.err != nil {
		return zero
	}
	offset := f.r.Offset()
	v, err := fn()
	if err != nil {
		f.fail(field, offset, err)
		return zero
	}
	return v
}

func (f *fieldReader) u8(field string) uint8          { return read(f, field, f.r.Uint8) }
func (f *fieldReader) u16(field string) uint16        { return read(f, field, f.r.Uint16) }
func (f *fieldReader) u32(field string) uint32        { return read(f, field, f.r.Uint32) }
func (f *fieldReader) f32(field string) float32       { return read(f, field, f.r.Float32) }
func (f *fieldReader) str(field string) string        { return read(f, field, f.r.String) }
func (f *fieldReader) pair(field string) binio.Vec2u8 { return read(f, field, f.r.Vec2u8) }
func (f *fieldReader) color(field string) color.NRGBA { return read(f, field, f.r.Color) }
func (f *fieldReader) vec3(field string) mgl32.Vec3   { return read(f, field, f.r.Vec3) }
func (f *fieldReader) quat(field string) mgl32.Quat   { return read(f, field, f.r.Quat) }

func (f *fieldReader) attrib(field string) VertexAttrib {
	p := f.pair(field)
	return VertexAttrib{Offset: p.X, Format: VertexFormat(p.Y)}
}

func (f *fieldReader) bytes(field string, n int) []byte {
	return read(f, field, func() ([]byte, error) { return f.r.Bytes(n) })
}

// count reads a u32 element count and rejects values above limit.
func (f *fieldReader) count(field string, limit uint32) uint32 {
	if f.err != nil {
		return 0
	}
	offset := f.r.Offset()
	n := f.u32(field)
	if f.err == nil && n > limit {
		f.violate(field, offset, "count %d exceeds %d", n, limit)
		return 0
	}
	return n
}

// optional reads a value only when present is true.
func optional[T any](f *fieldReader, present bool, fn func() T) *T {
	if !present || f.err != nil {
		return nil
	}
	v := fn()
	if f.err != nil {
		return nil
	}
	return &v
}
