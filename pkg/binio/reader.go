// Package binio provides the little-endian primitive reader used by the model decoders.
//
// A Reader is the only component that touches raw bytes. Every read consumes exactly
// its width and advances the cursor by that amount; a short stream yields an error
// wrapping ErrTruncatedStream.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/vismodel/pkg/encoding"
)

// Stream errors.
var (
	ErrTruncatedStream = errors.New("truncated stream")
	ErrEncoding        = errors.New("undecodable string")
	ErrStringTooLong   = errors.New("string length exceeds limit")
)

// DefaultMaxStringLength bounds the length prefix accepted by String and SkipString.
const DefaultMaxStringLength = 1 << 20

// Vec2u8 is a pair of bytes read as one composite, e.g. an offset and its format tag.
type Vec2u8 struct {
	X, Y uint8
}

// Reader reads typed little-endian values from a byte stream.
// It is not safe for concurrent use; one Reader belongs to one decode.
type Reader struct {
	r      io.Reader
	pos    int64
	buf    [8]byte
	maxStr uint32
}

// NewReader returns a Reader positioned at the current offset of r, counted as 0.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, maxStr: DefaultMaxStringLength}
}

// SetMaxStringLength changes the largest string payload the reader accepts.
func (r *Reader) SetMaxStringLength(n uint32) {
	if n > 0 {
		r.maxStr = n
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.pos
}

// readExact fills p or reports how far it got; it is the single place the cursor moves on reads.
func (r *Reader) readExact(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.pos += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: need %d bytes at offset %d, got %d", ErrTruncatedStream, len(p), r.pos-int64(n), n)
		}
		return err
	}
	return nil
}

func (r *Reader) fixed(n int) ([]byte, error) {
	b := r.buf[:n]
	if err := r.readExact(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Uint8 reads one unsigned byte.
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.fixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Int8 reads one signed byte.
func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.fixed(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Float32 reads an IEEE-754 binary32 value.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Bytes reads exactly n bytes into a new slice.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	b := make([]byte, n)
	if err := r.readExact(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if s, ok := r.r.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if end-cur < n {
			// the seek above left the stream at its end, as a short read would
			r.pos += end - cur
			return fmt.Errorf("%w: skip %d bytes at offset %d, %d remain", ErrTruncatedStream, n, r.pos-(end-cur), end-cur)
		}
		if _, err := s.Seek(cur+n, io.SeekStart); err != nil {
			return err
		}
		r.pos += n
		return nil
	}
	copied, err := io.CopyN(io.Discard, r.r, n)
	r.pos += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: skip %d bytes at offset %d, %d remain", ErrTruncatedStream, n, r.pos-copied, copied)
		}
		return err
	}
	return nil
}

// Vec2u8 reads two bytes as a pair.
func (r *Reader) Vec2u8() (Vec2u8, error) {
	b, err := r.fixed(2)
	if err != nil {
		return Vec2u8{}, err
	}
	return Vec2u8{X: b[0], Y: b[1]}, nil
}

// Color reads four bytes in R, G, B, A order.
func (r *Reader) Color() (color.NRGBA, error) {
	b, err := r.fixed(4)
	if err != nil {
		return color.NRGBA{}, err
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

func (r *Reader) floats(dst []float32) error {
	var raw [16]byte
	b := raw[:4*len(dst)]
	if err := r.readExact(b); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return nil
}

// Vec2 reads two floats.
func (r *Reader) Vec2() (mgl32.Vec2, error) {
	var v mgl32.Vec2
	err := r.floats(v[:])
	return v, err
}

// Vec3 reads three floats.
func (r *Reader) Vec3() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	err := r.floats(v[:])
	return v, err
}

// Vec4 reads four floats.
func (r *Reader) Vec4() (mgl32.Vec4, error) {
	var v mgl32.Vec4
	err := r.floats(v[:])
	return v, err
}

// Quat reads a quaternion stored as x, y, z, w.
func (r *Reader) Quat() (mgl32.Quat, error) {
	var v [4]float32
	if err := r.floats(v[:]); err != nil {
		return mgl32.Quat{}, err
	}
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}, nil
}

func (r *Reader) stringLength() (uint32, error) {
	n, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	if n > r.maxStr {
		return 0, fmt.Errorf("%w: %d > %d at offset %d", ErrStringTooLong, n, r.maxStr, r.pos-4)
	}
	return n, nil
}

// String reads a u32 length followed by that many CP949 bytes.
// A zero length yields "" and consumes only the prefix.
func (r *Reader) String() (string, error) {
	n, err := r.stringLength()
	if err != nil || n == 0 {
		return "", err
	}
	start := r.pos
	data, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	s, err := encoding.CP949ToUTF8(data)
	if err != nil {
		return "", fmt.Errorf("%w at offset %d: %w", ErrEncoding, start, err)
	}
	return s, nil
}

// SkipString advances past a length-prefixed string without decoding it.
func (r *Reader) SkipString() error {
	n, err := r.stringLength()
	if err != nil {
		return err
	}
	return r.Skip(int64(n))
}
