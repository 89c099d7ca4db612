package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// Decode errors. Every failure is terminal for the file being decoded.
var (
	ErrStructuralMismatch  = errors.New("structural mismatch")
	ErrConstraintViolation = errors.New("constraint violation")

	ErrTruncatedStream = binio.ErrTruncatedStream
	ErrEncoding        = binio.ErrEncoding
)

// DecodeError locates a failure: the chunk being decoded, the field and the
// stream offset at which that field started.
type DecodeError struct {
	Chunk  ChunkID
	Field  string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s field %q at offset %#x: %v", e.Chunk, e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
