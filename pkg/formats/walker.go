package formats

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// EventKind tags which record an Event carries.
type EventKind uint8

const (
	EventSurface EventKind = iota + 1
	EventMesh
	EventSkeleton
	EventSkeletonWeights
	EventSubmeshBinding
)

// String returns a human-readable event kind name.
func (k EventKind) String() string {
	switch k {
	case EventSurface:
		return "Surface"
	case EventMesh:
		return "Mesh"
	case EventSkeleton:
		return "Skeleton"
	case EventSkeletonWeights:
		return "SkeletonWeights"
	case EventSubmeshBinding:
		return "SubmeshBinding"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Event is one decoded record. Exactly the field matching Kind is set;
// EventSkeletonWeights carries no record.
type Event struct {
	Kind   EventKind
	Chunk  ChunkID
	Offset int64 // offset of the chunk identity

	Material  *Material
	Mesh      *Mesh
	Skeleton  *Skeleton
	Submeshes *SubmeshBinding
}

// Walker iterates the top-level chunks of a model stream.
//
// The format has no chunk length, so an unknown identity cannot be skipped by
// size: the walker logs it and reads the next four bytes as the next identity.
type Walker struct {
	r    *binio.Reader
	opts options
	err  error

	// state of the materials collection being emitted
	materialsLeft   uint32
	materialsOffset int64
}

// NewWalker returns a Walker reading chunks from r.
func NewWalker(r io.Reader, opts ...Option) *Walker {
	o := buildOptions(opts)
	br := binio.NewReader(r)
	br.SetMaxStringLength(o.maxStringSize)
	return &Walker{r: br, opts: o}
}

// Offset returns the number of bytes consumed so far.
func (w *Walker) Offset() int64 {
	return w.r.Offset()
}

// Next decodes the next record. It returns io.EOF once the stream ends on a
// chunk boundary; any other error is terminal and returned again by later calls.
func (w *Walker) Next() (Event, error) {
	if w.err != nil {
		return Event{}, w.err
	}
	ev, err := w.next()
	if err != nil {
		w.err = err
	}
	return ev, err
}

func (w *Walker) next() (Event, error) {
	if w.materialsLeft > 0 {
		return w.nextMaterial()
	}

	for {
		offset := w.r.Offset()
		raw, err := w.r.Uint32()
		if err != nil {
			// nothing left at a chunk boundary is the only clean end
			if w.r.Offset() == offset && errors.Is(err, ErrTruncatedStream) {
				return Event{}, io.EOF
			}
			return Event{}, &DecodeError{Field: "chunk_id", Offset: offset, Err: err}
		}
		id := ChunkID(raw)
		w.opts.log.Debug("chunk", zap.Stringer("id", id), zap.Int64("offset", offset))

		ev := Event{Chunk: id, Offset: offset}
		switch id {
		case ChunkMaterials:
			f := w.fields(ChunkMaterials)
			w.materialsLeft = f.count("count", maxListLength)
			if f.err != nil {
				return Event{}, f.err
			}
			w.materialsOffset = offset
			if w.materialsLeft > 0 {
				return w.nextMaterial()
			}

		case ChunkMesh:
			f := w.fields(id)
			ev.Kind, ev.Mesh = EventMesh, readMesh(f)
			return ev, f.err

		case ChunkSkeleton:
			f := w.fields(id)
			ev.Kind, ev.Skeleton = EventSkeleton, readSkeleton(f)
			return ev, f.err

		case ChunkSkeletonWeights:
			ev.Kind = EventSkeletonWeights
			return ev, nil

		case ChunkSubmeshes:
			f := w.fields(id)
			ev.Kind, ev.Submeshes = EventSubmeshBinding, readSubmeshBinding(f)
			return ev, f.err

		default:
			w.opts.log.Debug("unknown chunk ignored", zap.Stringer("id", id), zap.Int64("offset", offset))
		}
	}
}

func (w *Walker) nextMaterial() (Event, error) {
	f := w.fields(ChunkMaterials)
	m := readMaterial(f)
	if f.err != nil {
		return Event{}, f.err
	}
	w.materialsLeft--

	if w.opts.overrides != nil {
		if diffuse, ok := w.opts.overrides.DiffuseFor(m.Name); ok {
			w.opts.log.Debug("diffuse override applied",
				zap.String("material", m.Name),
				zap.String("from", m.DiffuseMap),
				zap.String("to", diffuse),
			)
			m.DiffuseMap = diffuse
		}
	}
	return Event{Kind: EventSurface, Chunk: ChunkMaterials, Offset: w.materialsOffset, Material: m}, nil
}

func (w *Walker) fields(chunk ChunkID) *fieldReader {
	return newFieldReader(w.r, chunk, w.opts.log)
}

// Collect walks the whole stream and returns every event in file order.
// On error no events are returned.
func Collect(r io.Reader, opts ...Option) ([]Event, error) {
	w := NewWalker(r, opts...)
	var events []Event
	for {
		ev, err := w.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}
