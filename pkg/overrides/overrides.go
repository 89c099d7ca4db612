// Package overrides reads the materials.xml sidecar files that replace the
// diffuse texture of named materials after a model is decoded.
package overrides

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/Faultbox/vismodel/pkg/encoding"
)

// FileName is the name of the sidecar file inside a model's data directory.
const FileName = "materials.xml"

// ErrMalformed is returned when a sidecar file is not valid material XML.
var ErrMalformed = errors.New("malformed materials file")

// Entry is one <Material> element. Only Diffuse is applied to decoded
// materials; the other attributes are kept for tooling.
type Entry struct {
	Name           string
	Diffuse        string
	Ambient        string
	Transparency   string
	AlphaThreshold *float32
	Source         string // file the entry came from
}

type xmlDocument struct {
	Materials []xmlMaterial `xml:"Materials>Material"`
}

type xmlMaterial struct {
	Name           string `xml:"name,attr"`
	Diffuse        string `xml:"diffuse,attr"`
	Ambient        string `xml:"ambient,attr"`
	Transparency   string `xml:"transparency,attr"`
	AlphaThreshold string `xml:"alphathreshold,attr"`
}

// Set is the merged result of every sidecar found for one model.
type Set struct {
	entries map[string]Entry
	sources []string
}

// NewSet builds a Set from entries; a later entry replaces an earlier one of the same name.
func NewSet(entries ...Entry) *Set {
	s := &Set{entries: make(map[string]Entry)}
	s.merge(entries)
	return s
}

func (s *Set) merge(entries []Entry) {
	for _, e := range entries {
		s.entries[e.Name] = e
	}
}

// DiffuseFor returns the replacement diffuse texture for a material.
// Entries without a diffuse attribute do not override anything.
func (s *Set) DiffuseFor(material string) (string, bool) {
	if s == nil {
		return "", false
	}
	e, ok := s.entries[material]
	if !ok || e.Diffuse == "" {
		return "", false
	}
	return e.Diffuse, true
}

// Entry returns the merged entry for a material name.
func (s *Set) Entry(material string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[material]
	return e, ok
}

// Names returns the material names with an entry, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Sources returns the sidecar files that were loaded, in load order.
func (s *Set) Sources() []string {
	if s == nil {
		return nil
	}
	return s.sources
}

// Paths returns the sidecar locations probed for a model, lowest priority first:
// <dir>/<model>_data/materials.xml, then <dir>/Overrides/<model>_data/materials.xml.
func Paths(modelPath string) []string {
	modelPath = strings.ReplaceAll(modelPath, "\\", "/")
	dir, file := path.Split(modelPath)
	data := file + "_data"
	return []string{
		path.Join(dir, data, FileName),
		path.Join(dir, "Overrides", data, FileName),
	}
}

// Load reads every sidecar that exists for modelPath in fsys and merges them;
// entries of a later file win. A model without sidecars yields an empty Set.
func Load(fsys fs.FS, modelPath string, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := NewSet()
	for _, p := range Paths(modelPath) {
		f, err := fsys.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		entries, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		for i := range entries {
			entries[i].Source = p
		}
		s.merge(entries)
		s.sources = append(s.sources, p)
		log.Debug("material overrides loaded", zap.String("file", p), zap.Int("entries", len(entries)))
	}
	return s, nil
}

// Parse reads the <Material> elements of one sidecar in document order.
// The root element name is not checked.
func Parse(r io.Reader) ([]Entry, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc xmlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	entries := make([]Entry, 0, len(doc.Materials))
	for i, m := range doc.Materials {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: material %d has no name", ErrMalformed, i)
		}
		e := Entry{
			Name:         m.Name,
			Diffuse:      m.Diffuse,
			Ambient:      m.Ambient,
			Transparency: m.Transparency,
		}
		if m.AlphaThreshold != "" {
			v, err := strconv.ParseFloat(m.AlphaThreshold, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: material %q alphathreshold: %v", ErrMalformed, m.Name, err)
			}
			f := float32(v)
			e.AlphaThreshold = &f
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if encoding.IsCP949Label(label) {
		return encoding.NewCP949Reader(input), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
