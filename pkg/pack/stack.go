package pack

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// Stack layers several packs. Lookups search the most recently added pack
// first, so patch packs shadow the files of the packs beneath them.
type Stack struct {
	mu       sync.RWMutex
	archives []*Archive
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Add opens the pack at path and puts it on top of the stack.
func (s *Stack) Add(path string) error {
	a, err := Open(path)
	if err != nil {
		return fmt.Errorf("opening pack %s: %w", path, err)
	}
	s.Push(a)
	return nil
}

// Push puts an already opened pack on top of the stack.
func (s *Stack) Push(a *Archive) {
	s.mu.Lock()
	s.archives = append(s.archives, a)
	s.mu.Unlock()
}

// Len returns the number of packs.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.archives)
}

// find returns the topmost pack holding path.
func (s *Stack) find(path string) *Archive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.archives) - 1; i >= 0; i-- {
		if s.archives[i].Contains(path) {
			return s.archives[i]
		}
	}
	return nil
}

// Contains checks if any pack holds path.
func (s *Stack) Contains(path string) bool {
	return s.find(path) != nil
}

// Stat returns the visible entry for path.
func (s *Stack) Stat(path string) (*Entry, error) {
	a := s.find(path)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return a.Stat(path)
}

// Read reads the visible version of a file.
func (s *Stack) Read(path string) ([]byte, error) {
	a := s.find(path)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return a.Read(path)
}

// Open implements fs.FS over the visible files.
func (s *Stack) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	a := s.find(name)
	if a == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return a.Open(name)
}

// Glob returns the sorted, de-duplicated paths ending in suffix across all packs.
func (s *Stack) Glob(suffix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, a := range s.archives {
		for _, path := range a.Glob(suffix) {
			if !seen[path] {
				seen[path] = true
				result = append(result, path)
			}
		}
	}
	sort.Strings(result)
	return result
}

// Close closes every pack and empties the stack.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, a := range s.archives {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.archives = nil
	return firstErr
}
