package store

import (
	"fmt"
	"os"
	"path"
	"sort"
)

// Memory is a map-backed Store. It is the store of record for tests and
// backs dry runs in the CLI. Paths are cleaned so "a/b" and "./a//b"
// refer to the same file.
type Memory struct {
	files map[string][]byte
	modes map[string]os.FileMode
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		modes: make(map[string]os.FileMode),
	}
}

func normalize(p string) string {
	return path.Clean(p)
}

// Seed stores a file without going through Write, for test setup.
func (s *Memory) Seed(p string, data []byte, mode os.FileMode) {
	p = normalize(p)
	s.files[p] = append([]byte(nil), data...)
	s.modes[p] = mode
}

// File returns the stored contents of p and whether it exists.
func (s *Memory) File(p string) ([]byte, bool) {
	data, ok := s.files[normalize(p)]
	return data, ok
}

// Paths returns all stored paths in sorted order.
func (s *Memory) Paths() []string {
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Memory) Exists(p string) (bool, error) {
	_, ok := s.files[normalize(p)]
	return ok, nil
}

func (s *Memory) Read(p string) ([]byte, error) {
	data, ok := s.files[normalize(p)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (s *Memory) Write(p string, data []byte) error {
	p = normalize(p)
	s.files[p] = append([]byte(nil), data...)
	if _, ok := s.modes[p]; !ok {
		s.modes[p] = 0o644
	}
	return nil
}

func (s *Memory) Remove(p string) error {
	p = normalize(p)
	delete(s.files, p)
	delete(s.modes, p)
	return nil
}

func (s *Memory) Move(src, dst string) error {
	src, dst = normalize(src), normalize(dst)
	data, ok := s.files[src]
	if !ok {
		return fmt.Errorf("move %s: %w", src, os.ErrNotExist)
	}
	s.files[dst] = data
	s.modes[dst] = s.modes[src]
	delete(s.files, src)
	delete(s.modes, src)
	return nil
}

func (s *Memory) Permissions(p string) (os.FileMode, bool, error) {
	p = normalize(p)
	if _, ok := s.files[p]; !ok {
		return 0, false, fmt.Errorf("permissions %s: %w", p, os.ErrNotExist)
	}
	return s.modes[p], true, nil
}

func (s *Memory) SetPermissions(p string, mode os.FileMode) error {
	p = normalize(p)
	if _, ok := s.files[p]; !ok {
		return fmt.Errorf("set permissions %s: %w", p, os.ErrNotExist)
	}
	s.modes[p] = mode
	return nil
}
