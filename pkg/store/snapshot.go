package store

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// Snapshotting wraps a Store and records the prior state of every path
// before its first mutation, giving callers the rollback the applier
// itself does not provide. Prior contents are zstd-compressed and stored
// on disk under a per-snapshot directory, addressed by their blake2b
// digest.
//
// After a failed apply, Rollback restores every captured path in reverse
// capture order; after a successful one, Discard drops the blobs.
type Snapshotting struct {
	inner Store
	dir   string // blob directory for this snapshot set

	captured map[string]bool
	order    []entry
}

type entry struct {
	path    string
	existed bool
	blob    string // blob file name, empty when the path did not exist
	mode    os.FileMode
	hasMode bool
}

// NewSnapshotting creates a snapshot set under baseDir. Each set gets its
// own uuid-named directory so concurrent callers on different stores do
// not collide.
func NewSnapshotting(inner Store, baseDir string) (*Snapshotting, error) {
	dir := filepath.Join(baseDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	return &Snapshotting{
		inner:    inner,
		dir:      dir,
		captured: make(map[string]bool),
	}, nil
}

// Dir returns the on-disk blob directory of this snapshot set.
func (s *Snapshotting) Dir() string {
	return s.dir
}

// capture records the current state of path, once.
func (s *Snapshotting) capture(path string) error {
	if s.captured[path] {
		return nil
	}

	exists, err := s.inner.Exists(path)
	if err != nil {
		return err
	}
	e := entry{path: path, existed: exists}
	if exists {
		data, err := s.inner.Read(path)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", path, err)
		}
		blob, err := s.writeBlob(data)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", path, err)
		}
		e.blob = blob
		if mode, ok, err := s.inner.Permissions(path); err == nil && ok {
			e.mode = mode
			e.hasMode = true
		}
	}

	s.captured[path] = true
	s.order = append(s.order, e)
	return nil
}

// writeBlob compresses data and stores it addressed by digest, returning
// the blob file name.
func (s *Snapshotting) writeBlob(data []byte) (string, error) {
	sum := blake2b.Sum256(data)
	name := hex.EncodeToString(sum[:])
	target := filepath.Join(s.dir, name)

	if _, err := os.Stat(target); err == nil {
		return name, nil
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return "", err
	}
	defer enc.Close()

	if err := os.WriteFile(target, enc.EncodeAll(data, nil), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Snapshotting) readBlob(name string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(raw, nil)
}

// Rollback restores every captured path to its pre-apply state, newest
// capture first, then discards the blobs.
func (s *Snapshotting) Rollback() error {
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.order[i]
		if !e.existed {
			if err := s.inner.Remove(e.path); err != nil {
				return fmt.Errorf("rollback %s: %w", e.path, err)
			}
			continue
		}
		data, err := s.readBlob(e.blob)
		if err != nil {
			return fmt.Errorf("rollback %s: %w", e.path, err)
		}
		if err := s.inner.Write(e.path, data); err != nil {
			return fmt.Errorf("rollback %s: %w", e.path, err)
		}
		if e.hasMode {
			if err := s.inner.SetPermissions(e.path, e.mode); err != nil {
				return fmt.Errorf("rollback %s: %w", e.path, err)
			}
		}
	}
	return s.Discard()
}

// Discard removes the snapshot blobs. The wrapped store is untouched.
func (s *Snapshotting) Discard() error {
	s.order = nil
	s.captured = make(map[string]bool)
	return os.RemoveAll(s.dir)
}

func (s *Snapshotting) Exists(path string) (bool, error) {
	return s.inner.Exists(path)
}

func (s *Snapshotting) Read(path string) ([]byte, error) {
	return s.inner.Read(path)
}

func (s *Snapshotting) Write(path string, data []byte) error {
	if err := s.capture(path); err != nil {
		return err
	}
	return s.inner.Write(path, data)
}

func (s *Snapshotting) Remove(path string) error {
	if err := s.capture(path); err != nil {
		return err
	}
	return s.inner.Remove(path)
}

func (s *Snapshotting) Move(src, dst string) error {
	if err := s.capture(src); err != nil {
		return err
	}
	if err := s.capture(dst); err != nil {
		return err
	}
	return s.inner.Move(src, dst)
}

func (s *Snapshotting) Permissions(path string) (os.FileMode, bool, error) {
	return s.inner.Permissions(path)
}

func (s *Snapshotting) SetPermissions(path string, mode os.FileMode) error {
	if err := s.capture(path); err != nil {
		return err
	}
	return s.inner.SetPermissions(path, mode)
}
