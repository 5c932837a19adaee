package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// OS is a Store backed by a directory on disk. Paths are resolved by
// plain joining against Dir; callers that need escape protection wrap
// an OS store in a Sandbox.
type OS struct {
	Dir string
}

// NewOS creates an OS store rooted at dir.
func NewOS(dir string) *OS {
	return &OS{Dir: dir}
}

func (s *OS) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Dir, path)
}

func (s *OS) Exists(path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *OS) Read(path string) ([]byte, error) {
	return os.ReadFile(s.abs(path))
}

// Write replaces path atomically: the data lands in a temp file in the
// destination directory and is renamed into place.
func (s *OS) Write(path string, data []byte) error {
	target := s.abs(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: mkdir: %w", path, err)
	}

	// Preserve existing permissions across the rename.
	perm := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".stitch-tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: tmpfile: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: close: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: chmod: %w", path, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: rename: %w", path, err)
	}
	return nil
}

func (s *OS) Remove(path string) error {
	err := os.Remove(s.abs(path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *OS) Move(src, dst string) error {
	target := s.abs(dst)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("move %s: mkdir: %w", dst, err)
	}
	return os.Rename(s.abs(src), target)
}

func (s *OS) Permissions(path string) (os.FileMode, bool, error) {
	info, err := os.Stat(s.abs(path))
	if err != nil {
		return 0, false, err
	}
	return info.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky), true, nil
}

func (s *OS) SetPermissions(path string, mode os.FileMode) error {
	return os.Chmod(s.abs(path), mode)
}
