package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/stitch/pkg/patch"
)

// Sandbox confines every path of a wrapped Store to a root directory.
// Each input path is resolved against the root; anything that escapes it
// after ".." and symlink normalization is rejected with an IO failure
// whose message names the sandbox. The resolved root-relative path is
// forwarded to the inner store.
type Sandbox struct {
	root  string // absolute, symlink-resolved
	inner Store
}

// NewSandbox creates a sandbox rooted at root around inner. The root must
// exist; it is resolved to an absolute, symlink-free path once, up front.
func NewSandbox(root string, inner Store) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, patch.IOWrap(err, "resolve sandbox root %q", root)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, patch.IOWrap(err, "resolve sandbox root %q", root)
	}
	return &Sandbox{root: resolved, inner: inner}, nil
}

// resolve maps an input path to a root-relative path, rejecting escapes.
func (s *Sandbox) resolve(p string) (string, error) {
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !within(s.root, candidate) {
		return "", patch.IOf("path %q is outside the sandbox", p)
	}

	// A symlink in an existing ancestor can still point out of the root.
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", patch.IOWrap(err, "resolve %q", p)
	}
	if !within(s.root, resolved) {
		return "", patch.IOf("path %q is outside the sandbox", p)
	}

	rel, err := filepath.Rel(s.root, candidate)
	if err != nil {
		return "", patch.IOWrap(err, "resolve %q", p)
	}
	return rel, nil
}

// resolveExisting resolves symlinks on the longest existing ancestor of
// path and re-joins the remainder, so not-yet-created files still get
// their parent directories checked.
func resolveExisting(path string) (string, error) {
	remainder := ""
	dir := path
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Join(dir, remainder), nil
		}
		remainder = filepath.Join(filepath.Base(dir), remainder)
		dir = parent
	}
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func (s *Sandbox) Exists(p string) (bool, error) {
	rel, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	return s.inner.Exists(rel)
}

func (s *Sandbox) Read(p string) ([]byte, error) {
	rel, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return s.inner.Read(rel)
}

func (s *Sandbox) Write(p string, data []byte) error {
	rel, err := s.resolve(p)
	if err != nil {
		return err
	}
	return s.inner.Write(rel, data)
}

func (s *Sandbox) Remove(p string) error {
	rel, err := s.resolve(p)
	if err != nil {
		return err
	}
	return s.inner.Remove(rel)
}

func (s *Sandbox) Move(src, dst string) error {
	relSrc, err := s.resolve(src)
	if err != nil {
		return err
	}
	relDst, err := s.resolve(dst)
	if err != nil {
		return err
	}
	return s.inner.Move(relSrc, relDst)
}

func (s *Sandbox) Permissions(p string) (os.FileMode, bool, error) {
	rel, err := s.resolve(p)
	if err != nil {
		return 0, false, err
	}
	return s.inner.Permissions(rel)
}

func (s *Sandbox) SetPermissions(p string, mode os.FileMode) error {
	rel, err := s.resolve(p)
	if err != nil {
		return err
	}
	return s.inner.SetPermissions(rel, mode)
}
