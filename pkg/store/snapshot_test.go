package store

import (
	"os"
	"testing"
)

func newTestSnapshot(t *testing.T) (*Snapshotting, *Memory) {
	t.Helper()
	mem := NewMemory()
	snap, err := NewSnapshotting(mem, t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotting failed: %v", err)
	}
	return snap, mem
}

// Test 1: Rollback restores overwritten contents and permissions.
func TestSnapshot_RollbackRestoresContents(t *testing.T) {
	snap, mem := newTestSnapshot(t)
	mem.Seed("f.txt", []byte("original"), 0o600)

	if err := snap.Write("f.txt", []byte("changed")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := snap.SetPermissions("f.txt", 0o644); err != nil {
		t.Fatalf("SetPermissions failed: %v", err)
	}

	if err := snap.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	data, _ := mem.File("f.txt")
	if string(data) != "original" {
		t.Errorf("contents = %q, want original", data)
	}
	mode, _, err := mem.Permissions("f.txt")
	if err != nil || mode != 0o600 {
		t.Errorf("mode = %o, %v", mode, err)
	}
}

// Test 2: Rollback removes files that did not exist before.
func TestSnapshot_RollbackRemovesCreatedFiles(t *testing.T) {
	snap, mem := newTestSnapshot(t)

	if err := snap.Write("new.txt", []byte("fresh")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := snap.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if _, ok := mem.File("new.txt"); ok {
		t.Error("created file should be gone after rollback")
	}
}

// Test 3: Rollback restores files deleted or moved away.
func TestSnapshot_RollbackRestoresRemovedAndMoved(t *testing.T) {
	snap, mem := newTestSnapshot(t)
	mem.Seed("gone.txt", []byte("bye"), 0o644)
	mem.Seed("src.txt", []byte("move me"), 0o644)

	if err := snap.Remove("gone.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := snap.Move("src.txt", "dst.txt"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if err := snap.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if data, ok := mem.File("gone.txt"); !ok || string(data) != "bye" {
		t.Errorf("gone.txt = %q, %v", data, ok)
	}
	if data, ok := mem.File("src.txt"); !ok || string(data) != "move me" {
		t.Errorf("src.txt = %q, %v", data, ok)
	}
	if _, ok := mem.File("dst.txt"); ok {
		t.Error("dst.txt should be gone after rollback")
	}
}

// Test 4: Only the first mutation of a path captures it, so a partial
// rewrite rolls back to the true prior state.
func TestSnapshot_CapturesFirstStateOnly(t *testing.T) {
	snap, mem := newTestSnapshot(t)
	mem.Seed("f.txt", []byte("v0"), 0o644)

	if err := snap.Write("f.txt", []byte("v1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := snap.Write("f.txt", []byte("v2")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := snap.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	data, _ := mem.File("f.txt")
	if string(data) != "v0" {
		t.Errorf("contents = %q, want v0", data)
	}
}

// Test 5: Discard keeps mutations and removes the blob directory.
func TestSnapshot_DiscardKeepsChanges(t *testing.T) {
	snap, mem := newTestSnapshot(t)
	mem.Seed("f.txt", []byte("old"), 0o644)

	if err := snap.Write("f.txt", []byte("new")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	dir := snap.Dir()
	if err := snap.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	data, _ := mem.File("f.txt")
	if string(data) != "new" {
		t.Errorf("contents = %q, want new", data)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("blob dir should be removed, stat err = %v", err)
	}
}
