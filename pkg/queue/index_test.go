// pkg/queue/index_test.go
package queue

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenIndexFreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "q")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	idx, fresh, err := openIndex(dir, 42)
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	defer idx.close()

	if !fresh {
		t.Error("expected fresh=true for a new directory")
	}
	if idx.size() != 0 {
		t.Errorf("size: expected 0, got %d", idx.size())
	}
	if idx.capacity() != 42 {
		t.Errorf("capacity: expected 42, got %d", idx.capacity())
	}
	if idx.headFile() != 1 || idx.headOffset() != 0 {
		t.Errorf("head: expected (1,0), got (%d,%d)", idx.headFile(), idx.headOffset())
	}
	if idx.tailFile() != 1 || idx.tailOffset() != 0 {
		t.Errorf("tail: expected (1,0), got (%d,%d)", idx.tailFile(), idx.tailOffset())
	}
}

func TestOpenIndexReopenIgnoresNewCapacity(t *testing.T) {
	dir := t.TempDir()

	idx, _, err := openIndex(dir, 5)
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	idx.setSize(3)
	idx.setTailFile(2)
	idx.setTailOffset(128)
	idx.close()

	idx2, fresh, err := openIndex(dir, 999)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.close()

	if fresh {
		t.Error("expected fresh=false on reopen")
	}
	if idx2.capacity() != 5 {
		t.Errorf("capacity should stick at the original value, got %d", idx2.capacity())
	}
	if idx2.size() != 3 {
		t.Errorf("size: expected 3, got %d", idx2.size())
	}
	if idx2.tailFile() != 2 || idx2.tailOffset() != 128 {
		t.Errorf("tail: expected (2,128), got (%d,%d)", idx2.tailFile(), idx2.tailOffset())
	}
}

func TestOpenIndexNonEmptyDirectoryWithoutIndexFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1"), make([]byte, 1<<19), 0644); err != nil {
		t.Fatalf("seed stray page file: %v", err)
	}

	if _, _, err := openIndex(dir, 10); err != ErrNotPersistentQueue {
		t.Errorf("expected ErrNotPersistentQueue, got %v", err)
	}
}
