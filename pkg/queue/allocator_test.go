// pkg/queue/allocator_test.go
package queue

import (
	"os"
	"testing"
)

const testPageSize = 1 << 19

func TestAllocatorAcquireFreshIDs(t *testing.T) {
	dir := t.TempDir()

	a, err := newPageAllocator(dir, testPageSize, 16)
	if err != nil {
		t.Fatalf("newPageAllocator: %v", err)
	}

	p1, err := a.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if p1.id() != 1 {
		t.Errorf("expected id 1, got %d", p1.id())
	}

	p2, err := a.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if p2.id() != 2 {
		t.Errorf("expected id 2, got %d", p2.id())
	}
}

func TestAllocatorReleaseThenAcquireReusesPage(t *testing.T) {
	dir := t.TempDir()

	a, err := newPageAllocator(dir, testPageSize, 16)
	if err != nil {
		t.Fatalf("newPageAllocator: %v", err)
	}

	p1, _ := a.acquire()
	id := p1.id()
	if err := a.release(p1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if a.idleCount() != 1 {
		t.Fatalf("expected 1 idle page, got %d", a.idleCount())
	}

	reused, err := a.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if reused.id() != id {
		t.Errorf("expected reused page id %d, got %d", id, reused.id())
	}
	if a.idleCount() != 0 {
		t.Errorf("expected idle cache drained, got %d", a.idleCount())
	}
}

func TestAllocatorEvictsOldestWhenIdleFull(t *testing.T) {
	dir := t.TempDir()

	a, err := newPageAllocator(dir, testPageSize, 1)
	if err != nil {
		t.Fatalf("newPageAllocator: %v", err)
	}

	p1, _ := a.acquire()
	p2, _ := a.acquire()

	if err := a.release(p1); err != nil {
		t.Fatalf("release p1: %v", err)
	}
	if _, err := os.Stat(pagePath(dir, p1.id())); err != nil {
		t.Fatalf("p1 file should still exist: %v", err)
	}

	// Idle cache is now full (maxIdle=1); releasing p2 evicts p1's file.
	if err := a.release(p2); err != nil {
		t.Fatalf("release p2: %v", err)
	}
	if _, err := os.Stat(pagePath(dir, p1.id())); !os.IsNotExist(err) {
		t.Errorf("expected p1's file to be evicted, stat err = %v", err)
	}
	if a.idleCount() != 1 {
		t.Errorf("expected 1 idle page after eviction, got %d", a.idleCount())
	}
}

func TestAllocatorAcquireIDMissingFails(t *testing.T) {
	dir := t.TempDir()

	a, err := newPageAllocator(dir, testPageSize, 16)
	if err != nil {
		t.Fatalf("newPageAllocator: %v", err)
	}

	if _, err := a.acquireID(42); err == nil {
		t.Error("expected error acquiring a page id with no backing file")
	}
}

func TestAllocatorRecoversNextIDFromDirectory(t *testing.T) {
	dir := t.TempDir()

	a, err := newPageAllocator(dir, testPageSize, 16)
	if err != nil {
		t.Fatalf("newPageAllocator: %v", err)
	}
	p1, _ := a.acquire()
	p2, _ := a.acquire()
	p1.close()
	p2.close()

	reopened, err := newPageAllocator(dir, testPageSize, 16)
	if err != nil {
		t.Fatalf("reopen allocator: %v", err)
	}
	p3, err := reopened.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if p3.id() != 3 {
		t.Errorf("expected next id 3 after recovery, got %d", p3.id())
	}
}
