// pkg/queue/page_test.go
package queue

import (
	"path/filepath"
	"testing"
)

func TestPageReadWrite(t *testing.T) {
	dir := t.TempDir()

	p, err := openPage(dir, 1, 1<<19)
	if err != nil {
		t.Fatalf("openPage: %v", err)
	}
	defer p.close()

	if p.id() != 1 {
		t.Errorf("id: expected 1, got %d", p.id())
	}

	want := []byte("hello world")
	p.write(10, want, 0, len(want))

	got := make([]byte, len(want))
	p.read(10, got, 0, len(want))
	if string(got) != string(want) {
		t.Errorf("read: expected %q, got %q", want, got)
	}
}

func TestPageRemaining(t *testing.T) {
	dir := t.TempDir()
	pageSize := 1 << 19

	p, err := openPage(dir, 1, pageSize)
	if err != nil {
		t.Fatalf("openPage: %v", err)
	}
	defer p.close()

	if got, want := p.remaining(0), pageSize-nextPageFieldSize; got != want {
		t.Errorf("remaining(0): expected %d, got %d", want, got)
	}
	if got, want := p.remaining(100), pageSize-nextPageFieldSize-100; got != want {
		t.Errorf("remaining(100): expected %d, got %d", want, got)
	}
}

func TestPageNextPage(t *testing.T) {
	dir := t.TempDir()

	p, err := openPage(dir, 1, 1<<19)
	if err != nil {
		t.Fatalf("openPage: %v", err)
	}
	defer p.close()

	if p.nextPage() != 0 {
		t.Errorf("fresh page next: expected 0, got %d", p.nextPage())
	}

	p.setNextPage(7)
	if p.nextPage() != 7 {
		t.Errorf("setNextPage: expected 7, got %d", p.nextPage())
	}
}

func TestPagePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	pageSize := 1 << 19

	p, err := openPage(dir, 3, pageSize)
	if err != nil {
		t.Fatalf("openPage: %v", err)
	}
	p.write(0, []byte("persisted"), 0, len("persisted"))
	p.setNextPage(9)
	if err := p.sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	p.close()

	if _, err := filepath.Abs(pagePath(dir, 3)); err != nil {
		t.Fatalf("pagePath: %v", err)
	}

	p2, err := openPage(dir, 3, pageSize)
	if err != nil {
		t.Fatalf("reopen page: %v", err)
	}
	defer p2.close()

	got := make([]byte, len("persisted"))
	p2.read(0, got, 0, len(got))
	if string(got) != "persisted" {
		t.Errorf("reopened payload: expected %q, got %q", "persisted", got)
	}
	if p2.nextPage() != 9 {
		t.Errorf("reopened nextPage: expected 9, got %d", p2.nextPage())
	}
}
