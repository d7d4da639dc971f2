// pkg/queue/allocator.go
package queue

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// pagePath returns the on-disk path of page id inside dir.
func pagePath(dir string, id uint32) string {
	return filepath.Join(dir, strconv.FormatUint(uint64(id), 10))
}

// indexPath returns the on-disk path of the index file inside dir.
func indexPath(dir string) string {
	return filepath.Join(dir, ".index")
}

// pageAllocator owns a directory of page files. It hands out pages by
// id, reclaims released ids into a bounded idle cache, and issues fresh
// ids from a monotonic counter recovered from the directory on open.
//
// Not safe for concurrent use on its own: the queue core serializes all
// access under its single lock.
type pageAllocator struct {
	dir      string
	pageSize int
	maxIdle  int
	nextID   uint32

	idle      *list.List               // oldest-first list of *page
	idleIndex map[uint32]*list.Element // id -> element in idle, for acquire(id)
}

// newPageAllocator scans dir for existing page files to recover the
// next free id, then returns a ready-to-use allocator.
func newPageAllocator(dir string, pageSize, maxIdle int) (*pageAllocator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var maxID uint32
	for _, e := range entries {
		if e.IsDir() || e.Name() == ".index" {
			continue
		}
		id, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue // not a page file
		}
		if uint32(id) > maxID {
			maxID = uint32(id)
		}
	}

	return &pageAllocator{
		dir:       dir,
		pageSize:  pageSize,
		maxIdle:   maxIdle,
		nextID:    maxID + 1,
		idle:      list.New(),
		idleIndex: make(map[uint32]*list.Element),
	}, nil
}

// acquire returns a fresh page: the oldest idle page if the cache is
// nonempty, otherwise a newly created page with the next id.
func (a *pageAllocator) acquire() (*page, error) {
	if elem := a.idle.Front(); elem != nil {
		p := a.popIdle(elem)
		p.setNextPage(0)
		return p, nil
	}

	id := a.nextID
	a.nextID++

	p, err := openPage(a.dir, id, a.pageSize)
	if err != nil {
		return nil, err
	}
	p.setNextPage(0)
	return p, nil
}

// acquireID returns the page with the given id, reusing it from the
// idle cache if present, else mapping its existing file. It is an error
// to request an id whose file does not exist.
func (a *pageAllocator) acquireID(id uint32) (*page, error) {
	if elem, ok := a.idleIndex[id]; ok {
		return a.popIdle(elem), nil
	}

	if _, err := os.Stat(pagePath(a.dir, id)); err != nil {
		return nil, fmt.Errorf("queue: page %d not found: %w", id, err)
	}

	return openPage(a.dir, id, a.pageSize)
}

// release marks p idle for fast reuse. If the idle cache is already at
// capacity, the oldest idle entry is evicted (unmapped and deleted)
// first.
func (a *pageAllocator) release(p *page) error {
	if a.maxIdle <= 0 {
		return a.evict(p)
	}

	if a.idle.Len() >= a.maxIdle {
		oldest := a.idle.Front()
		evicted := a.popIdle(oldest)
		if err := a.evict(evicted); err != nil {
			return err
		}
	}

	elem := a.idle.PushBack(p)
	a.idleIndex[p.id()] = elem
	return nil
}

// evict unmaps p and deletes its backing file.
func (a *pageAllocator) evict(p *page) error {
	if err := p.close(); err != nil {
		return err
	}
	return os.Remove(pagePath(a.dir, p.id()))
}

// popIdle removes elem from the idle list and its index, returning the
// page it held.
func (a *pageAllocator) popIdle(elem *list.Element) *page {
	p := elem.Value.(*page)
	a.idle.Remove(elem)
	delete(a.idleIndex, p.id())
	return p
}

// idleCount reports how many pages are currently held idle.
func (a *pageAllocator) idleCount() int {
	return a.idle.Len()
}

// close unmaps every idle page without deleting its file, for a clean
// process shutdown.
func (a *pageAllocator) close() error {
	var firstErr error
	for elem := a.idle.Front(); elem != nil; elem = elem.Next() {
		p := elem.Value.(*page)
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.idle.Init()
	a.idleIndex = make(map[uint32]*list.Element)
	return firstErr
}
