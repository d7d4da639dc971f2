// pkg/queue/log.go
package queue

// pagedLog is a head/tail byte stream spread across a chain of pages:
// write extends the tail across fresh pages as needed, read drains the
// head and releases fully-consumed pages, and peek performs the same
// traversal as read without advancing the real cursors or releasing
// anything. All three run under the queue core's lock.
type pagedLog struct {
	alloc *pageAllocator
	idx   *index
	head  *page
	tail  *page
}

// openPagedLog positions head and tail at the cursors recorded in idx,
// creating the very first page when the queue is being initialized for
// the first time.
func openPagedLog(alloc *pageAllocator, idx *index, fresh bool) (*pagedLog, error) {
	if fresh {
		first, err := alloc.acquire()
		if err != nil {
			return nil, err
		}
		return &pagedLog{alloc: alloc, idx: idx, head: first, tail: first}, nil
	}

	head, err := alloc.acquireID(idx.headFile())
	if err != nil {
		return nil, err
	}

	var tail *page
	if idx.tailFile() == idx.headFile() {
		tail = head
	} else {
		tail, err = alloc.acquireID(idx.tailFile())
		if err != nil {
			head.close()
			return nil, err
		}
	}

	return &pagedLog{alloc: alloc, idx: idx, head: head, tail: tail}, nil
}

// write appends data to the tail of the log, extending onto fresh pages
// as each page fills, and persists the new tail cursor to the index.
func (l *pagedLog) write(data []byte) error {
	off := int(l.idx.tailOffset())
	written := 0

	for written < len(data) {
		need := len(data) - written
		avail := l.tail.remaining(off)

		if avail < need {
			l.tail.write(off, data, written, avail)
			written += avail

			next, err := l.alloc.acquire()
			if err != nil {
				return err
			}
			l.tail.setNextPage(next.id())
			// A filled tail page that the head is not using is no longer
			// referenced by the log: unmap it here.
			if l.tail != l.head {
				if err := l.tail.close(); err != nil {
					return err
				}
			}
			l.tail = next
			off = 0
			continue
		}

		l.tail.write(off, data, written, need)
		off += need
		written += need
	}

	l.idx.setTailFile(l.tail.id())
	l.idx.setTailOffset(uint32(off))
	return nil
}

// read drains n bytes from the head of the log, releasing any page it
// fully consumes along the way, and persists the new head cursor to the
// index.
func (l *pagedLog) read(n int) ([]byte, error) {
	dst := make([]byte, n)
	off := int(l.idx.headOffset())
	readN := 0

	for readN < n {
		need := n - readN
		avail := l.head.remaining(off)

		if avail < need {
			l.head.read(off, dst, readN, avail)
			readN += avail

			nextID := l.head.nextPage()
			drained := l.head
			next, err := l.alloc.acquireID(nextID)
			if err != nil {
				return nil, err
			}
			if err := l.alloc.release(drained); err != nil {
				return nil, err
			}
			l.head = next
			off = 0
			continue
		}

		l.head.read(off, dst, readN, need)
		off += need
		readN += need
	}

	l.idx.setHeadFile(l.head.id())
	l.idx.setHeadOffset(uint32(off))
	return dst, nil
}

// peek returns the next n bytes from the head of the log without
// advancing the head cursor or releasing any page.
func (l *pagedLog) peek(n int) ([]byte, error) {
	c := l.cursorAtHead()
	data, err := c.read(n)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	return data, err
}

// cursorAtHead returns a read-only cursor positioned at the log's
// current head, for peek and for walking a multi-element snapshot
// without disturbing the real head cursor.
func (l *pagedLog) cursorAtHead() *logCursor {
	return &logCursor{alloc: l.alloc, page: l.head, offset: int(l.idx.headOffset())}
}

// logCursor is a read-only walker over the page chain. It never
// releases pages; any page it opens itself (because the traversal
// crossed onto a successor) solely to serve a read is unmapped again by
// close, but never deleted, since it remains part of the live chain.
type logCursor struct {
	alloc  *pageAllocator
	page   *page
	offset int
	owned  bool
}

// read copies the next n bytes starting at the cursor's position,
// advancing it across page boundaries as needed.
func (c *logCursor) read(n int) ([]byte, error) {
	dst := make([]byte, n)
	readN := 0

	for readN < n {
		need := n - readN
		avail := c.page.remaining(c.offset)

		if avail < need {
			c.page.read(c.offset, dst, readN, avail)
			readN += avail

			nextID := c.page.nextPage()
			next, err := c.alloc.acquireID(nextID)
			if err != nil {
				return nil, err
			}
			if c.owned {
				c.page.close()
			}
			c.page = next
			c.owned = true
			c.offset = 0
			continue
		}

		c.page.read(c.offset, dst, readN, need)
		c.offset += need
		readN += need
	}

	return dst, nil
}

// close unmaps the page this cursor currently holds, if it opened that
// mapping itself.
func (c *logCursor) close() error {
	if c.owned {
		return c.page.close()
	}
	return nil
}

// close unmaps the currently cached head/tail pages without deleting
// them.
func (l *pagedLog) close() error {
	var firstErr error
	if err := l.head.close(); err != nil {
		firstErr = err
	}
	if l.tail != l.head {
		if err := l.tail.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
