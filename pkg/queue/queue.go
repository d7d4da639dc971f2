// pkg/queue/queue.go
package queue

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"time"
)

// lengthPrefixSize is the width of the framing prefix: every element
// is a 4-byte length followed by that many payload bytes.
const lengthPrefixSize = 4

// Appender receives elements drained by DrainTo. A *SliceAppender is
// the common case; callers needing different fan-out (e.g. forwarding
// into another queue) can implement the single method themselves.
type Appender interface {
	Add(v interface{}) error
}

// SliceAppender is an Appender that simply accumulates into a slice.
type SliceAppender struct {
	Items []interface{}
}

func (s *SliceAppender) Add(v interface{}) error {
	s.Items = append(s.Items, v)
	return nil
}

// Stats is a point-in-time snapshot of queue occupancy and allocator
// pressure, taken under the queue lock.
type Stats struct {
	Size     int
	Capacity int
	// LivePages is the highest page id the allocator has issued so far;
	// pages since evicted from the idle cache still count toward it.
	LivePages int
	IdlePages int
}

// Queue is a persistent, bounded, blocking FIFO queue backed by a
// directory of memory-mapped pages. All operations serialize on a
// single mutex; put/take and their timed variants release it while
// waiting and re-check their predicate on every wake-up to tolerate
// spurious wakeups.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	idx      *index
	alloc    *pageAllocator
	log      *pagedLog
	ser      Serializer
	syncEach bool
	closed   bool
}

// Open opens the queue directory named by opts.Directory, creating and
// initializing it if it does not already exist. Opening an existing
// directory ignores opts.Capacity; the capacity stored on disk is
// authoritative.
func Open(opts Options) (*Queue, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Directory, 0755); err != nil {
		return nil, err
	}

	idx, fresh, err := openIndex(opts.Directory, opts.Capacity)
	if err != nil {
		return nil, err
	}

	alloc, err := newPageAllocator(opts.Directory, opts.PageSize, opts.MaxIdlePages)
	if err != nil {
		idx.close()
		return nil, err
	}

	log, err := openPagedLog(alloc, idx, fresh)
	if err != nil {
		idx.close()
		return nil, err
	}

	q := &Queue{
		idx:      idx,
		alloc:    alloc,
		log:      log,
		ser:      opts.Serializer,
		syncEach: opts.SyncEachOp,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Put inserts e, blocking while the queue is full until space is
// available or ctx is canceled. Pass context.Background() for an
// uninterruptible wait.
func (q *Queue) Put(ctx context.Context, e interface{}) error {
	if err := checkNotNull(e, "element"); err != nil {
		return err
	}
	data, err := q.ser.Encode(e)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, err := q.waitUntil(ctx, nil, q.notFull, q.notFullPred); err != nil {
		return err
	}
	if err := q.enqueueLocked(data); err != nil {
		return err
	}
	q.notEmpty.Broadcast()
	return nil
}

// Offer inserts e without blocking, returning false if the queue is
// full.
func (q *Queue) Offer(e interface{}) (bool, error) {
	if err := checkNotNull(e, "element"); err != nil {
		return false, err
	}
	data, err := q.ser.Encode(e)
	if err != nil {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrClosed
	}
	if !q.notFullPred() {
		return false, nil
	}
	if err := q.enqueueLocked(data); err != nil {
		return false, err
	}
	q.notEmpty.Broadcast()
	return true, nil
}

// OfferTimeout inserts e, blocking while the queue is full for up to
// timeout before giving up and returning false.
func (q *Queue) OfferTimeout(ctx context.Context, e interface{}, timeout time.Duration) (bool, error) {
	if err := checkNotNull(e, "element"); err != nil {
		return false, err
	}
	data, err := q.ser.Encode(e)
	if err != nil {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrClosed
	}
	deadline := time.Now().Add(timeout)
	ok, err := q.waitUntil(ctx, &deadline, q.notFull, q.notFullPred)
	if err != nil || !ok {
		return false, err
	}
	if err := q.enqueueLocked(data); err != nil {
		return false, err
	}
	q.notEmpty.Broadcast()
	return true, nil
}

// Take removes and returns the head element, blocking while the queue
// is empty until one is available or ctx is canceled.
func (q *Queue) Take(ctx context.Context) (interface{}, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	if _, err := q.waitUntil(ctx, nil, q.notEmpty, q.notEmptyPred); err != nil {
		q.mu.Unlock()
		return nil, err
	}
	data, err := q.dequeueLocked()
	q.notFull.Broadcast()
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return q.ser.Decode(data)
}

// Poll removes and returns the head element without blocking; ok is
// false if the queue was empty.
func (q *Queue) Poll() (v interface{}, ok bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, false, ErrClosed
	}
	if !q.notEmptyPred() {
		q.mu.Unlock()
		return nil, false, nil
	}
	data, err := q.dequeueLocked()
	q.notFull.Broadcast()
	q.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	v, err = q.ser.Decode(data)
	return v, true, err
}

// PollTimeout removes and returns the head element, blocking while the
// queue is empty for up to timeout before giving up.
func (q *Queue) PollTimeout(ctx context.Context, timeout time.Duration) (v interface{}, ok bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, false, ErrClosed
	}
	deadline := time.Now().Add(timeout)
	progressed, err := q.waitUntil(ctx, &deadline, q.notEmpty, q.notEmptyPred)
	if err != nil || !progressed {
		q.mu.Unlock()
		return nil, false, err
	}
	data, err := q.dequeueLocked()
	q.notFull.Broadcast()
	q.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	v, err = q.ser.Decode(data)
	return v, true, err
}

// Peek returns the head element without removing it or releasing any
// page; ok is false if the queue was empty.
func (q *Queue) Peek() (v interface{}, ok bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, false, ErrClosed
	}
	if q.idx.size() == 0 {
		q.mu.Unlock()
		return nil, false, nil
	}
	data, err := q.peekLocked()
	q.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	v, err = q.ser.Decode(data)
	return v, true, err
}

// Size returns the number of elements currently enqueued.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.idx.size())
}

// RemainingCapacity returns capacity minus the current size.
func (q *Queue) RemainingCapacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.idx.capacity() - q.idx.size())
}

// Stats returns a point-in-time snapshot of queue occupancy and
// allocator pressure.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Size:      int(q.idx.size()),
		Capacity:  int(q.idx.capacity()),
		LivePages: int(q.alloc.nextID) - 1,
		IdlePages: q.alloc.idleCount(),
	}
}

// DrainTo dequeues up to min(max, Size()) elements in FIFO order and
// hands them to dst.Add, signalling not-full once at the end if
// anything was drained. If dst.Add returns an error partway through,
// the elements already dequeued before that point are not recoverable:
// they have already left the queue.
func (q *Queue) DrainTo(dst Appender, max int) (int, error) {
	if err := checkNotNull(dst, "dst"); err != nil {
		return 0, err
	}
	if err := checkArgument(max >= 0, "max must not be negative"); err != nil {
		return 0, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, ErrClosed
	}

	n := int(q.idx.size())
	if max < n {
		n = max
	}

	raw := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		data, err := q.dequeueLocked()
		if err != nil {
			if len(raw) > 0 {
				q.notFull.Broadcast()
			}
			q.mu.Unlock()
			return 0, err
		}
		raw = append(raw, data)
	}
	if len(raw) > 0 {
		q.notFull.Broadcast()
	}
	q.mu.Unlock()

	count := 0
	for _, data := range raw {
		v, err := q.ser.Decode(data)
		if err != nil {
			return count, err
		}
		if err := dst.Add(v); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Snapshot returns every currently enqueued element, head to tail,
// without mutating any cursor.
func (q *Queue) Snapshot() ([]interface{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}

	n := int(q.idx.size())
	out := make([]interface{}, 0, n)
	cursor := q.log.cursorAtHead()

	for i := 0; i < n; i++ {
		lenBuf, err := cursor.read(lengthPrefixSize)
		if err != nil {
			cursor.close()
			return nil, err
		}
		length := binary.LittleEndian.Uint32(lenBuf)

		data, err := cursor.read(int(length))
		if err != nil {
			cursor.close()
			return nil, err
		}

		v, err := q.ser.Decode(data)
		if err != nil {
			cursor.close()
			return nil, err
		}
		out = append(out, v)
	}

	if err := cursor.close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close flushes and unmaps every mapping the queue holds open. After
// Close, every other method with an error result returns ErrClosed;
// calling Close again returns nil.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var firstErr error
	if err := q.log.close(); err != nil {
		firstErr = err
	}
	if err := q.alloc.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.idx.close(); err != nil && firstErr == nil {
		firstErr = err
	}

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
	return firstErr
}

func (q *Queue) notFullPred() bool {
	return q.idx.size() < q.idx.capacity()
}

func (q *Queue) notEmptyPred() bool {
	return q.idx.size() > 0
}

// enqueueLocked appends data's length prefix and payload to the tail
// of the log and bumps the recorded size. Caller must hold q.mu and
// have already checked capacity.
func (q *Queue) enqueueLocked(data []byte) error {
	lenBuf := make([]byte, lengthPrefixSize)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))

	if err := q.log.write(lenBuf); err != nil {
		return err
	}
	if err := q.log.write(data); err != nil {
		return err
	}
	q.idx.setSize(q.idx.size() + 1)

	if q.syncEach {
		if err := q.syncDurable(); err != nil {
			return err
		}
	}
	return nil
}

// dequeueLocked reads the length prefix and payload off the head of
// the log and decrements the recorded size. Caller must hold q.mu and
// have already checked the queue is non-empty.
func (q *Queue) dequeueLocked() ([]byte, error) {
	lenBuf, err := q.log.read(lengthPrefixSize)
	if err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf)

	data, err := q.log.read(int(length))
	if err != nil {
		return nil, err
	}
	q.idx.setSize(q.idx.size() - 1)

	if q.syncEach {
		if err := q.syncDurable(); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// peekLocked returns the head element's payload without mutating the
// head cursor. Caller must hold q.mu and have already checked the
// queue is non-empty.
func (q *Queue) peekLocked() ([]byte, error) {
	lenBuf, err := q.log.peek(lengthPrefixSize)
	if err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf)

	full, err := q.log.peek(lengthPrefixSize + int(length))
	if err != nil {
		return nil, err
	}
	return full[lengthPrefixSize:], nil
}

// syncDurable flushes the head/tail pages and the index header to
// disk, for Options.SyncEachOp.
func (q *Queue) syncDurable() error {
	if err := q.log.head.sync(); err != nil {
		return err
	}
	if q.log.tail != q.log.head {
		if err := q.log.tail.sync(); err != nil {
			return err
		}
	}
	return q.idx.sync()
}

// waitUntil blocks on cond until predicate holds, ctx is canceled, or
// (when deadline is non-nil) the deadline passes. Caller must hold
// q.mu. Returns ok=true when predicate became true, ok=false with a nil
// error when the deadline passed first (a zero or negative remaining
// wait is treated as an immediate give-up), or a non-nil error when ctx
// was canceled. q.closed is rechecked on every wake-up, before predicate,
// since Close unmaps the index a blocked waiter's predicate would
// otherwise read.
func (q *Queue) waitUntil(ctx context.Context, deadline *time.Time, cond *sync.Cond, predicate func() bool) (bool, error) {
	if q.closed {
		return false, ErrClosed
	}
	if predicate() {
		return true, nil
	}

	if ctx != nil && ctx.Err() != nil {
		return false, ErrCanceled
	}

	var timer *time.Timer
	if deadline != nil {
		d := time.Until(*deadline)
		if d <= 0 {
			return false, nil
		}
		timer = time.AfterFunc(d, func() {
			q.mu.Lock()
			cond.Broadcast()
			q.mu.Unlock()
		})
		defer timer.Stop()
	}

	if ctx != nil && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				cond.Broadcast()
				q.mu.Unlock()
			case <-stop:
			}
		}()
	}

	for {
		if q.closed {
			return false, ErrClosed
		}
		if predicate() {
			return true, nil
		}
		if ctx != nil && ctx.Err() != nil {
			return false, ErrCanceled
		}
		if deadline != nil && !time.Now().Before(*deadline) {
			return false, nil
		}
		cond.Wait()
	}
}
