// pkg/queue/index.go
package queue

import (
	"encoding/binary"
	"os"
)

// indexSize is the fixed width of the on-disk index header: six 4-byte
// little-endian fields.
const indexSize = 24

const (
	offSize       = 0
	offCapacity   = 4
	offHeadFile   = 8
	offHeadOffset = 12
	offTailFile   = 16
	offTailOffset = 20
)

// index wraps the 24-byte memory-mapped header that is the single
// source of truth for queue size and the head/tail cursor positions.
type index struct {
	mf *mmapFile
}

// openIndex opens dir's queue index, initializing it if dir is empty.
// dir itself must already exist; Queue.Open creates it first. If dir
// already holds page files but no .index, it is not a valid persistent
// queue directory.
func openIndex(dir string, capacity uint32) (*index, bool, error) {
	path := indexPath(dir)

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	if fresh {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, false, err
		}
		if len(entries) > 0 {
			return nil, false, ErrNotPersistentQueue
		}
	} else if statErr != nil {
		return nil, false, statErr
	}

	mf, err := openMmapFile(path, indexSize)
	if err != nil {
		return nil, false, err
	}
	idx := &index{mf: mf}

	if fresh {
		idx.setSize(0)
		idx.setCapacity(capacity)
		idx.setHeadFile(1)
		idx.setHeadOffset(0)
		idx.setTailFile(1)
		idx.setTailOffset(0)
	}

	return idx, fresh, nil
}

func (x *index) field(offset int) []byte {
	return x.mf.Slice(offset, 4)
}

func (x *index) size() uint32        { return binary.LittleEndian.Uint32(x.field(offSize)) }
func (x *index) setSize(v uint32)    { binary.LittleEndian.PutUint32(x.field(offSize), v) }
func (x *index) capacity() uint32    { return binary.LittleEndian.Uint32(x.field(offCapacity)) }
func (x *index) setCapacity(v uint32) {
	binary.LittleEndian.PutUint32(x.field(offCapacity), v)
}
func (x *index) headFile() uint32      { return binary.LittleEndian.Uint32(x.field(offHeadFile)) }
func (x *index) setHeadFile(v uint32)  { binary.LittleEndian.PutUint32(x.field(offHeadFile), v) }
func (x *index) headOffset() uint32    { return binary.LittleEndian.Uint32(x.field(offHeadOffset)) }
func (x *index) setHeadOffset(v uint32) {
	binary.LittleEndian.PutUint32(x.field(offHeadOffset), v)
}
func (x *index) tailFile() uint32      { return binary.LittleEndian.Uint32(x.field(offTailFile)) }
func (x *index) setTailFile(v uint32)  { binary.LittleEndian.PutUint32(x.field(offTailFile), v) }
func (x *index) tailOffset() uint32    { return binary.LittleEndian.Uint32(x.field(offTailOffset)) }
func (x *index) setTailOffset(v uint32) {
	binary.LittleEndian.PutUint32(x.field(offTailOffset), v)
}

// sync flushes the index header to disk.
func (x *index) sync() error {
	return x.mf.Sync()
}

// close unmaps and closes the index file.
func (x *index) close() error {
	return x.mf.Close()
}
