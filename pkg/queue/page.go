// pkg/queue/page.go
package queue

import "encoding/binary"

// nextPageFieldSize is the width of the "next page" pointer stored at
// the tail of every page.
const nextPageFieldSize = 4

// page is a single fixed-size memory-mapped file inside a queue
// directory. Its payload occupies [0, pageSize-nextPageFieldSize); the
// final nextPageFieldSize bytes hold the id of the successor page, or 0
// if this page is currently the last one in its chain.
type page struct {
	pageNo uint32
	mf     *mmapFile
}

// openPage maps the page file for id inside dir, creating it (and
// zeroing its next-page pointer) if it does not already exist.
func openPage(dir string, id uint32, pageSize int) (*page, error) {
	mf, err := openMmapFile(pagePath(dir, id), int64(pageSize))
	if err != nil {
		return nil, err
	}
	return &page{pageNo: id, mf: mf}, nil
}

// id returns the page's stable identifier.
func (p *page) id() uint32 {
	return p.pageNo
}

// payloadSize is the number of addressable payload bytes on this page.
func (p *page) payloadSize() int {
	return int(p.mf.Size()) - nextPageFieldSize
}

// remaining returns the number of payload bytes still addressable at
// offset.
func (p *page) remaining(offset int) int {
	return p.payloadSize() - offset
}

// read copies n bytes from the page's payload at offset into
// dst[dstOffset:dstOffset+n]. Precondition: offset+n <= payloadSize().
func (p *page) read(offset int, dst []byte, dstOffset, n int) {
	src := p.mf.Slice(offset, n)
	copy(dst[dstOffset:dstOffset+n], src)
}

// write copies n bytes from src[srcOffset:srcOffset+n] into the page's
// payload at offset. Precondition: offset+n <= payloadSize().
func (p *page) write(offset int, src []byte, srcOffset, n int) {
	dst := p.mf.Slice(offset, n)
	copy(dst, src[srcOffset:srcOffset+n])
}

// nextPage returns the id of this page's successor, or 0 if none.
func (p *page) nextPage() uint32 {
	footer := p.mf.Slice(p.payloadSize(), nextPageFieldSize)
	return binary.LittleEndian.Uint32(footer)
}

// setNextPage records id as this page's successor.
func (p *page) setNextPage(id uint32) {
	footer := p.mf.Slice(p.payloadSize(), nextPageFieldSize)
	binary.LittleEndian.PutUint32(footer, id)
}

// sync flushes this page's mapping to disk.
func (p *page) sync() error {
	return p.mf.Sync()
}

// close unmaps and closes this page's backing file without deleting it.
func (p *page) close() error {
	return p.mf.Close()
}
