//go:build unix || darwin || linux || freebsd || openbsd || netbsd

// pkg/queue/mmap_unix.go
package queue

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openMmapFile opens or creates path and maps it into memory. If the
// file is smaller than size it is extended to size first; if it is
// already larger, the whole file is mapped. The mapped size must be
// positive, since an empty file cannot be mapped.
func openMmapFile(path string, size int64) (*mmapFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if stat.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		size = stat.Size()
	}

	if size == 0 {
		f.Close()
		return nil, errors.New("queue: cannot map an empty file")
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &mmapFile{file: f, data: data, size: size}, nil
}

// Sync flushes the mapped region to disk.
func (m *mmapFile) Sync() error {
	if len(m.data) == 0 {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Close flushes the mapped region, unmaps it, and closes the backing
// file.
func (m *mmapFile) Close() error {
	var firstErr error

	if m.data != nil {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := syscall.Munmap(m.data); err != nil && firstErr == nil {
			firstErr = err
		}
		m.data = nil
	}

	if m.file != nil {
		f := m.file.(*os.File)
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.file = nil
	}

	return firstErr
}
