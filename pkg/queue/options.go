// pkg/queue/options.go
package queue

import "math"

const (
	// MinPageSize and MaxPageSize bound Options.PageSize.
	MinPageSize = 1 << 19
	MaxPageSize = 1 << 31

	defaultPageSize     = 1 << 27 // 128 MiB
	defaultMaxIdlePages = 16

	// UnboundedCapacity is the capacity applied when Options.Capacity is
	// left at its zero value: the largest positive signed 32-bit integer,
	// which fits the uint32 on-disk capacity field.
	UnboundedCapacity = math.MaxInt32

	// DisableIdlePages requests no idle-page cache at all: every
	// released page is evicted immediately. spec.md §6 lists
	// maxIdlePages >= 0 as a legitimate, distinct configuration rather
	// than shorthand for "use the default", so Options.MaxIdlePages'
	// bare zero value keeps this package's usual zero-means-default
	// convention and this sentinel is how "actually zero" is requested.
	DisableIdlePages = -1
)

// Options configures a Queue. It is a plain, validated parameter
// struct rather than a builder; every field's zero value selects the
// documented default.
type Options struct {
	// Directory is the queue's on-disk root. Required.
	Directory string

	// Capacity bounds the number of elements the queue will hold.
	// Zero selects UnboundedCapacity. Opening an existing directory
	// ignores this field; the capacity stored on disk always wins.
	Capacity uint32

	// Serializer encodes/decodes elements. Nil selects the default gob
	// codec.
	Serializer Serializer

	// PageSize is the size in bytes of each page file. Zero selects
	// defaultPageSize. Must be within [MinPageSize, MaxPageSize] when set.
	PageSize int

	// MaxIdlePages bounds the allocator's idle-page cache. Zero selects
	// the default of 16, matching every other zero-means-default field
	// in Options; pass DisableIdlePages to request an actual cache size
	// of zero. Negative values other than DisableIdlePages are rejected.
	MaxIdlePages int

	// SyncEachOp enables an optional stronger durability mode: every
	// enqueue/dequeue flushes the touched pages and the index to disk
	// before releasing the lock.
	SyncEachOp bool
}

// withDefaults returns a copy of opts with zero-valued fields replaced
// by their documented defaults, and validates every field.
func (o Options) withDefaults() (Options, error) {
	if err := checkArgument(o.Directory != "", "directory must not be empty"); err != nil {
		return o, err
	}

	if o.Capacity == 0 {
		o.Capacity = UnboundedCapacity
	}

	if o.Serializer == nil {
		o.Serializer = gobSerializer{}
	}

	if o.PageSize == 0 {
		o.PageSize = defaultPageSize
	}
	if err := checkArgument(o.PageSize >= MinPageSize && int64(o.PageSize) <= MaxPageSize,
		"page size %d out of range [%d, %d]", o.PageSize, MinPageSize, MaxPageSize); err != nil {
		return o, err
	}

	switch o.MaxIdlePages {
	case 0:
		o.MaxIdlePages = defaultMaxIdlePages
	case DisableIdlePages:
		o.MaxIdlePages = 0
	}
	if err := checkArgument(o.MaxIdlePages >= 0, "max idle pages must not be negative"); err != nil {
		return o, err
	}

	return o, nil
}
