package storefile

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tickloom/swmread/internal/pagecache"
	"github.com/zeebo/blake3"
)

const (
	// fragmentRetryMax bounds re-reads of a fragment that raced an
	// in-flight heap append.
	fragmentRetryMax = 10

	// fragmentRetryBackoff is the constant backoff between such re-reads.
	fragmentRetryBackoff = 2 * time.Millisecond
)

// TypeClass describes the element class of a dataset.
type TypeClass int

const (
	// TypeString is the only element class the harness reads.
	TypeString TypeClass = iota
)

// TypeInfo is a dataset's element type descriptor.
type TypeInfo struct {
	Class    TypeClass
	Variable bool
}

// Dataspace is a dataset's shape descriptor.
type Dataspace struct {
	Scalar bool
	Dims   []uint64
}

// Object is an open handle to a named dataset. Handles are cheap and are
// meant to live for the duration of a single read.
type Object struct {
	file   *File
	name   string
	pageID uint32

	Type  TypeInfo
	Space Dataspace
}

// OpenObject resolves a dataset by name through the directory page and
// returns a handle to it. The dataset is expected to pre-exist; failure to
// resolve it is a contract violation, not a transient condition.
func (f *File) OpenObject(ctx context.Context, name string) (*Object, error) {
	dirPage, err := f.cache.Get(ctx, directoryPageID)
	if err != nil {
		return nil, fmt.Errorf("(storefile) directory page: %w", err)
	}

	entries, err := decodeDirectory(dirPage.Content)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.name == name {
			return &Object{
				file:   f,
				name:   name,
				pageID: entry.pageID,
				Type:   TypeInfo{Class: TypeString, Variable: true},
				Space:  Dataspace{Scalar: true},
			}, nil
		}
	}

	return nil, fmt.Errorf("(storefile) %w: %q", ErrNoSuchObject, name)
}

// Name returns the dataset name of the handle.
func (o *Object) Name() string {
	return o.name
}

// Read reads the dataset's current variable-length content into the given
// buffer, going through the metadata page cache for the record and through
// the boundary-trapped fragment path for the out-of-band content. A fragment
// digest mismatch means the read raced an in-flight heap append and is
// retried a bounded number of times.
func (o *Object) Read(ctx context.Context, buf *ContentBuffer) error {
	page, err := o.file.cache.Get(ctx, o.pageID)
	if err != nil {
		return fmt.Errorf("(storefile) record page for %q: %w", o.name, err)
	}

	rec, err := decodeRecord(page.Content)
	if err != nil {
		return err
	}

	if rec.heapLength == 0 {
		return buf.set(nil)
	}

	var content []byte

	backoff := retry.WithMaxRetries(fragmentRetryMax, retry.NewConstant(fragmentRetryBackoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		fragment, err := o.file.cache.ReadFragment(ctx, rec.ref())
		if err != nil {
			return err
		}

		digest := blake3.Sum256(fragment)
		if !bytes.Equal(digest[:], rec.digest[:]) {
			return retry.RetryableError(fmt.Errorf("(storefile) fragment digest mismatch for %q: %w",
				o.name, pagecache.ErrTornFetch))
		}
		content = fragment

		return nil
	})
	if err != nil {
		return fmt.Errorf("(storefile) read %q: %w", o.name, err)
	}

	return buf.set(content)
}

// Close releases the dataset handle. Closing an already closed handle is an
// error.
func (o *Object) Close() error {
	if o.file == nil {
		return fmt.Errorf("(storefile) %w: %q", ErrObjectClosed, o.name)
	}

	o.file = nil

	return nil
}

// ContentBuffer is an owned, size-checked buffer receiving variable-length
// content resolved from heap-fragment storage. Its content is only valid
// until the buffer is reused for the next read.
type ContentBuffer struct {
	data   []byte
	length int
}

// NewContentBuffer returns a pointer to a new [ContentBuffer] with the given
// fixed capacity.
func NewContentBuffer(capacity int) *ContentBuffer {
	return &ContentBuffer{
		data: make([]byte, capacity),
	}
}

// Capacity returns the buffer's fixed capacity.
func (b *ContentBuffer) Capacity() int {
	return len(b.data)
}

// Len returns the length of the content received by the last read.
func (b *ContentBuffer) Len() int {
	return b.length
}

// Bytes returns the content received by the last read. The returned slice
// aliases the buffer and is invalidated by the next read into it.
func (b *ContentBuffer) Bytes() []byte {
	return b.data[:b.length]
}

// set copies content into the buffer, checking it against the capacity.
func (b *ContentBuffer) set(content []byte) error {
	if len(content) > len(b.data) {
		return fmt.Errorf("(storefile) %w: %d bytes into %d capacity",
			ErrBufferTooSmall, len(content), len(b.data))
	}

	b.length = copy(b.data, content)

	return nil
}
