// Package storefile implements the storage-file collaborator of the SWMR
// reader protocol: a data file holding out-of-band heap fragments plus a
// metadata page file holding tick-stamped, checksummed pages. The package
// exposes the open/open-object/read/close boundary the reader loop consumes;
// all consistency decisions on that path are delegated to the page cache.
package storefile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tickloom/swmread/internal/pagecache"
)

// AccessMode selects how a store file is opened.
type AccessMode int

const (
	// ReadOnly opens the store file for reading.
	ReadOnly AccessMode = iota

	// ReadWrite opens the store file for mutation (the writer side).
	ReadWrite
)

// Config is the SWMR configuration surface consumed by the store file.
// It is immutable once a session has started.
type Config struct {
	FormatVersion uint32
	TickLen       time.Duration
	MaxLag        uint64

	// Writer selects the writer role of the session; [Open] refuses
	// read-write access without it.
	Writer bool

	ReservedPageCount    int
	MetadataFilePath     string
	PageBufferSize       int
	PageBufferEntryCount int
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.FormatVersion != formatVersion {
		return fmt.Errorf("(storefile) %w: format version %d", ErrInvalidConfig, c.FormatVersion)
	}

	if c.TickLen <= 0 {
		return fmt.Errorf("(storefile) %w: tick length %v", ErrInvalidConfig, c.TickLen)
	}

	if c.ReservedPageCount <= 0 {
		return fmt.Errorf("(storefile) %w: reserved page count %d", ErrInvalidConfig, c.ReservedPageCount)
	}

	if c.MetadataFilePath == "" {
		return fmt.Errorf("(storefile) %w: empty metadata file path", ErrInvalidConfig)
	}

	if c.PageBufferSize < pageHeaderSize {
		return fmt.Errorf("(storefile) %w: page buffer size %d", ErrInvalidConfig, c.PageBufferSize)
	}

	if c.PageBufferEntryCount <= 0 {
		return fmt.Errorf("(storefile) %w: page buffer entry count %d", ErrInvalidConfig, c.PageBufferEntryCount)
	}

	return nil
}

type osProvider interface {
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(name string) (os.FileInfo, error)
	Truncate(name string, size int64) error
}

type unixProvider interface {
	Fdatasync(fd int) error
}

type clockSource interface {
	Current() uint64
}

type faultReporter interface {
	Report(reason string) bool
}

// File is an open store file: the data (heap) file, its metadata page file
// and the page cache serving the metadata read path.
type File struct {
	cfg      Config
	path     string
	dataFile *os.File
	mdFile   *os.File
	cache    *pagecache.Cache
	osOps    osProvider
	unixOps  unixProvider
}

// Open opens the store file at path together with the metadata file named by
// the configuration and wires up the page cache with the given clock and
// boundary trap. The configuration must be valid; it cannot change once the
// file is open.
func Open(path string, mode AccessMode, cfg Config, clock clockSource,
	faultTrap faultReporter, osOps osProvider, unixOps unixProvider,
) (*File, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if mode == ReadWrite && !cfg.Writer {
		return nil, fmt.Errorf("(storefile) %w: read-write access requires the writer role", ErrInvalidConfig)
	}

	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}

	dataFile, err := osOps.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("(storefile) open data file: %w", err)
	}

	mdFile, err := osOps.OpenFile(cfg.MetadataFilePath, flag, 0o644)
	if err != nil {
		_ = dataFile.Close()

		return nil, fmt.Errorf("(storefile) open metadata file: %w", err)
	}

	f := &File{
		cfg:      cfg,
		path:     path,
		dataFile: dataFile,
		mdFile:   mdFile,
		osOps:    osOps,
		unixOps:  unixOps,
	}

	cache, err := pagecache.NewCache(
		pagecache.Policy{MaxLag: cfg.MaxLag},
		clock, f, f, faultTrap, cfg.ReservedPageCount,
	)
	if err != nil {
		_ = dataFile.Close()
		_ = mdFile.Close()

		return nil, err
	}
	f.cache = cache

	return f, nil
}

// Close releases the store file and its metadata file. The page cache and all
// pages it holds are destroyed with the file.
func (f *File) Close() error {
	if err := f.mdFile.Close(); err != nil {
		return fmt.Errorf("(storefile) close metadata file: %w", err)
	}

	if err := f.dataFile.Close(); err != nil {
		return fmt.Errorf("(storefile) close data file: %w", err)
	}

	return nil
}

// Cache exposes the metadata page cache backing this file.
func (f *File) Cache() *pagecache.Cache {
	return f.cache
}

// FetchPage reads and decodes the metadata page with the given ID from the
// metadata file. A checksum mismatch means the fetch raced an in-flight
// writer publish and is reported as retryable to the page cache.
func (f *File) FetchPage(_ context.Context, pageID uint32) ([]byte, error) {
	if int(pageID) >= f.cfg.PageBufferEntryCount {
		return nil, fmt.Errorf("(storefile) %w: page %d beyond %d reserved entries",
			ErrNoSuchPage, pageID, f.cfg.PageBufferEntryCount)
	}

	buf := make([]byte, f.cfg.PageBufferSize)

	offset := int64(pageID) * int64(f.cfg.PageBufferSize)
	if _, err := f.mdFile.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("(storefile) read page %d: %w", pageID, err)
	}

	payload, err := decodePage(buf, pageID)
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// HeapBounds returns the exclusive end offset of the heap region.
func (f *File) HeapBounds() (uint64, error) {
	info, err := f.osOps.Stat(f.path)
	if err != nil {
		return 0, fmt.Errorf("(storefile) stat data file: %w", err)
	}

	return uint64(info.Size()), nil
}

// ReadFragmentAt reads length bytes of heap-fragment storage at offset.
// Bounds checking is the page cache's responsibility; this only performs the
// raw dereference.
func (f *File) ReadFragmentAt(_ context.Context, offset uint64, length uint32) ([]byte, error) {
	buf := make([]byte, length)

	if _, err := f.dataFile.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("(storefile) read fragment at %d: %w", offset, err)
	}

	return buf, nil
}
