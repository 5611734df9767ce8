package storefile

import (
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// Step is one writer-side mutation of a dataset's variable-length content,
// cycling the content through the shapes the stress scenarios need.
type Step int

const (
	// StepCreate publishes the initial short content.
	StepCreate Step = iota

	// StepLengthen grows the content, appending a new heap fragment.
	StepLengthen

	// StepShorten shrinks the content and compacts the heap region.
	StepShorten

	// StepDelete drops the content entirely and compacts the heap region.
	StepDelete

	// StepCount is the number of mutation steps in one cycle.
	StepCount
)

// tail returns the content tail for the step.
func (s Step) tail() string {
	switch s {
	case StepCreate:
		return "short"
	case StepLengthen:
		return "long long long long long long long long"
	case StepShorten:
		return "medium medium medium"
	default:
		return ""
	}
}

// Writer is the test-side mutator of a store file. It publishes new
// tick-stamped records copy-then-swap (new fragment, then one whole-page
// record write, then fdatasync) and reclaims heap space on shrinking steps,
// which is what exposes stale readers to out-of-bounds fragment references.
//
// It is not the production writer pipeline; it produces just enough churn for
// the reader-side conformance runs.
type Writer struct {
	file     *File
	clock    clockSource
	datasets []string
	records  map[string]record
	contents map[string][]byte
	heapEnd  uint64
	seq      uint32
}

// CreateStoreFile initializes a store file at path and its metadata file per
// the configuration, with one empty directory entry and record page per
// dataset name. Existing files are truncated.
func CreateStoreFile(path string, cfg Config, datasets []string,
	osOps osProvider, unixOps unixProvider,
) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if len(datasets)+1 > cfg.PageBufferEntryCount {
		return fmt.Errorf("(storefile) %w: %d datasets exceed %d reserved entries",
			ErrInvalidConfig, len(datasets), cfg.PageBufferEntryCount)
	}

	dataFile, err := osOps.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("(storefile) create data file: %w", err)
	}
	defer dataFile.Close()

	mdFile, err := osOps.OpenFile(cfg.MetadataFilePath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("(storefile) create metadata file: %w", err)
	}
	defer mdFile.Close()

	if err := mdFile.Truncate(int64(cfg.PageBufferEntryCount) * int64(cfg.PageBufferSize)); err != nil {
		return fmt.Errorf("(storefile) size metadata file: %w", err)
	}

	entries := make([]directoryEntry, 0, len(datasets))
	for i, name := range datasets {
		entries = append(entries, directoryEntry{name: name, pageID: uint32(i + 1)})
	}

	dirPage, err := encodePage(directoryPageID, 0, encodeDirectory(entries), cfg.PageBufferSize)
	if err != nil {
		return err
	}

	if _, err := mdFile.WriteAt(dirPage, 0); err != nil {
		return fmt.Errorf("(storefile) write directory page: %w", err)
	}

	for i := range datasets {
		pageID := uint32(i + 1)

		recPage, err := encodePage(pageID, 0, encodeRecord(record{}), cfg.PageBufferSize)
		if err != nil {
			return err
		}

		if _, err := mdFile.WriteAt(recPage, int64(pageID)*int64(cfg.PageBufferSize)); err != nil {
			return fmt.Errorf("(storefile) write record page %d: %w", pageID, err)
		}
	}

	if err := unixOps.Fdatasync(int(mdFile.Fd())); err != nil {
		return fmt.Errorf("(storefile) sync metadata file: %w", err)
	}

	return nil
}

// NewWriter returns a pointer to a new [Writer] over a store file opened with
// [ReadWrite]. The current directory and records are loaded directly from the
// metadata file, bypassing the reader-side cache.
func NewWriter(f *File, clock clockSource) (*Writer, error) {
	w := &Writer{
		file:     f,
		clock:    clock,
		records:  make(map[string]record),
		contents: make(map[string][]byte),
	}

	dirPayload, err := w.readPageDirect(directoryPageID)
	if err != nil {
		return nil, err
	}

	entries, err := decodeDirectory(dirPayload)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		w.datasets = append(w.datasets, entry.name)

		recPayload, err := w.readPageDirect(entry.pageID)
		if err != nil {
			return nil, err
		}

		rec, err := decodeRecord(recPayload)
		if err != nil {
			return nil, err
		}
		w.records[entry.name] = rec

		if rec.heapLength > 0 {
			content := make([]byte, rec.heapLength)
			if _, err := f.dataFile.ReadAt(content, int64(rec.heapOffset)); err != nil {
				return nil, fmt.Errorf("(storefile) load fragment for %q: %w", entry.name, err)
			}
			w.contents[entry.name] = content
		}

		if end := rec.heapOffset + uint64(rec.heapLength); end > w.heapEnd {
			w.heapEnd = end
		}

		if rec.sequence > w.seq {
			w.seq = rec.sequence
		}
	}

	return w, nil
}

// Datasets returns the dataset names managed by the writer, in directory
// order.
func (w *Writer) Datasets() []string {
	return w.datasets
}

// Mutate applies one mutation step to the dataset with the given index,
// publishing a new tick-stamped record. Shrinking steps compact the heap
// region afterwards, moving live fragments down and truncating the file.
func (w *Writer) Mutate(which int, step Step) error {
	if which < 0 || which >= len(w.datasets) {
		return fmt.Errorf("(storefile) %w: index %d", ErrUnknownDataset, which)
	}

	name := w.datasets[which]
	w.seq++

	var content []byte
	if step != StepDelete {
		content = fmt.Appendf(nil, "content %d seq %d %s", which, w.seq, step.tail())
	}

	if err := w.publish(name, which, content); err != nil {
		return err
	}

	if step == StepShorten || step == StepDelete {
		if err := w.compact(); err != nil {
			return err
		}
	}

	return nil
}

// publish appends the new fragment (if any), then swaps in the new record
// with one whole-page write and makes both durable.
func (w *Writer) publish(name string, which int, content []byte) error {
	rec := record{sequence: w.seq}

	if len(content) > 0 {
		if _, err := w.file.dataFile.WriteAt(content, int64(w.heapEnd)); err != nil {
			return fmt.Errorf("(storefile) append fragment for %q: %w", name, err)
		}

		if err := w.file.unixOps.Fdatasync(int(w.file.dataFile.Fd())); err != nil {
			return fmt.Errorf("(storefile) sync data file: %w", err)
		}

		rec.heapOffset = w.heapEnd
		rec.heapLength = uint32(len(content))
		rec.digest = blake3.Sum256(content)

		w.heapEnd += uint64(len(content))
	}

	if err := w.writeRecordPage(uint32(which+1), rec); err != nil {
		return err
	}

	w.records[name] = rec
	w.contents[name] = content

	return nil
}

// compact rewrites all live fragments densely from the start of the heap
// region, truncates the file behind them and republishes every record page.
// Readers holding records published before the compaction may now reference
// beyond the heap end; catching exactly that is the point of the boundary
// trap runs.
func (w *Writer) compact() error {
	var offset uint64

	for i, name := range w.datasets {
		content := w.contents[name]
		rec := w.records[name]

		if len(content) == 0 {
			continue
		}

		if _, err := w.file.dataFile.WriteAt(content, int64(offset)); err != nil {
			return fmt.Errorf("(storefile) compact fragment for %q: %w", name, err)
		}

		rec.heapOffset = offset
		offset += uint64(len(content))

		if err := w.writeRecordPage(uint32(i+1), rec); err != nil {
			return err
		}
		w.records[name] = rec
	}

	if err := w.file.osOps.Truncate(w.file.path, int64(offset)); err != nil {
		return fmt.Errorf("(storefile) truncate heap: %w", err)
	}

	if err := w.file.unixOps.Fdatasync(int(w.file.dataFile.Fd())); err != nil {
		return fmt.Errorf("(storefile) sync data file: %w", err)
	}

	w.heapEnd = offset

	return nil
}

// writeRecordPage publishes a record page stamped with the current tick.
func (w *Writer) writeRecordPage(pageID uint32, rec record) error {
	page, err := encodePage(pageID, w.clock.Current(), encodeRecord(rec), w.file.cfg.PageBufferSize)
	if err != nil {
		return err
	}

	offset := int64(pageID) * int64(w.file.cfg.PageBufferSize)
	if _, err := w.file.mdFile.WriteAt(page, offset); err != nil {
		return fmt.Errorf("(storefile) write record page %d: %w", pageID, err)
	}

	if err := w.file.unixOps.Fdatasync(int(w.file.mdFile.Fd())); err != nil {
		return fmt.Errorf("(storefile) sync metadata file: %w", err)
	}

	return nil
}

// readPageDirect reads and decodes a page from the metadata file without
// going through the reader-side cache.
func (w *Writer) readPageDirect(pageID uint32) ([]byte, error) {
	buf := make([]byte, w.file.cfg.PageBufferSize)

	offset := int64(pageID) * int64(w.file.cfg.PageBufferSize)
	if _, err := w.file.mdFile.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("(storefile) read page %d: %w", pageID, err)
	}

	return decodePage(buf, pageID)
}
