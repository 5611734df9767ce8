package storefile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tickloom/swmread/internal/pagecache"
	"github.com/zeebo/blake3"
)

const (
	// pageMagic marks every metadata page ("SWMR").
	pageMagic = uint32(0x53574D52)

	// formatVersion is the only supported on-disk format version.
	formatVersion = uint32(1)

	// digestSize is the size of a blake3 page or fragment digest.
	digestSize = 32

	// pageHeaderSize is magic + page ID + tick stamp + payload length +
	// payload digest.
	pageHeaderSize = 4 + 4 + 8 + 4 + digestSize

	// directoryPageID is the fixed page holding the dataset directory.
	directoryPageID = uint32(0)

	// recordSize is heap offset + heap length + sequence number +
	// fragment digest.
	recordSize = 8 + 4 + 4 + digestSize
)

// encodePage builds a complete on-disk page of pageSize bytes: header with a
// blake3 digest over the payload, then the payload. The page is produced as
// one new buffer so a publish is always a single whole-page write.
func encodePage(pageID uint32, tickStamp uint64, payload []byte, pageSize int) ([]byte, error) {
	if len(payload) > pageSize-pageHeaderSize {
		return nil, fmt.Errorf("(storefile) %w: payload %d bytes, page %d bytes",
			ErrPayloadTooLarge, len(payload), pageSize)
	}

	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint32(buf[0:4], pageMagic)
	binary.LittleEndian.PutUint32(buf[4:8], pageID)
	binary.LittleEndian.PutUint64(buf[8:16], tickStamp)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))

	digest := blake3.Sum256(payload)
	copy(buf[20:20+digestSize], digest[:])
	copy(buf[pageHeaderSize:], payload)

	return buf, nil
}

// decodePage validates a raw on-disk page and returns its payload. A digest
// mismatch is reported as a torn fetch, which the page cache retries; any
// other malformation is fatal.
func decodePage(buf []byte, wantPageID uint32) ([]byte, error) {
	if len(buf) < pageHeaderSize {
		return nil, fmt.Errorf("(storefile) %w: page %d short", ErrBadPage, wantPageID)
	}

	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != pageMagic {
		return nil, fmt.Errorf("(storefile) %w: page %d bad magic %#x", ErrBadPage, wantPageID, magic)
	}

	if pageID := binary.LittleEndian.Uint32(buf[4:8]); pageID != wantPageID {
		return nil, fmt.Errorf("(storefile) %w: page %d claims ID %d", ErrBadPage, wantPageID, pageID)
	}

	payloadLen := binary.LittleEndian.Uint32(buf[16:20])
	if int(payloadLen) > len(buf)-pageHeaderSize {
		return nil, fmt.Errorf("(storefile) %w: page %d payload length %d", ErrBadPage, wantPageID, payloadLen)
	}

	payload := make([]byte, payloadLen)
	copy(payload, buf[pageHeaderSize:pageHeaderSize+int(payloadLen)])

	digest := blake3.Sum256(payload)
	if !bytes.Equal(digest[:], buf[20:20+digestSize]) {
		return nil, fmt.Errorf("(storefile) page %d digest mismatch: %w", wantPageID, pagecache.ErrTornFetch)
	}

	return payload, nil
}

// directoryEntry maps a dataset name to its record page.
type directoryEntry struct {
	name   string
	pageID uint32
}

// encodeDirectory serializes the dataset directory page payload.
func encodeDirectory(entries []directoryEntry) []byte {
	var buf bytes.Buffer

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(entries)))
	buf.Write(count[:])

	for _, entry := range entries {
		var nameLen [2]byte
		binary.LittleEndian.PutUint16(nameLen[:], uint16(len(entry.name)))
		buf.Write(nameLen[:])
		buf.WriteString(entry.name)

		var pageID [4]byte
		binary.LittleEndian.PutUint32(pageID[:], entry.pageID)
		buf.Write(pageID[:])
	}

	return buf.Bytes()
}

// decodeDirectory parses the dataset directory page payload.
func decodeDirectory(payload []byte) ([]directoryEntry, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("(storefile) %w: directory short", ErrBadPage)
	}

	count := binary.LittleEndian.Uint32(payload[0:4])
	entries := make([]directoryEntry, 0, count)

	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(payload) {
			return nil, fmt.Errorf("(storefile) %w: directory entry short", ErrBadPage)
		}

		nameLen := int(binary.LittleEndian.Uint16(payload[pos : pos+2]))
		pos += 2

		if pos+nameLen+4 > len(payload) {
			return nil, fmt.Errorf("(storefile) %w: directory entry short", ErrBadPage)
		}

		name := string(payload[pos : pos+nameLen])
		pos += nameLen

		pageID := binary.LittleEndian.Uint32(payload[pos : pos+4])
		pos += 4

		entries = append(entries, directoryEntry{name: name, pageID: pageID})
	}

	return entries, nil
}

// record is the fixed-size dataset record held in a metadata page. It
// references the dataset's current variable-length content out-of-band in
// the heap region.
type record struct {
	heapOffset uint64
	heapLength uint32
	sequence   uint32
	digest     [digestSize]byte
}

// ref returns the heap-fragment reference of the record.
func (r record) ref() pagecache.FragmentRef {
	return pagecache.FragmentRef{Offset: r.heapOffset, Length: r.heapLength}
}

// encodeRecord serializes a dataset record page payload.
func encodeRecord(r record) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(buf[0:8], r.heapOffset)
	binary.LittleEndian.PutUint32(buf[8:12], r.heapLength)
	binary.LittleEndian.PutUint32(buf[12:16], r.sequence)
	copy(buf[16:], r.digest[:])

	return buf
}

// decodeRecord parses a dataset record page payload.
func decodeRecord(payload []byte) (record, error) {
	if len(payload) < recordSize {
		return record{}, fmt.Errorf("(storefile) %w: record short", ErrBadPage)
	}

	var r record
	r.heapOffset = binary.LittleEndian.Uint64(payload[0:8])
	r.heapLength = binary.LittleEndian.Uint32(payload[8:12])
	r.sequence = binary.LittleEndian.Uint32(payload[12:16])
	copy(r.digest[:], payload[16:16+digestSize])

	return r, nil
}
