package wire

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/pcpmmv/mmv/internal/layout"
)

// Build allocates a zero-filled buffer of plan.TotalSize bytes and writes the
// header (generation fields as given in header; Client.Export passes both as
// zero) and every planned section into it. The caller commits the generation
// separately, once the buffer is durably on disk and mapped.
func Build(plan *layout.Plan, header Header) []byte {
	header.TocCount = int32(len(plan.Toc))
	buf := make([]byte, plan.TotalSize)

	PutHeader(buf, header)
	tocStart := int64(HeaderSize)
	for i, t := range plan.Toc {
		PutTocEntry(buf, tocStart+int64(i)*TocEntrySize, t)
	}
	for _, r := range plan.Indoms {
		PutIndom(buf, r)
	}
	for _, r := range plan.Instances {
		PutInstance(buf, r)
	}
	for _, r := range plan.Metrics {
		PutMetric(buf, r)
	}
	for _, r := range plan.Values {
		PutValue(buf, r)
	}
	for _, r := range plan.Strings {
		PutString(buf, r.Offset, r.Content)
	}
	return buf
}

// HeaderSize is the fixed wire size of the file header.
const HeaderSize = 40

// TocEntrySize is the fixed wire size of one TOC entry.
const TocEntrySize = 16

// MappedFile is an exported MMV file plus its live mapping. Close unmaps and
// optionally removes the backing file; the file is never unlinked
// automatically unless the caller asks for it.
type MappedFile struct {
	Data mmap.MMap
	Path string

	file *os.File
}

// ResolveDir returns the directory MMV files are written to: $PCP_TMP_DIR/mmv
// if PCP_TMP_DIR is set and exists, else /tmp/mmv, creating it if missing.
func ResolveDir() (string, error) {
	dir := "/tmp/mmv"
	if base := os.Getenv("PCP_TMP_DIR"); base != "" {
		if st, err := os.Stat(base); err == nil && st.IsDir() {
			dir = filepath.Join(base, "mmv")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteAndMap durably writes buf to dir/name (via a temp file, fsync, and
// rename, so a concurrent reader never observes a partially-written file at
// the final path) and memory-maps the result read-write, shared.
func WriteAndMap(dir, name string, buf []byte) (*MappedFile, error) {
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	_ = os.Remove(tmpPath)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &OpError{Op: "create", Path: tmpPath, Err: err}
	}

	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &OpError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &OpError{Op: "fsync", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &OpError{Op: "rename", Path: finalPath, Err: err}
	}

	// Re-open at the final path: the fd from the temp file still refers to
	// the same inode post-rename on POSIX, but re-opening keeps this
	// correct on platforms without atomic rename-over semantics too.
	f.Close()
	f, err = os.OpenFile(finalPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, &OpError{Op: "open", Path: finalPath, Err: err}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, &OpError{Op: "mmap", Path: finalPath, Err: err}
	}

	return &MappedFile{Data: data, Path: finalPath, file: f}, nil
}

// Close unmaps the file and closes its descriptor, optionally unlinking it.
func (m *MappedFile) Close(remove bool) error {
	err := m.Data.Unmap()
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	if remove {
		if rerr := os.Remove(m.Path); err == nil {
			err = rerr
		}
	}
	return err
}

// OpError reports which filesystem step of export failed.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("wire: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

///////////////////////////////////////////////////////////////////////////
// Generation seqlock.

// CommitGeneration publishes gen into the mapped header: generation2 first,
// a release fence, then generation1. A reader that sees generation1 ==
// generation2 == gen after this call is guaranteed a consistent view.
//
// Go's memory model treats sync/atomic operations as sequentially consistent
// synchronization points (stricter than a plain release/acquire pair), so the
// two atomic stores below need no separate fence instruction between them.
func CommitGeneration(data mmap.MMap, gen int64) {
	storeInt64(data, Generation2Offset, gen)
	storeInt64(data, Generation1Offset, gen)
}

// ReadGenerations loads both generation fields with acquire semantics, for
// symmetry with CommitGeneration.
func ReadGenerations(data mmap.MMap) (gen1, gen2 int64) {
	gen1 = loadInt64(data, Generation1Offset)
	gen2 = loadInt64(data, Generation2Offset)
	return
}

func storeInt64(b []byte, off int64, v int64) {
	p := (*int64)(unsafe.Pointer(&b[off]))
	atomic.StoreInt64(p, v)
}

func loadInt64(b []byte, off int64) int64 {
	p := (*int64)(unsafe.Pointer(&b[off]))
	return atomic.LoadInt64(p)
}

///////////////////////////////////////////////////////////////////////////
// Fixed-width and string write paths.

// WriteFixed stores the little-endian 8-byte representation of a fixed-width
// value directly at the value slot's offset. No fence is required: readers
// tolerate torn reads on fixed-width slots by convention.
func WriteFixed(data mmap.MMap, valueOffset int64, bits uint64) {
	storeUint64(data, valueOffset, bits)
}

// WriteString publishes a new payload to a STRING value slot by writing it
// into whichever of the two owned 256-byte regions is not currently
// referenced, then atomically swapping the slot's pointer to it. It returns
// the offset the pointer now references.
func WriteString(data mmap.MMap, valueOffset, primaryOffset, shadowOffset int64, payload string) int64 {
	current := loadUint64(data, valueOffset)

	target := primaryOffset
	if current == uint64(primaryOffset) {
		target = shadowOffset
	}

	PutString(data, target, payload)

	// The atomic store below is itself the required release: by Go's memory
	// model it cannot be reordered before the plain write to target above.
	storeUint64(data, valueOffset, uint64(target))

	return target
}

func storeUint64(b []byte, off int64, v uint64) {
	p := (*uint64)(unsafe.Pointer(&b[off]))
	atomic.StoreUint64(p, v)
}

func loadUint64(b []byte, off int64) uint64 {
	p := (*uint64)(unsafe.Pointer(&b[off]))
	return atomic.LoadUint64(p)
}
