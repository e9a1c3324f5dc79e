package mcdb

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

// generation is one memory-mapped instance of a cdb file — spec.md §3.2's
// "Mapping entity". Once published into a Handle's slot it is never
// mutated; refcnt and next are the only fields that change after init, and
// both are touched exclusively under regMu (next's Store/Load additionally
// use atomic ops so Handle.refreshSelf can peek it lock-free).
type generation struct {
	data []byte // nil when unmapped; data == nil iff size == 0
	size int64
	mtime int64

	fname string // path, relative to dir when dir >= 0
	dir   int    // open directory fd, or -1

	fp uint64 // xxhash fingerprint of the header, diagnostic only

	refcnt int32 // guarded by regMu
	next   atomic.Pointer[generation]
}

// createGeneration opens dirname (if non-empty) and filename, maps the
// file, and returns a generation with refcnt already at 1 for the caller.
// On any failure, all partial state (open directory fd, etc.) is released
// before returning the error — spec.md §4.3.1.
func createGeneration(dirname, filename string) (*generation, error) {
	g := &generation{dir: -1, fname: filename}

	if dirname != "" {
		fd, err := unix.Open(dirname, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: open directory %q: %v", ErrOpen, dirname, err)
		}
		g.dir = fd
	}

	if err := g.reopen(); err != nil {
		g.destroy()
		return nil, err
	}
	g.refcnt = 1
	return g, nil
}

// reopen opens the file fresh (through dir when held, so a directory-inode
// replace stays transparent — spec.md §4.2) and remaps it. The descriptor
// is closed immediately after mapping; the mapping survives independently.
func (g *generation) reopen() error {
	const oflags = unix.O_RDONLY | unix.O_NONBLOCK | unix.O_CLOEXEC

	var fd int
	var err error
	if g.dir >= 0 {
		fd, err = unix.Openat(g.dir, g.fname, oflags, 0)
	} else {
		fd, err = unix.Open(g.fname, oflags, 0)
	}
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrOpen, g.fname, err)
	}
	defer unix.Close(fd)

	return g.init(fd)
}

// init stats fd, maps the whole file read-only/shared, and records size
// and mtime. On success: data/size/mtime are set, next is cleared, refcnt
// is reset to 0 (the caller establishes the first reference). On failure
// the generation is left unmapped (data == nil, size == 0).
func (g *generation) init(fd int) error {
	g.unmap()

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fmt.Errorf("%w: fstat: %v", ErrStat, err)
	}

	size := st.Size
	if size == 0 {
		return fmt.Errorf("%w: empty file", ErrMap)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: mmap %d bytes: %v", ErrMap, size, err)
	}

	// Only pay for the madvise syscall when it can actually help: tiny
	// files fit in the page cache's working set regardless.
	if size > madviseThreshold {
		_ = unix.Madvise(data[madviseThreshold:], unix.MADV_RANDOM)
	}

	g.data = data
	g.size = size
	g.mtime = st.Mtim.Sec*1e9 + st.Mtim.Nsec
	g.next.Store(nil)
	g.refcnt = 0
	g.fp = headerFingerprint(data)
	return nil
}

func headerFingerprint(data []byte) uint64 {
	n := len(data)
	if n > headerSize {
		n = headerSize
	}
	return xxhash.Sum64(data[:n])
}

// unmap releases the mapping and zeroes data/size. Idempotent.
func (g *generation) unmap() {
	if g.data != nil {
		_ = unix.Munmap(g.data)
	}
	g.data = nil
	g.size = 0
}

// free unmaps the generation, nothing more. This is what the registry uses
// when a generation's refcnt reaches zero mid-chain (spec.md §4.3.2): the
// directory fd, when held, is shared by aliasing across every generation
// descended from the same DB (spec.md §5 "the directory descriptor ... is
// held for the mapping's lifetime"), so only the DB's own explicit destroy
// may close it.
func (g *generation) free() {
	g.unmap()
}

// destroy fully tears the generation down: free, plus closing the held
// directory fd if any. Must not be called while refcnt > 0, and must only
// be called once per shared dir fd — ordinarily by DB.Close on whichever
// generation turns out to be the last one standing.
func (g *generation) destroy() {
	g.free()
	if g.dir >= 0 {
		_ = unix.Close(g.dir)
		g.dir = -1
	}
}

// refreshCheck reports whether the generation is stale: either never
// successfully mapped, or the backing file's mtime has moved on.
func (g *generation) refreshCheck() bool {
	if g.data == nil {
		return true
	}

	var st unix.Stat_t
	var err error
	if g.dir >= 0 {
		err = unix.Fstatat(g.dir, g.fname, &st, 0)
	} else {
		err = unix.Stat(g.fname, &st)
	}
	if err != nil {
		return false
	}
	return g.mtime != st.Mtim.Sec*1e9+st.Mtim.Nsec
}
