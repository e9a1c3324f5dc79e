package mcdb

import "errors"

// Sentinel error kinds. Wrapped with fmt.Errorf("...: %w", ...) at the call
// site so callers can classify failures with errors.Is while still getting
// a descriptive message.
var (
	// ErrOpen means the database file or its containing directory could
	// not be opened.
	ErrOpen = errors.New("mcdb: open failed")

	// ErrMap means the file could not be mapped: it is empty, or the
	// mmap(2) call itself failed.
	ErrMap = errors.New("mcdb: mmap failed")

	// ErrStat means fstat failed while sizing the backing file. Stat
	// failures during a freshness check are not reported as errors.
	ErrStat = errors.New("mcdb: stat failed")

	// ErrAlloc means an internal allocation failed (out of memory).
	ErrAlloc = errors.New("mcdb: allocation failed")

	// ErrSuperseded means a registration was attempted against a
	// generation that another goroutine already finished destroying while
	// the caller waited for the registry lock. The caller must re-create
	// or re-register against the latest generation.
	ErrSuperseded = errors.New("mcdb: generation superseded")
)
