package mcdb

import "sync/atomic"

// DB is the maintenance actor's view of a cdb database: the chain anchor
// used to publish new generations (spec.md §4.3.3) and to mint new reader
// Handles. Exactly one DB should exist per logical database; many Handles
// may be created from it and used concurrently from their own goroutines.
//
// DB has no knowledge of directory-watching or scheduling — spec.md §1
// explicitly places any such daemon out of scope. Callers drive Refresh
// themselves, e.g. from a time.Ticker.
type DB struct {
	dirname, filename string
	anchor            *generation

	cacheSize int32 // atomic; 0 means "no per-Handle cache"
}

// Option configures Open.
type Option func(*DB)

// WithValueCache gives every Handle minted by this DB a bounded ARC cache
// of n recently read values (see handle.go's cacheKey). n <= 0 disables
// caching, the default.
func WithValueCache(n int) Option {
	return func(db *DB) {
		atomic.StoreInt32(&db.cacheSize, int32(n))
	}
}

// Open creates the initial generation for filename (optionally resolved
// through dirname's directory descriptor, spec.md §4.3.1) and returns a DB
// ready to mint Handles and accept Refresh calls.
func Open(dirname, filename string, opts ...Option) (*DB, error) {
	gen, err := createGeneration(dirname, filename)
	if err != nil {
		return nil, err
	}

	db := &DB{dirname: dirname, filename: filename, anchor: gen}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Refresh checks whether the backing file has changed since the DB's
// current generation was mapped and, if so, publishes a new generation for
// readers to migrate onto. Returns whether a new generation was published.
func (db *DB) Refresh() (bool, error) {
	if !db.anchor.refreshCheck() {
		return false, nil
	}
	if err := reopenThreadsafe(&db.anchor); err != nil {
		return false, err
	}
	return true, nil
}

// NewHandle mints a reader Handle holding its own counted reference to the
// DB's current chain tail (spec.md's register/unregister protocol, via
// bootstrap — see registry.go and DESIGN.md).
func (db *DB) NewHandle() *Handle {
	h := &Handle{}
	bootstrap(&db.anchor, &h.gen)

	if n := atomic.LoadInt32(&db.cacheSize); n > 0 {
		if c, err := newValueCache(int(n)); err == nil {
			h.cache = c
		}
	}
	return h
}

// Stats is a read-only snapshot of the DB's current generation, for callers
// that want to log or export it themselves (spec.md §1 keeps logging out of
// this package).
type Stats struct {
	Size        int64
	ModTimeUnix int64 // nanoseconds since epoch
	Fingerprint uint64
}

// Stats returns a snapshot of the DB's currently anchored generation.
func (db *DB) Stats() Stats {
	gen := db.anchor
	return Stats{Size: gen.size, ModTimeUnix: gen.mtime, Fingerprint: gen.fp}
}

// Close releases the DB's own reference to its current generation. If no
// Handle still holds that generation, Close fully tears it down, including
// the shared directory fd. Otherwise the last Handle to Close unmaps it,
// and the directory fd is not closed.
func (db *DB) Close() error {
	if gen := releaseAnchor(&db.anchor); gen != nil {
		gen.destroy()
	}
	return nil
}
