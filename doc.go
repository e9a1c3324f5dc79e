/*
Package mcdb provides read-only access to a constant, memory-mapped
key→value database in the cdb family of on-disk formats.

The database is a single immutable file: a 2048-byte header naming 256 hash
tables, a data region of (klen, vlen, key, value) records, and the tables'
slot arrays. Lookups walk the mmap'd bytes directly — no records are parsed
into Go structs up front. Keys may repeat; an optional single non-zero tag
byte can be hashed ahead of a key to partition otherwise-identical keys into
disjoint namespaces.

Basic usage:

	import "github.com/theflywheel/mcdb"

	db, err := mcdb.Open("", "data.cdb")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	h := db.NewHandle()
	defer h.Close()

	buf := make([]byte, 256)
	if h.FindStart([]byte("key"), 0) {
		for h.FindNext([]byte("key"), 0) {
			fmt.Println(string(h.Value(buf)))
		}
	}

Hot swap:

A maintenance goroutine may call DB.Refresh periodically; if the backing
file's mtime has moved on, it atomically publishes a new generation. Every
Handle created from the DB observes the new generation on its next
FindStart call with no coordination required — readers never block, and
never see a torn mix of old and new file contents.

Features:

  - Byte-exact cdb wire compatibility: DJB2-XOR hash, 256 tables, big-endian
    slots, the same record layout the classical cdb/mcdb tools produce
  - Memory-mapped, read-only; sub-microsecond point lookups once warm
  - Tagged keys: one reserved byte (0x00 means "no tag") partitions a
    keyspace without changing the file format
  - Generation-chained hot-swap: reopen the file without locking readers,
    readers migrate lazily on their next lookup
  - Optional bounded per-Handle value cache

Implementation Details:

A process-wide mutex (see registry.go) serializes every refcount change and
every mutation of the generation chain; between transitions, lookups run
lock-free against immutable mapped bytes. See DESIGN.md for the grounding
of each component and SPEC_FULL.md for the complete specification this
package implements.
*/
package mcdb
