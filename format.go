package mcdb

// On-disk layout constants (spec.md §3.1), byte-exact with the classical
// cdb format: 256 hash tables named in a fixed 2048-byte header, each
// table's slots holding (hash, vpos) pairs, data records of
// (klen, vlen, key, value).

const (
	numTables     = 256
	headerEntrySz = 8 // (hpos uint32, hslots uint32)
	headerSize    = numTables * headerEntrySz // 2048
	slotSize      = 8 // (khash uint32, vpos uint32)
	recordHeaderSize = 8 // (klen uint32, vlen uint32)

	// madviseThreshold is the point past which it is worth paying the
	// extra syscall to advise the kernel that accesses are random —
	// small files don't recoup that cost. Mirrors mcdb.c's use of
	// USHRT_MAX as the cutoff.
	madviseThreshold = 64 * 1024
)

// tableHeaderOffset returns the byte offset of hash table i's (hpos, hslots)
// pair within the file header.
func tableHeaderOffset(i uint32) uint32 {
	return i * headerEntrySz
}
