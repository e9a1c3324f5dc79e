package mcdb

import (
	"bytes"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

// cacheKey identifies a cached value within a specific generation: the
// generation's identity (its pointer) plus the record's data offset. A
// value cached for one generation is never a valid answer for another, so
// the generation pointer must be part of the key even though it changes on
// every migration.
type cacheKey struct {
	gen *generation
	pos uint32
}

// Handle is a reader's per-query cursor: which generation it currently
// references, plus the transient probe state shared between FindStart and
// FindNext (spec.md §3.3/§4.4). A Handle is not safe for concurrent use by
// multiple goroutines — each goroutine should own its own Handle, obtained
// via DB.NewHandle.
type Handle struct {
	gen *generation

	// probe cursor, valid between FindStart and the FindNext calls that
	// follow it for the same key
	khash        uint32
	hpos, hslots uint32
	kpos         uint32
	loop         uint32
	dpos, dlen   uint32

	cache *arc.ARCCache[cacheKey, []byte]
}

// refreshSelf advances the handle to the chain tail if the maintenance
// actor has published a newer generation since the handle last looked.
// Failures are deliberately swallowed — spec.md §7's policy is availability
// over freshness, so a refresh that can't complete just leaves the handle
// on its current (still valid) generation.
func (h *Handle) refreshSelf() {
	cur := h.gen
	if cur == nil || cur.next.Load() == nil {
		// Nothing published since last time; the lock-free peek above is
		// safe because once a generation is published its next is written
		// only under regMu, via Store, and read here via Load (spec.md §5's
		// publication fence).
		return
	}

	prev := h.gen
	if register(&h.gen) && h.cache != nil && h.gen != prev {
		h.cache.Purge()
	}
}

// FindStart begins a probe for (key, tag) and returns whether the bucket
// for this hash is non-empty. tag == 0 means "untagged"; any other byte is
// hashed ahead of key and checked against tagged records on FindNext.
func (h *Handle) FindStart(key []byte, tag byte) bool {
	khash := keyHash(tag, key)

	h.refreshSelf()

	gen := h.gen
	off := tableHeaderOffset(khash & 0xFF)
	hpos := u32be(gen.data, off)
	hslots := u32be(gen.data, off+4)
	if hslots == 0 {
		return false
	}

	h.khash = khash
	h.hpos = hpos
	h.hslots = hslots
	h.kpos = hpos + ((khash>>8)%hslots)*slotSize
	h.loop = 0
	return true
}

// FindNext advances the probe begun by FindStart, returning the next
// matching record (if any). Callers repeat FindNext with the same (key,
// tag) to enumerate every duplicate; the first false return ends the
// probe. Terminates after at most hslots iterations (spec.md property 4).
func (h *Handle) FindNext(key []byte, tag byte) bool {
	gen := h.gen
	data := gen.data

	for h.loop < h.hslots {
		slot := h.kpos
		khashSlot := u32be(data, slot)
		vpos := u32be(data, slot+4)
		if vpos == 0 {
			return false
		}

		h.kpos += slotSize
		if h.kpos == h.hpos+h.hslots*slotSize {
			h.kpos = h.hpos
		}
		h.loop++

		if khashSlot != h.khash {
			continue
		}

		recKlen := u32be(data, vpos)
		recVlen := u32be(data, vpos+4)

		var match bool
		if tag != 0 {
			match = recKlen == uint32(len(key))+1 &&
				data[vpos+recordHeaderSize] == tag &&
				bytes.Equal(data[vpos+recordHeaderSize+1:vpos+recordHeaderSize+1+uint32(len(key))], key)
		} else {
			match = recKlen == uint32(len(key)) &&
				bytes.Equal(data[vpos+recordHeaderSize:vpos+recordHeaderSize+uint32(len(key))], key)
		}
		if match {
			h.dlen = recVlen
			h.dpos = vpos + recordHeaderSize + recKlen
			return true
		}
	}
	return false
}

// ReadValue copies length bytes starting at pos into buf and returns it, or
// nil if the range falls outside the current generation's bounds — which
// can happen if a refresh shortened the mapping between a find and the
// read. This is the general bounds-checked read primitive spec.md §4.4
// names; Value is the common-case convenience built on it.
func (h *Handle) ReadValue(pos, length uint32, buf []byte) []byte {
	if h.cache != nil {
		key := cacheKey{gen: h.gen, pos: pos}
		if v, ok := h.cache.Get(key); ok && uint32(len(v)) == length {
			n := copy(buf, v)
			return buf[:n]
		}
		v := h.readAtUncached(pos, length, buf)
		if v != nil {
			cached := make([]byte, len(v))
			copy(cached, v)
			h.cache.Add(key, cached)
		}
		return v
	}
	return h.readAtUncached(pos, length, buf)
}

// Value reads the value of the most recent successful FindNext match into
// buf. It is a thin convenience over ReadValue(h.dpos, h.dlen, buf).
func (h *Handle) Value(buf []byte) []byte {
	return h.ReadValue(h.dpos, h.dlen, buf)
}

func (h *Handle) readAtUncached(pos, length uint32, buf []byte) []byte {
	gen := h.gen
	size := uint64(gen.size)
	if uint64(pos) > size || size-uint64(pos) < uint64(length) {
		return nil
	}
	return buf[:copy(buf, gen.data[pos:pos+length])]
}

// Close releases this handle's reference to its current generation. A
// Handle must not be used again after Close.
func (h *Handle) Close() {
	if h.cache != nil {
		h.cache.Purge()
	}
	unregister(&h.gen)
}
