// Package cdbtest builds small cdb-format fixture files for tests and
// benchmarks. The production mcdb package is read-only by design (spec.md
// places the writer/builder out of scope as an external collaborator); this
// package is test support only, grounded independently on the wire format
// in spec.md §3.1 rather than reusing mcdb's internals, so the test suite
// is checking the reader against the format, not against itself.
package cdbtest

import (
	"bytes"
	"encoding/binary"
	"os"
)

// Record is one (tag, key, value) triple to place in a fixture file. Tag
// zero means untagged.
type Record struct {
	Tag   byte
	Key   []byte
	Value []byte
}

const (
	numTables  = 256
	headerSize = numTables * 8
)

// hash is the DJB2-XOR hash, reimplemented here (rather than imported) so
// fixture construction doesn't share code with the package under test.
func hash(tag byte, key []byte) uint32 {
	h := uint32(5381)
	fold := func(b byte) {
		h = (h + (h << 5)) ^ uint32(b)
	}
	if tag != 0 {
		fold(tag)
	}
	for _, b := range key {
		fold(b)
	}
	return h
}

type slot struct {
	khash uint32
	vpos  uint32
}

// Build writes a cdb-format file at path containing records, with
// classical cdb-writer table sizing (each of the 256 tables sized at 2x its
// occupancy, minimum 1 slot when non-empty) and linear-probe placement,
// matching the lookup algorithm's expectations.
func Build(path string, records []Record) error {
	var data bytes.Buffer
	tableEntries := make([][]slot, numTables)
	recPos := make([]uint32, len(records))

	for i, r := range records {
		storedKey := r.Key
		if r.Tag != 0 {
			storedKey = append([]byte{r.Tag}, r.Key...)
		}

		recPos[i] = headerSize + uint32(data.Len())

		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[0:4], uint32(len(storedKey)))
		binary.BigEndian.PutUint32(hdr[4:8], uint32(len(r.Value)))
		data.Write(hdr[:])
		data.Write(storedKey)
		data.Write(r.Value)

		h := hash(r.Tag, r.Key)
		ti := h & 0xFF
		tableEntries[ti] = append(tableEntries[ti], slot{khash: h, vpos: recPos[i]})
	}

	var slots bytes.Buffer
	header := make([]byte, headerSize)
	slotsBase := uint32(headerSize + data.Len())

	for ti := 0; ti < numTables; ti++ {
		entries := tableEntries[ti]
		hslots := 0
		if len(entries) > 0 {
			hslots = len(entries) * 2
		}

		table := make([]slot, hslots)
		for _, e := range entries {
			idx := 0
			if hslots > 0 {
				idx = int((e.khash >> 8)) % hslots
			}
			for table[idx].vpos != 0 {
				idx = (idx + 1) % hslots
			}
			table[idx] = e
		}

		hpos := uint32(0)
		if hslots > 0 {
			hpos = slotsBase + uint32(slots.Len())
		}
		binary.BigEndian.PutUint32(header[ti*8:ti*8+4], hpos)
		binary.BigEndian.PutUint32(header[ti*8+4:ti*8+8], uint32(hslots))

		for _, s := range table {
			var b [8]byte
			binary.BigEndian.PutUint32(b[0:4], s.khash)
			binary.BigEndian.PutUint32(b[4:8], s.vpos)
			slots.Write(b[:])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return err
	}
	if _, err := f.Write(data.Bytes()); err != nil {
		return err
	}
	if _, err := f.Write(slots.Bytes()); err != nil {
		return err
	}
	return nil
}
