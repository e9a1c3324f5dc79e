package mcdb

import "encoding/binary"

// Byte codec: pure, unchecked offset accessors and the DJB2-XOR hash that
// gives cdb-family files their name. All bounds checking is the caller's
// responsibility; these never fail.

// u32be interprets the 4 bytes at buf[off:off+4] as a big-endian uint32.
func u32be(buf []byte, off uint32) uint32 {
	return binary.BigEndian.Uint32(buf[off : off+4])
}

// hashInit returns the DJB2 seed value.
func hashInit() uint32 {
	return 5381
}

// hashByte folds a single byte into seed using the DJB2-XOR combine:
// h' = (h*33) ^ b.
func hashByte(seed uint32, b byte) uint32 {
	return (seed + (seed << 5)) ^ uint32(b)
}

// hash folds every byte of buf into seed, in order.
func hash(seed uint32, buf []byte) uint32 {
	for _, b := range buf {
		seed = hashByte(seed, b)
	}
	return seed
}

// keyHash computes the bucket hash for (tag, key) per the tag policy: tag
// 0x00 means "no tag" and must not be hashed; any other tag byte is hashed
// before the key bytes.
func keyHash(tag byte, key []byte) uint32 {
	seed := hashInit()
	if tag != 0 {
		seed = hashByte(seed, tag)
	}
	return hash(seed, key)
}
