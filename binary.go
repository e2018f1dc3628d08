package jpegtiff

import "encoding/binary"

// All byte-order decisions in the package go through the helpers in this
// file. Scalar access uses encoding/binary byte orders directly; the helpers
// add bounds checking over a slice plus element-wise order conversion for
// blobs copied between files of different endianness.

// readU16 reads a 16-bit unsigned integer at offset, returning 0 when the
// read would run past the end of data.
func readU16(data []byte, offset int, order binary.ByteOrder) uint16 {
	if offset < 0 || offset+2 > len(data) {
		return 0
	}

	return order.Uint16(data[offset : offset+2])
}

// readU32 reads a 32-bit unsigned integer at offset, returning 0 when the
// read would run past the end of data.
func readU32(data []byte, offset int, order binary.ByteOrder) uint32 {
	if offset < 0 || offset+4 > len(data) {
		return 0
	}

	return order.Uint32(data[offset : offset+4])
}

// readS16 reads a 16-bit signed integer at offset.
func readS16(data []byte, offset int, order binary.ByteOrder) int16 {
	return int16(readU16(data, offset, order))
}

// readS32 reads a 32-bit signed integer at offset.
func readS32(data []byte, offset int, order binary.ByteOrder) int32 {
	return int32(readU32(data, offset, order))
}

// binaryCopy copies src into dst element-wise, reversing the bytes of each
// element when the two orders differ. Element sizes 1, 2, 4 and 8 are the
// only ones that occur (the TIFF datatype sizes); a 1-byte element never
// needs reversal. dst and src must both hold a whole number of elements.
func binaryCopy(dst, src []byte, elementSize int, from, to binary.ByteOrder) {
	if len(dst) < len(src) || len(src)%elementSize != 0 {
		panic("binaryCopy: bad buffer length")
	}

	if elementSize == 1 || from == to {
		copy(dst, src)
		return
	}

	for i := 0; i < len(src); i += elementSize {
		for j := 0; j < elementSize; j++ {
			dst[i+j] = src[i+elementSize-j-1]
		}
	}
}

// changeEndianness returns a copy of data with every element's bytes
// reversed. Used when external IFD data moves between a source and a target
// file of opposite byte order.
func changeEndianness(data []byte, elementSize int) []byte {
	out := make([]byte, len(data))
	binaryCopy(out, data, elementSize, binary.BigEndian, binary.LittleEndian)

	return out
}
