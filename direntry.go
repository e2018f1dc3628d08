package jpegtiff

import (
	"encoding/binary"
	"fmt"
)

// storageLogic tells how the four value bytes of an IFD entry are to be
// interpreted. The entry's value field is kept as raw file bytes; byte-order
// conversion happens when a value is read out or when a new entry is built,
// so the logic tag is what keeps reads and writes consistent.
type storageLogic int

const (
	storageInvalid storageLogic = iota
	storageByte                 // 1-byte elements, count <= 4, order-free
	storageShort                // 2-byte elements, count 1 or 2
	storageLong                 // one 4-byte integer value
	storageOffset               // the 4 bytes are a file offset to external data
)

// dirEntry is a 12-byte TIFF IFD record: tag, datatype, count and the
// value-or-offset field. The value field stays in the entry's byte order.
type dirEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	value    [4]byte
	order    binary.ByteOrder
	storage  storageLogic
}

// newOffsetEntry builds an entry whose value field is a file offset to
// external data (or to a sub-IFD).
func newOffsetEntry(tag, datatype uint16, count, offset uint32, order binary.ByteOrder) dirEntry {
	e := dirEntry{tag: tag, datatype: datatype, count: count, order: order, storage: storageOffset}
	order.PutUint32(e.value[:], offset)

	return e
}

// newLongEntry builds an entry holding a single 4-byte integer inline.
func newLongEntry(tag, datatype uint16, count, value uint32, order binary.ByteOrder) dirEntry {
	if datatypeLength(datatype) != 4 || count != 1 {
		panic("newLongEntry: datatype/count mismatch")
	}
	e := dirEntry{tag: tag, datatype: datatype, count: count, order: order, storage: storageLong}
	order.PutUint32(e.value[:], value)

	return e
}

// newShortEntry builds an entry holding one or two 16-bit integers inline.
func newShortEntry(tag, datatype uint16, count uint32, v1, v2 uint16, order binary.ByteOrder) dirEntry {
	if datatypeLength(datatype) != 2 || (count != 1 && count != 2) {
		panic("newShortEntry: datatype/count mismatch")
	}
	e := dirEntry{tag: tag, datatype: datatype, count: count, order: order, storage: storageShort}
	order.PutUint16(e.value[0:2], v1)
	order.PutUint16(e.value[2:4], v2)

	return e
}

// newByteEntry builds an entry holding up to four 1-byte elements inline.
func newByteEntry(tag, datatype uint16, count uint32, value [4]byte, order binary.ByteOrder) dirEntry {
	return dirEntry{tag: tag, datatype: datatype, count: count, value: value, order: order, storage: storageByte}
}

// initFromMemory fills the entry from a 12-byte IFD record at mem[0:12].
// The record's scalars are decoded with the given order; the value field is
// kept raw. An unknown datatype leaves the entry with storageInvalid.
func (e *dirEntry) initFromMemory(mem []byte, order binary.ByteOrder) {
	e.order = order
	e.tag = order.Uint16(mem[0:2])
	e.datatype = order.Uint16(mem[2:4])
	e.count = order.Uint32(mem[4:8])
	copy(e.value[:], mem[8:12])

	elementSize := datatypeLength(e.datatype)
	switch {
	case elementSize == 0:
		e.storage = storageInvalid
	case elementSize*e.count > 4:
		e.storage = storageOffset
	case elementSize == 4:
		// A LONG-typed sub-IFD pointer holds an offset even though the
		// data fits inline.
		if e.tag == tagExifIFD || e.tag == tagGPSIFD {
			e.storage = storageOffset
		} else {
			e.storage = storageLong
		}
	case elementSize == 2:
		e.storage = storageShort
	default:
		e.storage = storageByte
	}
}

// writeTo serializes the entry into mem[0:12] with the given order. The
// value bytes are written literally; they were put into the requested order
// when the entry was built.
func (e *dirEntry) writeTo(mem []byte, order binary.ByteOrder) {
	order.PutUint16(mem[0:2], e.tag)
	order.PutUint16(mem[2:4], e.datatype)
	order.PutUint32(mem[4:8], e.count)
	copy(mem[8:12], e.value[:])
}

// dataSize returns count times the datatype's element size.
func (e *dirEntry) dataSize() uint32 {
	return e.count * datatypeLength(e.datatype)
}

func (e *dirEntry) elementSize() uint32 {
	return datatypeLength(e.datatype)
}

// offsetField returns the value field interpreted as a file offset.
func (e *dirEntry) offsetField() uint32 {
	if e.storage != storageOffset {
		panic("dirEntry: value field is not an offset")
	}

	return e.order.Uint32(e.value[:])
}

// longValue returns the inline 32-bit integer value.
func (e *dirEntry) longValue() uint32 {
	if e.storage != storageLong {
		panic("dirEntry: value field is not a long")
	}

	return e.order.Uint32(e.value[:])
}

// twoShorts returns the inline 16-bit values; the second is 0 when count
// is 1.
func (e *dirEntry) twoShorts() (uint16, uint16) {
	if e.storage != storageShort {
		panic("dirEntry: value field is not shorts")
	}

	return e.order.Uint16(e.value[0:2]), e.order.Uint16(e.value[2:4])
}

// fourBytes returns the four raw value bytes.
func (e *dirEntry) fourBytes() [4]byte {
	return e.value
}

// intValue returns the first inline integer regardless of short or long
// storage. Used where a tag such as Compression may legally be either.
func (e *dirEntry) intValue() uint32 {
	switch e.storage {
	case storageShort:
		v, _ := e.twoShorts()
		return uint32(v)
	case storageLong:
		return e.longValue()
	}
	panic("dirEntry: value field holds no inline integer")
}

func (e *dirEntry) tagName() string {
	if name, ok := tagNames[e.tag]; ok {
		return name
	}

	return fmt.Sprintf("ID:%d", e.tag)
}
