package jpegtiff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func byteVector(offset uint32, data []byte) *Segment {
	return &Segment{
		Kind:   KindByteVector,
		Order:  binary.LittleEndian,
		Offset: offset,
		Size:   uint32(len(data)),
		Data:   data,
	}
}

func TestAddPaddedAlignment(t *testing.T) {
	list := &SegmentList{}

	offset := list.addPadded(byteVector(0, []byte{1, 2, 3})) // odd length forces padding
	if offset != 4 {
		t.Fatalf("next offset after padded 3-byte segment is %d, want 4", offset)
	}
	offset = list.addPadded(byteVector(offset, []byte{4, 5}))
	if offset != 6 {
		t.Fatalf("next offset is %d, want 6", offset)
	}
	offset = list.addPadded(byteVector(offset, []byte{6}))
	if offset != 8 {
		t.Fatalf("next offset is %d, want 8", offset)
	}

	// Layout contiguity: each segment starts where the previous ended.
	pos := uint32(0)
	for i, s := range list.Segments() {
		if s.Offset != pos {
			t.Fatalf("segment %d at offset %d, want %d", i, s.Offset, pos)
		}
		pos += s.Size
	}

	// Padding appears exactly after odd-length segments, and every
	// non-padding segment starts at an even offset.
	for i, s := range list.Segments() {
		if s.Kind == KindPadding {
			if s.Offset%2 == 0 {
				t.Fatalf("padding segment %d at even offset %d", i, s.Offset)
			}
			if s.Size != 1 || !bytes.Equal(s.Data, []byte{0}) {
				t.Fatalf("padding segment %d is not a single zero byte", i)
			}
			continue
		}
		if s.Offset%2 != 0 {
			t.Fatalf("segment %d (%v) starts at odd offset %d", i, s.Kind, s.Offset)
		}
	}
}

func TestAddPaddedEvenNoPadding(t *testing.T) {
	list := &SegmentList{}
	list.addPadded(byteVector(0, []byte{1, 2}))
	list.addPadded(byteVector(2, []byte{3, 4}))

	for _, s := range list.Segments() {
		if s.Kind == KindPadding {
			t.Fatal("padding inserted after an even-length segment")
		}
	}
}

func TestByteVectorRoundTrip(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x42}
	list := &SegmentList{}
	list.addPadded(byteVector(0, payload))

	out, err := list.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("serialized % x, want % x", out, payload)
	}
}

func TestRebuildMarkers(t *testing.T) {
	soi := &Segment{Kind: KindSOI, Order: binary.BigEndian}
	soi.rebuild()
	if !bytes.Equal(soi.Data, []byte{0xff, 0xd8}) || soi.Size != 2 {
		t.Fatalf("SOI rebuilt as % x", soi.Data)
	}

	eoi := &Segment{Kind: KindEOI, Order: binary.BigEndian}
	eoi.rebuild()
	if !bytes.Equal(eoi.Data, []byte{0xff, 0xd9}) || eoi.Size != 2 {
		t.Fatalf("EOI rebuilt as % x", eoi.Data)
	}
}

func TestRebuildTiffHeader(t *testing.T) {
	h := &Segment{
		Kind:   KindTiffHeader,
		Order:  binary.LittleEndian,
		header: &tiffHeaderInfo{directoryOffset: 0x1234},
	}
	h.rebuild()

	want := []byte{0x49, 0x49, 0x2a, 0x00, 0x34, 0x12, 0x00, 0x00}
	if !bytes.Equal(h.Data, want) {
		t.Fatalf("little-endian header is % x, want % x", h.Data, want)
	}

	// Back-patching the offset and rebuilding again must be reflected.
	h.header.directoryOffset = 0x56
	h.rebuild()
	if h.Data[4] != 0x56 {
		t.Fatalf("rebuilt header kept stale directory offset: % x", h.Data)
	}

	big := &Segment{
		Kind:   KindTiffHeader,
		Order:  binary.BigEndian,
		header: &tiffHeaderInfo{directoryOffset: 8},
	}
	big.rebuild()
	if !bytes.Equal(big.Data[:4], []byte{0x4d, 0x4d, 0x00, 0x2a}) {
		t.Fatalf("big-endian header is % x", big.Data)
	}
}

func TestRebuildUShortVector(t *testing.T) {
	s := &Segment{
		Kind:   KindUShortVector,
		Order:  binary.LittleEndian,
		shorts: []uint16{8, 8, 8},
	}
	s.rebuild()

	want := []byte{8, 0, 8, 0, 8, 0}
	if !bytes.Equal(s.Data, want) || s.Size != 6 {
		t.Fatalf("short vector rebuilt as % x", s.Data)
	}
}

func TestRebuildDirectory(t *testing.T) {
	entries := []dirEntry{
		newShortEntry(tagCompression, typeUShort, 1, 7, 0, binary.LittleEndian),
		newLongEntry(tagStripOffsets, typeULong, 1, 0x100, binary.LittleEndian),
	}
	s := &Segment{
		Kind:      KindTiffDirectory,
		Order:     binary.LittleEndian,
		directory: &tiffDirInfo{entries: entries},
	}
	s.rebuild()

	if s.Size != 2+2*12+4 {
		t.Fatalf("directory size is %d, want %d", s.Size, 2+2*12+4)
	}
	if got := binary.LittleEndian.Uint16(s.Data[0:2]); got != 2 {
		t.Fatalf("entry count serialized as %d", got)
	}
	if got := binary.LittleEndian.Uint32(s.Data[len(s.Data)-4:]); got != 0 {
		t.Fatalf("next-directory offset serialized as %d, want 0", got)
	}

	var e dirEntry
	e.initFromMemory(s.Data[2:14], binary.LittleEndian)
	if e.tag != tagCompression || e.intValue() != 7 {
		t.Fatalf("first entry round-tripped as tag %d value %d", e.tag, e.intValue())
	}
}
