package jpegtiff

import (
	"encoding/binary"
	"fmt"
)

// TIFF input handling. A TIFF file is parsed into the same segment list the
// JPEG parser produces so its structure can be inspected; embedded JPEG
// sections (JPEGTables data, JPEG-compressed strips or tiles) are walked
// with the JPEG parser. The converter does not accept TIFF-origin lists.

// parseTIFF reads the header and the linked directory chain of a TIFF file.
func parseTIFF(data []byte, list *SegmentList, warn warnFunc) error {
	var order binary.ByteOrder
	switch DetectFileType(data) {
	case FileTIFFLittleEndian:
		order = binary.LittleEndian
	case FileTIFFBigEndian:
		order = binary.BigEndian
	default:
		return ErrUnrecognizedFormat
	}

	if len(data) < 8 {
		return fmt.Errorf("truncated TIFF header: %w", ErrUnexpectedEOF)
	}

	header := &Segment{
		Kind:   KindTiffHeader,
		Order:  order,
		Offset: 0,
		Size:   8,
		Data:   data[0:8],
		header: &tiffHeaderInfo{directoryOffset: order.Uint32(data[4:8])},
	}
	list.add(header)

	return readTiffDirectories(data, header.header.directoryOffset, order, list, warn)
}

// readTiffDirectories follows the next-directory links, appending one
// TiffDirectory segment per IFD plus segments for the external data its
// entries reference.
func readTiffDirectories(data []byte, offset uint32, order binary.ByteOrder, list *SegmentList, warn warnFunc) error {
	for offset > 0 {
		if offset+2 > uint32(len(data)) {
			return fmt.Errorf("directory at offset %d: %w", offset, ErrInvalidIFDOffset)
		}

		numEntries := uint32(order.Uint16(data[offset : offset+2]))
		size := 12*numEntries + 6
		if offset+size > uint32(len(data)) {
			return fmt.Errorf("directory at offset %d overruns file: %w", offset, ErrUnexpectedEOF)
		}

		dir := &tiffDirInfo{}
		for i := uint32(0); i < numEntries; i++ {
			var e dirEntry
			e.initFromMemory(data[offset+2+12*i:offset+2+12*i+12], order)
			dir.entries = append(dir.entries, e)
		}
		dir.nextDirectoryOffset = order.Uint32(data[offset+2+12*numEntries:])

		seg := &Segment{
			Kind:      KindTiffDirectory,
			Order:     order,
			Offset:    offset,
			Size:      size,
			Data:      data[offset : offset+size],
			directory: dir,
		}
		list.add(seg)

		if err := readExternalData(data, dir, order, list, warn); err != nil {
			return err
		}

		offset = dir.nextDirectoryOffset
	}

	return nil
}

// readExternalData appends segments for the data a directory's entries
// point out of the IFD: sample layout tables, the JPEGTables stream and the
// compressed image data itself. A single JPEG-compressed strip or tile is
// re-parsed as an embedded JPEG section.
func readExternalData(data []byte, dir *tiffDirInfo, order binary.ByteOrder, list *SegmentList, warn warnFunc) error {
	var stripOffsets, stripByteCounts, tileOffsets, tileByteCounts []uint32
	compression := uint32(0)

	for i := range dir.entries {
		e := &dir.entries[i]
		switch e.tag {
		case tagBitsPerSample:
			if e.dataSize() > 4 {
				if err := addTiffVector(data, e, KindUShortVector, order, list); err != nil {
					return err
				}
			}
		case tagStripOffsets:
			if len(tileOffsets) > 0 || len(stripOffsets) > 0 {
				warn("both strip and tile offsets present, or StripOffsets repeated")
			}
			stripOffsets = readNumericVector(data, e, order)
			if e.dataSize() > 4 {
				if err := addTiffVector(data, e, KindOffsetTable, order, list); err != nil {
					return err
				}
			}
		case tagStripByteCounts:
			stripByteCounts = readNumericVector(data, e, order)
			if e.dataSize() > 4 {
				if err := addTiffVector(data, e, KindBytecountTable, order, list); err != nil {
					return err
				}
			}
		case tagTileOffsets:
			tileOffsets = readNumericVector(data, e, order)
			if e.dataSize() > 4 {
				if err := addTiffVector(data, e, KindOffsetTable, order, list); err != nil {
					return err
				}
			}
		case tagTileByteCounts:
			tileByteCounts = readNumericVector(data, e, order)
			if e.dataSize() > 4 {
				if err := addTiffVector(data, e, KindBytecountTable, order, list); err != nil {
					return err
				}
			}
		case tagCompression:
			if e.storage == storageShort || e.storage == storageLong {
				compression = e.intValue()
			}
		case tagJPEGTables:
			if e.storage == storageOffset {
				if err := parseJPEG(data, e.offsetField(), e.dataSize(), "JPEG tables in TIFF file", list, warn); err != nil {
					return err
				}
			}
		}
	}

	jpegCompressed := compression == 6 || compression == 7
	switch {
	case jpegCompressed && len(tileOffsets) == 1 && len(tileByteCounts) == 1:
		return parseJPEG(data, tileOffsets[0], tileByteCounts[0], "JPEG imagedata in TIFF file", list, warn)
	case jpegCompressed && len(stripOffsets) == 1 && len(stripByteCounts) == 1:
		return parseJPEG(data, stripOffsets[0], stripByteCounts[0], "JPEG imagedata in TIFF file", list, warn)
	case len(tileOffsets) > 0 && len(tileOffsets) == len(tileByteCounts):
		return addImageData(data, tileOffsets, tileByteCounts, order, list)
	case len(stripOffsets) > 0 && len(stripOffsets) == len(stripByteCounts):
		return addImageData(data, stripOffsets, stripByteCounts, order, list)
	}

	return nil
}

func addImageData(data []byte, offsets, counts []uint32, order binary.ByteOrder, list *SegmentList) error {
	for i := range offsets {
		if offsets[i] > uint32(len(data)) || counts[i] > uint32(len(data))-offsets[i] {
			return fmt.Errorf("image data block %d overruns file: %w", i, ErrUnexpectedEOF)
		}
		list.add(&Segment{
			Kind:   KindTiffImageData,
			Order:  order,
			Offset: offsets[i],
			Size:   counts[i],
			Data:   data[offsets[i] : offsets[i]+counts[i]],
		})
	}

	return nil
}

// addTiffVector appends a segment for an entry's external value array.
func addTiffVector(data []byte, e *dirEntry, kind Kind, order binary.ByteOrder, list *SegmentList) error {
	offset, size := e.offsetField(), e.dataSize()
	if offset > uint32(len(data)) || size > uint32(len(data))-offset {
		return fmt.Errorf("%s data overruns file: %w", e.tagName(), ErrUnexpectedEOF)
	}

	list.add(&Segment{
		Kind:   kind,
		Order:  order,
		Offset: offset,
		Size:   size,
		Data:   data[offset : offset+size],
		Label:  e.tagName(),
	})

	return nil
}

// readNumericVector returns the integer values of an entry, whether inline
// or external. Used for the strip and tile layout tables.
func readNumericVector(data []byte, e *dirEntry, order binary.ByteOrder) []uint32 {
	elementSize := e.elementSize()

	if e.dataSize() <= 4 {
		switch e.storage {
		case storageByte:
			b := e.fourBytes()
			out := make([]uint32, 0, e.count)
			for i := uint32(0); i < e.count && i < 4; i++ {
				out = append(out, uint32(b[i]))
			}
			return out
		case storageShort:
			v1, v2 := e.twoShorts()
			if e.count == 2 {
				return []uint32{uint32(v1), uint32(v2)}
			}
			return []uint32{uint32(v1)}
		case storageLong:
			return []uint32{e.longValue()}
		}

		return nil
	}

	offset, size := e.offsetField(), e.dataSize()
	if offset > uint32(len(data)) || size > uint32(len(data))-offset {
		return nil
	}

	out := make([]uint32, 0, e.count)
	for i := uint32(0); i < e.count; i++ {
		switch elementSize {
		case 1:
			out = append(out, uint32(data[offset+i]))
		case 2:
			out = append(out, uint32(order.Uint16(data[offset+2*i:])))
		case 4:
			out = append(out, order.Uint32(data[offset+4*i:]))
		default:
			return nil
		}
	}

	return out
}
