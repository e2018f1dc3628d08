package jpegtiff

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// The output container is always little-endian.
var tiffFileOrder binary.ByteOrder = binary.LittleEndian

// selectorFunc decides whether an entry from the source Exif structure is
// copied into the output.
type selectorFunc func(tag, datatype uint16) bool

// relevantExifTags keeps everything from the Exif sub-IFD except structural
// pointers, maker blobs and the pixel dimensions (the frame header is the
// authority on those in the output).
func relevantExifTags(tag, datatype uint16) bool {
	switch tag {
	case tagSubIFDs, tagMakerNote, tagExifPixelXDimension, tagExifPixelYDimension, tagInteroperabilityIFD:
		return false
	}

	return true
}

// relevantGPSTags keeps everything from the GPS sub-IFD except structural
// pointers.
func relevantGPSTags(tag, datatype uint16) bool {
	switch tag {
	case tagSubIFDs, tagInteroperabilityIFD:
		return false
	}

	return true
}

// relevantMainDirectoryTags keeps Orientation and ExposureTime, rejects
// structural pointers, and otherwise only lets ASCII entries through
// (description, make, model, artist and the like).
func relevantMainDirectoryTags(tag, datatype uint16) bool {
	switch tag {
	case tagSubIFDs, tagInteroperabilityIFD:
		return false
	case tagOrientation, tagExposureTime:
		return true
	}

	return datatype == typeAscii
}

// writeSelectedEntries walks a source (entry, external bytes) list, appends
// a ByteVector segment for every passing entry whose data exceeds four
// bytes (converting the bytes to the output order), and returns the
// rewritten entries. The returned entries belong to a directory the caller
// has yet to emit.
func writeSelectedEntries(dir []dirInfo, out *SegmentList, srcOrder binary.ByteOrder, selector selectorFunc) []dirEntry {
	var entries []dirEntry

	for i := range dir {
		e := &dir[i].entry
		if !selector(e.tag, e.datatype) {
			continue
		}

		if e.dataSize() > 4 {
			external := dir[i].external
			if len(external) == 0 {
				// The source pointer was out of range; nothing to carry.
				continue
			}
			if srcOrder != tiffFileOrder {
				elementSize := int(e.elementSize())
				if e.datatype == typeRational || e.datatype == typeSRational {
					// A rational is a pair of 4-byte integers; each half
					// reverses on its own.
					elementSize = 4
				}
				external = changeEndianness(external, elementSize)
			}

			offset := out.back().Offset + out.back().Size
			seg := &Segment{
				Kind:   KindByteVector,
				Order:  tiffFileOrder,
				Offset: offset,
				Size:   uint32(len(external)),
				Data:   external,
				Label:  e.tagName(),
			}
			out.addPadded(seg)
			entries = append(entries, newOffsetEntry(e.tag, e.datatype, e.count, offset, tiffFileOrder))
			continue
		}

		switch {
		case e.elementSize() == 1:
			entries = append(entries, newByteEntry(e.tag, e.datatype, e.count, e.fourBytes(), tiffFileOrder))
		case e.elementSize() == 2:
			v1, v2 := e.twoShorts()
			entries = append(entries, newShortEntry(e.tag, e.datatype, e.count, v1, v2, tiffFileOrder))
		case e.elementSize() == 4:
			entries = append(entries, newLongEntry(e.tag, e.datatype, e.count, e.longValue(), tiffFileOrder))
		default:
			panic("inline IFD entry with an impossible element size")
		}
	}

	return entries
}

// appendDirectory emits a TiffDirectory segment holding the given entries
// and returns its offset.
func appendDirectory(out *SegmentList, entries []dirEntry) uint32 {
	offset := out.back().Offset + out.back().Size
	seg := &Segment{
		Kind:      KindTiffDirectory,
		Order:     tiffFileOrder,
		Offset:    offset,
		directory: &tiffDirInfo{entries: entries},
	}
	seg.rebuild()
	out.addPadded(seg)

	return offset
}

// convertToTiff lays out the TIFF container for a parsed JPEG segment list:
// header, the embedded image stream, the tables-only stream, the ICC
// profile, the Exif and GPS structures, and finally the main IFD the header
// is back-patched to point at.
func convertToTiff(in *SegmentList, warn warnFunc) (*SegmentList, error) {
	segs := in.Segments()
	if len(segs) == 0 || segs[0].Kind != KindSOI {
		return nil, fmt.Errorf("the input was not a JPEG image: %w", ErrNotJPEG)
	}

	// Only baseline DCT frames can be wrapped; TIFF readers hand the strip
	// plus JPEGTables to a baseline decoder.
	for _, s := range segs {
		if s.Kind == KindSOF && s.Data[1] != 0xc0 {
			return nil, fmt.Errorf("start-of-frame marker is ff %02x, need ff c0 (baseline DCT): %w", s.Data[1], ErrUnsupportedFrame)
		}
	}

	out := &SegmentList{}

	header := &Segment{
		Kind:   KindTiffHeader,
		Order:  tiffFileOrder,
		Offset: 0,
		Size:   8,
		header: &tiffHeaderInfo{},
	}
	header.rebuild()
	offset := out.addPadded(header)

	// Embedded image: a fresh SOI, the frame/scan segments of the source in
	// order, a fresh EOI. This is the single TIFF strip.
	stripStart := offset
	var frame *frameInfo

	offset = appendBareMarker(out, KindSOI, offset)
	for _, s := range segs {
		switch s.Kind {
		case KindSOF, KindSOS, KindRestartInterval, KindImageData:
			c := s.clone()
			c.Offset = offset
			if s.Kind == KindSOF {
				frame = c.frame
			}
			offset = out.addPadded(c)
		}
	}
	offset = appendBareMarker(out, KindEOI, offset)
	stripEnd := offset

	if frame == nil {
		return nil, fmt.Errorf("no start-of-frame segment: %w", ErrNotJPEG)
	}
	numComponents := len(frame.components)
	if numComponents != 1 && numComponents <= 2 {
		return nil, fmt.Errorf("%d-component images cannot be wrapped: %w", numComponents, ErrUnsupportedFrame)
	}

	// Tables-only stream for the JPEGTables tag.
	jpegTablesStart := offset
	offset = appendBareMarker(out, KindSOI, offset)
	for _, s := range segs {
		if s.Kind == KindDQT || s.Kind == KindDHT {
			c := s.clone()
			c.Offset = offset
			offset = out.addPadded(c)
		}
	}
	offset = appendBareMarker(out, KindEOI, offset)
	jpegTablesEnd := offset

	// ICC profile, reassembled from APP2 chunks.
	var app2, app1 []*Segment
	for _, s := range segs {
		switch s.Kind {
		case KindApp2:
			app2 = append(app2, s)
		case KindApp1:
			app1 = append(app1, s)
		}
	}

	iccProfile, err := readICCProfile(app2)
	if err != nil {
		return nil, err
	}
	iccBegin := offset
	if len(iccProfile) > 0 {
		seg := &Segment{
			Kind:   KindByteVector,
			Order:  tiffFileOrder,
			Offset: offset,
			Size:   uint32(len(iccProfile)),
			Data:   iccProfile,
			Label:  "ICC profile",
		}
		offset = out.addPadded(seg)
	}
	iccEnd := offset

	// Exif metadata: external data and sub-IFDs first, then whatever main
	// directory entries survive the selector for insertion below.
	info, err := readApp1Metadata(app1, warn)
	if err != nil {
		return nil, err
	}

	var exifDirOffset, gpsDirOffset uint32
	if len(info.exifDir) > 0 {
		entries := writeSelectedEntries(info.exifDir, out, info.order, relevantExifTags)
		exifDirOffset = appendDirectory(out, entries)
	}
	if len(info.gpsDir) > 0 {
		entries := writeSelectedEntries(info.gpsDir, out, info.order, relevantGPSTags)
		gpsDirOffset = appendDirectory(out, entries)
	}

	var mainDirFromExif []dirEntry
	if len(info.mainDir) > 0 {
		mainDirFromExif = writeSelectedEntries(info.mainDir, out, info.order, relevantMainDirectoryTags)
	}
	offset = out.back().Offset + out.back().Size

	// BitsPerSample needs external storage once there are more than two
	// samples per pixel.
	bitsPerSampleOffset := offset
	if numComponents > 2 {
		shorts := make([]uint16, numComponents)
		for i := range shorts {
			shorts[i] = uint16(frame.precision)
		}
		seg := &Segment{
			Kind:   KindUShortVector,
			Order:  tiffFileOrder,
			Offset: offset,
			shorts: shorts,
			Label:  "BitsPerSample",
		}
		seg.rebuild()
		offset = out.addPadded(seg)
	}

	// Main IFD.
	header.header.directoryOffset = offset
	header.rebuild()

	entries := []dirEntry{
		newLongEntry(tagImageWidth, typeULong, 1, uint32(frame.width), tiffFileOrder),
		newLongEntry(tagImageLength, typeULong, 1, uint32(frame.height), tiffFileOrder),
		newShortEntry(tagCompression, typeUShort, 1, 7, 0, tiffFileOrder),
		newLongEntry(tagStripOffsets, typeULong, 1, stripStart, tiffFileOrder),
		newShortEntry(tagSamplesPerPixel, typeUShort, 1, uint16(numComponents), 0, tiffFileOrder),
		newLongEntry(tagStripByteCounts, typeULong, 1, stripEnd-stripStart, tiffFileOrder),
		newShortEntry(tagPlanarConfig, typeUShort, 1, 1, 0, tiffFileOrder),
		newOffsetEntry(tagJPEGTables, typeXByte, jpegTablesEnd-jpegTablesStart, jpegTablesStart, tiffFileOrder),
	}

	if numComponents > 2 {
		entries = append(entries, newOffsetEntry(tagBitsPerSample, typeUShort, uint32(numComponents), bitsPerSampleOffset, tiffFileOrder))
	} else {
		entries = append(entries, newShortEntry(tagBitsPerSample, typeUShort, 1, uint16(frame.precision), 0, tiffFileOrder))
	}

	photometric := uint16(6) // YCbCr
	if numComponents == 1 {
		photometric = 1 // MinIsBlack
	}
	entries = append(entries, newShortEntry(tagPhotometricInterpretation, typeUShort, 1, photometric, 0, tiffFileOrder))

	if numComponents > 2 {
		h, v, err := subsamplingFactors(frame)
		if err != nil {
			return nil, err
		}
		entries = append(entries, newShortEntry(tagYCbCrSubSampling, typeUShort, 2, h, v, tiffFileOrder))
	}

	entries = append(entries, mainDirFromExif...)

	if iccEnd > iccBegin {
		entries = append(entries, newOffsetEntry(tagIccProfile, typeXByte, iccEnd-iccBegin, iccBegin, tiffFileOrder))
	}
	if exifDirOffset > 0 {
		entries = append(entries, newOffsetEntry(tagExifIFD, typeULong, 1, exifDirOffset, tiffFileOrder))
	}
	if gpsDirOffset > 0 {
		entries = append(entries, newOffsetEntry(tagGPSIFD, typeULong, 1, gpsDirOffset, tiffFileOrder))
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	mainDir := &Segment{
		Kind:      KindTiffDirectory,
		Order:     tiffFileOrder,
		Offset:    offset,
		directory: &tiffDirInfo{entries: entries},
	}
	mainDir.rebuild()
	// End of file, no padding after the last segment.
	out.add(mainDir)

	return out, nil
}

// appendBareMarker emits a synthesized two-byte SOI or EOI segment.
func appendBareMarker(out *SegmentList, kind Kind, offset uint32) uint32 {
	seg := &Segment{Kind: kind, Order: binary.BigEndian, Offset: offset}
	seg.rebuild()

	return out.addPadded(seg)
}

// subsamplingFactors validates the frame's chroma layout for the
// YCbCrSubSampling tag. TIFF can only describe subsampling where Cb and Cr
// are stored at full MCU granularity (factors 1x1) and Y divides the image
// by 1, 2 or 4 in each direction.
func subsamplingFactors(frame *frameInfo) (uint16, uint16, error) {
	y, cb, cr := frame.components[0], frame.components[1], frame.components[2]

	horizontal := 0
	if cb.hSampling == 1 && cr.hSampling == 1 {
		switch y.hSampling {
		case 1, 2, 4:
			horizontal = y.hSampling
		}
	}

	vertical := 0
	if cb.vSampling == 1 && cr.vSampling == 1 {
		switch y.vSampling {
		case 1, 2, 4:
			vertical = y.vSampling
		}
	}

	if horizontal == 0 || vertical == 0 {
		return 0, 0, fmt.Errorf("Y %dx%d, Cb %dx%d, Cr %dx%d: %w",
			y.hSampling, y.vSampling, cb.hSampling, cb.vSampling, cr.hSampling, cr.vSampling,
			ErrIllegalSubsampling)
	}

	return uint16(horizontal), uint16(vertical), nil
}
