package jpegtiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// iccSignature is the header an APP2 payload must carry to count as an ICC
// profile chunk: marker, length, "ICC_PROFILE" with its terminator, then a
// 1-based chunk number and the total chunk count.
var iccSignature = []byte("ICC_PROFILE\x00")

// iccHeaderSize is marker+length (4) plus the signature (12) plus the two
// chunk index bytes.
const iccHeaderSize = 4 + 12 + 2

// validICCChunk reports whether an APP2 segment payload is an ICC profile
// chunk. The payload includes the leading FF E2 marker and length bytes.
func validICCChunk(data []byte) bool {
	if len(data) < iccHeaderSize+1 {
		return false
	}
	if data[0] != 0xff || data[1] != 0xe2 {
		panic("APP2 segment without its marker bytes")
	}

	return bytes.Equal(data[4:16], iccSignature)
}

// readICCProfile reassembles an ICC profile from the APP2 segments of a
// file. Chunks are concatenated in chunk-index order regardless of the
// order they appear in; every chunk must agree on the total count and every
// index must be present exactly once. Returns nil when no segment carries
// ICC data.
func readICCProfile(app2Segments []*Segment) ([]byte, error) {
	numChunks := 0
	var chunks [][]byte

	for _, seg := range app2Segments {
		d := seg.Data
		if !validICCChunk(d) {
			continue
		}

		if numChunks == 0 {
			numChunks = int(d[17])
			if numChunks == 0 {
				return nil, fmt.Errorf("chunk count is zero: %w", ErrIccInconsistent)
			}
			chunks = make([][]byte, numChunks)
		} else if numChunks != int(d[17]) {
			return nil, fmt.Errorf("chunk declares %d of %d chunks: %w", d[17], numChunks, ErrIccInconsistent)
		}

		chunkNo := int(d[16])
		if chunkNo < 1 || chunkNo > numChunks {
			return nil, fmt.Errorf("chunk number %d of %d: %w", chunkNo, numChunks, ErrIccBadIndex)
		}
		if chunks[chunkNo-1] != nil {
			return nil, fmt.Errorf("chunk number %d appears twice: %w", chunkNo, ErrIccBadIndex)
		}
		chunks[chunkNo-1] = d[iccHeaderSize:]
	}

	if numChunks == 0 {
		return nil, nil
	}

	var profile []byte
	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("chunk %d of %d never appeared: %w", i+1, numChunks, ErrIccMissingChunk)
		}
		profile = append(profile, c...)
	}

	return profile, nil
}

// dirInfo pairs an IFD entry with the external bytes its value field points
// at. external is empty when the data fits in the value field; when
// present, it is kept in the source file's byte order.
type dirInfo struct {
	entry    dirEntry
	external []byte
}

// exifInfo is the metadata extracted from an Exif APP1 payload: the
// declared byte order plus the main directory and the Exif and GPS
// sub-directories.
type exifInfo struct {
	order   binary.ByteOrder
	mainDir []dirInfo
	exifDir []dirInfo
	gpsDir  []dirInfo
}

// exifHeaderSize is marker+length (4) plus "Exif\0\0" (6); the embedded
// TIFF block starts right after.
const exifHeaderSize = 4 + 6

var exifSignature = []byte("Exif\x00\x00")

// validExifSegment reports whether an APP1 payload is an Exif block with a
// well-formed TIFF byte-order mark.
func validExifSegment(data []byte) bool {
	if len(data) < exifHeaderSize+4+4+1 {
		return false
	}
	if data[0] != 0xff || data[1] != 0xe1 {
		panic("APP1 segment without its marker bytes")
	}
	if !bytes.Equal(data[4:10], exifSignature) {
		return false
	}

	bom := data[10:14]

	return bytes.Equal(bom, []byte{0x49, 0x49, 0x2a, 0x00}) ||
		bytes.Equal(bom, []byte{0x4d, 0x4d, 0x00, 0x2a})
}

// readApp1Metadata parses the Exif APP1 segments of a file. Offsets inside
// the block are measured from the byte-order mark, so parsing works over a
// re-sliced copy whose index 0 is the BOM.
func readApp1Metadata(app1Segments []*Segment, warn warnFunc) (exifInfo, error) {
	var info exifInfo

	for _, seg := range app1Segments {
		d := seg.Data
		if !validExifSegment(d) {
			continue
		}

		if d[10] == 0x49 {
			info.order = binary.LittleEndian
		} else {
			info.order = binary.BigEndian
		}

		// Smallest plausible block: one directory with a single entry.
		dirOffset := readU32(d, 14, info.order)
		if dirOffset+18 >= uint32(len(d)) {
			return info, fmt.Errorf("0th IFD at %d in a %d-byte segment: %w", dirOffset, len(d), ErrInvalidIFDOffset)
		}

		tiffBlock := d[exifHeaderSize:]
		info.mainDir = readDirectory(tiffBlock, dirOffset, info.order, warn)

		if offset := findSubIFDOffset(info.mainDir, tagExifIFD); offset != 0 {
			if offset+2 > uint32(len(tiffBlock)) {
				return info, fmt.Errorf("Exif sub-IFD at %d: %w", offset, ErrInvalidIFDOffset)
			}
			info.exifDir = readDirectory(tiffBlock, offset, info.order, warn)
		}

		if offset := findSubIFDOffset(info.mainDir, tagGPSIFD); offset != 0 {
			if offset+2 > uint32(len(tiffBlock)) {
				return info, fmt.Errorf("GPS sub-IFD at %d: %w", offset, ErrInvalidIFDOffset)
			}
			info.gpsDir = readDirectory(tiffBlock, offset, info.order, warn)
		}
	}

	return info, nil
}

// readDirectory reads the IFD at offset into (entry, external bytes) pairs.
// External data is captured as found, byte-order conversion is left to the
// planner. Entries whose record would run past the block, or whose datatype
// is outside the TIFF range, are dropped with a warning.
func readDirectory(block []byte, offset uint32, order binary.ByteOrder, warn warnFunc) []dirInfo {
	numEntries := uint32(readU16(block, int(offset), order))
	var dir []dirInfo

	for i := uint32(0); i < numEntries; i++ {
		recordStart := offset + 2 + 12*i
		if recordStart+12 > uint32(len(block)) {
			warn("IFD at offset %d truncated after %d of %d entries", offset, i, numEntries)
			break
		}

		var e dirEntry
		e.initFromMemory(block[recordStart:recordStart+12], order)
		if e.storage == storageInvalid {
			warn("dropping IFD entry %s with unknown datatype %d", e.tagName(), e.datatype)
			continue
		}

		var external []byte
		if size := e.dataSize(); size > 4 {
			start := e.offsetField()
			if start <= uint32(len(block)) && size <= uint32(len(block))-start {
				external = block[start : start+size]
			}
			// An out-of-range pointer leaves the entry without external
			// data; the planner then has nothing to copy for it.
		}

		dir = append(dir, dirInfo{entry: e, external: external})
	}

	return dir
}

// findSubIFDOffset returns the offset stored in the entry with the given
// sub-IFD pointer tag, or 0 if the directory has no such entry.
func findSubIFDOffset(dir []dirInfo, tag uint16) uint32 {
	for i := range dir {
		if dir[i].entry.tag == tag && dir[i].entry.storage == storageOffset {
			return dir[i].entry.offsetField()
		}
	}

	return 0
}
