package jpegtiff

import "encoding/binary"

// Kind identifies what a file segment is. The JPEG kinds come out of the
// marker classifier; the TIFF kinds are synthesized by the planner or read
// from a TIFF input.
type Kind int

const (
	KindInvalid Kind = iota
	// KindPadding is a single zero byte inserted to restore two-byte
	// alignment between segments.
	KindPadding

	// JPEG family. Segment scalars are always big-endian.
	KindSOI
	KindEOI
	KindRestartMarker
	KindApp0
	KindApp1
	KindApp2
	KindApp3
	KindOtherApp
	KindDQT
	KindSOF
	KindDHT
	KindSOS
	KindImageData
	KindNumberOfLines
	KindRestartInterval
	KindSpecial
	KindComment
	KindReserved
	KindUnknown

	// TIFF family.
	KindTiffHeader
	KindTiffDirectory
	KindByteVector
	KindUShortVector
	KindOffsetTable
	KindBytecountTable
	KindTiffImageData
)

var kindNames = map[Kind]string{
	KindPadding:         "Padding",
	KindSOI:             "JpegStartOfImage",
	KindEOI:             "JpegEndOfImage",
	KindRestartMarker:   "JpegRestartMarker",
	KindApp0:            "JpegApp0Segment",
	KindApp1:            "JpegApp1Segment",
	KindApp2:            "JpegApp2Segment",
	KindApp3:            "JpegApp3Segment",
	KindOtherApp:        "JpegOtherAppSegment",
	KindDQT:             "JpegQuantizationTable",
	KindSOF:             "JpegStartOfFrame",
	KindDHT:             "JpegHuffmanTable",
	KindSOS:             "JpegStartOfScan",
	KindImageData:       "JpegImageData",
	KindNumberOfLines:   "JpegNumberOfLines",
	KindRestartInterval: "JpegRestartInterval",
	KindSpecial:         "JpegSpecialSegment",
	KindComment:         "JpegCommentSegment",
	KindReserved:        "JpegReservedSegment",
	KindUnknown:         "JpegUnknownSegment",
	KindTiffHeader:      "TiffHeader",
	KindTiffDirectory:   "TiffDirectory",
	KindByteVector:      "TiffByteVector",
	KindUShortVector:    "TiffUShortVector",
	KindOffsetTable:     "TiffOffsetTable",
	KindBytecountTable:  "TiffBytecountTable",
	KindTiffImageData:   "TiffImageData",
}

// String returns the display name of the segment kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return "Undefined"
}

// Segment is one contiguous piece of an input or output file. Offset and
// Size describe its place in the file the segment belongs to; Data is the
// authoritative byte payload. The kind-specific fields below are cached
// projections of Data.
type Segment struct {
	Kind   Kind
	Offset uint32
	Size   uint32
	Data   []byte
	Label  string
	Order  binary.ByteOrder

	// Kind-specific projections.
	frame     *frameInfo // KindSOF
	header    *tiffHeaderInfo
	directory *tiffDirInfo
	shorts    []uint16 // KindUShortVector
	longs     []uint32 // KindOffsetTable, KindBytecountTable
}

type tiffHeaderInfo struct {
	directoryOffset uint32
}

type tiffDirInfo struct {
	entries             []dirEntry
	nextDirectoryOffset uint32
}

// clone returns a copy of the segment with its own payload slice. The caller
// usually re-homes the copy at a new offset.
func (s *Segment) clone() *Segment {
	c := *s
	c.Data = make([]byte, len(s.Data))
	copy(c.Data, s.Data)

	return &c
}

// rebuild materializes Data for synthesized segments. It is idempotent, and
// after it returns len(Data) always equals Size. Raw segments (anything read
// from an input file, image data, byte vectors) keep their payload as is.
func (s *Segment) rebuild() {
	switch s.Kind {
	case KindSOI:
		s.Data = []byte{0xff, 0xd8}
		s.Size = 2
	case KindEOI:
		s.Data = []byte{0xff, 0xd9}
		s.Size = 2
	case KindPadding:
		s.Data = []byte{0}
		s.Size = 1
	case KindTiffHeader:
		s.Data = make([]byte, 8)
		if s.Order == binary.LittleEndian {
			copy(s.Data, []byte{0x49, 0x49, 0x2a, 0x00})
		} else {
			copy(s.Data, []byte{0x4d, 0x4d, 0x00, 0x2a})
		}
		s.Order.PutUint32(s.Data[4:8], s.header.directoryOffset)
		s.Size = 8
	case KindTiffDirectory:
		n := len(s.directory.entries)
		s.Data = make([]byte, 2+12*n+4)
		s.Order.PutUint16(s.Data[0:2], uint16(n))
		for i := range s.directory.entries {
			s.directory.entries[i].writeTo(s.Data[2+12*i:], s.Order)
		}
		s.Order.PutUint32(s.Data[2+12*n:], s.directory.nextDirectoryOffset)
		s.Size = uint32(len(s.Data))
	case KindUShortVector:
		if len(s.shorts) > 0 {
			s.Data = make([]byte, 2*len(s.shorts))
			for i, v := range s.shorts {
				s.Order.PutUint16(s.Data[2*i:], v)
			}
			s.Size = uint32(len(s.Data))
		}
	case KindOffsetTable, KindBytecountTable:
		if len(s.longs) > 0 {
			s.Data = make([]byte, 4*len(s.longs))
			for i, v := range s.longs {
				s.Order.PutUint32(s.Data[4*i:], v)
			}
			s.Size = uint32(len(s.Data))
		}
	}

	if uint32(len(s.Data)) != s.Size {
		panic("segment payload length does not match declared size")
	}
}

// SegmentList is an ordered, append-only layout of segments. After every
// append the next free offset equals the last segment's offset plus its
// size.
type SegmentList struct {
	segs []*Segment
}

// Segments returns the segments in file order.
func (l *SegmentList) Segments() []*Segment {
	return l.segs
}

func (l *SegmentList) back() *Segment {
	return l.segs[len(l.segs)-1]
}

// add appends a segment and returns the next free offset.
func (l *SegmentList) add(s *Segment) uint32 {
	l.segs = append(l.segs, s)

	return s.Offset + s.Size
}

// addPadded appends a segment and, when the next free offset would be odd,
// a one-byte padding segment after it. TIFF readers expect word-aligned
// values, so every planner append goes through here except the final IFD.
func (l *SegmentList) addPadded(s *Segment) uint32 {
	next := l.add(s)
	if next%2 != 0 {
		pad := &Segment{Kind: KindPadding, Offset: next, Size: 1, Order: s.Order}
		pad.rebuild()
		next = l.add(pad)
	}

	return next
}
