package jpegtiff

import (
	"encoding/binary"
	"fmt"
)

// classifyMarker maps the second byte of a JPEG marker to a segment kind.
// Everything returned here is a length-prefixed segment; SOI, EOI and the
// restart markers are stand-alone and handled by the caller.
func classifyMarker(marker byte) Kind {
	switch {
	case marker == 0xc4:
		return KindDHT
	case marker == 0xcc:
		// Arithmetic conditioning table.
		return KindSpecial
	case marker == 0xc8:
		return KindReserved
	case marker >= 0xc0 && marker <= 0xcf:
		return KindSOF
	case marker == 0xda:
		return KindSOS
	case marker == 0xdb:
		return KindDQT
	case marker == 0xdc:
		return KindNumberOfLines
	case marker == 0xdd:
		return KindRestartInterval
	case marker == 0xde || marker == 0xdf:
		// Hierarchical progression, expand reference components.
		return KindSpecial
	case marker == 0xe0:
		return KindApp0
	case marker == 0xe1:
		return KindApp1
	case marker == 0xe2:
		return KindApp2
	case marker == 0xe3:
		return KindApp3
	case marker >= 0xe4 && marker <= 0xef:
		return KindOtherApp
	case marker == 0xfe:
		return KindComment
	case marker == 0x01:
		// TEM, for temporary private use in arithmetic coding.
		return KindSpecial
	case (marker > 0x02 && marker <= 0xbf) || (marker >= 0xf0 && marker <= 0xfd):
		return KindReserved
	}

	return KindUnknown
}

// parseJPEG walks the JPEG stream in data[start:start+length] and appends a
// typed segment for every marker plus one segment per entropy-coded data
// run. It is also used for JPEG sections embedded inside a TIFF file, which
// is what start/length and the label are for.
func parseJPEG(data []byte, start, length uint32, label string, list *SegmentList, warn warnFunc) error {
	end := start + length
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}

	if start+2 > end || data[start] != 0xff || data[start+1] != 0xd8 {
		return ErrNotJPEG
	}
	list.add(&Segment{
		Kind:   KindSOI,
		Order:  binary.BigEndian,
		Offset: start,
		Size:   2,
		Data:   data[start : start+2],
		Label:  label,
	})

	pos := start + 2
	for {
		if pos+2 > end {
			return fmt.Errorf("no end-of-image marker: %w", ErrUnexpectedEOF)
		}

		if data[pos] != 0xff {
			warn("expected marker at offset %d, found byte %#02x", pos, data[pos])
			return nil
		}

		marker := data[pos+1]
		switch {
		case marker == 0xd9:
			list.add(&Segment{
				Kind:   KindEOI,
				Order:  binary.BigEndian,
				Offset: pos,
				Size:   2,
				Data:   data[pos : pos+2],
				Label:  label,
			})

			return nil
		case marker == 0xd8:
			// Some cameras drop a second compressed image near the end of
			// the file. Record the nested start and keep walking.
			list.add(&Segment{
				Kind:   KindSOI,
				Order:  binary.BigEndian,
				Offset: pos,
				Size:   2,
				Data:   data[pos : pos+2],
				Label:  "NESTED SEGMENT",
			})
			pos += 2
		case marker >= 0xd0 && marker <= 0xd7:
			// A restart marker outside the scan data carries no payload.
			list.add(&Segment{
				Kind:   KindRestartMarker,
				Order:  binary.BigEndian,
				Offset: pos,
				Size:   2,
				Data:   data[pos : pos+2],
			})
			pos += 2
		default:
			seg, err := readSizedSegment(data, pos, end, classifyMarker(marker))
			if err != nil {
				return err
			}
			list.add(seg)
			pos += seg.Size

			if seg.Kind == KindSOS {
				next, err := scanImageData(data, pos, end, list, warn)
				if err != nil {
					return err
				}
				pos = next
			}
		}
	}
}

// readSizedSegment reads a length-prefixed segment at pos: two marker
// bytes, a 16-bit big-endian length L covering itself, then L-2 payload
// bytes. The segment spans 2+L bytes of file.
func readSizedSegment(data []byte, pos, end uint32, kind Kind) (*Segment, error) {
	if pos+4 > end {
		return nil, fmt.Errorf("truncated segment at offset %d: %w", pos, ErrUnexpectedEOF)
	}

	length := uint32(binary.BigEndian.Uint16(data[pos+2:pos+4])) + 2
	if length < 4 || pos+length > end {
		return nil, fmt.Errorf("segment at offset %d overruns input: %w", pos, ErrUnexpectedEOF)
	}

	seg := &Segment{
		Kind:   kind,
		Order:  binary.BigEndian,
		Offset: pos,
		Size:   length,
		Data:   data[pos : pos+length],
	}

	if kind == KindSOF {
		frame, err := parseFrameHeader(seg.Data)
		if err != nil {
			return nil, err
		}
		seg.frame = frame
	}

	return seg, nil
}

// scanImageData consumes the entropy-coded stream that follows an SOS
// segment. A 0xFF 0x00 pair is a stuffed data byte, restart markers stay
// inside the run, and the run ends right before the EOI marker, which is
// left for the caller. Returns the offset of the terminating marker.
func scanImageData(data []byte, start, end uint32, list *SegmentList, warn warnFunc) (uint32, error) {
	pos := start
	for {
		if pos >= end {
			return 0, fmt.Errorf("entropy-coded data not terminated: %w", ErrUnexpectedEOF)
		}

		if data[pos] != 0xff {
			pos++
			continue
		}

		if pos+2 > end {
			return 0, fmt.Errorf("entropy-coded data not terminated: %w", ErrUnexpectedEOF)
		}

		next := data[pos+1]
		switch {
		case next == 0x00:
			// Stuffed 0xFF data byte.
			pos += 2
		case next == 0xd9:
			list.add(&Segment{
				Kind:   KindImageData,
				Order:  binary.BigEndian,
				Offset: start,
				Size:   pos - start,
				Data:   data[start:pos],
			})

			return pos, nil
		case next >= 0xd0 && next <= 0xd7:
			// Restart marker, part of the data run.
			pos += 2
		default:
			warn("marker ff %02x appeared in jpeg image data stream", next)
			pos += 2
		}
	}
}

// componentInfo describes one SOF frame component.
type componentInfo struct {
	id         int
	hSampling  int
	vSampling  int
	qtSelector int
}

// frameInfo holds the fields of a start-of-frame segment.
type frameInfo struct {
	precision  int
	width      int
	height     int
	components []componentInfo
}

// parseFrameHeader extracts the SOF fields from a full frame segment
// (marker and length prefix included). The sampling byte packs the
// horizontal factor in the high nibble and the vertical factor in the low
// nibble.
func parseFrameHeader(data []byte) (*frameInfo, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("truncated frame header: %w", ErrUnexpectedEOF)
	}

	f := &frameInfo{
		precision: int(data[4]),
		height:    int(binary.BigEndian.Uint16(data[5:7])),
		width:     int(binary.BigEndian.Uint16(data[7:9])),
	}

	numComponents := int(data[9])
	if len(data) != 10+3*numComponents {
		return nil, fmt.Errorf("frame header length does not match component count: %w", ErrUnexpectedEOF)
	}

	for i := 0; i < numComponents; i++ {
		sampling := data[11+3*i]
		f.components = append(f.components, componentInfo{
			id:         int(data[10+3*i]),
			hSampling:  int(sampling >> 4),
			vSampling:  int(sampling & 0x0f),
			qtSelector: int(data[12+3*i]),
		})
	}

	return f, nil
}
