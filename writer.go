package jpegtiff

import (
	"bytes"
	"fmt"
	"io"
)

// Bytes serializes the segment list into the bytes of the output file.
func (l *SegmentList) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteTo flushes the segments to w in order. Every synthesized segment is
// rebuilt first, so back-patched fields (the header's directory offset) are
// current; rebuilding is idempotent for segments already materialized.
func (l *SegmentList) WriteTo(w io.Writer) (int64, error) {
	var written int64

	offset := uint32(0)
	for _, s := range l.segs {
		if s.Offset != offset {
			panic(fmt.Sprintf("segment %v at offset %d, expected %d", s.Kind, s.Offset, offset))
		}
		s.rebuild()

		n, err := w.Write(s.Data)
		written += int64(n)
		if err != nil {
			return written, err
		}
		offset += s.Size
	}

	return written, nil
}
