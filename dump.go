package jpegtiff

import (
	"fmt"
	"io"
)

// Diagnostic listing of a segment list. This mirrors what the conversion
// works from, so it is the quickest way to see why a file was refused.

// Dump writes one block per segment to w: kind, offset, size, label, plus
// the decoded fields of frame headers, TIFF headers and directories.
func (l *SegmentList) Dump(w io.Writer) {
	for _, s := range l.segs {
		s.dump(w)
	}
}

func (s *Segment) dump(w io.Writer) {
	fmt.Fprintf(w, "%-22s offset:%-8d size:%-8d", s.Kind, s.Offset, s.Size)
	if s.Label != "" {
		fmt.Fprintf(w, " %s", s.Label)
	}
	if len(s.Data) >= 2 && s.Data[0] == 0xff {
		fmt.Fprintf(w, " marker:ff %02x", s.Data[1])
	}
	fmt.Fprintln(w)

	switch {
	case s.frame != nil:
		f := s.frame
		fmt.Fprintf(w, "         width:%d length:%d precision:%d components:%d\n",
			f.width, f.height, f.precision, len(f.components))
		for _, c := range f.components {
			fmt.Fprintf(w, "         id:%d sampling:%dx%d qtab:%d\n", c.id, c.hSampling, c.vSampling, c.qtSelector)
		}
	case s.header != nil:
		fmt.Fprintf(w, "         directory offset: %d\n", s.header.directoryOffset)
	case s.directory != nil:
		for i := range s.directory.entries {
			e := &s.directory.entries[i]
			fmt.Fprintf(w, "         %-20s %-12s %s\n", e.tagName(), e.datatypeString(), e.valueString())
		}
		fmt.Fprintf(w, "         next directory: %d\n", s.directory.nextDirectoryOffset)
	}
}

func (e *dirEntry) datatypeString() string {
	name, ok := datatypeNames[e.datatype]
	if !ok {
		name = "?"
	}
	if e.count > 1 {
		return fmt.Sprintf("%s[%d]", name, e.count)
	}

	return name
}

func (e *dirEntry) valueString() string {
	switch e.storage {
	case storageOffset:
		return fmt.Sprintf("[offs:%d]", e.offsetField())
	case storageLong:
		return fmt.Sprintf("%d", e.longValue())
	case storageShort:
		v1, v2 := e.twoShorts()
		if e.count == 2 {
			return fmt.Sprintf("(%d, %d)", v1, v2)
		}
		return fmt.Sprintf("%d", v1)
	case storageByte:
		b := e.fourBytes()
		if e.datatype == typeAscii {
			n := e.count
			if n > 4 {
				n = 4
			}
			return fmt.Sprintf("%q", string(b[:n]))
		}
		return fmt.Sprintf("(%d, %d, %d, %d)", b[0], b[1], b[2], b[3])
	}

	return "?"
}
