package jpegtiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

// Fixture helpers shared by the parser, metadata and conversion tests. All
// fixtures are assembled byte by byte so every offset in the assertions is
// known.

// markerSegment builds a length-prefixed JPEG segment: marker, 16-bit
// big-endian length covering itself, payload.
func markerSegment(marker byte, payload []byte) []byte {
	seg := []byte{0xff, marker, 0, 0}
	binary.BigEndian.PutUint16(seg[2:4], uint16(len(payload)+2))

	return append(seg, payload...)
}

// sofSegment builds a start-of-frame segment. Each component is id,
// packed sampling byte (horizontal high nibble, vertical low nibble) and
// quantization table selector.
func sofSegment(marker byte, precision, width, height int, components ...[3]byte) []byte {
	payload := []byte{
		byte(precision),
		byte(height >> 8), byte(height),
		byte(width >> 8), byte(width),
		byte(len(components)),
	}
	for _, c := range components {
		payload = append(payload, c[0], c[1], c[2])
	}

	return markerSegment(marker, payload)
}

// sosSegment builds a start-of-scan header for the given component ids.
func sosSegment(componentIDs ...byte) []byte {
	payload := []byte{byte(len(componentIDs))}
	for _, id := range componentIDs {
		payload = append(payload, id, 0x00)
	}
	payload = append(payload, 0x00, 0x3f, 0x00)

	return markerSegment(0xda, payload)
}

// jfifApp0 is a minimal JFIF APP0 payload.
func jfifApp0() []byte {
	return markerSegment(0xe0, []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
}

// dqtSegment builds a quantization table segment for table 0 with all
// coefficients set to 1.
func dqtSegment() []byte {
	payload := make([]byte, 65)
	for i := 1; i < 65; i++ {
		payload[i] = 1
	}

	return markerSegment(0xdb, payload)
}

// dhtSegment builds a Huffman table segment with a single 1-bit code.
func dhtSegment(class byte) []byte {
	payload := make([]byte, 0, 18)
	payload = append(payload, class)
	counts := make([]byte, 16)
	counts[0] = 1
	payload = append(payload, counts...)
	payload = append(payload, 0x00)

	return markerSegment(0xc4, payload)
}

// grayscaleJPEG assembles the minimal single-component baseline file used
// throughout the conversion tests: SOI, APP0, DQT, SOF0, DHT, SOS, ten
// bytes of entropy-coded data, EOI.
func grayscaleJPEG(extra ...[]byte) []byte {
	var buf []byte
	buf = append(buf, 0xff, 0xd8)
	buf = append(buf, jfifApp0()...)
	for _, e := range extra {
		buf = append(buf, e...)
	}
	buf = append(buf, dqtSegment()...)
	buf = append(buf, sofSegment(0xc0, 8, 8, 8, [3]byte{1, 0x11, 0})...)
	buf = append(buf, dhtSegment(0x00)...)
	buf = append(buf, sosSegment(1)...)
	buf = append(buf, entropyData...)
	buf = append(buf, 0xff, 0xd9)

	return buf
}

var entropyData = []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0x01, 0x23, 0x45}

// ycbcrJPEG assembles a three-component baseline file with the given
// sampling bytes for Y, Cb and Cr.
func ycbcrJPEG(ySampling, cbSampling, crSampling byte, extra ...[]byte) []byte {
	var buf []byte
	buf = append(buf, 0xff, 0xd8)
	buf = append(buf, jfifApp0()...)
	for _, e := range extra {
		buf = append(buf, e...)
	}
	buf = append(buf, dqtSegment()...)
	buf = append(buf, sofSegment(0xc0, 8, 16, 16,
		[3]byte{1, ySampling, 0},
		[3]byte{2, cbSampling, 1},
		[3]byte{3, crSampling, 1})...)
	buf = append(buf, dhtSegment(0x00)...)
	buf = append(buf, dhtSegment(0x10)...)
	buf = append(buf, sosSegment(1, 2, 3)...)
	buf = append(buf, entropyData...)
	buf = append(buf, 0xff, 0xd9)

	return buf
}

func parseFixture(t *testing.T, data []byte) *SegmentList {
	t.Helper()
	list := &SegmentList{}
	if err := parseJPEG(data, 0, uint32(len(data)), "", list, testWarn(t)); err != nil {
		t.Fatalf("parseJPEG failed: %v", err)
	}

	return list
}

func testWarn(t *testing.T) warnFunc {
	return func(format string, args ...any) {
		t.Logf("warning: "+format, args...)
	}
}

func kindsOf(list *SegmentList) []Kind {
	var kinds []Kind
	for _, s := range list.Segments() {
		kinds = append(kinds, s.Kind)
	}

	return kinds
}

func TestParseGrayscaleSegments(t *testing.T) {
	list := parseFixture(t, grayscaleJPEG())

	want := []Kind{KindSOI, KindApp0, KindDQT, KindSOF, KindDHT, KindSOS, KindImageData, KindEOI}
	got := kindsOf(list)
	if len(got) != len(want) {
		t.Fatalf("got %d segments %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d is %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseSegmentBounds(t *testing.T) {
	list := parseFixture(t, grayscaleJPEG())

	// Segments of a JPEG input cover the file without gaps.
	pos := uint32(0)
	for i, s := range list.Segments() {
		if s.Offset != pos {
			t.Fatalf("segment %d at offset %d, expected %d", i, s.Offset, pos)
		}
		if uint32(len(s.Data)) != s.Size {
			t.Fatalf("segment %d payload is %d bytes, declared %d", i, len(s.Data), s.Size)
		}
		pos += s.Size
	}
}

func TestParseImageDataRun(t *testing.T) {
	// Entropy data with a stuffed byte and two restart markers; the run
	// must swallow them all and stop at EOI.
	scan := []byte{0x11, 0xff, 0x00, 0x22, 0xff, 0xd0, 0x33, 0xff, 0xd7, 0x44}

	var buf []byte
	buf = append(buf, 0xff, 0xd8)
	buf = append(buf, jfifApp0()...)
	buf = append(buf, sofSegment(0xc0, 8, 8, 8, [3]byte{1, 0x11, 0})...)
	buf = append(buf, sosSegment(1)...)
	buf = append(buf, scan...)
	buf = append(buf, 0xff, 0xd9)

	list := parseFixture(t, buf)

	var imageData *Segment
	for _, s := range list.Segments() {
		if s.Kind == KindImageData {
			imageData = s
		}
	}
	if imageData == nil {
		t.Fatal("no image data segment found")
	}
	if !bytes.Equal(imageData.Data, scan) {
		t.Fatalf("image data is % x, want % x", imageData.Data, scan)
	}
}

func TestParseNotJPEG(t *testing.T) {
	list := &SegmentList{}
	err := parseJPEG([]byte{0x00, 0x01, 0x02, 0x03}, 0, 4, "", list, testWarn(t))
	if !errors.Is(err, ErrNotJPEG) {
		t.Fatalf("got %v, want ErrNotJPEG", err)
	}
}

func TestParseMissingEOI(t *testing.T) {
	data := grayscaleJPEG()
	data = data[:len(data)-2] // drop the EOI marker

	list := &SegmentList{}
	err := parseJPEG(data, 0, uint32(len(data)), "", list, testWarn(t))
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("got %v, want ErrUnexpectedEOF", err)
	}
}

func TestParseTruncatedSegment(t *testing.T) {
	var buf []byte
	buf = append(buf, 0xff, 0xd8)
	buf = append(buf, 0xff, 0xe0, 0xff, 0xff) // declares 65535 bytes that are not there

	list := &SegmentList{}
	err := parseJPEG(buf, 0, uint32(len(buf)), "", list, testWarn(t))
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("got %v, want ErrUnexpectedEOF", err)
	}
}

func TestParseFrameHeader(t *testing.T) {
	seg := sofSegment(0xc0, 12, 640, 480,
		[3]byte{1, 0x22, 0},
		[3]byte{2, 0x11, 1},
		[3]byte{3, 0x11, 1})

	frame, err := parseFrameHeader(seg)
	if err != nil {
		t.Fatalf("parseFrameHeader failed: %v", err)
	}

	if frame.precision != 12 || frame.width != 640 || frame.height != 480 {
		t.Fatalf("got precision %d size %dx%d, want 12 640x480", frame.precision, frame.width, frame.height)
	}
	if len(frame.components) != 3 {
		t.Fatalf("got %d components, want 3", len(frame.components))
	}

	y := frame.components[0]
	if y.id != 1 || y.hSampling != 2 || y.vSampling != 2 || y.qtSelector != 0 {
		t.Fatalf("Y component parsed as %+v", y)
	}
	cb := frame.components[1]
	if cb.hSampling != 1 || cb.vSampling != 1 || cb.qtSelector != 1 {
		t.Fatalf("Cb component parsed as %+v", cb)
	}
}

func TestParseFrameHeaderVerticalNibble(t *testing.T) {
	// The vertical factor is the full low nibble, not just its low three
	// bits: a (hypothetical) factor of 8 must come through as 8.
	seg := sofSegment(0xc0, 8, 8, 8, [3]byte{1, 0x18, 0})

	frame, err := parseFrameHeader(seg)
	if err != nil {
		t.Fatalf("parseFrameHeader failed: %v", err)
	}
	if frame.components[0].vSampling != 8 {
		t.Fatalf("vertical sampling is %d, want 8", frame.components[0].vSampling)
	}
}

func TestParseFrameHeaderShortPayload(t *testing.T) {
	seg := markerSegment(0xc0, []byte{8, 0, 8, 0, 8, 1, 1}) // component bytes missing

	if _, err := parseFrameHeader(seg); err == nil {
		t.Fatal("expected an error for a truncated frame header")
	}
}

func TestParseMarkerClassification(t *testing.T) {
	cases := []struct {
		marker byte
		want   Kind
	}{
		{0xc0, KindSOF},
		{0xc2, KindSOF},
		{0xc4, KindDHT},
		{0xc8, KindReserved},
		{0xcc, KindSpecial},
		{0xda, KindSOS},
		{0xdb, KindDQT},
		{0xdc, KindNumberOfLines},
		{0xdd, KindRestartInterval},
		{0xde, KindSpecial},
		{0xdf, KindSpecial},
		{0xe0, KindApp0},
		{0xe1, KindApp1},
		{0xe2, KindApp2},
		{0xe3, KindApp3},
		{0xe7, KindOtherApp},
		{0xef, KindOtherApp},
		{0xfe, KindComment},
		{0x01, KindSpecial},
		{0x45, KindReserved},
		{0xf0, KindReserved},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("ff%02x", c.marker), func(t *testing.T) {
			if got := classifyMarker(c.marker); got != c.want {
				t.Fatalf("marker ff %02x classified as %v, want %v", c.marker, got, c.want)
			}
		})
	}
}

func TestParseRestartInterval(t *testing.T) {
	dri := markerSegment(0xdd, []byte{0x00, 0x04})

	var buf []byte
	buf = append(buf, 0xff, 0xd8)
	buf = append(buf, jfifApp0()...)
	buf = append(buf, dri...)
	buf = append(buf, sofSegment(0xc0, 8, 8, 8, [3]byte{1, 0x11, 0})...)
	buf = append(buf, sosSegment(1)...)
	buf = append(buf, entropyData...)
	buf = append(buf, 0xff, 0xd9)

	list := parseFixture(t, buf)
	found := false
	for _, s := range list.Segments() {
		if s.Kind == KindRestartInterval {
			found = true
			if !bytes.Equal(s.Data, dri) {
				t.Fatalf("restart interval payload is % x, want % x", s.Data, dri)
			}
		}
	}
	if !found {
		t.Fatal("no restart interval segment found")
	}
}
