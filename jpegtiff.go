// Package jpegtiff rewraps a baseline-DCT JPEG file as a TIFF/EP-style TIFF
// container without re-encoding the compressed pixel data. The entropy-coded
// segment of the input becomes the single TIFF strip, the quantization and
// Huffman tables become a separate tables-only JPEG stream referenced by the
// JPEGTables tag, and Exif, GPS and ICC metadata carried in APP1/APP2
// segments are surfaced in the output directory structure.
package jpegtiff

import (
	"errors"
	"fmt"
	"io"
)

// Standard error types for the rewrap pipeline.
var (
	ErrNotJPEG            = errors.New("not a JPEG file")
	ErrUnrecognizedFormat = errors.New("not a TIFF or JPEG file")
	ErrUnexpectedEOF      = errors.New("unexpected end of data")
	ErrUnsupportedFrame   = errors.New("unsupported frame type")
	ErrIccInconsistent    = errors.New("ICC profile chunk count mismatch")
	ErrIccBadIndex        = errors.New("ICC profile chunk index out of range")
	ErrIccMissingChunk    = errors.New("ICC profile chunk missing")
	ErrInvalidIFDOffset   = errors.New("invalid IFD offset")
	ErrIllegalSubsampling = errors.New("illegal subsampling factors")
)

// FileType is the result of the four-byte input discrimination.
type FileType int

const (
	FileUnknown FileType = iota
	FileJPEG
	FileTIFFLittleEndian
	FileTIFFBigEndian
)

// Options controls the rewrap pipeline. Warn receives the non-fatal
// diagnostics (stray markers inside the entropy-coded stream and similar);
// a nil Warn drops them.
type Options struct {
	Warn func(format string, args ...any)
}

type warnFunc func(format string, args ...any)

func warnOf(opts []*Options) warnFunc {
	if len(opts) > 0 && opts[0] != nil && opts[0].Warn != nil {
		return opts[0].Warn
	}

	return func(string, ...any) {}
}

// Interface to check if a reader knows its remaining length.
type readerWithLen interface {
	Len() int
}

// readAllData reads data from r, pre-allocating if the size is known.
func readAllData(r io.Reader) ([]byte, error) {
	if rl, ok := r.(readerWithLen); ok {
		size := rl.Len()
		if size > 0 {
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("failed to read input data: %w", err)
			}

			return data, nil
		}
	}

	return io.ReadAll(r)
}

// DetectFileType examines the first four bytes of data. JPEG inputs must
// lead with an APP0 (JFIF) or APP1 (Exif) marker right after SOI; TIFF
// inputs are recognized by their byte-order header.
func DetectFileType(data []byte) FileType {
	if len(data) < 4 {
		return FileUnknown
	}

	switch {
	case data[0] == 0x49 && data[1] == 0x49 && data[2] == 0x2a && data[3] == 0x00:
		return FileTIFFLittleEndian
	case data[0] == 0x4d && data[1] == 0x4d && data[2] == 0x00 && data[3] == 0x2a:
		return FileTIFFBigEndian
	case data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff && (data[3] == 0xe0 || data[3] == 0xe1):
		return FileJPEG
	}

	return FileUnknown
}

// ReadSegments parses data into its ordered segment list without converting
// anything. JPEG inputs get the full marker walk; TIFF inputs get header,
// directory chain and external data (recognized for inspection only, the
// converter does not accept them).
func ReadSegments(data []byte, opts ...*Options) (*SegmentList, error) {
	warn := warnOf(opts)
	list := &SegmentList{}

	switch DetectFileType(data) {
	case FileJPEG:
		if err := parseJPEG(data, 0, uint32(len(data)), "JPEG file", list, warn); err != nil {
			return nil, err
		}
	case FileTIFFLittleEndian, FileTIFFBigEndian:
		if err := parseTIFF(data, list, warn); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnrecognizedFormat
	}

	return list, nil
}

// Rewrap reads a JPEG stream from r and returns the bytes of the TIFF
// container wrapping it.
func Rewrap(r io.Reader, opts ...*Options) ([]byte, error) {
	data, err := readAllData(r)
	if err != nil {
		return nil, err
	}

	return RewrapBytes(data, opts...)
}

// RewrapBytes converts an in-memory JPEG file to an in-memory TIFF file.
// A TIFF input is parsed (so its structure can be inspected via the error
// path diagnostics) but refused with ErrNotJPEG: the tool wraps JPEG
// bitstreams, it does not rewrite TIFF containers.
func RewrapBytes(data []byte, opts ...*Options) ([]byte, error) {
	warn := warnOf(opts)

	list, err := ReadSegments(data, opts...)
	if err != nil {
		return nil, err
	}

	out, err := convertToTiff(list, warn)
	if err != nil {
		return nil, err
	}

	return out.Bytes()
}
