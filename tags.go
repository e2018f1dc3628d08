package jpegtiff

// TIFF/Exif tag constants. Only the tags the planner and the dump output
// care about are named; anything else is shown by number.
const (
	tagImageWidth                = 0x0100
	tagImageLength               = 0x0101
	tagBitsPerSample             = 0x0102
	tagCompression               = 0x0103
	tagPhotometricInterpretation = 0x0106
	tagImageDescription          = 0x010E
	tagMake                      = 0x010F
	tagModel                     = 0x0110
	tagStripOffsets              = 0x0111
	tagOrientation               = 0x0112
	tagSamplesPerPixel           = 0x0115
	tagRowsPerStrip              = 0x0116
	tagStripByteCounts           = 0x0117
	tagPlanarConfig              = 0x011C
	tagSoftware                  = 0x0131
	tagDateTime                  = 0x0132
	tagArtist                    = 0x013B
	tagTileWidth                 = 0x0142
	tagTileLength                = 0x0143
	tagTileOffsets               = 0x0144
	tagTileByteCounts            = 0x0145
	tagSubIFDs                   = 0x014A
	tagJPEGTables                = 0x015B
	tagYCbCrSubSampling          = 0x0212
	tagCopyright                 = 0x8298
	tagExposureTime              = 0x829A
	tagExifIFD                   = 0x8769
	tagIccProfile                = 0x8773
	tagGPSIFD                    = 0x8825
	tagMakerNote                 = 0x927C
	tagExifPixelXDimension       = 0xA002
	tagExifPixelYDimension       = 0xA003
	tagInteroperabilityIFD       = 0xA005
)

var tagNames = map[uint16]string{
	tagImageWidth:                "ImageWidth",
	tagImageLength:               "ImageLength",
	tagBitsPerSample:             "BitsPerSample",
	tagCompression:               "Compression",
	tagPhotometricInterpretation: "PhotometricInterpretation",
	tagImageDescription:          "ImageDescription",
	tagMake:                      "Make",
	tagModel:                     "Model",
	tagStripOffsets:              "StripOffsets",
	tagOrientation:               "Orientation",
	tagSamplesPerPixel:           "SamplesPerPixel",
	tagRowsPerStrip:              "RowsPerStrip",
	tagStripByteCounts:           "StripByteCounts",
	tagPlanarConfig:              "PlanarConfig",
	tagSoftware:                  "Software",
	tagDateTime:                  "DateTime",
	tagArtist:                    "Artist",
	tagTileWidth:                 "TileWidth",
	tagTileLength:                "TileLength",
	tagTileOffsets:               "TileOffsets",
	tagTileByteCounts:            "TileByteCounts",
	tagSubIFDs:                   "SubIFDs",
	tagJPEGTables:                "JPEGTables",
	tagYCbCrSubSampling:          "YCbCrSubSampling",
	tagCopyright:                 "Copyright",
	tagExposureTime:              "ExposureTime",
	tagExifIFD:                   "ExifIFD",
	tagIccProfile:                "IccProfile",
	tagGPSIFD:                    "GPSIFD",
	tagMakerNote:                 "MakerNote",
	tagExifPixelXDimension:       "PixelXDimension",
	tagExifPixelYDimension:       "PixelYDimension",
	tagInteroperabilityIFD:       "InteroperabilityIFD",
}

// TIFF datatype codes.
const (
	typeUByte     = 1
	typeAscii     = 2
	typeUShort    = 3
	typeULong     = 4
	typeRational  = 5
	typeSByte     = 6
	typeXByte     = 7 // undefined
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var datatypeNames = map[uint16]string{
	typeUByte:     "Ubyte",
	typeAscii:     "Ascii",
	typeUShort:    "Ushort",
	typeULong:     "Ulong",
	typeRational:  "Rational",
	typeSByte:     "Sbyte",
	typeXByte:     "Xbyte",
	typeSShort:    "Sshort",
	typeSLong:     "Slong",
	typeSRational: "SRational",
	typeFloat:     "Float",
	typeDouble:    "Double",
}

// datatypeLength returns the element size in bytes of a TIFF datatype, or 0
// for a code outside the defined range.
func datatypeLength(datatype uint16) uint32 {
	switch datatype {
	case typeUByte, typeAscii, typeSByte, typeXByte:
		return 1
	case typeUShort, typeSShort:
		return 2
	case typeULong, typeSLong, typeFloat:
		return 4
	case typeRational, typeSRational, typeDouble:
		return 8
	}

	return 0
}
