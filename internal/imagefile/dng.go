package imagefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"sort"

	"camextract/internal/container"
)

// TIFF field types used by the DNG writer.
const (
	tiffByte      = 1
	tiffASCII     = 2
	tiffShort     = 3
	tiffLong      = 4
	tiffRational  = 5
	tiffSRational = 10
)

const (
	tagNewSubfileType         = 254
	tagImageWidth             = 256
	tagImageLength            = 257
	tagBitsPerSample          = 258
	tagCompression            = 259
	tagPhotometric            = 262
	tagStripOffsets           = 273
	tagSamplesPerPixel        = 277
	tagRowsPerStrip           = 278
	tagStripByteCounts        = 279
	tagPlanarConfiguration    = 284
	tagDNGVersion             = 50706
	tagDNGBackwardVersion     = 50707
	tagUniqueCameraModel      = 50708
	tagWhiteLevel             = 50717
	tagColorMatrix1           = 50721
	tagAsShotNeutral          = 50728
	tagCalibrationIlluminant1 = 50778

	photometricLinearRaw = 34892
	illuminantD65        = 21
)

var le = binary.LittleEndian

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func shortEntry(tag uint16, values ...uint16) ifdEntry {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		le.PutUint16(data[2*i:], v)
	}
	return ifdEntry{tag: tag, typ: tiffShort, count: uint32(len(values)), data: data}
}

func longEntry(tag uint16, values ...uint32) ifdEntry {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		le.PutUint32(data[4*i:], v)
	}
	return ifdEntry{tag: tag, typ: tiffLong, count: uint32(len(values)), data: data}
}

func rationalEntry(tag, typ uint16, values ...float64) ifdEntry {
	const denom = 10000
	data := make([]byte, 8*len(values))
	for i, v := range values {
		le.PutUint32(data[8*i:], uint32(int32(math.Round(v*denom))))
		le.PutUint32(data[8*i+4:], denom)
	}
	return ifdEntry{tag: tag, typ: typ, count: uint32(len(values)), data: data}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(data)), data: data}
}

// DumpDNG writes a LinearRaw DNG holding the black-level corrected sensor
// data as 3x16 bit samples. White balance travels as AsShotNeutral instead
// of being applied to the data.
func (f *File) DumpDNG(path string, r container.Render) error {
	img, err := f.linearData(r)
	if err != nil {
		return err
	}
	g, err := f.gains(r.WhiteBalance)
	if err != nil {
		return err
	}
	model := "camextract"
	if p, ok := findProperty(f.props, "Model"); ok {
		if s, ok := p.raw.(string); ok && s != "" {
			model = s
		}
	}

	return writeFile(path, func(w io.Writer) error {
		return writeDNG(w, img, model, [3]float64{1 / g[0], 1 / g[1], 1 / g[2]})
	})
}

func writeDNG(w io.Writer, img *image.RGBA64, model string, neutral [3]float64) error {
	b := img.Bounds()
	if n := uint64(b.Dx()) * uint64(b.Dy()) * 6; n > math.MaxUint32 {
		return fmt.Errorf("image of %dx%d is too large for a single DNG strip", b.Dx(), b.Dy())
	}
	width, height := uint32(b.Dx()), uint32(b.Dy())
	stripBytes := width * height * 6

	entries := []ifdEntry{
		longEntry(tagNewSubfileType, 0),
		longEntry(tagImageWidth, width),
		longEntry(tagImageLength, height),
		shortEntry(tagBitsPerSample, 16, 16, 16),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, photometricLinearRaw),
		longEntry(tagStripOffsets, 0),
		shortEntry(tagSamplesPerPixel, 3),
		longEntry(tagRowsPerStrip, height),
		longEntry(tagStripByteCounts, stripBytes),
		shortEntry(tagPlanarConfiguration, 1),
		{tag: tagDNGVersion, typ: tiffByte, count: 4, data: []byte{1, 4, 0, 0}},
		{tag: tagDNGBackwardVersion, typ: tiffByte, count: 4, data: []byte{1, 1, 0, 0}},
		asciiEntry(tagUniqueCameraModel, model),
		longEntry(tagWhiteLevel, 65535),
		rationalEntry(tagColorMatrix1, tiffSRational, 1, 0, 0, 0, 1, 0, 0, 0, 1),
		rationalEntry(tagAsShotNeutral, tiffRational, neutral[0], neutral[1], neutral[2]),
		shortEntry(tagCalibrationIlluminant1, illuminantD65),
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header, IFD, out-of-line values, strip.
	const headerSize = 8
	ifdSize := uint32(2 + 12*len(entries) + 4)
	extOffset := headerSize + ifdSize
	var ext bytes.Buffer
	extAt := make([]uint32, len(entries))
	for i, e := range entries {
		if len(e.data) <= 4 {
			continue
		}
		extAt[i] = extOffset + uint32(ext.Len())
		ext.Write(e.data)
		if ext.Len()%2 == 1 {
			ext.WriteByte(0)
		}
	}
	stripOffset := extOffset + uint32(ext.Len())
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			le.PutUint32(entries[i].data, stripOffset)
		}
	}

	var head bytes.Buffer
	head.Write([]byte{'I', 'I', 42, 0})
	_ = binary.Write(&head, le, uint32(headerSize))
	_ = binary.Write(&head, le, uint16(len(entries)))
	for i, e := range entries {
		_ = binary.Write(&head, le, e.tag)
		_ = binary.Write(&head, le, e.typ)
		_ = binary.Write(&head, le, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			head.Write(inline[:])
		} else {
			_ = binary.Write(&head, le, extAt[i])
		}
	}
	_ = binary.Write(&head, le, uint32(0))

	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(ext.Bytes()); err != nil {
		return err
	}

	row := make([]byte, width*6)
	for y := 0; y < int(height); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < int(width); x++ {
			for c := 0; c < 3; c++ {
				v := uint16(img.Pix[off+2*c])<<8 | uint16(img.Pix[off+2*c+1])
				le.PutUint16(row[6*x+2*c:], v)
			}
			off += 8
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
