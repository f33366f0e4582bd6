// Package imgutil recognises camera and image containers by their leading
// bytes.
package imgutil

import (
	"bytes"
	"errors"
	"io"
)

// HeaderSize is the number of leading bytes DetectHeader needs.
const HeaderSize = 8

// Kind identifies a container type by its leading signature.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindTIFF
	KindX3F
	KindRAF
	KindORF
	KindRW2
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindTIFF:
		return "tiff"
	case KindX3F:
		return "x3f"
	case KindRAF:
		return "raf"
	case KindORF:
		return "orf"
	case KindRW2:
		return "rw2"
	default:
		return "unknown"
	}
}

// Proprietary reports whether k is a vendor raw layout that needs its own
// decoder rather than a TIFF, JPEG or PNG reader.
func (k Kind) Proprietary() bool {
	switch k {
	case KindX3F, KindRAF, KindORF, KindRW2:
		return true
	default:
		return false
	}
}

// signatures are checked in order; the first prefix match wins.
var signatures = []struct {
	prefix []byte
	kind   Kind
}{
	{[]byte{0xff, 0xd8, 0xff}, KindJPEG},
	{[]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, KindPNG},
	{[]byte("IIRO"), KindORF},
	{[]byte("IIRS"), KindORF},
	{[]byte("MMOR"), KindORF},
	{[]byte{'I', 'I', 'U', 0x00}, KindRW2},
	{[]byte{0x49, 0x49, 0x2a, 0x00}, KindTIFF},
	{[]byte{0x4d, 0x4d, 0x00, 0x2a}, KindTIFF},
	{[]byte("FOVb"), KindX3F},
	{[]byte("FUJIFILM"), KindRAF},
}

// DetectHeader inspects the first HeaderSize bytes of a file for known
// signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < HeaderSize {
		return KindUnknown, errors.New("header too short")
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(header, sig.prefix) {
			return sig.kind, nil
		}
	}
	return KindUnknown, nil
}

// SniffReader reads the first HeaderSize bytes from r and determines its
// type.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}
	return DetectHeader(header)
}
