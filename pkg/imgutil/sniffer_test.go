package imgutil

import (
	"bytes"
	"io"
	"testing"
)

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		name        string
		header      []byte
		want        Kind
		proprietary bool
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}, KindJPEG, false},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, KindPNG, false},
		{"tiff little endian", []byte{'I', 'I', 0x2a, 0, 8, 0, 0, 0}, KindTIFF, false},
		{"tiff big endian", []byte{'M', 'M', 0, 0x2a, 0, 0, 0, 8}, KindTIFF, false},
		{"x3f", []byte{'F', 'O', 'V', 'b', 0, 0, 4, 0}, KindX3F, true},
		{"raf", []byte("FUJIFILMCCD-RAW "), KindRAF, true},
		{"orf", []byte{'I', 'I', 'R', 'O', 8, 0, 0, 0}, KindORF, true},
		{"rw2", []byte{'I', 'I', 'U', 0, 0x18, 0, 0, 0}, KindRW2, true},
		{"unknown", []byte("plaintxt"), KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectHeader(tt.header)
			if err != nil {
				t.Fatalf("DetectHeader: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got.Proprietary() != tt.proprietary {
				t.Fatalf("%v.Proprietary() = %v", got, got.Proprietary())
			}
		})
	}

	if _, err := DetectHeader([]byte{0xff, 0xd8}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestSniffReader(t *testing.T) {
	kind, err := SniffReader(bytes.NewReader([]byte("FOVb\x00\x00\x04\x00rest")))
	if err != nil {
		t.Fatalf("SniffReader: %v", err)
	}
	if kind != KindX3F || kind.String() != "x3f" {
		t.Fatalf("got %v", kind)
	}

	if _, err := SniffReader(bytes.NewReader([]byte("FOV"))); err != io.ErrUnexpectedEOF {
		t.Fatalf("short input: got %v", err)
	}
}
