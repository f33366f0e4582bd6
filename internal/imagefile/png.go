package imagefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// pngTextProperties collects the keyword/value pairs of tEXt chunks. Keywords
// of compressed and international text chunks are listed without a value.
// Chunks claiming more than size bytes are rejected.
func pngTextProperties(rs io.ReadSeeker, size int64) ([]Property, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	br := bufio.NewReader(rs)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("invalid PNG signature")
	}

	var props []Property
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return props, nil
			}
			return props, err
		}
		length := binary.BigEndian.Uint32(lenBuf)
		if int64(length) > size {
			return props, fmt.Errorf("PNG chunk length %d exceeds file size %d", length, size)
		}

		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(br, chunkType); err != nil {
			return props, err
		}
		chunkName := string(chunkType)

		switch chunkName {
		case "tEXt", "zTXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return props, err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return props, err
			}
			key, value, ok := bytes.Cut(data, []byte{0})
			if !ok || len(key) == 0 {
				continue
			}
			p := Property{Name: string(key), IFD: chunkName, raw: ""}
			if chunkName == "tEXt" {
				p.raw = string(value)
			}
			props = append(props, p)
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return props, err
			}
		}

		if chunkName == "IEND" {
			return props, nil
		}
	}
}
