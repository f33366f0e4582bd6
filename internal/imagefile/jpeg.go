package imagefile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// jpegLength walks the marker segments of the JPEG stream at the start of
// data and returns the offset just past its EOI marker. Bytes trailing the
// stream are not part of the preview.
func jpegLength(data []byte) (int, error) {
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		return 0, fmt.Errorf("invalid JPEG SOI")
	}

	i := 2
	for i+1 < len(data) {
		if data[i] != 0xff {
			return 0, fmt.Errorf("invalid JPEG marker at offset %d", i)
		}
		marker := data[i+1]

		if marker == 0xff {
			i++
			continue
		}
		if marker == 0xd9 { // EOI
			return i + 2, nil
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			i += 2
			continue
		}

		if i+4 > len(data) {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segLen < 2 {
			return 0, fmt.Errorf("invalid JPEG segment length")
		}
		i += 2 + segLen

		if marker == 0xda { // SOS: entropy-coded data up to the next real marker
			for i+1 < len(data) {
				next := data[i+1]
				if data[i] == 0xff && next != 0x00 && next != 0xff && (next < 0xd0 || next > 0xd7) {
					break
				}
				i++
			}
		}
	}
	return 0, io.ErrUnexpectedEOF
}
