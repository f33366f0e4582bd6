package config

import (
	"fmt"
	"io"
)

const usageText = `usage: %s <SWITCHES> <file1> ...
   -o <DIR>        Use <DIR> as output dir
   -jpg            Dump embedded JPG. Turn off RAW dumping
   -meta           Dump metadata. Turn off RAW dumping
   -raw            Dump RAW area undecoded
   -tiff           Dump RAW as 3x16 bit TIFF
   -dng            Dump RAW as DNG LinearRaw (default)
   -ppm-ascii      Dump RAW/color as 3x16 bit PPM/P3 (ascii)
                   NOTE: 16 bit PPM/P3 is not generally supported
   -ppm            Dump RAW/color as 3x16 bit PPM/P6 (binary)
   -histogram      Dump histogram as csv file
   -loghist        Dump histogram as csv file, with log exposure
   -color <COLOR>  Convert to RGB color
                   (sRGB, AdobeRGB, ProPhotoRGB)
   -unprocessed    Dump RAW without any preprocessing
   -qtop           Dump Quattro top layer without preprocessing
   -crop           Crop to active area
   -denoise        Denoise RAW data
   -wb <WB>        Select white balance preset
   -ocl            Use OpenCL

   -progress       Show a progress view (terminal only)
   -log <FILE>     Also write JSON logs to <FILE>
   -v              Debug logging

STRANGE STUFF
   -offset <OFF>   Offset for SD14 and older
                   NOTE: If not given, then offset is automatic
   -matrixmax <M>  Max num matrix elements in metadata (def=100)

Defaults may be preset in camextract.yaml or CAMEXTRACT_* variables.
`

// WriteUsage prints the switch summary for program name prog.
func WriteUsage(w io.Writer, prog string) {
	fmt.Fprintf(w, usageText, prog)
}
