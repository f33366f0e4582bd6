package config

import "fmt"

// Kind selects what is written for the sensor data.
type Kind int

const (
	KindDNG Kind = iota
	KindRaw
	KindTIFF
	KindPPMASCII
	KindPPMBinary
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindDNG:
		return "dng"
	case KindRaw:
		return "raw"
	case KindTIFF:
		return "tiff"
	case KindPPMASCII:
		return "ppm-ascii"
	case KindPPMBinary:
		return "ppm"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// ColorEncoding selects the color rendering applied to decoded sensor data.
type ColorEncoding int

const (
	ColorNone ColorEncoding = iota
	ColorSRGB
	ColorAdobeRGB
	ColorProPhotoRGB
	ColorUnprocessed
	ColorQuattroTop
)

func (c ColorEncoding) String() string {
	switch c {
	case ColorNone:
		return "none"
	case ColorSRGB:
		return "sRGB"
	case ColorAdobeRGB:
		return "AdobeRGB"
	case ColorProPhotoRGB:
		return "ProPhotoRGB"
	case ColorUnprocessed:
		return "unprocessed"
	case ColorQuattroTop:
		return "qtop"
	default:
		return "unknown"
	}
}

// ParseColorEncoding accepts the names allowed after -color.
func ParseColorEncoding(name string) (ColorEncoding, error) {
	switch name {
	case "sRGB":
		return ColorSRGB, nil
	case "AdobeRGB":
		return ColorAdobeRGB, nil
	case "ProPhotoRGB":
		return ColorProPhotoRGB, nil
	default:
		return ColorNone, fmt.Errorf("unknown color encoding: %s", name)
	}
}

// DefaultMatrixMax is the number of matrix elements printed per metadata
// entry unless -matrixmax says otherwise.
const DefaultMatrixMax = 100

// Config is the run configuration. It is built once by Parse and handed to
// every file job by value.
type Config struct {
	ExtractRaw  bool
	ExtractJPEG bool
	ExtractMeta bool
	Kind        Kind
	LogHist     bool

	Color        ColorEncoding
	Crop         bool
	Denoise      bool
	WhiteBalance string
	OpenCL       bool

	// LegacyOffset is used for older sensors when AutoLegacyOffset is false.
	LegacyOffset     int
	AutoLegacyOffset bool
	MatrixMax        int

	OutputDir string

	Progress bool
	LogFile  string
	Verbose  bool
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		ExtractRaw:       true,
		Kind:             KindDNG,
		AutoLegacyOffset: true,
		MatrixMax:        DefaultMatrixMax,
	}
}
