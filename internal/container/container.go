// Package container defines the contract between the extraction driver and
// the library that understands camera container files. The driver never
// looks inside a container; it asks for data to be loaded and for artifacts
// to be dumped to a path.
package container

import (
	"io"

	"camextract/internal/config"
)

// Source is the open input file handed to a Backend.
type Source interface {
	io.ReadSeeker
	io.ReaderAt
}

// Selector names a block of container data that can be loaded.
type Selector int

const (
	SelectPreview Selector = iota
	SelectProperties
	SelectCalibration
	SelectSensorBlock
	SelectSensorDecoded
)

func (s Selector) String() string {
	switch s {
	case SelectPreview:
		return "preview"
	case SelectProperties:
		return "property metadata"
	case SelectCalibration:
		return "calibration metadata"
	case SelectSensorBlock:
		return "undecoded sensor data"
	case SelectSensorDecoded:
		return "sensor data"
	default:
		return "unknown"
	}
}

// Render holds the parameters shared by the decoded sensor dumps.
type Render struct {
	Color        config.ColorEncoding
	Crop         bool
	Denoise      bool
	WhiteBalance string

	LegacyOffset     int
	AutoLegacyOffset bool
}

// Backend opens containers.
type Backend interface {
	// Open parses the container header from src. name is used in messages.
	Open(src Source, name string) (Container, error)
	// SetGPUAcceleration is called once before the first file.
	SetGPUAcceleration(enabled bool)
}

// Container is one parsed input file. Dump methods write a complete file at
// path and must be preceded by Load of the data they need.
type Container interface {
	Load(sel Selector) error

	DumpJPEG(path string) error
	DumpMeta(path string, matrixMax int) error
	DumpRaw(path string) error
	DumpTIFF(path string, r Render) error
	DumpDNG(path string, r Render) error
	DumpPPM(path string, r Render, binary bool) error
	DumpHistogram(path string, r Render, logScale bool) error

	// Release frees loaded data. The Source stays owned by the caller.
	Release() error
}
