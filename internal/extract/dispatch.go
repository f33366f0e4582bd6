package extract

import (
	"camextract/internal/config"
	"camextract/internal/container"
)

// Request is one artifact to extract from a container. Each variant carries
// only the parameters its dump call uses.
type Request interface {
	// Output labels the request in progress lines and errors.
	Output() string
	Ext() string
	// Loads lists the container data that must be loaded before Dump.
	Loads() []container.Selector
	Dump(c container.Container, path string) error
}

var (
	metaLoads    = []container.Selector{container.SelectProperties, container.SelectCalibration}
	blockLoads   = []container.Selector{container.SelectProperties, container.SelectCalibration, container.SelectSensorBlock}
	decodedLoads = []container.Selector{container.SelectProperties, container.SelectCalibration, container.SelectSensorDecoded}
)

type PreviewRequest struct{}

func (PreviewRequest) Output() string { return "JPEG" }
func (PreviewRequest) Ext() string { return ".jpg" }
func (PreviewRequest) Loads() []container.Selector {
	return []container.Selector{container.SelectPreview}
}
func (PreviewRequest) Dump(c container.Container, path string) error { return c.DumpJPEG(path) }

type MetaRequest struct {
	MatrixMax int
}

func (MetaRequest) Output() string { return "META DATA" }
func (MetaRequest) Ext() string { return ".meta" }
func (MetaRequest) Loads() []container.Selector { return metaLoads }
func (r MetaRequest) Dump(c container.Container, path string) error {
	return c.DumpMeta(path, r.MatrixMax)
}

type RawBlockRequest struct{}

func (RawBlockRequest) Output() string { return "RAW block" }
func (RawBlockRequest) Ext() string { return ".raw" }
func (RawBlockRequest) Loads() []container.Selector { return blockLoads }
func (RawBlockRequest) Dump(c container.Container, path string) error { return c.DumpRaw(path) }

type TIFFRequest struct {
	Render container.Render
}

func (TIFFRequest) Output() string { return "RAW as TIFF" }
func (TIFFRequest) Ext() string { return ".tif" }
func (TIFFRequest) Loads() []container.Selector { return decodedLoads }
func (r TIFFRequest) Dump(c container.Container, path string) error {
	return c.DumpTIFF(path, r.Render)
}

// DNGRequest renders no color or crop: only denoise, white balance and the
// legacy offset reach the encoder.
type DNGRequest struct {
	Denoise          bool
	WhiteBalance     string
	LegacyOffset     int
	AutoLegacyOffset bool
}

func (DNGRequest) Output() string { return "RAW as DNG" }
func (DNGRequest) Ext() string { return ".dng" }
func (DNGRequest) Loads() []container.Selector { return decodedLoads }
func (r DNGRequest) Dump(c container.Container, path string) error {
	return c.DumpDNG(path, container.Render{
		Denoise:          r.Denoise,
		WhiteBalance:     r.WhiteBalance,
		LegacyOffset:     r.LegacyOffset,
		AutoLegacyOffset: r.AutoLegacyOffset,
	})
}

type PPMRequest struct {
	Render container.Render
	Binary bool
}

func (PPMRequest) Output() string { return "RAW as PPM" }
func (PPMRequest) Ext() string { return ".ppm" }
func (PPMRequest) Loads() []container.Selector { return decodedLoads }
func (r PPMRequest) Dump(c container.Container, path string) error {
	return c.DumpPPM(path, r.Render, r.Binary)
}

type HistogramRequest struct {
	Render   container.Render
	LogScale bool
}

func (HistogramRequest) Output() string { return "RAW as CSV histogram" }
func (HistogramRequest) Ext() string { return ".csv" }
func (HistogramRequest) Loads() []container.Selector { return decodedLoads }
func (r HistogramRequest) Dump(c container.Container, path string) error {
	return c.DumpHistogram(path, r.Render, r.LogScale)
}

var rawTable = map[config.Kind]func(cfg config.Config) Request{
	config.KindRaw: func(config.Config) Request { return RawBlockRequest{} },
	config.KindTIFF: func(cfg config.Config) Request {
		return TIFFRequest{Render: renderOf(cfg)}
	},
	config.KindDNG: func(cfg config.Config) Request {
		return DNGRequest{
			Denoise:          cfg.Denoise,
			WhiteBalance:     cfg.WhiteBalance,
			LegacyOffset:     cfg.LegacyOffset,
			AutoLegacyOffset: cfg.AutoLegacyOffset,
		}
	},
	config.KindPPMASCII: func(cfg config.Config) Request {
		return PPMRequest{Render: renderOf(cfg)}
	},
	config.KindPPMBinary: func(cfg config.Config) Request {
		return PPMRequest{Render: renderOf(cfg), Binary: true}
	},
	config.KindHistogram: func(cfg config.Config) Request {
		return HistogramRequest{Render: renderOf(cfg), LogScale: cfg.LogHist}
	},
}

func renderOf(cfg config.Config) container.Render {
	return container.Render{
		Color:            cfg.Color,
		Crop:             cfg.Crop,
		Denoise:          cfg.Denoise,
		WhiteBalance:     cfg.WhiteBalance,
		LegacyOffset:     cfg.LegacyOffset,
		AutoLegacyOffset: cfg.AutoLegacyOffset,
	}
}

// Plan lists the requests for every file of a run, in processing order:
// preview, metadata, then the raw kind.
func Plan(cfg config.Config) []Request {
	var reqs []Request
	if cfg.ExtractJPEG {
		reqs = append(reqs, PreviewRequest{})
	}
	if cfg.ExtractMeta {
		reqs = append(reqs, MetaRequest{MatrixMax: cfg.MatrixMax})
	}
	if cfg.ExtractRaw {
		if build, ok := rawTable[cfg.Kind]; ok {
			reqs = append(reqs, build(cfg))
		}
	}
	return reqs
}
