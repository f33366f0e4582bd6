// Package imagefile is the bundled container backend. It reads TIFF-family
// files (TIFF, DNG and TIFF-structured raw files), JPEG and PNG, and writes
// the artifacts the extraction driver asks for. Proprietary layouts such as
// X3F are recognised and rejected.
package imagefile

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	exif "github.com/dsoprea/go-exif/v3"

	"camextract/internal/container"
	"camextract/pkg/imgutil"
)

var (
	ErrUnsupported = errors.New("unsupported container format")
	ErrNoPreview   = errors.New("no embedded preview")
	ErrNotLoaded   = errors.New("data not loaded")
)

// Backend opens files for the extraction driver.
type Backend struct {
	logger *slog.Logger
	gpu    bool
}

func NewBackend(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{logger: logger}
}

// SetGPUAcceleration records the request. Rendering here always runs on the
// CPU.
func (b *Backend) SetGPUAcceleration(enabled bool) {
	b.gpu = enabled
	if enabled {
		b.logger.Warn("GPU acceleration is not available in this backend, using CPU")
	}
}

func (b *Backend) Open(src container.Source, name string) (container.Container, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	kind, err := imgutil.SniffReader(src)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	switch {
	case kind.Proprietary():
		return nil, fmt.Errorf("%w: proprietary %s layout", ErrUnsupported, kind)
	case kind == imgutil.KindUnknown:
		return nil, ErrUnsupported
	}

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	return &File{
		src:    src,
		name:   name,
		kind:   kind,
		size:   size,
		logger: b.logger.With("container", kind.String()),
	}, nil
}

// File is an opened container and the data loaded from it so far.
type File struct {
	src    container.Source
	name   string
	kind   imgutil.Kind
	size   int64
	logger *slog.Logger

	tags       []exif.ExifTag
	tagsLoaded bool

	preview []byte
	props   []Property
	calib   []Property
	block   []byte
	img     *image.RGBA64
}

func (f *File) Load(sel container.Selector) error {
	switch sel {
	case container.SelectPreview:
		return f.loadPreview()
	case container.SelectProperties:
		tags, err := f.exifTags()
		if err != nil {
			return err
		}
		f.props, _ = splitTags(tags)
		if f.props == nil {
			f.props = []Property{}
		}
		if f.kind == imgutil.KindPNG {
			text, err := pngTextProperties(f.src, f.size)
			if err != nil {
				return err
			}
			f.props = append(f.props, text...)
		}
		return nil
	case container.SelectCalibration:
		tags, err := f.exifTags()
		if err != nil {
			return err
		}
		_, f.calib = splitTags(tags)
		if f.calib == nil {
			f.calib = []Property{}
		}
		return nil
	case container.SelectSensorBlock:
		return f.loadBlock()
	case container.SelectSensorDecoded:
		return f.loadDecoded()
	default:
		return fmt.Errorf("unknown selector %d", sel)
	}
}

func (f *File) exifTags() ([]exif.ExifTag, error) {
	if f.tagsLoaded {
		return f.tags, nil
	}
	tags, err := readExifTags(f.src)
	if err != nil {
		return nil, fmt.Errorf("reading EXIF: %w", err)
	}
	f.tags, f.tagsLoaded = tags, true
	return tags, nil
}

func (f *File) readAll() ([]byte, error) {
	data := make([]byte, f.size)
	if _, err := f.src.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}

func (f *File) loadPreview() error {
	switch f.kind {
	case imgutil.KindJPEG:
		data, err := f.readAll()
		if err != nil {
			return err
		}
		n, err := jpegLength(data)
		if err != nil {
			return err
		}
		f.preview = data[:n]
		return nil
	case imgutil.KindTIFF:
		tags, err := f.exifTags()
		if err != nil {
			return err
		}
		offset := firstNumber(tags, "JPEGInterchangeFormat")
		length := firstNumber(tags, "JPEGInterchangeFormatLength")
		if offset <= 0 || length <= 0 {
			return ErrNoPreview
		}
		data, err := f.readRange(offset, length)
		if err != nil {
			return fmt.Errorf("reading preview: %w", err)
		}
		f.preview = data
		return nil
	default:
		return ErrNoPreview
	}
}

// loadBlock reads the primary image strips of a TIFF file as stored. Other
// containers have no separate sensor block and yield the whole file.
func (f *File) loadBlock() error {
	if f.kind != imgutil.KindTIFF {
		data, err := f.readAll()
		if err != nil {
			return err
		}
		f.block = data
		return nil
	}

	tags, err := f.exifTags()
	if err != nil {
		return err
	}
	offsets := firstNumbers(tags, "StripOffsets")
	counts := firstNumbers(tags, "StripByteCounts")
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return fmt.Errorf("no sensor strips in %s", f.name)
	}

	var block []byte
	for i := range offsets {
		data, err := f.readRange(int64(offsets[i]), int64(counts[i]))
		if err != nil {
			return fmt.Errorf("reading strip %d: %w", i, err)
		}
		block = append(block, data...)
	}
	f.block = block
	return nil
}

func (f *File) loadDecoded() error {
	if _, err := f.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	img, _, err := image.Decode(f.src)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	b := img.Bounds()
	rgba := image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	f.img = rgba
	return nil
}

func (f *File) readRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > f.size {
		return nil, fmt.Errorf("range %d+%d outside file of %d bytes", offset, length, f.size)
	}
	data := make([]byte, length)
	if _, err := f.src.ReadAt(data, offset); err != nil {
		return nil, err
	}
	return data, nil
}

func firstNumbers(tags []exif.ExifTag, name string) []float64 {
	for _, tag := range tags {
		if tag.TagName == name {
			return numbers(tag.Value)
		}
	}
	return nil
}

func firstNumber(tags []exif.ExifTag, name string) int64 {
	if v := firstNumbers(tags, name); len(v) > 0 {
		return int64(v[0])
	}
	return 0
}

// Release drops everything loaded. The source is closed by its owner.
func (f *File) Release() error {
	f.tags, f.tagsLoaded = nil, false
	f.preview, f.block, f.img = nil, nil, nil
	f.props, f.calib = nil, nil
	return nil
}
