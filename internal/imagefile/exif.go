package imagefile

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// Property is one metadata entry as written to a .meta file.
type Property struct {
	Name      string `yaml:"name"`
	IFD       string `yaml:"ifd,omitempty"`
	Type      string `yaml:"type,omitempty"`
	Value     any    `yaml:"value"`
	Count     int    `yaml:"count,omitempty"`
	Truncated bool   `yaml:"truncated,omitempty"`

	raw any
}

// calibrationTags are the tags that describe how to interpret sensor values
// rather than the shot itself.
var calibrationTags = map[string]bool{
	"ColorMatrix1":           true,
	"ColorMatrix2":           true,
	"CameraCalibration1":     true,
	"CameraCalibration2":     true,
	"ForwardMatrix1":         true,
	"ForwardMatrix2":         true,
	"ReductionMatrix1":       true,
	"ReductionMatrix2":       true,
	"AnalogBalance":          true,
	"AsShotNeutral":          true,
	"AsShotWhiteXY":          true,
	"BaselineExposure":       true,
	"BlackLevel":             true,
	"BlackLevelRepeatDim":    true,
	"WhiteLevel":             true,
	"CalibrationIlluminant1": true,
	"CalibrationIlluminant2": true,
	"LinearizationTable":     true,
	"ActiveArea":             true,
	"DefaultCropOrigin":      true,
	"DefaultCropSize":        true,
}

func readExifTags(rs io.ReadSeeker) ([]exif.ExifTag, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	// The EXIF block sits inside an APP1 segment or a PNG chunk for most
	// containers, so find its TIFF header before parsing.
	rawExif, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if errorsIsNoExif(err) {
			return nil, nil
		}
		return nil, err
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}

// splitTags separates shot properties from calibration data.
func splitTags(tags []exif.ExifTag) (props, calib []Property) {
	for _, tag := range tags {
		p := Property{
			Name: tag.TagName,
			IFD:  tag.IfdPath,
			Type: tag.TagTypeName,
			raw:  tag.Value,
		}
		if calibrationTags[tag.TagName] {
			calib = append(calib, p)
		} else {
			props = append(props, p)
		}
	}
	return props, calib
}

func findProperty(props []Property, name string) (Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// limited returns p with its value rendered for output. Array values keep at
// most limit elements.
func (p Property) limited(limit int) Property {
	out := p
	out.raw = nil
	if s, ok := p.raw.(string); ok {
		out.Value = strings.TrimRight(s, "\x00")
		return out
	}

	rv := reflect.ValueOf(p.raw)
	if rv.Kind() != reflect.Slice {
		out.Value = formatScalar(p.raw)
		return out
	}

	n := rv.Len()
	if n == 1 {
		out.Value = formatScalar(rv.Index(0).Interface())
		return out
	}
	items := make([]string, 0, min(n, limit))
	for i := 0; i < n && i < limit; i++ {
		items = append(items, formatScalar(rv.Index(i).Interface()))
	}
	out.Value = items
	out.Count = n
	out.Truncated = n > limit
	return out
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case exifcommon.Rational:
		return fmt.Sprintf("%d/%d", x.Numerator, x.Denominator)
	case exifcommon.SignedRational:
		return fmt.Sprintf("%d/%d", x.Numerator, x.Denominator)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// numbers converts a numeric tag value to float64s. Rationals are divided
// out; a zero denominator yields zero.
func numbers(v any) []float64 {
	switch x := v.(type) {
	case []uint8:
		return convert(x, func(e uint8) float64 { return float64(e) })
	case []uint16:
		return convert(x, func(e uint16) float64 { return float64(e) })
	case []uint32:
		return convert(x, func(e uint32) float64 { return float64(e) })
	case []int32:
		return convert(x, func(e int32) float64 { return float64(e) })
	case []float32:
		return convert(x, func(e float32) float64 { return float64(e) })
	case []float64:
		return x
	case []exifcommon.Rational:
		return convert(x, func(e exifcommon.Rational) float64 {
			if e.Denominator == 0 {
				return 0
			}
			return float64(e.Numerator) / float64(e.Denominator)
		})
	case []exifcommon.SignedRational:
		return convert(x, func(e exifcommon.SignedRational) float64 {
			if e.Denominator == 0 {
				return 0
			}
			return float64(e.Numerator) / float64(e.Denominator)
		})
	default:
		return nil
	}
}

func convert[T any](in []T, f func(T) float64) []float64 {
	out := make([]float64, len(in))
	for i, e := range in {
		out[i] = f(e)
	}
	return out
}
