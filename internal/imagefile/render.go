package imagefile

import (
	"fmt"
	"image"
	"math"

	"camextract/internal/config"
	"camextract/internal/container"
)

// whiteBalancePresets are RGB gains relative to daylight.
var whiteBalancePresets = map[string][3]float64{
	"Auto":         {1, 1, 1},
	"Sunlight":     {1, 1, 1},
	"Shadow":       {1.18, 1, 0.84},
	"Overcast":     {1.10, 1, 0.91},
	"Incandescent": {0.63, 1, 1.72},
	"Florescent":   {0.82, 1, 1.30},
	"Flash":        {1.02, 1, 0.98},
	"Custom":       {1, 1, 1},
	"ColorTemp":    {1, 1, 1},
	"AutoLSP":      {1, 1, 1},
}

// gains resolves the white balance for r. An empty preset or "Auto" uses the
// container's AsShotNeutral when present.
func (f *File) gains(preset string) ([3]float64, error) {
	if preset == "" || preset == "Auto" {
		if p, ok := findProperty(f.calib, "AsShotNeutral"); ok {
			if n := numbers(p.raw); len(n) == 3 && n[0] > 0 && n[1] > 0 && n[2] > 0 {
				return [3]float64{n[1] / n[0], 1, n[1] / n[2]}, nil
			}
		}
		return [3]float64{1, 1, 1}, nil
	}
	g, ok := whiteBalancePresets[preset]
	if !ok {
		return g, fmt.Errorf("unknown white balance preset %q", preset)
	}
	return g, nil
}

// blackLevel is the value subtracted from every sample before scaling.
func (f *File) blackLevel(r container.Render) int {
	if !r.AutoLegacyOffset {
		return r.LegacyOffset
	}
	if p, ok := findProperty(f.calib, "BlackLevel"); ok {
		if n := numbers(p.raw); len(n) > 0 {
			return int(n[0])
		}
	}
	return 0
}

// cropRect is the active area when cropping was asked for and the container
// declares one, else the full image.
func (f *File) cropRect(r container.Render) image.Rectangle {
	full := f.img.Bounds()
	if !r.Crop {
		return full
	}
	origin, okOrigin := findProperty(f.calib, "DefaultCropOrigin")
	size, okSize := findProperty(f.calib, "DefaultCropSize")
	if !okOrigin || !okSize {
		f.logger.Debug("no active area, not cropping")
		return full
	}
	o, s := numbers(origin.raw), numbers(size.raw)
	if len(o) < 2 || len(s) < 2 {
		return full
	}
	x, y := int(o[0]), int(o[1])
	return image.Rect(x, y, x+int(s[0]), y+int(s[1])).Intersect(full)
}

// develop applies offset, white balance and the transfer curve of r to the
// decoded sensor data. Unprocessed and Quattro top-layer output skip
// everything but cropping.
func (f *File) develop(r container.Render) (*image.RGBA64, error) {
	if f.img == nil {
		return nil, fmt.Errorf("sensor data: %w", ErrNotLoaded)
	}
	if r.Denoise {
		f.logger.Warn("denoise is not available in this backend, writing data as is")
	}

	rect := f.cropRect(r)
	out := image.NewRGBA64(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	raw := r.Color == config.ColorUnprocessed || r.Color == config.ColorQuattroTop
	var luts [3][]uint16
	if !raw {
		g, err := f.gains(r.WhiteBalance)
		if err != nil {
			return nil, err
		}
		curve := transferCurve(r.Color)
		black := f.blackLevel(r)
		for c := range luts {
			luts[c] = buildLUT(black, g[c], curve)
		}
	}

	for y := 0; y < rect.Dy(); y++ {
		src := f.img.PixOffset(rect.Min.X, rect.Min.Y+y)
		dst := out.PixOffset(0, y)
		for x := 0; x < rect.Dx(); x++ {
			for c := 0; c < 4; c++ {
				v := uint16(f.img.Pix[src])<<8 | uint16(f.img.Pix[src+1])
				if c < 3 && !raw {
					v = luts[c][v]
				}
				out.Pix[dst] = uint8(v >> 8)
				out.Pix[dst+1] = uint8(v)
				src += 2
				dst += 2
			}
		}
	}
	return out, nil
}

// linearData subtracts the black level only, for encoders that carry white
// balance as metadata.
func (f *File) linearData(r container.Render) (*image.RGBA64, error) {
	return f.develop(container.Render{
		Color:            config.ColorNone,
		Denoise:          r.Denoise,
		WhiteBalance:     "Sunlight",
		LegacyOffset:     r.LegacyOffset,
		AutoLegacyOffset: r.AutoLegacyOffset,
	})
}

func buildLUT(black int, gain float64, curve func(float64) float64) []uint16 {
	lut := make([]uint16, 1<<16)
	scale := 65535 - float64(black)
	if scale <= 0 {
		scale = 1
	}
	for i := range lut {
		v := (float64(i) - float64(black)) / scale * gain
		v = curve(math.Min(math.Max(v, 0), 1))
		lut[i] = uint16(math.Round(v * 65535))
	}
	return lut
}

func transferCurve(enc config.ColorEncoding) func(float64) float64 {
	switch enc {
	case config.ColorSRGB:
		return func(v float64) float64 {
			if v <= 0.0031308 {
				return 12.92 * v
			}
			return 1.055*math.Pow(v, 1/2.4) - 0.055
		}
	case config.ColorAdobeRGB:
		return func(v float64) float64 { return math.Pow(v, 256.0/563.0) }
	case config.ColorProPhotoRGB:
		return func(v float64) float64 {
			if v < 1.0/512 {
				return 16 * v
			}
			return math.Pow(v, 1/1.8)
		}
	default:
		return func(v float64) float64 { return v }
	}
}
