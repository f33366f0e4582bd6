package imagefile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"

	"go.yaml.in/yaml/v3"
	"golang.org/x/image/tiff"

	"camextract/internal/container"
)

// writeFile creates path, hands a buffered writer to fill and syncs the
// result to disk before closing it.
func writeFile(path string, fill func(w io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(out)
	if err := fill(bw); err != nil {
		_ = out.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (f *File) DumpJPEG(path string) error {
	if f.preview == nil {
		return fmt.Errorf("preview: %w", ErrNotLoaded)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(f.preview)
		return err
	})
}

func (f *File) DumpRaw(path string) error {
	if f.block == nil {
		return fmt.Errorf("sensor block: %w", ErrNotLoaded)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(f.block)
		return err
	})
}

type metaDocument struct {
	File        string     `yaml:"file"`
	Container   string     `yaml:"container"`
	Properties  []Property `yaml:"properties"`
	Calibration []Property `yaml:"calibration"`
}

// DumpMeta writes property and calibration metadata as YAML. Array values
// keep at most matrixMax elements.
func (f *File) DumpMeta(path string, matrixMax int) error {
	if f.props == nil || f.calib == nil {
		return fmt.Errorf("metadata: %w", ErrNotLoaded)
	}
	doc := metaDocument{
		File:        f.name,
		Container:   f.kind.String(),
		Properties:  make([]Property, 0, len(f.props)),
		Calibration: make([]Property, 0, len(f.calib)),
	}
	for _, p := range f.props {
		doc.Properties = append(doc.Properties, p.limited(matrixMax))
	}
	for _, p := range f.calib {
		doc.Calibration = append(doc.Calibration, p.limited(matrixMax))
	}

	return writeFile(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	})
}

// DumpTIFF writes 16 bits per sample. The encoder stores an opaque alpha
// channel next to the three color channels.
func (f *File) DumpTIFF(path string, r container.Render) error {
	img, err := f.develop(r)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed})
	})
}

// DumpPPM writes P3 (ascii) or P6 (binary) with a maxval of 65535.
func (f *File) DumpPPM(path string, r container.Render, binary bool) error {
	img, err := f.develop(r)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		if binary {
			return writePPMBinary(w, img)
		}
		return writePPMASCII(w, img)
	})
}

func writePPMBinary(w io.Writer, img *image.RGBA64) error {
	b := img.Bounds()
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n65535\n", b.Dx(), b.Dy()); err != nil {
		return err
	}
	row := make([]byte, 0, b.Dx()*6)
	for y := 0; y < b.Dy(); y++ {
		row = row[:0]
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			// RGBA64 stores big-endian samples, as P6 does; drop alpha.
			row = append(row, img.Pix[off:off+6]...)
			off += 8
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writePPMASCII(w io.Writer, img *image.RGBA64) error {
	b := img.Bounds()
	if _, err := fmt.Fprintf(w, "P3\n%d %d\n65535\n", b.Dx(), b.Dy()); err != nil {
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBA64At(x, y)
			if _, err := fmt.Fprintf(w, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return err
			}
		}
	}
	return nil
}

// DumpHistogram writes per-channel sample counts as CSV. Linear histograms
// list every value that occurs; log histograms bucket values by 1/8 stop.
func (f *File) DumpHistogram(path string, r container.Render, logScale bool) error {
	img, err := f.develop(r)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return writeHistogram(w, img, logScale)
	})
}

const stopsPerBucket = 8

func histogramBucket(v uint16, logScale bool) int {
	if !logScale {
		return int(v)
	}
	return int(math.Floor(math.Log2(float64(v)+1) * stopsPerBucket))
}

func writeHistogram(w io.Writer, img *image.RGBA64, logScale bool) error {
	var counts [3][]int
	size := 1 << 16
	if logScale {
		size = 16*stopsPerBucket + 1
	}
	for c := range counts {
		counts[c] = make([]int, size)
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBA64At(x, y)
			counts[0][histogramBucket(px.R, logScale)]++
			counts[1][histogramBucket(px.G, logScale)]++
			counts[2][histogramBucket(px.B, logScale)]++
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"value", "red", "green", "blue"}
	if logScale {
		header[0] = "stops"
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if counts[0][i] == 0 && counts[1][i] == 0 && counts[2][i] == 0 {
			continue
		}
		key := strconv.Itoa(i)
		if logScale {
			key = strconv.FormatFloat(float64(i)/stopsPerBucket, 'f', 3, 64)
		}
		if err := cw.Write([]string{
			key,
			strconv.Itoa(counts[0][i]),
			strconv.Itoa(counts[1][i]),
			strconv.Itoa(counts[2][i]),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
