// Package paths builds the final and temporary file names for extracted
// artifacts. Every concatenation is checked against a fixed capacity and
// rejected instead of truncated.
package paths

import (
	"fmt"
	"strings"
)

const (
	// MaxPath bounds an input path and the output base path derived from it.
	MaxPath = 1000
	// ExtMax bounds a single appended extension or suffix.
	ExtMax = 10
	// MaxOutPath bounds a final output path.
	MaxOutPath = MaxPath + ExtMax
	// MaxTmpPath bounds a temporary output path.
	MaxTmpPath = MaxOutPath + ExtMax
)

// TmpSuffix is appended to a final path to form its temporary path.
const TmpSuffix = ".tmp"

// TooLongError reports a path that would exceed its capacity.
type TooLongError struct {
	Path     string
	Length   int
	Capacity int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("path too long (%d > %d bytes): %.40s...", e.Length, e.Capacity, e.Path)
}

// Paths is the pair of names used to write and then publish one artifact.
type Paths struct {
	Final string
	Temp  string
}

// SafeCopy sets *dst to src if src fits in capacity bytes. On failure *dst is
// left untouched.
func SafeCopy(dst *string, src string, capacity int) error {
	if len(src) > capacity {
		return &TooLongError{Path: src, Length: len(src), Capacity: capacity}
	}
	*dst = src
	return nil
}

// SafeCat appends src to *dst if the result fits in capacity bytes. On failure
// *dst is left untouched.
func SafeCat(dst *string, src string, capacity int) error {
	if n := len(*dst) + len(src); n > capacity {
		return &TooLongError{Path: *dst + src, Length: n, Capacity: capacity}
	}
	*dst += src
	return nil
}

// Make derives the output and temporary paths for input with the extension
// ext. With an empty outDir the output sits next to the input; otherwise it is
// placed in outDir under the input's base name. The input's own extension is
// kept, so "c.x3f" becomes "c.x3f.dng".
func Make(input, outDir, ext string) (Paths, error) {
	var base string
	if outDir == "" {
		if err := SafeCopy(&base, input, MaxPath); err != nil {
			return Paths{}, err
		}
	} else {
		if err := SafeCopy(&base, outDir, MaxPath); err != nil {
			return Paths{}, err
		}
		if err := SafeCat(&base, "/", MaxPath); err != nil {
			return Paths{}, err
		}
		if err := SafeCat(&base, Base(input), MaxPath); err != nil {
			return Paths{}, err
		}
	}

	var p Paths
	if err := SafeCopy(&p.Final, base, MaxOutPath); err != nil {
		return Paths{}, err
	}
	if err := SafeCat(&p.Final, ext, MaxOutPath); err != nil {
		return Paths{}, err
	}
	if err := SafeCopy(&p.Temp, p.Final, MaxTmpPath); err != nil {
		return Paths{}, err
	}
	if err := SafeCat(&p.Temp, TmpSuffix, MaxTmpPath); err != nil {
		return Paths{}, err
	}
	return p, nil
}

// Base returns everything after the last '/' in path, or path itself when it
// has no separator.
func Base(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
