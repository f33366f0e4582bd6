// Package config turns command-line tokens into the immutable run
// configuration and the list of input files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrHelp is returned when -h or -help is given.
var ErrHelp = errors.New("help requested")

// UsageError is fatal for the whole run: usage is printed and no file is
// touched.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

func usagef(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

type flagSpec struct {
	arg   bool
	apply func(c *Config, value string) error
}

func rawKind(k Kind) flagSpec {
	return flagSpec{apply: func(c *Config, _ string) error {
		c.ExtractRaw = true
		c.Kind = k
		return nil
	}}
}

func toggle(set func(c *Config)) flagSpec {
	return flagSpec{apply: func(c *Config, _ string) error {
		set(c)
		return nil
	}}
}

func withArg(set func(c *Config, value string) error) flagSpec {
	return flagSpec{arg: true, apply: set}
}

var flagTable = map[string]flagSpec{
	"-jpg":       toggle(func(c *Config) { c.ExtractRaw, c.ExtractJPEG = false, true }),
	"-meta":      toggle(func(c *Config) { c.ExtractRaw, c.ExtractMeta = false, true }),
	"-raw":       rawKind(KindRaw),
	"-tiff":      rawKind(KindTIFF),
	"-dng":       rawKind(KindDNG),
	"-ppm-ascii": rawKind(KindPPMASCII),
	"-ppm":       rawKind(KindPPMBinary),
	"-histogram": rawKind(KindHistogram),
	"-loghist": toggle(func(c *Config) {
		c.ExtractRaw, c.Kind, c.LogHist = true, KindHistogram, true
	}),
	"-color": withArg(func(c *Config, v string) error {
		enc, err := ParseColorEncoding(v)
		if err != nil {
			return err
		}
		c.Color = enc
		return nil
	}),
	"-o": withArg(func(c *Config, v string) error {
		c.OutputDir = v
		return nil
	}),
	"-unprocessed": toggle(func(c *Config) { c.Color = ColorUnprocessed }),
	"-qtop":        toggle(func(c *Config) { c.Color = ColorQuattroTop }),
	"-crop":        toggle(func(c *Config) { c.Crop = true }),
	"-denoise":     toggle(func(c *Config) { c.Denoise = true }),
	"-wb": withArg(func(c *Config, v string) error {
		c.WhiteBalance = v
		return nil
	}),
	"-ocl": toggle(func(c *Config) { c.OpenCL = true }),
	"-offset": withArg(func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid offset %q", v)
		}
		c.LegacyOffset, c.AutoLegacyOffset = n, false
		return nil
	}),
	"-matrixmax": withArg(func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid matrix element count %q", v)
		}
		c.MatrixMax = n
		return nil
	}),
	"-progress": toggle(func(c *Config) { c.Progress = true }),
	"-log": withArg(func(c *Config, v string) error {
		c.LogFile = v
		return nil
	}),
	"-v": toggle(func(c *Config) { c.Verbose = true }),
}

// Parse applies the flags in args on top of base, left to right. Parsing
// stops at the first token that does not start with '-'; that token and
// everything after it are returned as input files. A flag given twice keeps
// its last value.
func Parse(args []string, base Config) (Config, []string, error) {
	cfg := base
	i := 0
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") {
			break
		}
		if tok == "-h" || tok == "-help" || tok == "--help" {
			return cfg, nil, ErrHelp
		}

		spec, ok := flagTable[tok]
		if !ok {
			return cfg, nil, usagef("unknown option %s", tok)
		}
		value := ""
		if spec.arg {
			if i+1 >= len(args) {
				return cfg, nil, usagef("option %s needs an argument", tok)
			}
			value = args[i+1]
			i++
		}
		if err := spec.apply(&cfg, value); err != nil {
			return cfg, nil, &UsageError{Msg: tok, Err: err}
		}
		i++
	}

	if cfg.OutputDir != "" {
		if err := CheckDir(cfg.OutputDir); err != nil {
			return cfg, nil, &UsageError{Msg: "could not find outdir " + cfg.OutputDir, Err: err}
		}
	}

	files := args[i:]
	if len(files) == 0 {
		return cfg, nil, usagef("no input files")
	}
	return cfg, files, nil
}

// CheckDir reports an error unless path exists and is a directory.
func CheckDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: syscall.ENOTDIR}
	}
	return nil
}
