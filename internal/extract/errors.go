package extract

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an error came from.
type Stage int

const (
	StageOpen Stage = iota
	StageDecode
	StageLoad
	StagePath
	StageDump
	StagePublish
)

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageDecode:
		return "decode"
	case StageLoad:
		return "load"
	case StagePath:
		return "path"
	case StageDump:
		return "dump"
	case StagePublish:
		return "publish"
	default:
		return "unknown"
	}
}

var (
	ErrOpen        = errors.New("could not open input")
	ErrDecode      = errors.New("could not decode container")
	ErrPathTooLong = errors.New("output path too long")
	ErrDump        = errors.New("could not dump")
	ErrPublish     = errors.New("could not publish")
)

func (s Stage) sentinel() error {
	switch s {
	case StageOpen:
		return ErrOpen
	case StageDecode, StageLoad:
		return ErrDecode
	case StagePath:
		return ErrPathTooLong
	case StageDump:
		return ErrDump
	default:
		return ErrPublish
	}
}

// StageError is a non-fatal failure of one file or one requested output.
// It matches the stage sentinel and the underlying cause with errors.Is.
type StageError struct {
	Stage  Stage
	File   string
	Output string
	Err    error
}

func (e *StageError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.File, e.Output, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}
