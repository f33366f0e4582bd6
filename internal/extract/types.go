package extract

import "fmt"

// State is the position of a file job in its pipeline.
type State int

const (
	StateNew State = iota
	StateOpened
	StateLoaded
	StateDumped
	StatePublished
	StateError
	StateCleanup
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOpened:
		return "opened"
	case StateLoaded:
		return "loaded"
	case StateDumped:
		return "dumped"
	case StatePublished:
		return "published"
	case StateError:
		return "error"
	case StateCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Job is one input file for the length of its iteration.
type Job struct {
	Path  string
	State State
}

// FileResult is what one job reports to the aggregator.
type FileResult struct {
	Path      string
	Published []string
	Errs      []error
}

// Summary is the run-wide tally.
type Summary struct {
	Files     int
	Errors    int
	Published int
}

// ExitCode is 0 when no error was recorded and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Errors > 0 {
		return 1
	}
	return 0
}

// ProgressUpdate carries counter deltas to a progress view.
type ProgressUpdate struct {
	TotalDelta     int
	FilesDelta     int
	PublishedDelta int
	ErrorDelta     int
	Current        string
}
