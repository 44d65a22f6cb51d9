package criteria

import "strings"

// Verdict markers the assistant is told to embed in terse replies.
const (
	FailMarker = "n.i.O"
	PassMarker = "i.O"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
)

// Color is the badge color the board renders for the status.
func (s Status) Color() string {
	switch s {
	case StatusPass:
		return "green"
	case StatusFail:
		return "red"
	default:
		return "lightgray"
	}
}

// Classify turns a free-text reply into a verdict. The fail marker contains
// the pass marker, so it has to be checked first.
func Classify(reply string) Status {
	switch {
	case strings.Contains(reply, FailMarker):
		return StatusFail
	case strings.Contains(reply, PassMarker):
		return StatusPass
	default:
		return StatusUnknown
	}
}
