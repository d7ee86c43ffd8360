package stream

import (
	"fmt"
)

// Stage names one step of the per-frame loop.
type Stage int

const (
	StageRead Stage = iota
	StageResize
	StageZone
	StageDetect
	StageAnnotate
	StageEncode
	StageSend
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "read"
	case StageResize:
		return "resize"
	case StageZone:
		return "zone"
	case StageDetect:
		return "detect"
	case StageAnnotate:
		return "annotate"
	case StageEncode:
		return "encode"
	case StageSend:
		return "send"
	default:
		return "unknown"
	}
}

// Disposition says what a stage failure does to the stream.
type Disposition int

const (
	// Continue drops the failure and keeps processing the frame.
	Continue Disposition = iota
	// Terminate ends the stream.
	Terminate
)

var dispositions = map[Stage]Disposition{
	StageRead:     Terminate,
	StageResize:   Terminate,
	StageZone:     Continue,
	StageDetect:   Continue,
	StageAnnotate: Continue,
	StageEncode:   Terminate,
	StageSend:     Terminate,
}

// DispositionOf returns how a failure in s is handled. Unknown stages terminate.
func DispositionOf(s Stage) Disposition {
	if d, ok := dispositions[s]; ok {
		return d
	}
	return Terminate
}

// Result is the outcome of one stage.
type Result struct {
	Stage Stage
	Err   error
}

func Ok(s Stage) Result                 { return Result{Stage: s} }
func Failed(s Stage, err error) Result { return Result{Stage: s, Err: err} }

func (r Result) OK() bool { return r.Err == nil }

// Fatal reports a failure that must end the stream.
func (r Result) Fatal() bool {
	return r.Err != nil && DispositionOf(r.Stage) == Terminate
}

// StageError is returned by Run when a terminating stage fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }
