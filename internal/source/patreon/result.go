package patreon

import (
	"context"
	"errors"
)

// Reason explains the outcome of one resolution stage.
type Reason int

const (
	ReasonOK Reason = iota
	// ReasonEmpty means the stage ran cleanly but found nothing.
	ReasonEmpty
	// ReasonUpstream means the upstream failed or answered in an unexpected shape.
	ReasonUpstream
	// ReasonFatal stops the ladder: bad input or a cancelled context.
	ReasonFatal
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonEmpty:
		return "empty"
	case ReasonUpstream:
		return "upstream"
	case ReasonFatal:
		return "fatal"
	}
	return "unknown"
}

// Result is the typed outcome of a ladder stage. The orchestrator moves to
// the next stage only when Proceed is true.
type Result[T any] struct {
	Value  T
	Reason Reason
	Err    error
}

func (r Result[T]) Proceed() bool {
	return r.Reason == ReasonEmpty || r.Reason == ReasonUpstream
}

func found[T any](v T) Result[T] {
	return Result[T]{Value: v, Reason: ReasonOK}
}

func nothing[T any]() Result[T] {
	return Result[T]{Reason: ReasonEmpty}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Reason: classify(err), Err: err}
}

// foundOrEmpty picks ReasonOK or ReasonEmpty by slice length.
func foundOrEmpty[T any](items []T) Result[[]T] {
	if len(items) == 0 {
		return nothing[[]T]()
	}
	return found(items)
}

func classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrInvalidCookie),
		errors.Is(err, ErrNonPatreonHost):
		return ReasonFatal
	}
	return ReasonUpstream
}
