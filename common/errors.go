package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure category of the effects pipeline. Every typed error below
// unwraps to exactly one of these so callers can classify failures with errors.Is.
var (
	// ErrKernelCompile indicates a compute kernel failed to parse, validate, or build a GPU pipeline.
	ErrKernelCompile = errors.New("kernel compile failed")

	// ErrResourceAllocation indicates the device rejected a texture, buffer, or sampler allocation.
	ErrResourceAllocation = errors.New("resource allocation failed")

	// ErrUnboundSlot indicates a compute pass was finalized or dispatched with a declared slot left unbound.
	ErrUnboundSlot = errors.New("unbound slot")

	// ErrFrameIndex indicates a frame index outside [0, FrameCount()).
	ErrFrameIndex = errors.New("frame index out of range")

	// ErrDecode indicates the frame source could not decode its media.
	ErrDecode = errors.New("decode failure")

	// ErrReleased indicates a resource handle was used after Release.
	ErrReleased = errors.New("resource released")
)

// KernelCompileError is returned when a pass's kernel cannot be turned into a pipeline.
type KernelCompileError struct {
	Pass string
	Err  error
}

func (e *KernelCompileError) Error() string {
	return fmt.Sprintf("pass %q: kernel compile failed: %v", e.Pass, e.Err)
}

func (e *KernelCompileError) Unwrap() []error {
	return []error{ErrKernelCompile, e.Err}
}

// ResourceAllocationError is returned when a named resource could not be allocated at the requested size.
type ResourceAllocationError struct {
	Resource string
	Width    int
	Height   int
	Err      error
}

func (e *ResourceAllocationError) Error() string {
	return fmt.Sprintf("resource %q (%dx%d): allocation failed: %v", e.Resource, e.Width, e.Height, e.Err)
}

func (e *ResourceAllocationError) Unwrap() []error {
	return []error{ErrResourceAllocation, e.Err}
}

// UnboundSlotError names the pass and slot that were left unbound.
type UnboundSlotError struct {
	Pass string
	Slot string
}

func (e *UnboundSlotError) Error() string {
	return fmt.Sprintf("pass %q: slot %q is not bound", e.Pass, e.Slot)
}

func (e *UnboundSlotError) Unwrap() error {
	return ErrUnboundSlot
}

// RangeError is returned by a frame source for an index outside [0, Count).
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("frame index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *RangeError) Unwrap() error {
	return ErrFrameIndex
}

// DecodeFailure is returned when a frame source cannot produce its frames.
// Frame is -1 when the failure is not tied to a single frame (e.g. the container failed to open).
type DecodeFailure struct {
	Source string
	Frame  int
	Err    error
}

func (e *DecodeFailure) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("decode %q: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("decode %q frame %d: %v", e.Source, e.Frame, e.Err)
}

func (e *DecodeFailure) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
