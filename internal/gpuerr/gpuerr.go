// Package gpuerr defines the error kinds the renderer distinguishes between.
//
// Every error returned by the GPU packages is marked with exactly one kind.
// Callers use errors.Is against a kind to decide between recovery and
// propagation: only ErrTransientPresentation is ever recovered locally.
package gpuerr

import (
	"github.com/cockroachdb/errors"
)

// Kinds.
var (
	ErrInitialization              = errors.New("initialization error")
	ErrResourceCreation            = errors.New("resource creation error")
	ErrTransientPresentation       = errors.New("transient presentation error")
	ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")
	ErrUnsupportedMemoryType       = errors.New("unsupported memory type")
)

// Specific conditions, each marked with its kind.
var (
	ErrNoSuitableDevice         = errors.Mark(errors.New("no suitable physical device"), ErrInitialization)
	ErrNoSuitableQueueFamily    = errors.Mark(errors.New("no queue family supports both graphics and present"), ErrInitialization)
	ErrMissingLayer             = errors.Mark(errors.New("required instance layer not available"), ErrInitialization)
	ErrMissingExtension         = errors.Mark(errors.New("required extension not available"), ErrInitialization)
	ErrNoSuitableMemoryType     = errors.Mark(errors.New("no suitable memory type"), ErrUnsupportedMemoryType)
	ErrSurfaceOutOfDate         = errors.Mark(errors.New("surface out of date"), ErrTransientPresentation)
	ErrSurfaceSuboptimal        = errors.Mark(errors.New("surface suboptimal"), ErrTransientPresentation)
	ErrWindowClosed             = errors.Mark(errors.New("window closed before the swapchain was rebuilt"), ErrTransientPresentation)
	ErrDescriptorBudgetExceeded = errors.Mark(errors.New("descriptor pool budget exceeded"), ErrResourceCreation)
)

// Initialization marks err as a fatal startup failure.
func Initialization(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrInitialization)
}

// Resource marks err as a failure to create a GPU resource.
func Resource(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrResourceCreation)
}

// IsTransient reports whether err can be recovered by rebuilding the swapchain.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientPresentation)
}
