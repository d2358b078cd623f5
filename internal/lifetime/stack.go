// Package lifetime provides scoped ownership for GPU handles.
//
// A Stack records a release function for every object as it is created and
// runs them in reverse creation order. Releasing is idempotent, so an owner
// can tear down and rebuild the same set of objects any number of times
// without double-freeing a handle.
package lifetime

import (
	"log/slog"
)

type entry struct {
	name    string
	release func()
}

// Stack is a LIFO list of release functions. The zero value is ready to use.
type Stack struct {
	entries []entry
	logger  *slog.Logger
}

// NewStack returns a stack that logs each release at debug level.
func NewStack(logger *slog.Logger) *Stack {
	return &Stack{logger: logger}
}

// Push registers release to run when the stack is released.
func (s *Stack) Push(name string, release func()) {
	s.entries = append(s.entries, entry{name: name, release: release})
}

// Len is the number of live entries.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Release runs every registered release function, newest first, and empties
// the stack.
func (s *Stack) Release() {
	for len(s.entries) > 0 {
		last := len(s.entries) - 1
		e := s.entries[last]
		s.entries = s.entries[:last]

		if s.logger != nil {
			s.logger.Debug("release", slog.String("object", e.name))
		}
		e.release()
	}
}
