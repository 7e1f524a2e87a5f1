// Package history records model edits as reversible commands.
package history

import (
	"errors"
	"log/slog"
)

// DefaultLimit is the number of commands a Stack keeps when no limit is given.
const DefaultLimit = 100

var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// Command is a reversible edit. Do is called once when the command is pushed
// and again on every redo; Undo reverts the most recent Do.
type Command interface {
	Name() string
	Do() error
	Undo() error
}

// Stack is a bounded undo/redo stack. It is not safe for concurrent use.
type Stack struct {
	done   []Command
	undone []Command
	limit  int
	logger *slog.Logger
}

// Option configures a Stack.
type Option func(*Stack)

// WithLimit bounds the undo depth. Values below one mean DefaultLimit.
func WithLimit(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the stack's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stack) { s.logger = l }
}

// NewStack creates an empty stack.
func NewStack(opts ...Option) *Stack {
	s := &Stack{limit: DefaultLimit, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push executes c and records it. A command that fails is not recorded and
// leaves the redo list untouched.
func (s *Stack) Push(c Command) error {
	if err := c.Do(); err != nil {
		s.logger.Debug("command rejected", "command", c.Name(), "error", err)
		return err
	}
	s.done = append(s.done, c)
	if len(s.done) > s.limit {
		s.done = s.done[len(s.done)-s.limit:]
	}
	s.undone = s.undone[:0]
	s.logger.Debug("command done", "command", c.Name(), "depth", len(s.done))
	return nil
}

// Undo reverts the most recent command.
func (s *Stack) Undo() error {
	if len(s.done) == 0 {
		return ErrNothingToUndo
	}
	c := s.done[len(s.done)-1]
	if err := c.Undo(); err != nil {
		return err
	}
	s.done = s.done[:len(s.done)-1]
	s.undone = append(s.undone, c)
	s.logger.Debug("command undone", "command", c.Name())
	return nil
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() error {
	if len(s.undone) == 0 {
		return ErrNothingToRedo
	}
	c := s.undone[len(s.undone)-1]
	if err := c.Do(); err != nil {
		return err
	}
	s.undone = s.undone[:len(s.undone)-1]
	s.done = append(s.done, c)
	s.logger.Debug("command redone", "command", c.Name())
	return nil
}

func (s *Stack) CanUndo() bool { return len(s.done) > 0 }
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// UndoName returns the name of the command Undo would revert.
func (s *Stack) UndoName() string {
	if len(s.done) == 0 {
		return ""
	}
	return s.done[len(s.done)-1].Name()
}

// RedoName returns the name of the command Redo would re-apply.
func (s *Stack) RedoName() string {
	if len(s.undone) == 0 {
		return ""
	}
	return s.undone[len(s.undone)-1].Name()
}

// Len returns the undo depth.
func (s *Stack) Len() int { return len(s.done) }

// Clear forgets every recorded command.
func (s *Stack) Clear() {
	s.done = nil
	s.undone = nil
}
