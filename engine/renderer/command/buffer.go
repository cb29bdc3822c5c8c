package command

import (
	"iter"
	"slices"
)

// Buffer is the flat, ordered, immutable command sequence of one frame.
// It is built once by the command compiler and consumed exactly once by a command processor.
type Buffer struct {
	frame    uint64
	commands []Command
}

// NewBuffer creates a Buffer for the given frame sequence number.
// The buffer takes ownership of cmds; callers must not modify the slice afterwards.
//
// Parameters:
//   - frame: the sequence number of the snapshot the buffer was compiled from
//   - cmds: the commands in execution order
//
// Returns:
//   - *Buffer: the new buffer
func NewBuffer(frame uint64, cmds []Command) *Buffer {
	return &Buffer{frame: frame, commands: cmds}
}

// Frame returns the sequence number of the snapshot the buffer was compiled from.
func (b *Buffer) Frame() uint64 {
	return b.frame
}

// Len returns the number of commands in the buffer.
func (b *Buffer) Len() int {
	return len(b.commands)
}

// At returns the command at index i.
func (b *Buffer) At(i int) Command {
	return b.commands[i]
}

// All iterates the commands in execution order.
func (b *Buffer) All() iter.Seq2[int, Command] {
	return slices.All(b.commands)
}

// Types returns the CommandType of every command, in order.
func (b *Buffer) Types() []CommandType {
	out := make([]CommandType, len(b.commands))
	for i, c := range b.commands {
		out[i] = c.Type()
	}
	return out
}

// Count returns how many commands of type t the buffer holds.
func (b *Buffer) Count(t CommandType) int {
	n := 0
	for _, c := range b.commands {
		if c.Type() == t {
			n++
		}
	}
	return n
}
