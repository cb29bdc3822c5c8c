package command

// List is an append-only sequence of commands collected while a snapshot is built.
// Snapshots carry two lists: pre-render (resource loads) and post-render (resource unloads).
// A List is not safe for concurrent use; it is owned by whoever is building the snapshot.
type List struct {
	commands []Command
}

// NewList creates an empty command list.
//
// Returns:
//   - *List: the new list
func NewList() *List {
	return &List{}
}

// Add appends commands to the list in order.
//
// Parameters:
//   - cmds: the commands to append
func (l *List) Add(cmds ...Command) {
	l.commands = append(l.commands, cmds...)
}

// Len returns the number of commands in the list. A nil list is empty.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.commands)
}

// Commands returns the commands in insertion order. The returned slice must not be modified.
func (l *List) Commands() []Command {
	if l == nil {
		return nil
	}
	return l.commands
}
