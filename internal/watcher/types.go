package watcher

import "time"

// Operation is the settled kind of change observed on a watched file.
type Operation string

const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
	OpRename Operation = "rename"
)

func (op Operation) String() string { return string(op) }

// Removed reports whether the file is gone after the change.
func (op Operation) Removed() bool {
	return op == OpDelete || op == OpRename
}

// Event is one debounced change of a watched file.
type Event struct {
	Path      string
	Operation Operation
	Time      time.Time
}

// Config tunes the watcher. Changes to a file are reported once no further
// change arrived for Debounce.
type Config struct {
	Debounce time.Duration
}

// DefaultConfig returns a 500ms debounce.
func DefaultConfig() Config {
	return Config{Debounce: 500 * time.Millisecond}
}

// FileChangeHandler receives settled events.
type FileChangeHandler func(Event)
