// Package plugins loads external filesystem backends as subprocesses,
// exposing facade.FS's capability set across the process boundary over
// hashicorp/go-plugin's classic net/rpc transport (no protobuf codegen).
// This is the "external binary" resolution path hostfs.Host falls back to
// for a backend name it does not carry in its in-process registry.
package plugins

import "fmt"

// Manifest self-describes a plugin binary for humans and for
// throttlefsctl's introspection commands. Loader does not branch on it —
// there is exactly one plugin kind, "fs".
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
}

// Error wraps a failure loading or communicating with a plugin process,
// tagging it with the backend name for logging.
type Error struct {
	Name string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin %q: %s: %v", e.Name, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
