// Package coder drives the iterative coding-agent conversation: one
// structured operation per model turn, validated and dispatched against
// the workspace until the agent declares completion or stalls.
package coder

import "fmt"

// Operation kinds on the wire.
const (
	OpGetFile        = "get_file"
	OpReplaceLines   = "replace_lines"
	OpFindAndReplace = "find_replace"
	OpWriteFile      = "write_file"
	OpCreateFile     = "create_file"
	OpDeleteFile     = "delete_file"
	OpCopyFile       = "copy_file"
	OpComplete       = "complete"
)

// Operation is one validated instruction issued by the coding agent.
// Kind selects which fields are meaningful.
type Operation struct {
	Kind string

	Path    string
	Content string

	// replace_lines, 1-indexed inclusive
	Start int
	End   int

	// find_replace
	Find    string
	Replace string

	// copy_file
	SourcePath string
	TargetPath string

	Reason  string
	Summary string
}

// Mutating reports whether the operation changes workspace content.
func (o Operation) Mutating() bool {
	switch o.Kind {
	case OpReplaceLines, OpFindAndReplace, OpWriteFile, OpCreateFile, OpDeleteFile, OpCopyFile:
		return true
	}
	return false
}

// Target returns the workspace path the operation affects.
func (o Operation) Target() string {
	if o.Kind == OpCopyFile {
		return o.TargetPath
	}
	return o.Path
}

// String renders a short description for logs and transcripts.
func (o Operation) String() string {
	switch o.Kind {
	case OpCopyFile:
		return fmt.Sprintf("%s '%s' -> '%s'", o.Kind, o.SourcePath, o.TargetPath)
	case OpReplaceLines:
		return fmt.Sprintf("%s '%s' lines %d-%d", o.Kind, o.Path, o.Start, o.End)
	case OpComplete:
		return o.Kind
	default:
		return fmt.Sprintf("%s '%s'", o.Kind, o.Path)
	}
}
