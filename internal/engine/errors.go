package engine

import "fmt"

// AnchorError is the fatal result of checkpoint anchor validation: the
// pattern matched a number of locations its cardinality does not
// allow. It is raised before any external process starts; a mandatory
// checkpoint is never silently skipped.
type AnchorError struct {
	Checkpoint string
	Pattern    string
	Matches    int
	Need       string
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("checkpoint %s: anchor %q matched %d locations, need %s",
		e.Checkpoint, e.Pattern, e.Matches, e.Need)
}

// WriteError is a fatal guarded-file write failure. Restored reports
// whether the pre-mutation backup was rolled back before the error
// surfaced.
type WriteError struct {
	Path     string
	Op       string
	Restored bool
	Cause    error
}

func (e *WriteError) Error() string {
	if e.Restored {
		return fmt.Sprintf("%s %s failed (backup restored): %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }
