package dialog

import (
	"errors"
	"fmt"
)

// ErrCollectionCancelled is returned when the user abandoned the
// collection through either channel: declining the in-protocol
// confirmation, closing the collector dialog, or leaving every field
// blank. Callers report it as a cancellation message, not a failure.
var ErrCollectionCancelled = errors.New("dialog: collection cancelled by user")

// errCollectorCancelled marks a collector process exit with code 1, the
// dialog's own user-cancel signal. Folded into ErrCollectionCancelled by
// the coordinator.
var errCollectorCancelled = errors.New("dialog: collector reported user cancel")

// CollectionError reports an operational failure of the collector: a
// missing binary, a crash, or malformed output. Distinct from a user
// cancellation, which is never an error to alarm on.
type CollectionError struct {
	Stage  string // "spawn", "run", "decode"
	Stderr string // Collector diagnostic output, if any.
	Err    error
}

func (e *CollectionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("dialog: collector %s failed: %v: %s", e.Stage, e.Err, e.Stderr)
	}
	return fmt.Sprintf("dialog: collector %s failed: %v", e.Stage, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }
