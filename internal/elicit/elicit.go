// Package elicit defines the contract for interactive confirmation
// requests sent to the connected protocol client. Both the permission
// prompt (a three-way choice) and the collection confirmation (a bare
// accept gate) flow through the same Elicitor; only the presence of
// options distinguishes them.
package elicit

import "context"

// Action is the client's disposition toward an elicitation request.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
)

// Result is the outcome of one elicitation round trip.
type Result struct {
	Action Action
	Choice string // Selected option when the request carried options.
}

// Accepted reports whether the client accepted the request.
func (r *Result) Accepted() bool {
	return r != nil && r.Action == ActionAccept
}

// Elicitor drives an interactive confirmation over a live protocol
// session. Options, when non-empty, constrain the response to exactly one
// of the given strings; with no options the request is a bare
// accept/decline/cancel gate.
type Elicitor interface {
	Elicit(ctx context.Context, message string, options []string) (*Result, error)
}

// Notifier pushes informational messages to the client outside the
// request/response cycle. Implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, message string)
}
