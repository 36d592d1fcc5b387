package pkgcontext

import "context"

// WithCancelOnAnotherContext creates a new context from parent,
// but also cancelling upon a second context (other). Calling the
// returned cancel function releases the link with other.
func WithCancelOnAnotherContext(parent context.Context, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
