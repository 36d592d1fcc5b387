package pkgcontext

import (
	"context"
	"errors"
)

// IsContextError tells whether err was caused by ctx being done, so
// callers can tell a requested shutdown apart from a real failure.
func IsContextError(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	if ctxErr == nil || err == nil {
		return false
	}
	for _, candidate := range []error{context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, candidate) && errors.Is(ctxErr, candidate) {
			return true
		}
	}
	return false
}
