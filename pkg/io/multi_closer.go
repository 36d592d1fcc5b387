package pkgio

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Close closes every closer, even after failures, and returns all the
// errors aggregated. Nil closers are skipped.
func Close(closers ...io.Closer) error {
	var err error
	for i, c := range closers {
		if c == nil {
			continue
		}
		if cErr := c.Close(); cErr != nil {
			err = multierror.Append(err, fmt.Errorf("error closing %d-th closer: %w", i, cErr))
		}
	}
	return err
}
