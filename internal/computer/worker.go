// File: internal/computer/worker.go
package computer

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// offload runs one blocking OS call on a background goroutine and waits for
// it to finish. Calls never overlap because the caller always waits.
func offload(op string, fn func() error) error {
	var g errgroup.Group
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", op, r)
			}
		}()
		return fn()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
