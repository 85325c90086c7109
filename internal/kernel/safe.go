package kernel

import (
	"errors"
	"fmt"
)

// errPanicked marks errors produced from a recovered panic.
var errPanicked = errors.New("panic recovered")

// runSafely executes fn and converts panics into returned errors tagged with scope.
// Commands, drivers, and module hooks all run through it so one faulty
// component cannot take the process down.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: %w: %v", scope, errPanicked, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
