package remote

import (
	"fmt"
)

// ❌ ConnectionError reports that a remote filesystem could not be
// established, e.g. failed authentication or network setup.
type ConnectionError struct {
	Protocol string
	Address  string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s://%s: %v", e.Protocol, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
