package verify

import (
	"fmt"
	"strings"
)

// LocalModulesNotFoundError means address reconciliation filtered the
// decoded closure down to nothing: no module self-declares the
// package's original address. Present lists the addresses that were
// actually seen, for diagnosis.
type LocalModulesNotFoundError struct {
	Address string
	Present []string
}

func (e *LocalModulesNotFoundError) Error() string {
	if len(e.Present) == 0 {
		return fmt.Sprintf("no local modules found for address %s (closure is empty)", e.Address)
	}
	return fmt.Sprintf("no local modules found for address %s (present: %s)",
		e.Address, strings.Join(e.Present, ", "))
}
