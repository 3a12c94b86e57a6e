package compare

import (
	"errors"
	"fmt"
)

// ErrVersionIncompatible is the sentinel wrapped by VersionIncompatibleError,
// so callers can branch with errors.Is without a type assertion.
var ErrVersionIncompatible = errors.New("compare: baseline major format versions are incompatible")

// VersionIncompatibleError is the one error Compare can return (§4.9 Step 1,
// §7): the two baselines' formatVersion major components differ and
// options.ignoreVersionMismatch was not set.
type VersionIncompatibleError struct {
	PreviousVersion string
	CurrentVersion  string
}

func (e *VersionIncompatibleError) Error() string {
	return fmt.Sprintf("compare: incompatible baseline format versions: previous %s, current %s", e.PreviousVersion, e.CurrentVersion)
}

func (e *VersionIncompatibleError) Unwrap() error { return ErrVersionIncompatible }
