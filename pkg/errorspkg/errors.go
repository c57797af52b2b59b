// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates an unexpected internal failure, such as a broken
// storage connection or a corrupt stored value.
var ErrInternal = errors.New("internal")
