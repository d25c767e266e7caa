// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"golang.org/x/exp/slog"
)

// Validatable is used by DebugValidate to act upon every allocator with a Validate method.
type Validatable interface {
	Validate() error
}

// reportViolation logs a contract violation at debug level and hands it to the assertion
// layer, which panics in debug_arena builds and returns err unchanged otherwise. The caller
// gets the error either way, so only its message is logged.
func reportViolation(logger *slog.Logger, err error) error {
	logger.Debug("contract violation", slog.String("error", err.Error()))
	return violation(err)
}
