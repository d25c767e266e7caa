//go:build !debug_arena

// SPDX-License-Identifier: Apache-2.0

package arena

// debugAssertions reports whether contract violations panic instead of being returned.
const debugAssertions = false

func violation(err error) error {
	return err
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned.
// This method no-ops unless the debug_arena build tag is present.
func DebugValidate(validatable Validatable) {
}

// DebugCheckAlignment verifies that alignment is a power of two, and panics if it is not.
// This method no-ops unless the debug_arena build tag is present.
func DebugCheckAlignment(alignment uintptr) {
}
