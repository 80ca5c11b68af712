package mmv

import (
	"fmt"
	"regexp"
)

// maxNameLength is the largest metric/instance/indom name this library will
// accept, one byte short of the 64-byte wire field so every name has room
// for its NUL terminator.
const maxNameLength = 63

// clientNamePattern matches valid client (export file) names.
var clientNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,63}$`)

// validateName checks a metric/indom/instance name for length and
// printability. It does not check uniqueness; callers track that themselves
// since uniqueness is scoped differently for each kind of name.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name %q exceeds %d bytes", ErrInvalidName, name, maxNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r > 0x7e {
			return fmt.Errorf("%w: name %q contains a non-printable or non-ASCII rune", ErrInvalidName, name)
		}
	}
	return nil
}

// validateClientName checks a client export name against the allowed
// pattern.
func validateClientName(name string) error {
	if !clientNamePattern.MatchString(name) {
		return fmt.Errorf("%w: client name %q must match [A-Za-z0-9_.-]{1,63}", ErrInvalidName, name)
	}
	return nil
}
