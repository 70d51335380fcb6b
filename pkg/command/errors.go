package command

import "fmt"

// ErrorKind identifies why a help string could not be turned into a Command
type ErrorKind int

// Error kinds
const (
	NoCommand ErrorKind = iota
	DuplicateKey
	InvalidCharacters
	RequiredInTail
	OptionalAfterFlex
	MultipleFlexible
)

// Error is returned by New when the help string is malformed
type Error struct {
	Kind ErrorKind
	// Key is set for DuplicateKey
	Key string
}

// Sentinels for use with errors.Is
var (
	ErrNoCommand         = &Error{Kind: NoCommand}
	ErrDuplicateKey      = &Error{Kind: DuplicateKey}
	ErrInvalidCharacters = &Error{Kind: InvalidCharacters}
	ErrRequiredInTail    = &Error{Kind: RequiredInTail}
	ErrOptionalAfterFlex = &Error{Kind: OptionalAfterFlex}
	ErrMultipleFlexible  = &Error{Kind: MultipleFlexible}
)

func (e *Error) Error() string {
	switch e.Kind {
	case NoCommand:
		return "a command must be provided"
	case DuplicateKey:
		return fmt.Sprintf("duplicate key found: %s", e.Key)
	case InvalidCharacters:
		return "only alphanumeric keys are allowed"
	case RequiredInTail:
		return "required cannot follow optional or flexible"
	case OptionalAfterFlex:
		return "optional cannot follow flexible"
	case MultipleFlexible:
		return "only a single flexible argument can exist"
	}
	return fmt.Sprintf("unknown command error %d", e.Kind)
}

// Is matches errors of the same kind, ignoring the key
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
