package setup

import (
	"errors"
	"fmt"
)

// Kind classifies the fatal failures of a setup run.
type Kind int

const (
	// KindUnknown is reported for errors that don't carry a kind.
	KindUnknown Kind = iota
	// VersionLookupFailed means the latest release couldn't be resolved.
	VersionLookupFailed
	// UnsupportedTarget means there is no known download for the os/arch pair.
	UnsupportedTarget
	// DownloadFailed means the release archive couldn't be retrieved.
	DownloadFailed
	// ExtractFailed means the release archive couldn't be unpacked.
	ExtractFailed
	// BinaryNotFound means the installed binary isn't on the search path.
	BinaryNotFound
	// VerificationFailed means the binary is present but didn't run cleanly.
	VerificationFailed
)

func (k Kind) String() string {
	switch k {
	case VersionLookupFailed:
		return "VersionLookupFailed"
	case UnsupportedTarget:
		return "UnsupportedTarget"
	case DownloadFailed:
		return "DownloadFailed"
	case ExtractFailed:
		return "ExtractFailed"
	case BinaryNotFound:
		return "BinaryNotFound"
	case VerificationFailed:
		return "VerificationFailed"
	default:
		return "Unknown"
	}
}

// Sentinels usable with errors.Is; matching only looks at the kind.
var (
	ErrVersionLookupFailed = &Error{Kind: VersionLookupFailed}
	ErrUnsupportedTarget   = &Error{Kind: UnsupportedTarget}
	ErrDownloadFailed      = &Error{Kind: DownloadFailed}
	ErrExtractFailed       = &Error{Kind: ExtractFailed}
	ErrBinaryNotFound      = &Error{Kind: BinaryNotFound}
	ErrVerificationFailed  = &Error{Kind: VerificationFailed}
)

// Error is a fatal setup failure of a specific [Kind].
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Message is the human readable description.
	Message string
	// Cause is the underlying error.
	Cause error
}

// NewError creates an Error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindUnknown
}
