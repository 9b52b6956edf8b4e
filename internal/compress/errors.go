package compress

import (
	"errors"
	"fmt"

	"github.com/AnyUserName/imgfit/internal/encoder"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDecode               = errors.New("decode failure")
	ErrEncode               = errors.New("encode failure")
	ErrBudgetUnreachable    = errors.New("budget unreachable")
)

// Error is a terminal compression failure with diagnostics from the last
// attempt. Width, Height, Size and Format are zero when no attempt ran.
type Error struct {
	Kind error
	Op   string
	Err  error

	Format   encoder.Format
	Width    int
	Height   int
	Size     int
	Budget   int
	Attempts int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Format != "" {
		msg += fmt.Sprintf(" (last %s %dx%d, %d B, budget %d B, %d attempts)",
			e.Format, e.Width, e.Height, e.Size, e.Budget, e.Attempts)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidConfig(err error) *Error {
	return &Error{Kind: ErrInvalidConfiguration, Op: "validate", Err: err}
}
