package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Wire codes understood by existing clients.
const (
	CodeNoSuchSession    = "nac"
	CodeNoSuchRoom       = "nar"
	CodeNicknameTaken    = "nat"
	CodeNicknameRejected = "nnm"
	CodeNoSuchGame       = "ngm"
	CodeNotAuthenticated = "ena"
	CodeCannotVerify     = "cvg"
	CodeCannotGetGames   = "cgg"
	CodeUnknownRequest   = "nvf"
	CodeBadRequest       = "bad"
	CodeTeamsAlreadySet  = "tas"
	CodeInternal         = "int"
)

// Error is what the controller reports back to the originating caller.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code string, err error) *Error {
	return &Error{Kind: KindValidation, Code: code, Err: err}
}

func Conflict(code string, err error) *Error {
	return &Error{Kind: KindConflict, Code: code, Err: err}
}

func Unauthenticated(code string, err error) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Err: err}
}

// From classifies any error; errors that are not *Error are internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
