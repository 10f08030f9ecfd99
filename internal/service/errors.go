package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation so handlers can pick a status code.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed or missing input.
	KindValidation
	// KindNotFound covers ids that do not resolve.
	KindNotFound
	// KindPermission covers actors lacking the role or ownership required.
	KindPermission
	// KindConflict covers uniqueness violations and capacity limits.
	KindConflict
	// KindState covers operations invalid for the current lifecycle state.
	KindState
)

// Error is a typed failure with a message safe to show to the caller.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Permissionf(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Statef(format string, args ...any) error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a typed failure, or KindUnknown for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
