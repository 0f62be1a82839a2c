/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected request or a fatal setup failure.
type Kind string

const (
	KindConfig        Kind = "config"
	KindValidation    Kind = "validation"
	KindUnknownAction Kind = "unknown_action"
	KindForcedAction  Kind = "forced_action"
	KindStateRace     Kind = "state_race"
)

var (
	ErrConfig        = &Error{Kind: KindConfig}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrUnknownAction = &Error{Kind: KindUnknownAction}
	ErrForcedAction  = &Error{Kind: KindForcedAction}
	ErrStateRace     = &Error{Kind: KindStateRace}
)

// Error carries a short reason suitable for showing to the requester.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrValidation)
// works for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func configErrorf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Reason: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func unknownf(format string, args ...any) error {
	return &Error{Kind: KindUnknownAction, Reason: fmt.Sprintf(format, args...)}
}

func forcedf(format string, args ...any) error {
	return &Error{Kind: KindForcedAction, Reason: fmt.Sprintf(format, args...)}
}

func stalef(format string, args ...any) error {
	return &Error{Kind: KindStateRace, Reason: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
