package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags every error the service returns so callers can map outcomes
// without string matching. NotFound deliberately covers both "does not
// exist" and "not owned by the caller"; the two are indistinguishable so a
// caller can never probe for records belonging to another account.
type Kind string

const (
	KindNotAuthenticated Kind = "NOT_AUTHENTICATED"
	KindNotFound         Kind = "NOT_FOUND"
	KindRemoteFailure    Kind = "REMOTE_FAILURE"
	KindValidation       Kind = "VALIDATION_FAILURE"
)

// Error is the tagged failure type for all service operations.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errNotAuthenticated() error {
	return &Error{Kind: KindNotAuthenticated, Message: "not authenticated"}
}

func errInvalidCredentials() error {
	return &Error{Kind: KindNotAuthenticated, Message: "invalid email or password"}
}

func errNotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func errValidation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func errRemote(message string, err error) error {
	return &Error{Kind: KindRemoteFailure, Message: message, Err: err}
}

// KindOf extracts the kind of a service error; unknown errors count as
// remote failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemoteFailure
}

// DoseFailure names one dose whose insert failed during schedule
// initialization.
type DoseFailure struct {
	Vaccine string
	Err     error
}

// ScheduleInitError reports a partially applied schedule initialization.
// The successfully written doses remain queryable; the failed ones are
// listed so a caller can retry just those.
type ScheduleInitError struct {
	ChildID  string
	Failures []DoseFailure
}

func (e *ScheduleInitError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Vaccine)
	}
	return fmt.Sprintf("schedule initialization incomplete for child %s: failed doses: %s",
		e.ChildID, strings.Join(names, ", "))
}
