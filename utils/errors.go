package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ztrue/tracerr"
)

type DocGuardError struct {
	Code        string
	Description string
	Details     string
}

var knownErrors = Set[string]{}

func NewDocGuardError(code string, description string) DocGuardError {
	if knownErrors.Has(code) {
		panic("Duplicate error: " + code)
	}
	knownErrors.Add(code)
	return DocGuardError{
		Code:        code,
		Description: description,
	}
}

// Error reads "docguard: CODE: description (details)". Description and details are left out when empty.
func (err DocGuardError) Error() string {
	text := "docguard: " + err.Code
	if err.Description != "" {
		text += ": " + err.Description
	}
	if err.Details != "" {
		text += " (" + err.Details + ")"
	}
	return text
}

func (err DocGuardError) Is(target error) bool {
	var docGuardErrorTarget DocGuardError
	if errors.As(target, &docGuardErrorTarget) {
		return docGuardErrorTarget.Code == err.Code
	} else {
		return false
	}
}

// AddDetails returns a copy of err carrying details, such as the offending media type or field.
// Details added to an error that already has some are appended after a "; ".
func (err DocGuardError) AddDetails(details string) DocGuardError {
	newErr := err
	if newErr.Details != "" && details != "" {
		newErr.Details += "; " + details
	} else if details != "" {
		newErr.Details = details
	}
	return newErr
}

// SerializableError is the JSON shape in which errors are handed over to the network layer.
// Stack is only meant for debug logs and is never serialized.
type SerializableError struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
	Stack       string `json:"-"`
}

func (e SerializableError) Error() string {
	res, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("{\"code\": \"SERIALIZATION_ERROR\", \"details\": %q}", err.Error())
	}
	return string(res)
}

// ToSerializableError maps err to its code. Context errors get their own codes so that an aborted upload
// is not reported as a failure.
func ToSerializableError(err error) *SerializableError {
	if err == nil {
		return nil
	}
	var docGuardError DocGuardError
	switch {
	case errors.As(err, &docGuardError):
		return &SerializableError{
			Code:        docGuardError.Code,
			Description: docGuardError.Description,
			Details:     docGuardError.Details,
			Stack:       tracerr.Sprint(err),
		}
	case errors.Is(err, context.Canceled):
		return &SerializableError{Code: "CANCELED", Stack: tracerr.Sprint(err)}
	case errors.Is(err, context.DeadlineExceeded):
		return &SerializableError{Code: "TIMEOUT", Stack: tracerr.Sprint(err)}
	}
	return &SerializableError{
		Code:    "OTHER_ERROR",
		Details: err.Error(),
		Stack:   tracerr.Sprint(err),
	}
}
