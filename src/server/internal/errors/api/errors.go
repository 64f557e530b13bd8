package api

import "github.com/cockroachdb/errors"

type ErrorCode string

const (
	DefaultErrorCode     = ErrorCode("unknown_error")
	TooManyRequestsCode  = ErrorCode("too_many_requests")
	MalformedRequestCode = ErrorCode("malformed_request")
)

func WrapError(err *Error, msg string) *Error {
	return &Error{
		ErrorCode:     err.ErrorCode,
		UserMessage:   err.UserMessage,
		InternalError: errors.WrapWithDepth(1, err.InternalError, msg),
	}
}

func CommitError(err error, errorCode ErrorCode, userMessage string) *Error {
	return &Error{
		ErrorCode:     errorCode,
		UserMessage:   userMessage,
		InternalError: err,
	}
}

// Error is what usecases hand back to their gateways. ErrorCode picks the
// HTTP status, UserMessage is safe to show.
type Error struct {
	ErrorCode     ErrorCode
	UserMessage   string
	InternalError error
}

func (e Error) Cause() error {
	return e.InternalError
}

func (e Error) Error() string {
	return e.InternalError.Error()
}
