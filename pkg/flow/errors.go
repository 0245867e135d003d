package flow

import (
	"errors"
	"fmt"
)

// BadRequestError marks an execution failure the caller is responsible for:
// a payload no trigger accepts, a broken action config, or a graph that blew
// the visit cap. Its message is returned to the client verbatim, so it must
// stand on its own.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// NewBadRequestError builds a BadRequestError with a formatted message.
func NewBadRequestError(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err is a caller-caused execution failure.
func IsBadRequest(err error) bool {
	var badRequest *BadRequestError

	return errors.As(err, &badRequest)
}
