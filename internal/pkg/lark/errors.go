package lark

import (
	"errors"
	"fmt"
)

var ErrNoUser = errors.New("lark user not found")

// APIError is a non-2xx response or a response whose envelope code is not zero.
type APIError struct {
	StatusCode int
	Code       int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark api error: status %d, code %d: %s", e.StatusCode, e.Code, e.Msg)
}
