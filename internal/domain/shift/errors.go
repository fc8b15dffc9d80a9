package shift

import "errors"

var ErrInvalidShift = errors.New("invalid shift configuration")
