package jwt

import "errors"

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrAdminRequired = errors.New("admin privilege required")
)
