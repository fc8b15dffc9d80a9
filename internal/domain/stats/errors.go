package stats

import "errors"

var (
	ErrMalformedRecord = errors.New("malformed daily stats record")
	ErrMissingDate     = errors.New("daily stats record has no date")
)
