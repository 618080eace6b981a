package models

import "errors"

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidInvite  = errors.New("invalid invite")
	ErrBackpressure   = errors.New("backpressure")
)
