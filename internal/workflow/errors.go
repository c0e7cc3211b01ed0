package workflow

import "errors"

var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrInFlight             = errors.New("a request is already in flight")
	ErrNotInReview          = errors.New("claim is not in review")
	ErrNoResult             = errors.New("claim has not been evaluated")
	ErrPolicyNumberRequired = errors.New("Policy Number is required.")
	ErrUnknownDocument      = errors.New("unknown document kind")
)
