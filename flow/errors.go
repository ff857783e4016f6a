package flow

import "errors"

var (
	ErrInvalidTransition  = errors.New("action not available on this screen")
	ErrGuardBlocked       = errors.New("action blocked")
	ErrCollaborator       = errors.New("collaborator rejected the request")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownAction      = errors.New("unknown action")
	ErrNothingToResume    = errors.New("no verification in progress")
	ErrResumeMismatch     = errors.New("resume token does not match the verification in progress")
	ErrPaymentUnavailable = errors.New("payment method unavailable")
)
