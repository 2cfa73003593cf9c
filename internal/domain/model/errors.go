package model

import "errors"

// Engine error taxonomy. Data-quality errors (malformed fields, contract
// violations) are recovered per item and surfaced as run warnings; the
// configuration and collaborator errors abort a session.
var (
	ErrMalformedAmount         = errors.New("malformed amount")
	ErrMalformedDate           = errors.New("malformed date")
	ErrInvalidInputContract    = errors.New("invalid input contract")
	ErrInvalidConfiguration    = errors.New("invalid configuration")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
