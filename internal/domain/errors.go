package domain

import "errors"

var (
	// ErrUpstream marks a non-success response from the search, LLM, or mail provider.
	ErrUpstream = errors.New("upstream failure")
	// ErrMalformedResponse marks LLM output that is not parseable JSON after fence stripping.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrInvalidAnalysis marks a parsed analysis that violates the result schema.
	ErrInvalidAnalysis = errors.New("invalid analysis")
	// ErrInvalidDate marks a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidEmail marks a malformed subscriber email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrAlreadySubscribed marks a signup for an email that already has a row.
	ErrAlreadySubscribed = errors.New("already subscribed")
)
