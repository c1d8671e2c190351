package controller

import "errors"

var (
	// ErrNoFeatures is returned by Run when the feature search yields nothing
	// for the specification.
	ErrNoFeatures = errors.New("no features found for specification")

	// ErrInvalidRequest is returned by Run when a Request fails validation
	// after defaults are applied.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)
