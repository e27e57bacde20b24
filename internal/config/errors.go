package config

import "errors"

var (
	// ErrNoRemoteAddress is returned when no base URL for the remote mutation
	// service was provided by any configuration source.
	ErrNoRemoteAddress = errors.New("remote service address is not configured")

	// ErrBackoffCapTooSmall is returned when the configured backoff cap is
	// below the backoff base, which would make every retry fire immediately.
	ErrBackoffCapTooSmall = errors.New("backoff cap is smaller than backoff base")
)
