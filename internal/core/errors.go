// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine and its collaborators.
var (
	// Operator input errors
	ErrInvalidHexToken = errors.New("bytescope: invalid hex token")
	ErrInvalidRange    = errors.New("bytescope: invalid index range")
	ErrInvalidRule     = errors.New("bytescope: invalid rule")

	// Rule store errors
	ErrRuleNotFound = errors.New("bytescope: rule not found")

	// Monitor / transport errors
	ErrMonitorStopped = errors.New("bytescope: monitor stopped")
	ErrNotConnected   = errors.New("bytescope: not connected")

	// Configuration errors
	ErrConfigInvalid = errors.New("bytescope: invalid configuration")

	// Daemon errors
	ErrDaemonNotRunning = errors.New("bytescope: daemon not running")
	ErrDaemonRunning    = errors.New("bytescope: daemon already running")
)

// HexTokenError reports the token that could not be decoded as a byte.
type HexTokenError struct {
	Token string
}

func (e *HexTokenError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidHexToken, e.Token)
}

func (e *HexTokenError) Unwrap() error {
	return ErrInvalidHexToken
}
