package domain

import (
	"errors"
	"fmt"
)

var (
	// The local mirror diverged from the feed. Only a fresh partial via reconnect repairs it.
	ErrProtocolViolation = errors.New("protocol violation")
	// Connect deadline at startup exceeded.
	ErrConnectTimeout = errors.New("couldn't connect to websocket")
	// The transport went away or reported a fatal condition.
	ErrTransport = errors.New("transport error")
	// A single malformed frame; it is dropped and the connection stays up.
	ErrMessageParse = errors.New("message parse error")
	ErrConfig       = errors.New("invalid config")

	ErrInvalidDepth = errors.New("invalid depth")
	ErrNotReady     = errors.New("order book is not ready")
)

// ProtocolViolationError tells which table and row broke the replication protocol.
type ProtocolViolationError struct {
	Table  string
	Action Action
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("%s: table=%s action=%s: %s", ErrProtocolViolation, e.Table, e.Action, e.Reason)
}

func (e *ProtocolViolationError) Unwrap() error { return ErrProtocolViolation }

func NewProtocolViolation(table string, action Action, format string, args ...interface{}) error {
	return &ProtocolViolationError{Table: table, Action: action, Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps errors of the underlying connection. Fatal errors are the
// ones reported while the socket still looked connected.
type TransportError struct {
	Err   error
	Fatal bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

func IsProtocolViolation(err error) bool { return errors.Is(err, ErrProtocolViolation) }

func IsMessageParse(err error) bool { return errors.Is(err, ErrMessageParse) }
