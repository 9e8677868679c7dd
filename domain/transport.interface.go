package domain

import "context"

// Transport is one websocket connection to the realtime feed. A new Transport is
// created for every (re)connect; it is never reused after Close.
type Transport interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Send(cmd Command) error
	// ReadMessage blocks until the next frame or a transport error.
	ReadMessage() ([]byte, error)
	Close() error
}

type TransportFactory func() Transport
