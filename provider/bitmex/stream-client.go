package bitmex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
)

const closeGracePeriod = time.Second

// StreamClient is the websocket transport of one feed session. It is not
// reusable: the supervisor builds a new one for every connection.
type StreamClient struct {
	endpoint string
	dialer   *websocket.Dialer

	conn      *websocket.Conn
	connected atomic.Bool
	closed    atomic.Bool
	writeMu   sync.Mutex
}

func NewStreamClient(endpoint string, handshakeTimeout time.Duration) *StreamClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &StreamClient{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// NewStreamClientFactory returns a factory for the supervisor.
func NewStreamClientFactory(endpoint string, handshakeTimeout time.Duration) domain.TransportFactory {
	return func() domain.Transport {
		return NewStreamClient(endpoint, handshakeTimeout)
	}
}

func (c *StreamClient) Connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return &domain.TransportError{Err: fmt.Errorf("dial %s: %w", c.endpoint, err)}
	}

	c.conn = conn
	c.connected.Store(true)
	return nil
}

func (c *StreamClient) IsConnected() bool { return c.connected.Load() }

func (c *StreamClient) Send(cmd domain.Command) error {
	if !c.IsConnected() {
		return &domain.TransportError{Err: errors.New("connection is not established")}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteJSON(cmd); err != nil {
		return &domain.TransportError{Err: fmt.Errorf("failed to send %s: %w", cmd.Op, err), Fatal: true}
	}
	return nil
}

// ReadMessage blocks for the next frame. A closed socket yields a non fatal
// TransportError; anything else seen on a live socket is fatal.
func (c *StreamClient) ReadMessage() ([]byte, error) {
	if c.conn == nil {
		return nil, &domain.TransportError{Err: errors.New("connection is not established")}
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		wasConnected := c.connected.Swap(false)
		return nil, &domain.TransportError{Err: err, Fatal: wasConnected && !isClosedErr(err) && !c.closed.Load()}
	}
	return msg, nil
}

func (c *StreamClient) Close() error {
	if c.closed.Swap(true) || c.conn == nil {
		return nil
	}
	c.connected.Store(false)

	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}

func isClosedErr(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
