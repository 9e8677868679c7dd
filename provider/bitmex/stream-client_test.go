package bitmex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFeedServer answers the subscribe command with the given frames and then
// runs after, if set.
func newFeedServer(t *testing.T, frames []string, after func(conn *websocket.Conn)) (*httptest.Server, <-chan domain.Command) {
	upgrader := websocket.Upgrader{}
	commands := make(chan domain.Command, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var cmd domain.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		commands <- cmd

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if after != nil {
			after(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, commands
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamClient_SubscribeAndRead(t *testing.T) {
	srv, commands := newFeedServer(t, []string{`{"info":"Welcome"}`, bookPartial}, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	c := NewStreamClient(wsURL(srv), time.Second)
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	symbol, _ := domain.NewMarketSymbol("XBTUSD")
	require.NoError(t, c.Send(domain.NewSubscribeCommand(Topics(symbol, nil, nil))))

	cmd := <-commands
	assert.Equal(t, "subscribe", cmd.Op)
	assert.Equal(t, []string{"orderBookL2:XBTUSD"}, cmd.Args)

	msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"info":"Welcome"}`, string(msg))

	msg, err = c.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"partial"`)

	_, err = c.ReadMessage()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)

	var terr *domain.TransportError
	require.True(t, errors.As(err, &terr))
	assert.False(t, terr.Fatal, "a closed socket is not fatal")
	assert.False(t, c.IsConnected())

	assert.NoError(t, c.Close())
}

func TestStreamClient_ConnectFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewStreamClient(wsURL(srv), time.Second)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, c.IsConnected())

	err = c.Send(domain.NewSubscribeCommand([]string{"trade"}))
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestTopics(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("xbtusd")
	require.NoError(t, err)

	topics := Topics(symbol, []string{"orderBookL2", "trade", "quote"}, []string{"margin"})
	assert.Equal(t, []string{"orderBookL2:XBTUSD", "trade:XBTUSD", "quote:XBTUSD", "margin"}, topics)
}
