package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"sketchroom/pkg/types"
)

// wirePair upgrades one real socket and returns both ends.
func wirePair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	serverCh := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		serverCh <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-serverCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server side of the pair never arrived")
	}
	return server, client
}

func TestWriteEventDeliversEnvelope(t *testing.T) {
	req := require.New(t)
	server, client := wirePair(t)

	c := NewConnection(server, 4, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	req.NoError(c.WriteEvent(types.EventConnected, types.ConnectedPayload{UserID: "u1", Message: "hi"}))

	req.NoError(client.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var env types.Envelope
	req.NoError(client.ReadJSON(&env))
	req.Equal(types.EventConnected, env.Event)

	var payload types.ConnectedPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("u1", payload.UserID)
}

func TestWriteEventAfterClose(t *testing.T) {
	server, _ := wirePair(t)

	c := NewConnection(server, 4, time.Second)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.WriteEvent(types.EventConnected, nil)
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestWritersFailFastAfterSocketDeath(t *testing.T) {
	req := require.New(t)
	server, client := wirePair(t)

	c := NewConnection(server, 1, 200*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })

	// Kill the peer; once the writer hits the dead socket it must tear
	// the connection down so broadcast callers stop paying the write
	// timeout per event.
	req.NoError(client.Close())

	req.Eventually(func() bool {
		return errors.Is(c.WriteEvent(types.EventRooms, nil), ErrConnectionClosed)
	}, 5*time.Second, 20*time.Millisecond)
}
