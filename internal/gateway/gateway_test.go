package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridewave/internal/infra"
	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, tok string) (*infra.FirebaseToken, error) {
	if !strings.HasPrefix(tok, "ok-") {
		return nil, errors.New("bad token")
	}
	return &infra.FirebaseToken{UID: strings.TrimPrefix(tok, "ok-")}, nil
}

type stubDirectory map[types.ID]user.User

func (d stubDirectory) Lookup(_ context.Context, id types.ID) (user.User, error) {
	u, ok := d[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func testDirectory() stubDirectory {
	return stubDirectory{
		"cust-1": {ID: "cust-1", Role: user.RoleCustomer},
		"cap-1":  {ID: "cap-1", Role: user.RoleCaptain, PushToken: "tok-cap-1"},
		"odd":    {ID: "odd", Role: user.Role("admin")},
	}
}

func next(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case env := <-c.Outbound():
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func TestConnEmitDropsWhenFullOrClosed(t *testing.T) {
	c := NewConn(Identity{UserID: "u"}, 1)
	assert.True(t, c.Emit("a", nil))
	assert.False(t, c.Emit("b", nil), "queue full")
	assert.Equal(t, "a", next(t, c).Event)

	c.Close()
	c.Close()
	assert.True(t, c.Closed())
	assert.False(t, c.Emit("c", nil))
}

func TestConnLocation(t *testing.T) {
	c := NewConn(Identity{}, 1)
	_, ok := c.Location()
	assert.False(t, ok)
	c.SetLocation(types.Point{Lat: 1, Lng: 2})
	p, ok := c.Location()
	require.True(t, ok)
	assert.Equal(t, types.Point{Lat: 1, Lng: 2}, p)
}

func TestHubTopics(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	a := NewConn(Identity{UserID: "a"}, 4)
	b := NewConn(Identity{UserID: "b"}, 4)
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "onDuty")
	hub.Join(b, "onDuty")

	got := hub.Publish("onDuty", "ping", nil)
	assert.ElementsMatch(t, []Handle{a.Handle(), b.Handle()}, got)
	next(t, a)
	next(t, b)

	hub.Leave(b, "onDuty")
	assert.Equal(t, []Handle{a.Handle()}, hub.Publish("onDuty", "ping", nil))
	next(t, a)

	hub.Unregister(a)
	assert.True(t, a.Closed())
	assert.Empty(t, hub.Members("onDuty"))
	assert.False(t, hub.SendTo(a.Handle(), "x", nil))
	assert.True(t, hub.SendTo(b.Handle(), "x", nil))
	assert.Equal(t, 1, hub.Len())
}

func TestHubJoinIgnoresUnregistered(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	c := NewConn(Identity{}, 1)
	hub.Join(c, "t")
	assert.Empty(t, hub.Members("t"))
}

func TestMuxDispatch(t *testing.T) {
	m := NewMux(zerolog.Nop())
	var got string
	m.Handle("echo", func(_ context.Context, _ *Conn, data json.RawMessage) error {
		got = string(data)
		return nil
	})
	m.Handle("captainOnly", func(context.Context, *Conn, json.RawMessage) error { return nil }, user.RoleCaptain)
	m.Handle("fails", func(context.Context, *Conn, json.RawMessage) error { return errors.New("nope") })
	m.Handle("panics", func(context.Context, *Conn, json.RawMessage) error { panic("boom") })

	c := NewConn(Identity{Role: user.RoleCustomer}, 8)
	ctx := context.Background()

	require.NoError(t, m.Dispatch(ctx, c, Inbound{Event: "echo", Data: json.RawMessage(`{"x":1}`)}))
	assert.Equal(t, `{"x":1}`, got)

	err := m.Dispatch(ctx, c, Inbound{Event: "missing"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Equal(t, EventError, next(t, c).Event)

	err = m.Dispatch(ctx, c, Inbound{Event: "captainOnly"})
	assert.ErrorIs(t, err, ErrForbidden)
	next(t, c)

	err = m.Dispatch(ctx, c, Inbound{Event: "fails"})
	assert.EqualError(t, err, "nope")
	env := next(t, c)
	assert.Equal(t, ErrorPayload{Message: "nope"}, env.Data)

	assert.Error(t, m.Dispatch(ctx, c, Inbound{Event: "panics"}))
	next(t, c)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?access_token=q", nil)
	assert.Equal(t, "q", TokenFromRequest(r))
	r.Header.Set("Authorization", "Bearer b")
	assert.Equal(t, "b", TokenFromRequest(r))
	r.Header.Set("access_token", "h")
	assert.Equal(t, "h", TokenFromRequest(r))
}

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(stubVerifier{}, testDirectory())
	ctx := context.Background()

	id, err := a.Authenticate(ctx, "ok-cap-1")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "cap-1", Role: user.RoleCaptain, PushToken: "tok-cap-1"}, id)

	for _, tok := range []string{"", "bad", "ok-ghost", "ok-odd"} {
		_, err := a.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, ErrUnauthenticated, tok)
	}
}

func TestServerRoundTrip(t *testing.T) {
	log := zerolog.Nop()
	hub := NewHub(log, nil)
	mux := NewMux(log)
	mux.Handle("hello", func(_ context.Context, c *Conn, _ json.RawMessage) error {
		c.Emit("welcome", map[string]string{"id": string(c.Identity().UserID)})
		return nil
	})
	closed := make(chan Handle, 1)
	mux.OnClose(func(_ context.Context, c *Conn) { closed <- c.Handle() })

	srv := httptest.NewServer(NewServer(hub, mux, NewAuthenticator(stubVerifier{}, testDirectory()), log))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?access_token=ok-cust-1", nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "hello", "data": map[string]any{}}))
	var env struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "welcome", env.Event)
	assert.Equal(t, "cust-1", env.Data["id"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	var errEnv struct {
		Event string       `json:"event"`
		Data  ErrorPayload `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&errEnv))
	assert.Equal(t, EventError, errEnv.Event)

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, ws.Close())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close hook not run")
	}
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}
