package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu   sync.Mutex
	msgs [][]byte
	full bool
}

func (c *fakeChannel) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *fakeChannel) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func testRouter() *Router {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDeliver_NoRecipient(t *testing.T) {
	r := testRouter()
	err := r.Deliver(context.Background(), 1, map[string]string{"hello": "world"})
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestDeliver_FansOutToAllChannels(t *testing.T) {
	r := testRouter()
	a, b := &fakeChannel{}, &fakeChannel{}
	r.Register(1, a)
	r.Register(1, b)

	other := &fakeChannel{}
	r.Register(2, other)

	require.NoError(t, r.Deliver(context.Background(), 1, map[string]int{"n": 42}))

	for _, ch := range []*fakeChannel{a, b} {
		msgs := ch.received()
		require.Len(t, msgs, 1)
		var got map[string]int
		require.NoError(t, json.Unmarshal(msgs[0], &got))
		require.Equal(t, 42, got["n"])
	}
	require.Empty(t, other.received(), "other users see nothing")
}

func TestRegister_Idempotent(t *testing.T) {
	r := testRouter()
	ch := &fakeChannel{}
	r.Register(1, ch)
	r.Register(1, ch)

	require.NoError(t, r.Deliver(context.Background(), 1, "once"))
	require.Len(t, ch.received(), 1)
}

func TestUnregister(t *testing.T) {
	r := testRouter()
	a, b := &fakeChannel{}, &fakeChannel{}
	r.Register(1, a)
	r.Register(1, b)
	require.True(t, r.Connected(1))

	r.Unregister(1, a)
	require.True(t, r.Connected(1), "one tab closing leaves the other live")
	require.NoError(t, r.Deliver(context.Background(), 1, "x"))
	require.Empty(t, a.received())
	require.Len(t, b.received(), 1)

	r.Unregister(1, b)
	r.Unregister(1, b) // no-op
	require.False(t, r.Connected(1))
	require.ErrorIs(t, r.Deliver(context.Background(), 1, "x"), ErrNoRecipient)
}

func TestDeliver_SlowChannelDoesNotFail(t *testing.T) {
	r := testRouter()
	slow := &fakeChannel{full: true}
	ok := &fakeChannel{}
	r.Register(1, slow)
	r.Register(1, ok)

	require.NoError(t, r.Deliver(context.Background(), 1, "x"))
	require.Len(t, ok.received(), 1)
	require.Empty(t, slow.received())
}

func TestDeliver_CancelledContext(t *testing.T) {
	r := testRouter()
	ch := &fakeChannel{}
	r.Register(1, ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, r.Deliver(ctx, 1, "x"))
	require.Empty(t, ch.received())
}

func TestDeliver_Concurrent(t *testing.T) {
	r := testRouter()
	ch := &fakeChannel{}
	r.Register(1, ch)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Deliver(context.Background(), 1, "x")
		}()
	}
	wg.Wait()
	require.Len(t, ch.received(), 20)
}
