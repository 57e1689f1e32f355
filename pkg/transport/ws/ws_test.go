package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/transport/memory"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, src transport.Source) *Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(src, websocket.Upgrader{}))
	t.Cleanup(srv.Close)
	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	src, err := memory.New([]*eventlog.Item{
		{ID: 1, Actor: "a", Payload: &eventlog.Text{Body: "one"}},
		{ID: 2, Actor: "b", Payload: &eventlog.Pinned{Dependency: eventlog.Dependency{RefID: 1}}},
		{ID: 3, Actor: "c", Payload: &eventlog.Left{}},
	})
	require.NoError(t, err)
	c := dial(t, src)
	ctx := context.Background()

	page, err := c.FetchItems(ctx, transport.ItemsRequest{Direction: eventlog.Up, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(2), page.Items[0].ID)
	require.Equal(t, eventlog.KindPinned, page.Items[0].Kind())
	require.Equal(t, int64(1), page.Items[0].Dependency().RefID)
	require.False(t, page.EndOfStream)

	page, err = c.FetchItems(ctx, transport.ItemsRequest{Direction: eventlog.Up, EdgeID: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.True(t, page.EndOfStream)

	it, err := c.FetchDependency(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "one", it.Payload.(*eventlog.Text).Body)

	_, err = c.FetchDependency(ctx, 99)
	require.True(t, transport.IsNotFound(err))

	_, err = c.FetchItems(ctx, transport.ItemsRequest{Direction: eventlog.Up})
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit must be positive")
}

type stuckSource struct {
	cancelled chan struct{}
}

func (s *stuckSource) FetchItems(ctx context.Context, req transport.ItemsRequest) (transport.ItemsPage, error) {
	<-ctx.Done()
	close(s.cancelled)
	return transport.ItemsPage{}, ctx.Err()
}

func (s *stuckSource) FetchDependency(ctx context.Context, id int64) (*eventlog.Item, error) {
	return nil, transport.ErrNotFound
}

func TestClient_CancelReachesServer(t *testing.T) {
	src := &stuckSource{cancelled: make(chan struct{})}
	c := dial(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchItems(ctx, transport.ItemsRequest{Direction: eventlog.Up, Limit: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-src.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("server request was not cancelled")
	}

	_, err = c.FetchDependency(context.Background(), 1)
	require.True(t, transport.IsNotFound(err))
}
