package ws

import (
	"context"
	"sync"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned for requests pending when the connection goes away.
var ErrClosed = errors.New("ws client: connection closed")

// Client is a transport.Source backed by a websocket connection.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Frame
	err     error
	done    chan struct{}
}

var _ transport.Source = &Client{}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "ws client: dial %s", url)
	}
	c := &Client{
		conn:    conn,
		pending: map[string]chan Frame{},
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.fail(err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if !ok {
			log.Debug().Str("component", "ws-client").Str("id", f.ID).Msg("dropping response for unknown request")
			continue
		}
		ch <- f
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = errors.Wrap(ErrClosed, err.Error())
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *Client) roundTrip(ctx context.Context, f Frame) (Frame, error) {
	f.ID = uuid.NewString()
	ch := make(chan Frame, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return Frame{}, err
	}
	c.pending[f.ID] = ch
	c.mu.Unlock()

	if err := c.write(f); err != nil {
		c.forget(f.ID)
		return Frame{}, errors.Wrap(err, "ws client: send")
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return Frame{}, err
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(f.ID)
		if err := c.write(Frame{ID: f.ID, Type: FrameCancel}); err != nil {
			log.Debug().Err(err).Str("component", "ws-client").Str("id", f.ID).Msg("cancel frame not sent")
		}
		return Frame{}, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) FetchItems(ctx context.Context, req transport.ItemsRequest) (transport.ItemsPage, error) {
	resp, err := c.roundTrip(ctx, Frame{Type: FrameItems, Request: &req})
	if err != nil {
		return transport.ItemsPage{}, err
	}
	if resp.Type == FrameError {
		return transport.ItemsPage{}, errors.Errorf("ws client: server: %s", resp.Error)
	}
	items, err := eventlog.Items(resp.Records)
	if err != nil {
		return transport.ItemsPage{}, errors.Wrap(err, "ws client: decode page")
	}
	return transport.ItemsPage{Items: items, EndOfStream: resp.EndOfStream}, nil
}

func (c *Client) FetchDependency(ctx context.Context, id int64) (*eventlog.Item, error) {
	resp, err := c.roundTrip(ctx, Frame{Type: FrameDependency, DependencyID: id})
	if err != nil {
		return nil, err
	}
	if resp.NotFound {
		return nil, transport.ErrNotFound
	}
	if resp.Type == FrameError || resp.Record == nil {
		return nil, errors.Errorf("ws client: server: %s", resp.Error)
	}
	it, err := resp.Record.Item()
	if err != nil {
		return nil, errors.Wrap(err, "ws client: decode item")
	}
	return it, nil
}

// Close sends a close frame and waits for the read loop to stop.
func (c *Client) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	cerr := c.conn.Close()
	<-c.done
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return errors.Wrap(err, "ws client: close")
	}
	return cerr
}
