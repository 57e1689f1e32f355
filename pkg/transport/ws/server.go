package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server answers transport frames from a Source, one goroutine per request.
type Server struct {
	source   transport.Source
	upgrader websocket.Upgrader
}

func NewServer(source transport.Source, upgrader websocket.Upgrader) *Server {
	return &Server{source: source, upgrader: upgrader}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if s.source == nil {
		http.Error(w, "source not initialized", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	s.serve(req.Context(), conn)
}

type serverConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	sc := &serverConn{conn: conn, cancels: map[string]context.CancelFunc{}}
	logger := log.With().Str("component", "ws-server").Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Debug().Msg("client connected")

	defer func() {
		cancel()
		sc.wg.Wait()
		_ = conn.Close()
		logger.Debug().Msg("client disconnected")
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		switch f.Type {
		case FrameCancel:
			sc.cancel(f.ID)
		case FrameItems, FrameDependency:
			reqCtx, reqCancel := context.WithCancel(ctx)
			sc.mu.Lock()
			sc.cancels[f.ID] = reqCancel
			sc.mu.Unlock()
			sc.wg.Add(1)
			go func(f Frame) {
				defer sc.wg.Done()
				defer sc.cancel(f.ID)
				resp := s.handle(reqCtx, f)
				if reqCtx.Err() != nil {
					return
				}
				if err := sc.write(resp); err != nil {
					logger.Warn().Err(err).Str("id", f.ID).Msg("ws send failed")
				}
			}(f)
		default:
			_ = sc.write(Frame{ID: f.ID, Type: FrameError, Error: "unknown frame type " + f.Type})
		}
	}
}

func (s *Server) handle(ctx context.Context, f Frame) Frame {
	switch f.Type {
	case FrameItems:
		if f.Request == nil {
			return Frame{ID: f.ID, Type: FrameError, Error: "missing request"}
		}
		page, err := s.source.FetchItems(ctx, *f.Request)
		if err != nil {
			return Frame{ID: f.ID, Type: FrameError, Error: err.Error()}
		}
		return Frame{ID: f.ID, Type: FramePage, Records: eventlog.Records(page.Items), EndOfStream: page.EndOfStream}
	default:
		it, err := s.source.FetchDependency(ctx, f.DependencyID)
		if transport.IsNotFound(err) {
			return Frame{ID: f.ID, Type: FrameError, NotFound: true, Error: err.Error()}
		}
		if err != nil {
			return Frame{ID: f.ID, Type: FrameError, Error: err.Error()}
		}
		r := eventlog.RecordOf(it)
		return Frame{ID: f.ID, Type: FrameItem, Record: &r}
	}
}

func (sc *serverConn) cancel(id string) {
	sc.mu.Lock()
	c, ok := sc.cancels[id]
	delete(sc.cancels, id)
	sc.mu.Unlock()
	if ok {
		c()
	}
}

func (sc *serverConn) write(f Frame) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.conn.WriteJSON(f)
}
