package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/app"
	"github.com/hireloop/sigproxy/internal/config"
	"github.com/hireloop/sigproxy/internal/core"
	"github.com/hireloop/sigproxy/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController owns the per-connection lifecycle: it binds a session
// to each accepted socket, dispatches inbound protocol messages and emits
// outbound ones. Store and Exchanger are injected so tests run against
// isolated instances and a canned upstream.
type SignalWSController struct {
	Store    *app.Store
	Exchange core.Exchanger

	readLimit int64
	offers    *offerLimiter
	now       func() time.Time
}

func NewSignalWSController(store *app.Store, ex core.Exchanger, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Store:     store,
		Exchange:  ex,
		readLimit: cfg.ReadLimit,
		offers:    newOfferLimiter(cfg.OfferLimit, cfg.OfferInterval),
		now:       time.Now,
	}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
	sid    domain.SessionID

	drops int32
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *wsSignalConn) SessionID() domain.SessionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sid
}

func (c *wsSignalConn) setSessionID(sid domain.SessionID) {
	c.mu.Lock()
	c.sid = sid
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal accepts one WebSocket connection and runs it to completion.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	sess := domain.NewSession(ctl.now())
	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
		sid:  sess.ID,
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Store.Bind(sess, conn, cancel); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bind session")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, conn)

	ctl.sendJSON(conn, sessionMessage{Type: TypeSession, SessionID: string(sess.ID)})
}
