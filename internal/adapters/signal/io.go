package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// maxConsecutiveDrops is how many back-to-back backpressure drops a
// connection gets before it is treated as dead.
const maxConsecutiveDrops = 8

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *wsSignalConn) {
	defer ctl.teardown(c)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(c.SessionID())).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(c.SessionID())).Msg("readPump read error")
				return
			}
			ctl.handleMessage(ctx, c, data)
		}
	}
}

// teardown runs exactly once per connection, on socket close or error.
// Removing from the store cancels the connection context, which aborts any
// in-flight upstream exchange.
func (ctl *SignalWSController) teardown(c *wsSignalConn) {
	sid := c.SessionID()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("connection closing")
	ctl.Store.Remove(sid)
	ctl.offers.Forget(sid)
	c.Close()
}

// handleMessage dispatches one inbound frame. A malformed frame is logged
// and dropped; the connection stays open. Handler panics are converted into
// an error frame so a single bad message never takes the process down.
func (ctl *SignalWSController) handleMessage(ctx context.Context, c *wsSignalConn, data []byte) {
	defer ctl.recoverHandler(c)

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	sid := c.SessionID()
	ctl.Store.Touch(sid, ctl.now())

	switch canonicalType(env.Type) {
	case TypeInit:
		ctl.handleInit(c, data)
	case TypeSDPOffer:
		// The exchange suspends on upstream I/O; it must not block the
		// read loop, or a disconnect could never abort it.
		go func() {
			defer ctl.recoverHandler(c)
			ctl.handleOffer(ctx, c, data)
		}()
	case TypeICECandidate:
		ctl.handleCandidate(c, data)
	case TypePing:
		ctl.handlePing(c, data)
	case TypeTranscriptUpdate:
		ctl.handleTranscript(c, data)
	case "":
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("frame without type")
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Str("sid", string(sid)).Msg("unknown signal")
	}
}

// recoverHandler converts a handler panic into an error frame so a single
// bad message never takes the connection or the process down.
func (ctl *SignalWSController) recoverHandler(c *wsSignalConn) {
	if r := recover(); r != nil {
		log.Error().Any("panic", r).Str("module", "signal").Str("sid", string(c.SessionID())).Msg("handler panic")
		ctl.sendError(c, "internal error handling message")
	}
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	err = c.TrySend(b)
	if err == nil {
		atomic.StoreInt32(&c.drops, 0)
		return
	}
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.SessionID())).Msg("sendJSON drop")
	if errors.Is(err, ErrBackpressure) && atomic.AddInt32(&c.drops, 1) >= maxConsecutiveDrops {
		// A client that never drains its socket is as good as gone.
		log.Warn().Str("module", "signal").Str("sid", string(c.SessionID())).Msg("closing slow connection")
		c.Close()
	}
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, msg string) {
	ctl.sendJSON(c, errorMessage{Type: TypeError, Message: msg})
}
