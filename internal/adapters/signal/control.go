package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/domain"
)

// handlePing replies pong immediately. This is the sole keepalive; it has
// no side effect beyond the touch-on-any-message rule applied in dispatch.
func (ctl *SignalWSController) handlePing(c *wsSignalConn, data []byte) {
	var p pingPayload
	_ = json.Unmarshal(data, &p)

	ts := p.Timestamp
	if ts == 0 {
		ts = ctl.now().UnixMilli()
	}
	ctl.sendJSON(c, pongMessage{Type: TypePong, Timestamp: ts})
}

// handleInit lets the client re-confirm or override its session id. A
// client-supplied id takes precedence if it is not already taken; otherwise
// the message is a no-op acknowledgement.
func (ctl *SignalWSController) handleInit(c *wsSignalConn, data []byte) {
	var p initPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad init payload")
		ctl.sendError(c, "malformed init payload")
		return
	}

	sid := c.SessionID()
	if p.SimulationMode {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("client requested simulation mode; not supported")
	}

	if p.SessionID != "" && domain.SessionID(p.SessionID) != sid {
		if ctl.Store.Rename(sid, domain.SessionID(p.SessionID)) {
			c.setSessionID(domain.SessionID(p.SessionID))
			sid = c.SessionID()
		} else {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("requested", p.SessionID).Msg("init rename refused")
		}
	}

	ctl.sendJSON(c, sessionMessage{Type: TypeSession, SessionID: string(sid)})
}
