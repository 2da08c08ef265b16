package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// handleTranscript accumulates text fragments server-side and echoes the
// full transcript back. A payload marked final gets a final_transcript
// reply instead of the incremental echo.
func (ctl *SignalWSController) handleTranscript(c *wsSignalConn, data []byte) {
	var p transcriptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad transcript payload")
		ctl.sendError(c, "malformed transcript_update payload")
		return
	}

	sid := c.SessionID()
	sess, ok := ctl.Store.Get(sid)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("transcript: no session")
		return
	}

	full := sess.Transcript()
	if p.Text != "" {
		full = sess.AppendTranscript(p.Text)
	}

	if p.Final {
		ctl.sendJSON(c, transcriptMessage{Type: TypeFinalTranscript, Transcript: full})
		return
	}
	ctl.sendJSON(c, transcriptMessage{Type: TypeTranscriptUpdate, Transcript: full})
}
