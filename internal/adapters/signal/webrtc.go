package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/domain"
	"github.com/hireloop/sigproxy/internal/upstream"
)

// handleOffer runs the upstream handshake for the client's SDP offer. The
// exchange suspends on network I/O, so the session is re-checked afterwards:
// the reaper or a disconnect may have removed it mid-flight, in which case
// the result is silently discarded.
func (ctl *SignalWSController) handleOffer(ctx context.Context, c *wsSignalConn, data []byte) {
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(c, "malformed sdp_offer payload")
		return
	}

	sdp := p.SDP
	if sdp == "" && p.Offer != nil {
		sdp = p.Offer.SDP
	}
	if sdp == "" {
		ctl.sendError(c, "sdp_offer is missing sdp")
		return
	}

	sid := c.SessionID()
	sess, ok := ctl.Store.Get(sid)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("offer: no session")
		return
	}

	if !ctl.offers.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("offer rate limit hit")
		ctl.sendError(c, "too many offers, slow down")
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	sess.SetOffer(offer)
	sess.SetState(domain.StateNegotiating)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Int("sdp_len", len(sdp)).Msg("negotiating")

	answer, err := ctl.Exchange.Exchange(ctx, offer)

	// The wait may have outlived the session.
	if _, live := ctl.Store.Get(sid); !live {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("offer: session gone after exchange")
		return
	}

	if err != nil {
		sess.SetState(domain.StateAwaitingOffer)
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("sdp exchange failed")
		ctl.sendError(c, exchangeErrorMessage(err))
		return
	}

	sess.SetAnswer(answer)
	sess.SetState(domain.StateActive)
	ctl.sendJSON(c, answerMessage{
		Type: TypeSDPAnswer,
		Answer: sdpDescription{
			Type: "answer",
			SDP:  answer.SDP,
		},
	})
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("answer delivered")
}

// exchangeErrorMessage folds upstream failures into a human-readable string
// for the client; the connection stays open and the offer may be resent.
func exchangeErrorMessage(err error) string {
	var sessErr *upstream.SessionError
	var negErr *upstream.NegotiationError
	switch {
	case errors.Is(err, upstream.ErrCredentialsMissing):
		return "server is missing realtime API credentials"
	case errors.As(err, &sessErr):
		return fmt.Sprintf("upstream rejected session create (status %d)", sessErr.Status)
	case errors.As(err, &negErr):
		return fmt.Sprintf("upstream rejected SDP offer (status %d)", negErr.Status)
	case errors.Is(err, context.Canceled):
		return "sdp exchange aborted"
	default:
		return "sdp exchange failed: " + err.Error()
	}
}

func (ctl *SignalWSController) handleCandidate(c *wsSignalConn, data []byte) {
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		ctl.sendError(c, "malformed ice_candidate payload")
		return
	}
	if p.Candidate.Candidate == "" {
		ctl.sendError(c, "ice_candidate is missing candidate")
		return
	}

	sid := c.SessionID()
	sess, ok := ctl.Store.Get(sid)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("candidate: no session")
		return
	}

	cand := webrtc.ICECandidateInit{
		Candidate:     p.Candidate.Candidate,
		SDPMid:        p.Candidate.SDPMid,
		SDPMLineIndex: p.Candidate.SDPMLineIndex,
	}
	n := sess.AddCandidate(cand)
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Int("count", n).Msg("stored ice candidate")

	ctl.sendJSON(c, envelope{Type: TypeICEAcknowledge})
}
