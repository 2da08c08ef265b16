package signal

// Wire protocol message tags. Canonical `type` values are snake_case;
// legacy camelCase clients are still accepted on inbound frames via
// canonicalType. Outbound frames always use the canonical tags.
const (
	TypeSession          = "session"
	TypeInit             = "init"
	TypeSDPOffer         = "sdp_offer"
	TypeSDPAnswer        = "sdp_answer"
	TypeICECandidate     = "ice_candidate"
	TypeICEAcknowledge   = "ice_acknowledge"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeTranscriptUpdate = "transcript_update"
	TypeFinalTranscript  = "final_transcript"
	TypeError            = "error"
)

func canonicalType(t string) string {
	switch t {
	case "sdpOffer":
		return TypeSDPOffer
	case "sdpAnswer":
		return TypeSDPAnswer
	case "iceCandidate":
		return TypeICECandidate
	case "iceAcknowledge":
		return TypeICEAcknowledge
	case "transcriptUpdate":
		return TypeTranscriptUpdate
	case "finalTranscript":
		return TypeFinalTranscript
	default:
		return t
	}
}

type envelope struct {
	Type string `json:"type"`
}

type sessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type initPayload struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId"`
	SimulationMode bool   `json:"simulationMode"`
}

// offerPayload accepts both shapes browsers have sent historically:
// a flat sdp string or a nested {type, sdp} description.
type offerPayload struct {
	Type  string `json:"type"`
	SDP   string `json:"sdp"`
	Offer *struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"offer"`
}

type sdpDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type answerMessage struct {
	Type   string         `json:"type"`
	Answer sdpDescription `json:"answer"`
}

type candidatePayload struct {
	Type      string `json:"type"`
	Candidate struct {
		Candidate     string  `json:"candidate"`
		SDPMid        *string `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	} `json:"candidate"`
}

type pingPayload struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type transcriptPayload struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type transcriptMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
