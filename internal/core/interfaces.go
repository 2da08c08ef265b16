package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Frame is a raw outbound payload, already serialized.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Exchanger turns a browser's SDP offer into an SDP answer from the
// realtime media provider. The audio itself never traverses this server;
// implementations only do the signaling round trips.
type Exchanger interface {
	Exchange(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
}
