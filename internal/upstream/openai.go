// Package upstream talks to the realtime media provider. Only signaling
// crosses this boundary: an ephemeral session is created with the
// server-held key, then the browser's SDP offer is traded for an answer
// authenticated with the ephemeral secret. Media flows browser<->provider
// directly.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/config"
)

var ErrCredentialsMissing = errors.New("no realtime API key configured on the server")

// SessionError is a non-2xx from the ephemeral session creation endpoint.
type SessionError struct {
	Status int
	Body   string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("upstream session create failed: status=%d body=%s", e.Status, e.Body)
}

// NegotiationError is a non-2xx from the SDP exchange endpoint. Status and
// body are kept verbatim for diagnostics.
type NegotiationError struct {
	Status int
	Body   string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("upstream SDP exchange failed: status=%d body=%s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	voice   string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.RealtimeBaseURL, "/"),
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.RealtimeModel,
		voice:   cfg.RealtimeVoice,
		http:    &http.Client{Timeout: timeout},
	}
}

type ephemeralSession struct {
	ID           string `json:"id"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

func (c *Client) createSession(ctx context.Context) (*ephemeralSession, error) {
	body, err := json.Marshal(map[string]string{
		"model": c.model,
		"voice": c.voice,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream session create: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SessionError{Status: resp.StatusCode, Body: string(raw)}
	}

	var sess ephemeralSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("upstream session create: bad response: %w", err)
	}
	if sess.ClientSecret.Value == "" {
		return nil, &SessionError{Status: resp.StatusCode, Body: "response missing client_secret"}
	}
	return &sess, nil
}

// Exchange performs the two-step handshake and returns the provider's
// answer verbatim. One attempt per call; the caller decides about retries.
func (c *Client) Exchange(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if c.apiKey == "" {
		return webrtc.SessionDescription{}, ErrCredentialsMissing
	}

	sess, err := c.createSession(ctx)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	log.Debug().Str("module", "upstream").Str("upstream_session", sess.ID).Msg("ephemeral session created")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rtc", strings.NewReader(offer.SDP))
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	req.Header.Set("Authorization", "Bearer "+sess.ClientSecret.Value)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.http.Do(req)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("upstream SDP exchange: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return webrtc.SessionDescription{}, &NegotiationError{Status: resp.StatusCode, Body: string(raw)}
	}

	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  string(raw),
	}, nil
}
