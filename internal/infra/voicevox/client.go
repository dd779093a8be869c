// Package voicevox provides a client for the VOICEVOX engine HTTP API.
package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// Client is a VOICEVOX engine API client.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Cache for installed speakers
	speakersCache []Speaker
	// Cache for speaker details, keyed by speaker UUID
	speakerInfoCache map[string]*SpeakerInfo

	// Mutex for cache access
	cacheMu sync.RWMutex
}

// Config represents VOICEVOX client configuration.
type Config struct {
	URL     string        // Engine base URL, e.g. http://localhost:50021
	Timeout time.Duration // Per-request timeout (0 = 30s)
}

// SpeakerStyle represents one voice style of a speaker.
type SpeakerStyle struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
	Type string `json:"type,omitempty"`
}

// Speaker represents an installed VOICEVOX speaker.
type Speaker struct {
	Name        string         `json:"name"`
	SpeakerUUID string         `json:"speaker_uuid"`
	Styles      []SpeakerStyle `json:"styles"`
	Version     string         `json:"version"`
}

// StyleInfo carries per-style assets of a speaker.
type StyleInfo struct {
	ID           int      `json:"id"`
	Icon         string   `json:"icon"`          // base64 PNG
	VoiceSamples []string `json:"voice_samples"` // base64 WAV
}

// SpeakerInfo represents detailed speaker metadata.
type SpeakerInfo struct {
	Policy     string      `json:"policy"`
	Portrait   string      `json:"portrait"` // base64 PNG
	StyleInfos []StyleInfo `json:"style_infos"`
}

// engineError represents an error payload from the engine.
type engineError struct {
	Detail json.RawMessage `json:"detail"`
}

// New creates a new VOICEVOX client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("engine URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.URL, "/"),
		httpClient:       &http.Client{Timeout: timeout},
		speakerInfoCache: make(map[string]*SpeakerInfo),
	}, nil
}

// BuildQuery asks the engine to build an audio query for the given text.
// Reference: POST /audio_query
func (c *Client) BuildQuery(ctx context.Context, text string, speaker int) (*speech.AudioQuery, error) {
	if text == "" {
		return nil, errors.New("text is required")
	}

	params := url.Values{}
	params.Set("text", text)
	params.Set("speaker", fmt.Sprintf("%d", speaker))

	reqURL := c.baseURL + "/audio_query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	query, err := speech.ParseAudioQuery(body)
	if err != nil {
		return nil, err
	}
	return query, nil
}

// Synthesize renders an audio query into WAV bytes.
// Reference: POST /synthesis
func (c *Client) Synthesize(ctx context.Context, query *speech.AudioQuery, speaker int) ([]byte, error) {
	if query == nil {
		return nil, errors.New("audio query is required")
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode audio query")
	}

	params := url.Values{}
	params.Set("speaker", fmt.Sprintf("%d", speaker))

	reqURL := c.baseURL + "/synthesis?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	return c.send(req)
}

// Speakers retrieves the installed speakers and their styles.
// Reference: GET /speakers
func (c *Client) Speakers(ctx context.Context) ([]Speaker, error) {
	// Check cache first
	c.cacheMu.RLock()
	if c.speakersCache != nil {
		defer c.cacheMu.RUnlock()
		zlog.Debug().Msg("using cached speakers")
		return c.speakersCache, nil
	}
	c.cacheMu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/speakers", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var speakers []Speaker
	if err := json.Unmarshal(body, &speakers); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	// Cache the result
	c.cacheMu.Lock()
	c.speakersCache = speakers
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached speakers (count: %d)", len(speakers))

	return speakers, nil
}

// SpeakerInfo retrieves detailed metadata for one speaker.
// Reference: GET /speaker_info
func (c *Client) SpeakerInfo(ctx context.Context, speakerUUID string) (*SpeakerInfo, error) {
	if speakerUUID == "" {
		return nil, errors.New("speaker UUID is required")
	}

	// Check cache first
	c.cacheMu.RLock()
	if info, ok := c.speakerInfoCache[speakerUUID]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached speaker info: %s", speakerUUID)
		return info, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("speaker_uuid", speakerUUID)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/speaker_info?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var info SpeakerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	// Cache the result
	c.cacheMu.Lock()
	c.speakerInfoCache[speakerUUID] = &info
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached speaker info: %s", speakerUUID)

	return &info, nil
}

// Version returns the engine version string.
// Reference: GET /version
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/version", nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	body, err := c.send(req)
	if err != nil {
		return "", err
	}

	var version string
	if err := json.Unmarshal(body, &version); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	return version, nil
}

// send executes the request and returns the response body. Engine error
// payloads are unwrapped into readable messages.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Engine errors carry a detail field; fall back to the raw body.
		var apiError engineError
		if err := json.Unmarshal(body, &apiError); err == nil && len(apiError.Detail) > 0 {
			return nil, errors.Errorf("engine error %d: %s", resp.StatusCode, string(apiError.Detail))
		}
		return nil, errors.Errorf("engine error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
