// Package remote implements a speech.RemoteService against an
// OpenAI-compatible speech endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/speech"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds the audio read from one response.
const maxResponseSize = 32 * 1024 * 1024

// Config holds configuration for the client.
type Config struct {
	Endpoint          string // Full URL of the speech endpoint
	APIKey            string // Bearer token, optional
	Model             string
	SampleRate        int // Sample rate of the returned PCM
	RequestsPerMinute int // 0 disables pacing
	MaxTextLength     int
	Timeout           time.Duration
	Logger            *log.Logger
}

// FromConfig converts the speech remote settings.
func FromConfig(c speech.RemoteConfig) Config {
	return Config{
		Endpoint:          c.Endpoint,
		APIKey:            c.APIKey,
		Model:             c.Model,
		SampleRate:        c.SampleRate,
		RequestsPerMinute: c.RequestsPerMinute,
		MaxTextLength:     c.MaxTextLength,
		Timeout:           c.Timeout,
	}
}

// Client requests synthesized audio over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *log.Logger
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: remote endpoint is required", speech.ErrInvalidConfig)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("remote")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     logger,
	}, nil
}

// RequestAudio implements speech.RemoteService. Cancelling ctx aborts the
// request.
func (c *Client) RequestAudio(ctx context.Context, text, voiceID string, speed float64) (*speech.Audio, error) {
	if text == "" {
		return nil, speech.ErrEmptyText
	}
	if c.cfg.MaxTextLength > 0 && utf8.RuneCountInString(text) > c.cfg.MaxTextLength {
		return nil, fmt.Errorf("%w: %d characters (max %d)", speech.ErrTextTooLong, utf8.RuneCountInString(text), c.cfg.MaxTextLength)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          voiceID,
		Speed:          speed,
		ResponseFormat: "pcm",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, speech.ErrNoAudio
	}

	audio := &speech.Audio{PCM: data, SampleRate: c.cfg.SampleRate, Channels: 1}
	if isWAV(data) {
		if audio, err = decodeWAV(data); err != nil {
			return nil, err
		}
	}

	c.log.Debug("audio received", "chars", len(text), "bytes", len(audio.PCM), "duration", audio.Duration(), "took", time.Since(start))
	return audio, nil
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// decodeWAV extracts 16-bit PCM from a RIFF/WAVE body.
func decodeWAV(data []byte) (*speech.Audio, error) {
	audio := &speech.Audio{}
	var bits uint16
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("wav: short fmt chunk")
			}
			audio.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			audio.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = binary.LittleEndian.Uint16(data[body+14:])
		case "data":
			audio.PCM = data[body : body+size]
		}
		off = body + size + size%2
	}

	switch {
	case bits != 16:
		return nil, fmt.Errorf("wav: unsupported sample size %d", bits)
	case len(audio.PCM) == 0:
		return nil, speech.ErrNoAudio
	}
	return audio, nil
}

var _ speech.RemoteService = (*Client)(nil)
