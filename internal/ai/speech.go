// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxAudioBytes caps how much audio is read from a speech upstream.
const maxAudioBytes = 25 << 20

// Audio is a synthesized clip.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	// Synthesize renders text with the given voice. An empty voiceID uses
	// the backend's default voice.
	Synthesize(ctx context.Context, text, voiceID string) (*Audio, error)

	// Name returns the backend identifier (e.g., "elevenlabs").
	Name() string
}

// SpeechConfig holds the settings for a speech backend.
type SpeechConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	DefaultVoice string
}

// NewSynthesizer builds the named speech backend. Returns an error for
// unknown names or a missing API key.
func NewSynthesizer(name string, cfg SpeechConfig) (Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: speech provider %q has no API key", name)
	}
	switch name {
	case "elevenlabs":
		return newElevenLabs(cfg), nil
	case "openai":
		return newOpenAISpeech(cfg), nil
	default:
		return nil, fmt.Errorf("ai: unknown speech provider %q", name)
	}
}

// --- ElevenLabs ---

// elevenLabsSynth uses POST /v1/text-to-speech/{voice_id}.
type elevenLabsSynth struct {
	config SpeechConfig
	client *http.Client
}

func newElevenLabs(cfg SpeechConfig) *elevenLabsSynth {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	return &elevenLabsSynth{
		config: cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (s *elevenLabsSynth) Name() string { return "elevenlabs" }

func (s *elevenLabsSynth) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if voiceID == "" {
		voiceID = s.config.DefaultVoice
	}
	if voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: no voice id")
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: s.config.Model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs marshal: %w", err)
	}

	url := s.config.BaseURL + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.config.APIKey)

	return doAudio(s.client, req, "elevenlabs")
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// --- OpenAI ---

// openAISpeech uses POST /v1/audio/speech.
type openAISpeech struct {
	config SpeechConfig
	client *http.Client
}

func newOpenAISpeech(cfg SpeechConfig) *openAISpeech {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "alloy"
	}
	return &openAISpeech{
		config: cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (s *openAISpeech) Name() string { return "openai" }

func (s *openAISpeech) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if voiceID == "" {
		voiceID = s.config.DefaultVoice
	}

	payload, err := json.Marshal(openAISpeechRequest{
		Model:          s.config.Model,
		Input:          text,
		Voice:          voiceID,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech marshal: %w", err)
	}

	url := s.config.BaseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	return doAudio(s.client, req, "openai speech")
}

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// doAudio executes a speech request and returns the audio body.
func doAudio(client *http.Client, req *http.Request, label string) (*Audio, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s http: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s API error (status %d): %s", label, resp.StatusCode, string(msg))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", label, err)
	}
	if len(data) > maxAudioBytes {
		return nil, fmt.Errorf("%s: audio exceeds %d bytes", label, maxAudioBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrEmptyResponse)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/json") {
		ct = "audio/mpeg"
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return &Audio{Data: data, ContentType: ct}, nil
}
