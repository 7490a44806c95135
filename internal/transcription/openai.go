/*
 * This file is part of Vox (https://github.com/voxlabs/vox-core).
 * Copyright (C) 2025 Vox Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package transcription

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/recorder"
)

// OpenAIConfig holds remote engine settings.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Prompt      string
	Temperature float32

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// RateLimitBackoff is the pause before the single retry after a 429.
	RateLimitBackoff time.Duration
}

// OpenAIEngine transcribes through the OpenAI audio transcription API.
type OpenAIEngine struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIEngine creates the remote engine. A missing API key is fatal at
// construction time.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, newError(events.ErrInvalidCredential, "OpenAI API key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = 2 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Transcribe uploads the snapshot as WAV and returns the recognized text.
// RateLimited responses are retried once after a short backoff; timeouts are
// surfaced without retry so the caller can retry manually with the retained
// snapshot.
func (e *OpenAIEngine) Transcribe(ctx context.Context, snap *recorder.Snapshot, language string) (string, error) {
	wavData := EncodeWAV(snap.Samples, snap.SampleRate)

	logging.LogTranscription("remote_request",
		zap.String("utterance_id", snap.ID),
		zap.Int("samples", len(snap.Samples)),
		zap.Int("wav_bytes", len(wavData)),
	)

	text, err := e.attempt(ctx, wavData, language)
	if err == nil {
		return text, nil
	}

	if KindOf(err) == events.ErrRateLimited {
		logging.LogWarn("Remote engine rate limited, retrying once",
			zap.Duration("backoff", e.cfg.RateLimitBackoff),
		)
		select {
		case <-time.After(e.cfg.RateLimitBackoff):
		case <-ctx.Done():
			return "", newError(KindOf(ctx.Err()), "cancelled during rate-limit backoff", ctx.Err())
		}
		return e.attempt(ctx, wavData, language)
	}

	return "", err
}

// attempt performs one API call. The request is rebuilt per attempt because
// the reader is consumed.
func (e *OpenAIEngine) attempt(ctx context.Context, wavData []byte, language string) (string, error) {
	req := openai.AudioRequest{
		Model:       e.cfg.Model,
		FilePath:    "audio.wav",
		Reader:      bytes.NewReader(wavData),
		Format:      openai.AudioResponseFormatJSON,
		Prompt:      e.cfg.Prompt,
		Temperature: e.cfg.Temperature,
	}
	if language != "" && language != "auto" {
		req.Language = language
	}

	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", classifyRemoteError(err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Health validates the credential by listing models, the cheapest
// authenticated call the API offers.
func (e *OpenAIEngine) Health(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return classifyRemoteError(err)
	}
	return nil
}

// Close releases nothing; the HTTP client holds no persistent session.
func (e *OpenAIEngine) Close() error {
	return nil
}

// classifyRemoteError maps API and transport failures onto the taxonomy.
func classifyRemoteError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return newError(events.ErrInvalidCredential, "API rejected credentials", err)
		case 429:
			return newError(events.ErrRateLimited, "API rate limit exceeded", err)
		case 408, 504:
			return newError(events.ErrNetworkTimeout, "API request timed out", err)
		default:
			return newError(events.ErrInternal, "API request failed", err)
		}
	}

	switch kind := KindOf(err); kind {
	case events.ErrCancelled, events.ErrNetworkTimeout:
		return newError(kind, "request aborted", err)
	default:
		return newError(events.ErrInternal, "remote transcription failed", err)
	}
}
