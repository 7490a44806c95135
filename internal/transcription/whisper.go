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

//go:build whisper

package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/recorder"
)

// WhisperEngine transcribes locally with whisper.cpp. Model load failures are
// fatal at construction; a loaded model never fails health checks.
type WhisperEngine struct {
	model     whisper.Model
	modelPath string
}

// NewWhisperEngine loads the model from modelPath.
func NewWhisperEngine(modelPath string) (*WhisperEngine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, newError(events.ErrModelUnavailable,
			fmt.Sprintf("whisper model not found at %s", modelPath), err)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, newError(events.ErrModelUnavailable, "failed to load whisper model", err)
	}

	logging.LogTranscription("model_loaded", zap.String("model_path", modelPath))
	return &WhisperEngine{
		model:     model,
		modelPath: modelPath,
	}, nil
}

// Transcribe converts the snapshot to text. whisper.cpp runs the whole
// inference in one native call, so cancellation is checked at the
// boundaries rather than mid-inference.
func (e *WhisperEngine) Transcribe(ctx context.Context, snap *recorder.Snapshot, language string) (string, error) {
	if e.model == nil {
		return "", newError(events.ErrModelUnavailable, "whisper model not initialized", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", newError(KindOf(err), "request cancelled before inference", err)
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", newError(events.ErrInternal, "failed to create whisper context", err)
	}

	if language != "" && language != "auto" {
		if err := wctx.SetLanguage(language); err != nil {
			logging.LogWarn("Whisper rejected language hint, using auto-detect",
				zap.String("language", language),
				zap.Error(err),
			)
		}
	}

	if err := wctx.Process(snap.Samples, nil, nil, nil); err != nil {
		return "", newError(events.ErrInternal, "failed to process audio", err)
	}

	if err := ctx.Err(); err != nil {
		return "", newError(KindOf(err), "request cancelled during inference", err)
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	return strings.TrimSpace(transcript.String()), nil
}

// Health reports whether the model is loaded.
func (e *WhisperEngine) Health(ctx context.Context) error {
	if e.model == nil {
		return newError(events.ErrModelUnavailable, "whisper model not initialized", nil)
	}
	return nil
}

// Close releases the model.
func (e *WhisperEngine) Close() error {
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}
