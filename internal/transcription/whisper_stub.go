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

//go:build !whisper

package transcription

import (
	"context"

	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/recorder"
)

// WhisperEngine stub used when built without the whisper tag. Construction
// succeeds so the engine can be registered, but selection fails its health
// check and it never accepts requests.
type WhisperEngine struct {
	modelPath string
}

// NewWhisperEngine creates the stub.
func NewWhisperEngine(modelPath string) (*WhisperEngine, error) {
	return &WhisperEngine{modelPath: modelPath}, nil
}

// Transcribe always fails in the stub build.
func (e *WhisperEngine) Transcribe(ctx context.Context, snap *recorder.Snapshot, language string) (string, error) {
	return "", newError(events.ErrEngineUnavailable,
		"local transcription disabled (build with -tags whisper to enable)", nil)
}

// Health always fails in the stub build.
func (e *WhisperEngine) Health(ctx context.Context) error {
	return newError(events.ErrModelUnavailable,
		"local transcription disabled (build with -tags whisper to enable)", nil)
}

// Close is a no-op in the stub build.
func (e *WhisperEngine) Close() error {
	return nil
}
