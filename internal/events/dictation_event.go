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

package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a dictation event reports.
type Kind string

const (
	KindStateChanged           Kind = "state_changed"
	KindUtteranceFinalized     Kind = "utterance_finalized"
	KindTranscriptionCompleted Kind = "transcription_completed"
	KindTranscriptionFailed    Kind = "transcription_failed"
	KindTranscriptionCancelled Kind = "transcription_cancelled"
	KindBackpressure           Kind = "backpressure"
)

// ErrorKind names a failure class from the dictation error taxonomy. The
// names are shared by events, the transcription error type, and the NATS
// bridge so consumers see one vocabulary.
type ErrorKind string

const (
	ErrDeviceUnavailable ErrorKind = "device_unavailable"
	ErrModelUnavailable  ErrorKind = "model_unavailable"
	ErrEngineUnavailable ErrorKind = "engine_unavailable"
	ErrInvalidCredential ErrorKind = "invalid_credential"
	ErrRateLimited       ErrorKind = "rate_limited"
	ErrNetworkTimeout    ErrorKind = "network_timeout"
	ErrBackpressure      ErrorKind = "backpressure"
	ErrCancelled         ErrorKind = "cancelled"
	ErrInternal          ErrorKind = "internal"
)

// Event is one observable outcome of the dictation pipeline, delivered to
// UI/storage collaborators. Fields beyond UUID/Kind/Timestamp are populated
// per kind.
type Event struct {
	UUID      string    `json:"uuid"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// StateChanged
	State string `json:"state,omitempty"`

	// UtteranceFinalized: snapshot metadata only, never the audio itself
	UtteranceID     string  `json:"utterance_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	SampleCount     int     `json:"sample_count,omitempty"`

	// TranscriptionCompleted
	Text   string `json:"text,omitempty"`
	Engine string `json:"engine,omitempty"`

	// TranscriptionFailed
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Backpressure
	DroppedFrames uint64 `json:"dropped_frames,omitempty"`
}

// NewStateChanged reports a recorder state transition.
func NewStateChanged(state string) Event {
	return Event{
		UUID:      uuid.NewString(),
		Kind:      KindStateChanged,
		Timestamp: time.Now(),
		State:     state,
	}
}

// NewUtteranceFinalized reports a finalized audio snapshot by metadata.
func NewUtteranceFinalized(utteranceID string, duration time.Duration, sampleCount int) Event {
	return Event{
		UUID:            uuid.NewString(),
		Kind:            KindUtteranceFinalized,
		Timestamp:       time.Now(),
		UtteranceID:     utteranceID,
		DurationSeconds: duration.Seconds(),
		SampleCount:     sampleCount,
	}
}

// NewTranscriptionCompleted reports final post-processed text.
func NewTranscriptionCompleted(utteranceID, engine, text string) Event {
	return Event{
		UUID:        uuid.NewString(),
		Kind:        KindTranscriptionCompleted,
		Timestamp:   time.Now(),
		UtteranceID: utteranceID,
		Engine:      engine,
		Text:        text,
	}
}

// NewTranscriptionFailed reports a failed utterance. Cancellations are not
// failures and get their own kind via NewTranscriptionCancelled.
func NewTranscriptionFailed(utteranceID, engine string, kind ErrorKind) Event {
	return Event{
		UUID:        uuid.NewString(),
		Kind:        KindTranscriptionFailed,
		Timestamp:   time.Now(),
		UtteranceID: utteranceID,
		Engine:      engine,
		ErrorKind:   kind,
	}
}

// NewTranscriptionCancelled reports an utterance that was deliberately not
// transcribed: a below-floor discard, a superseded pending request, an
// explicit cancel, or shutdown. Consumers filtering on Kind see these as an
// expected outcome rather than an error.
func NewTranscriptionCancelled(utteranceID, engine string) Event {
	return Event{
		UUID:        uuid.NewString(),
		Kind:        KindTranscriptionCancelled,
		Timestamp:   time.Now(),
		UtteranceID: utteranceID,
		Engine:      engine,
		ErrorKind:   ErrCancelled,
	}
}

// NewBackpressure reports frames dropped between capture and processing.
func NewBackpressure(dropped uint64) Event {
	return Event{
		UUID:          uuid.NewString(),
		Kind:          KindBackpressure,
		Timestamp:     time.Now(),
		DroppedFrames: dropped,
	}
}

// Emitter delivers events to a collaborator.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls the function.
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Fanout returns an Emitter that delivers each event to every target in
// order. Nil targets are skipped.
func Fanout(targets ...Emitter) Emitter {
	return EmitterFunc(func(ev Event) {
		for _, t := range targets {
			if t != nil {
				t.Emit(ev)
			}
		}
	})
}
