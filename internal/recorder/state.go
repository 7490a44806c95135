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

package recorder

// State is the recorder's lifecycle position. Exactly one Machine owns the
// single State instance; transitions happen only inside its run loop.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateRecording
	StateFinalizing
)

// String returns the lowercase state name used in events and metrics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// StateNames lists every state name, for gauges that track the active one.
var StateNames = []string{"idle", "listening", "recording", "finalizing"}

// Mode selects how recording starts and stops.
type Mode string

const (
	// ModePushToTalk records from the activate signal until deactivate.
	ModePushToTalk Mode = "push_to_talk"

	// ModeVoiceActivated listens continuously and records utterances
	// bounded by VAD threshold crossings and a silence timeout.
	ModeVoiceActivated Mode = "voice_activated"
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	return m == ModePushToTalk || m == ModeVoiceActivated
}
