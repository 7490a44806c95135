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

package audio

import "time"

// Canonical capture format. Every consumer downstream of the frame source
// sees mono float32 PCM at this rate, regardless of the device's native rate.
const (
	SampleRate    = 16000
	FrameDuration = 20 * time.Millisecond
	FrameSamples  = SampleRate / 1000 * 20 // 320 samples per 20ms frame
)

// Frame is a fixed-duration block of mono PCM samples at the canonical rate,
// tagged with a sequence number that increases monotonically within one
// capture session. Frames are immutable once produced.
type Frame struct {
	Seq     uint64
	Samples []float32
}

// Duration returns the play time of the frame.
func (f Frame) Duration() time.Duration {
	return time.Duration(len(f.Samples)) * time.Second / SampleRate
}
