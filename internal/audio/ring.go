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

// Ring keeps the most recent frames up to a fixed capacity. The recorder uses
// it to retain pre-roll audio seen before a voice-activation threshold
// crossing, so word onsets are not clipped.
type Ring struct {
	frames []Frame
	next   int
	count  int
}

// NewRing creates a ring holding at most capacity frames. A zero or negative
// capacity yields a ring that stores nothing.
func NewRing(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{frames: make([]Frame, capacity)}
}

// Push adds a frame, evicting the oldest when full.
func (r *Ring) Push(f Frame) {
	if len(r.frames) == 0 {
		return
	}
	r.frames[r.next] = f
	r.next = (r.next + 1) % len(r.frames)
	if r.count < len(r.frames) {
		r.count++
	}
}

// Frames returns the buffered frames in oldest-to-newest order.
func (r *Ring) Frames() []Frame {
	out := make([]Frame, 0, r.count)
	if r.count == 0 {
		return out
	}
	start := (r.next - r.count + len(r.frames)) % len(r.frames)
	for i := 0; i < r.count; i++ {
		out = append(out, r.frames[(start+i)%len(r.frames)])
	}
	return out
}

// Len returns the number of buffered frames.
func (r *Ring) Len() int {
	return r.count
}

// Clear discards all buffered frames.
func (r *Ring) Clear() {
	r.next = 0
	r.count = 0
}
