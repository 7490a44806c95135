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

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxlabs/vox-core/internal/audio"
)

// Snapshot is a finalized, immutable utterance ready for transcription. The
// samples are owned by the snapshot; nothing mutates them after Drain.
type Snapshot struct {
	ID          string
	Samples     []float32
	SampleRate  int
	FirstSeq    uint64
	LastSeq     uint64
	FrameCount  int
	Duration    time.Duration
	FinalizedAt time.Time
}

// SegmentBuffer accumulates contiguous frames for the utterance currently
// being recorded. It is owned exclusively by the Machine's run loop.
type SegmentBuffer struct {
	samples  []float32
	firstSeq uint64
	lastSeq  uint64
	frames   int
}

// NewSegmentBuffer returns an empty buffer.
func NewSegmentBuffer() *SegmentBuffer {
	return &SegmentBuffer{}
}

// Append adds one frame's samples to the open utterance.
func (b *SegmentBuffer) Append(f audio.Frame) {
	if b.frames == 0 {
		b.firstSeq = f.Seq
	}
	b.lastSeq = f.Seq
	b.frames++
	b.samples = append(b.samples, f.Samples...)
}

// FrameCount returns the number of frames appended since the last reset.
func (b *SegmentBuffer) FrameCount() int {
	return b.frames
}

// Duration returns the buffered audio length.
func (b *SegmentBuffer) Duration() time.Duration {
	return time.Duration(len(b.samples)) * time.Second / audio.SampleRate
}

// Reset discards the open utterance.
func (b *SegmentBuffer) Reset() {
	b.samples = nil
	b.firstSeq = 0
	b.lastSeq = 0
	b.frames = 0
}

// Drain promotes the open utterance to an immutable Snapshot and empties the
// buffer. Returns nil when nothing is buffered.
func (b *SegmentBuffer) Drain() *Snapshot {
	if b.frames == 0 {
		return nil
	}

	snap := &Snapshot{
		ID:          uuid.NewString(),
		Samples:     b.samples,
		SampleRate:  audio.SampleRate,
		FirstSeq:    b.firstSeq,
		LastSeq:     b.lastSeq,
		FrameCount:  b.frames,
		Duration:    b.Duration(),
		FinalizedAt: time.Now(),
	}

	// Hand ownership of the sample slice to the snapshot.
	b.samples = nil
	b.firstSeq = 0
	b.lastSeq = 0
	b.frames = 0

	return snap
}
