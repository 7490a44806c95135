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

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/logging"
)

// Device is a live audio input. It delivers raw sample chunks at its native
// rate from the capture callback until stopped. A device is owned exclusively
// by one Source while capture is active.
type Device interface {
	// SampleRate returns the device's native capture rate in Hz.
	SampleRate() int

	// Start begins capture. onChunk is invoked from the capture context and
	// must return quickly; the chunk is owned by the callee.
	Start(onChunk func(samples []float32)) error

	// Stop ends capture and releases the underlying device handle.
	Stop() error
}

// Source turns a Device's native-rate chunks into canonical-rate Frames and
// hands them to the processing context through a bounded queue.
//
// The capture context never blocks on the consumer: when the queue is full
// the oldest queued frame is dropped and counted, so drops are reported as
// backpressure instead of vanishing. A Source is restartable; each session
// restarts the frame sequence at zero.
type Source struct {
	device    Device
	queueSize int

	mu      sync.Mutex
	out     chan Frame
	pending []float32
	seq     uint64
	active  bool

	dropped atomic.Uint64
}

// NewSource creates a frame source over the given device. queueSize bounds
// the number of frames buffered between the capture and processing contexts.
func NewSource(device Device, queueSize int) *Source {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Source{
		device:    device,
		queueSize: queueSize,
	}
}

// Start opens the device and begins producing frames. The returned channel is
// closed when the session ends.
func (s *Source) Start() (<-chan Frame, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, fmt.Errorf("frame source already started")
	}
	s.out = make(chan Frame, s.queueSize)
	s.pending = s.pending[:0]
	s.seq = 0
	s.active = true
	out := s.out
	s.mu.Unlock()

	if err := s.device.Start(s.push); err != nil {
		s.mu.Lock()
		s.active = false
		s.out = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	logging.LogCapture("start",
		zap.Int("device_rate", s.device.SampleRate()),
		zap.Int("queue_size", s.queueSize),
	)
	return out, nil
}

// Stop ends the capture session and closes the frame channel. The device is
// released even if stopping reports an error.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	out := s.out
	s.out = nil
	s.mu.Unlock()

	err := s.device.Stop()
	close(out)

	logging.LogCapture("stop", zap.Uint64("dropped_total", s.dropped.Load()))
	if err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// TakeDropped returns the number of frames dropped since the last call and
// resets the counter. The consumer turns non-zero values into Backpressure
// events.
func (s *Source) TakeDropped() uint64 {
	return s.dropped.Swap(0)
}

// push runs on the capture context. It resamples the chunk to the canonical
// rate, re-chunks it into exact frames, and enqueues without ever blocking.
func (s *Source) push(chunk []float32) {
	if rate := s.device.SampleRate(); rate != SampleRate {
		chunk = Resample(chunk, rate, SampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}

	s.pending = append(s.pending, chunk...)
	for len(s.pending) >= FrameSamples {
		samples := make([]float32, FrameSamples)
		copy(samples, s.pending[:FrameSamples])
		s.pending = s.pending[FrameSamples:]

		frame := Frame{Seq: s.seq, Samples: samples}
		s.seq++

		select {
		case s.out <- frame:
		default:
			// Queue full: evict the oldest queued frame to make room for the
			// newest, and count the eviction.
			select {
			case <-s.out:
				s.dropped.Add(1)
			default:
			}
			select {
			case s.out <- frame:
			default:
				// Consumer raced the eviction; the new frame is the loss.
				s.dropped.Add(1)
			}
		}
	}
	if len(s.pending) == 0 {
		s.pending = s.pending[:0]
	}
}
