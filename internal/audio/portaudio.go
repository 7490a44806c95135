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

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice captures from the system's default input device through
// PortAudio. It implements Device.
type PortAudioDevice struct {
	sampleRate      int
	framesPerBuffer int

	mu      sync.Mutex
	stream  *portaudio.Stream
	onChunk func([]float32)
}

// NewPortAudioDevice initializes PortAudio and prepares a capture device at
// the requested native rate. Call Close to release the PortAudio runtime.
func NewPortAudioDevice(sampleRate, framesPerBuffer int) (*PortAudioDevice, error) {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = FrameSamples
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &PortAudioDevice{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
	}, nil
}

// SampleRate returns the device's native capture rate.
func (d *PortAudioDevice) SampleRate() int {
	return d.sampleRate
}

// Start opens the default input stream and begins delivering chunks.
func (d *PortAudioDevice) Start(onChunk func(samples []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return fmt.Errorf("capture stream already open")
	}
	d.onChunk = onChunk

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(d.sampleRate), d.framesPerBuffer, d.callback)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	d.stream = stream
	return nil
}

// callback runs on PortAudio's capture thread. The input buffer is reused by
// PortAudio, so it is copied before leaving the callback.
func (d *PortAudioDevice) callback(in []float32) {
	chunk := make([]float32, len(in))
	copy(chunk, in)
	d.onChunk(chunk)
}

// Stop stops and closes the input stream. The stream is closed even when
// stopping fails, so the device handle never leaks.
func (d *PortAudioDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}

	stopErr := d.stream.Stop()
	closeErr := d.stream.Close()
	d.stream = nil

	if stopErr != nil {
		return fmt.Errorf("failed to stop input stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close input stream: %w", closeErr)
	}
	return nil
}

// Close releases the PortAudio runtime.
func (d *PortAudioDevice) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
