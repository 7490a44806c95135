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
	"errors"
	"testing"
)

// fakeDevice feeds chunks synchronously through the capture callback.
type fakeDevice struct {
	rate     int
	startErr error
	stopErr  error
	onChunk  func([]float32)
	started  int
	stopped  int
}

func (d *fakeDevice) SampleRate() int { return d.rate }

func (d *fakeDevice) Start(onChunk func([]float32)) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.onChunk = onChunk
	d.started++
	return nil
}

func (d *fakeDevice) Stop() error {
	d.stopped++
	return d.stopErr
}

func (d *fakeDevice) feed(samples []float32) {
	d.onChunk(samples)
}

func constantChunk(n int, amplitude float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func TestSource_ChunksBecomeExactFrames(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 8)

	frames, err := src.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	dev.feed(constantChunk(FrameSamples*2, 0.1))

	for want := uint64(0); want < 2; want++ {
		f := <-frames
		if f.Seq != want {
			t.Errorf("frame seq = %d, want %d", f.Seq, want)
		}
		if len(f.Samples) != FrameSamples {
			t.Errorf("frame has %d samples, want %d", len(f.Samples), FrameSamples)
		}
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := <-frames; ok {
		t.Error("frame channel still open after Stop")
	}
}

func TestSource_PartialChunksAccumulate(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 8)

	frames, err := src.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer src.Stop()

	dev.feed(constantChunk(FrameSamples/2, 0.1))
	select {
	case f := <-frames:
		t.Fatalf("got frame %d from a half-frame chunk", f.Seq)
	default:
	}

	dev.feed(constantChunk(FrameSamples/2, 0.1))
	f := <-frames
	if f.Seq != 0 {
		t.Errorf("frame seq = %d, want 0", f.Seq)
	}
}

func TestSource_ResamplesNonCanonicalDevice(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate * 2}
	src := NewSource(dev, 8)

	frames, err := src.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer src.Stop()

	// One 20ms chunk at 32kHz resamples down to exactly one frame.
	dev.feed(constantChunk(FrameSamples*2, 0.25))
	f := <-frames
	if len(f.Samples) != FrameSamples {
		t.Fatalf("frame has %d samples, want %d", len(f.Samples), FrameSamples)
	}
}

func TestSource_DropsOldestUnderBackpressure(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 2)

	frames, err := src.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer src.Stop()

	// Four frames into a queue of two with no consumer: two drops.
	dev.feed(constantChunk(FrameSamples*4, 0.1))

	if dropped := src.TakeDropped(); dropped != 2 {
		t.Errorf("TakeDropped() = %d, want 2", dropped)
	}
	if dropped := src.TakeDropped(); dropped != 0 {
		t.Errorf("TakeDropped() second call = %d, want 0", dropped)
	}

	// The survivors are the newest frames.
	f := <-frames
	if f.Seq != 2 {
		t.Errorf("first surviving frame seq = %d, want 2", f.Seq)
	}
}

func TestSource_StartErrorPropagates(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate, startErr: errors.New("no device")}
	src := NewSource(dev, 8)

	if _, err := src.Start(); err == nil {
		t.Fatal("Start() error = nil, want device failure")
	}

	// A failed start leaves the source restartable.
	dev.startErr = nil
	if _, err := src.Start(); err != nil {
		t.Fatalf("Start() after recovery error = %v", err)
	}
	src.Stop()
}

func TestSource_RestartResetsSequence(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 8)

	frames, err := src.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dev.feed(constantChunk(FrameSamples, 0.1))
	<-frames
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	frames, err = src.Start()
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	defer src.Stop()

	dev.feed(constantChunk(FrameSamples, 0.1))
	f := <-frames
	if f.Seq != 0 {
		t.Errorf("frame seq after restart = %d, want 0", f.Seq)
	}
}

func TestSource_DoubleStartFails(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 8)

	if _, err := src.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer src.Stop()

	if _, err := src.Start(); err == nil {
		t.Error("second Start() error = nil, want already-started failure")
	}
}

func TestSource_StopWithoutStartIsNoOp(t *testing.T) {
	dev := &fakeDevice{rate: SampleRate}
	src := NewSource(dev, 8)

	if err := src.Stop(); err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
	if dev.stopped != 0 {
		t.Errorf("device stopped %d times, want 0", dev.stopped)
	}
}
