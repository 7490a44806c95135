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

// Package recorder owns the dictation state machine. All transitions are
// serialized through a single run goroutine fed by channels, so external
// signals, VAD-driven finalization, and configuration changes can never race
// on the segment buffer or the state value.
package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/audio"
	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/metrics"
)

// Scorer classifies frames for speech activity.
type Scorer interface {
	Score(audio.Frame) float64
	Reset()
}

// Sink receives finalized snapshots. Submit must not block the caller; the
// transcription dispatcher queues work on its own goroutine.
type Sink interface {
	Submit(*Snapshot)
}

// FrameSource is the capture side the machine opens and closes per session.
type FrameSource interface {
	Start() (<-chan audio.Frame, error)
	Stop() error
	TakeDropped() uint64
}

// Config is the recorder's slice of the configuration snapshot.
type Config struct {
	Mode           Mode
	EnterThreshold float64
	ExitThreshold  float64
	SilenceTimeout time.Duration
	MinUtterance   time.Duration
	PreRollFrames  int
}

// DefaultConfig mirrors the defaults of the settings collaborator.
func DefaultConfig() Config {
	return Config{
		Mode:           ModePushToTalk,
		EnterThreshold: 0.60,
		ExitThreshold:  0.35,
		SilenceTimeout: 2000 * time.Millisecond,
		MinUtterance:   300 * time.Millisecond,
		PreRollFrames:  15, // 300ms of pre-roll at 20ms frames
	}
}

type ctrlKind int

const (
	ctrlActivate ctrlKind = iota
	ctrlDeactivate
	ctrlSetConfig
)

type ctrlMsg struct {
	kind ctrlKind
	cfg  Config
}

// Machine drives Idle → Listening → Recording → Finalizing transitions from
// frames and external activate/deactivate signals.
type Machine struct {
	source  FrameSource
	scorer  Scorer
	sink    Sink
	emitter events.Emitter

	ctrl     chan ctrlMsg
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	started  atomic.Bool

	state atomic.Int32

	// Owned by the run goroutine.
	cfg     Config
	frames  <-chan audio.Frame
	buf     *SegmentBuffer
	preroll *audio.Ring
	silence time.Duration
}

// NewMachine creates a machine. Call Run on a dedicated goroutine before
// sending signals.
func NewMachine(cfg Config, source FrameSource, scorer Scorer, sink Sink, emitter events.Emitter) *Machine {
	if emitter == nil {
		emitter = events.EmitterFunc(func(events.Event) {})
	}
	m := &Machine{
		source:  source,
		scorer:  scorer,
		sink:    sink,
		emitter: emitter,
		ctrl:    make(chan ctrlMsg),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		cfg:     cfg,
		buf:     NewSegmentBuffer(),
		preroll: audio.NewRing(cfg.PreRollFrames),
	}
	m.state.Store(int32(StateIdle))
	return m
}

// Run processes frames and control messages until Shutdown. It is the single
// writer for all recorder state.
func (m *Machine) Run() {
	m.started.Store(true)
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			m.abortSession()
			return
		case msg := <-m.ctrl:
			m.handleControl(msg)
		case f, ok := <-m.frames:
			if !ok {
				m.handleSourceClosed()
				continue
			}
			m.handleFrame(f)
		}
	}
}

// State returns the current state. Safe from any goroutine.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Activate delivers the external activate signal.
func (m *Machine) Activate() {
	m.send(ctrlMsg{kind: ctrlActivate})
}

// Deactivate delivers the external deactivate signal.
func (m *Machine) Deactivate() {
	m.send(ctrlMsg{kind: ctrlDeactivate})
}

// SetConfig applies a new configuration snapshot. A mode change while a
// recording is open finalizes the current utterance first; threshold and
// timeout changes apply in place.
func (m *Machine) SetConfig(cfg Config) {
	m.send(ctrlMsg{kind: ctrlSetConfig, cfg: cfg})
}

// Shutdown stops capture, discards any open utterance, and ends the run
// loop. It returns once the loop has exited, or immediately when Run was
// never started; a Run started afterwards exits right away.
func (m *Machine) Shutdown() {
	m.quitOnce.Do(func() { close(m.quit) })
	if !m.started.Load() {
		return
	}
	<-m.done
}

func (m *Machine) send(msg ctrlMsg) {
	select {
	case m.ctrl <- msg:
	case <-m.quit:
	}
}

// handleControl applies one external signal.
func (m *Machine) handleControl(msg ctrlMsg) {
	switch msg.kind {
	case ctrlActivate:
		m.activate()
	case ctrlDeactivate:
		m.deactivate()
	case ctrlSetConfig:
		m.applyConfig(msg.cfg)
	}
}

func (m *Machine) activate() {
	if m.State() != StateIdle {
		// Duplicate activate in the same logical state is a no-op.
		return
	}

	frames, err := m.source.Start()
	if err != nil {
		logging.LogError(err, "Cannot open capture device")
		m.emitter.Emit(events.NewTranscriptionFailed("", "", events.ErrDeviceUnavailable))
		return
	}
	m.frames = frames

	m.buf.Reset()
	m.preroll.Clear()
	m.silence = 0
	m.scorer.Reset()

	if m.cfg.Mode == ModePushToTalk {
		m.setState(StateRecording)
	} else {
		m.setState(StateListening)
	}
}

func (m *Machine) deactivate() {
	switch m.State() {
	case StateIdle:
		// Idempotent: nothing recording, nothing to report.
	case StateListening:
		m.stopCapture()
		m.setState(StateIdle)
	case StateRecording:
		m.finalize()
		m.stopCapture()
		m.setState(StateIdle)
	}
}

func (m *Machine) applyConfig(cfg Config) {
	modeChanged := cfg.Mode != m.cfg.Mode

	if modeChanged && m.State() != StateIdle {
		// Never merge audio from two modes: finalize what accumulated, then
		// require a fresh activate under the new mode.
		if m.State() == StateRecording {
			m.finalize()
		}
		m.stopCapture()
		m.setState(StateIdle)
	}

	// Keep retained pre-roll across tuning changes; only a new ring size
	// forces a reallocation.
	if cfg.PreRollFrames != m.cfg.PreRollFrames {
		m.preroll = audio.NewRing(cfg.PreRollFrames)
	}
	m.cfg = cfg
}

func (m *Machine) handleFrame(f audio.Frame) {
	metrics.RecordFrame()
	if dropped := m.source.TakeDropped(); dropped > 0 {
		metrics.RecordDroppedFrames(dropped)
		logging.LogWarn("Capture queue overflow", zap.Uint64("dropped_frames", dropped))
		m.emitter.Emit(events.NewBackpressure(dropped))
	}

	switch m.State() {
	case StateListening:
		m.preroll.Push(f)
		if m.scorer.Score(f) >= m.cfg.EnterThreshold {
			// Speech onset: start the utterance with the retained pre-roll,
			// which already includes the triggering frame.
			m.buf.Reset()
			for _, pf := range m.preroll.Frames() {
				m.buf.Append(pf)
			}
			m.preroll.Clear()
			m.silence = 0
			m.setState(StateRecording)
		}

	case StateRecording:
		m.buf.Append(f)
		if m.cfg.Mode != ModeVoiceActivated {
			return
		}
		if m.scorer.Score(f) < m.cfg.ExitThreshold {
			m.silence += f.Duration()
			if m.silence >= m.cfg.SilenceTimeout {
				// End of utterance: finalize and resume listening without a
				// gap, keeping the device open.
				m.finalize()
				m.silence = 0
				m.preroll.Clear()
				m.setState(StateListening)
			}
		} else {
			m.silence = 0
		}

	default:
		// Frames arriving while Idle or mid-finalize are discarded.
	}
}

// handleSourceClosed runs when the frame channel closes underneath us, i.e.
// the device died rather than being stopped by a transition.
func (m *Machine) handleSourceClosed() {
	m.frames = nil
	if m.State() == StateIdle {
		return
	}

	logging.LogWarn("Capture device lost mid-session",
		zap.String("state", m.State().String()),
		zap.Int("buffered_frames", m.buf.FrameCount()),
	)
	m.buf.Reset()
	m.emitter.Emit(events.NewTranscriptionFailed("", "", events.ErrDeviceUnavailable))
	m.setState(StateIdle)
}

// finalize drains the open utterance and hands it to the sink. Utterances
// below the minimum-duration floor are discarded and reported as cancelled,
// never transcribed.
func (m *Machine) finalize() {
	m.setState(StateFinalizing)

	snap := m.buf.Drain()
	if snap == nil || snap.Duration < m.cfg.MinUtterance {
		id := ""
		if snap != nil {
			id = snap.ID
		}
		logging.LogWarn("Discarding utterance below minimum duration",
			zap.String("utterance_id", id),
		)
		m.emitter.Emit(events.NewTranscriptionCancelled(id, ""))
		return
	}

	metrics.ObserveUtterance(snap.Duration)
	logging.LogStateTransition("recording", "finalizing",
		zap.String("utterance_id", snap.ID),
		zap.Duration("duration", snap.Duration),
		zap.Int("frames", snap.FrameCount),
	)
	m.emitter.Emit(events.NewUtteranceFinalized(snap.ID, snap.Duration, len(snap.Samples)))
	m.sink.Submit(snap)
}

// stopCapture tears down the frame source. Clearing m.frames first keeps the
// run loop from mistaking our own close for a device failure.
func (m *Machine) stopCapture() {
	if m.frames == nil {
		return
	}
	m.frames = nil
	if err := m.source.Stop(); err != nil {
		logging.LogError(err, "Failed to stop capture device")
	}
}

// abortSession discards everything for shutdown within the grace period.
func (m *Machine) abortSession() {
	if m.State() == StateRecording {
		m.buf.Reset()
	}
	m.stopCapture()
	m.setState(StateIdle)
}

func (m *Machine) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev == s {
		return
	}
	metrics.SetRecorderState(s.String(), StateNames)
	m.emitter.Emit(events.NewStateChanged(s.String()))
}
