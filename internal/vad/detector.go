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

// Package vad scores audio frames for speech activity. The detector is an
// adaptive-noise-floor energy classifier: each frame's RMS level is compared
// against a floor that tracks slowly during quiet passages, and mapped to a
// score in [0,1]. Scoring is deterministic for a given input history; the
// recurrent state (the floor) is private to one Detector and reset explicitly.
package vad

import (
	"fmt"

	"github.com/voxlabs/vox-core/internal/audio"
)

// Config holds detector tuning.
type Config struct {
	// EnterThreshold and ExitThreshold are score levels used by the recorder
	// for hysteresis. The detector validates them so a misconfigured pair
	// fails at construction rather than mid-session.
	EnterThreshold float64
	ExitThreshold  float64

	// NoiseFloor seeds the adaptive floor (RMS amplitude, canonical scale).
	NoiseFloor float64
}

// DefaultConfig returns tuning that behaves well for close-mic dictation at
// 16 kHz.
func DefaultConfig() Config {
	return Config{
		EnterThreshold: 0.60,
		ExitThreshold:  0.35,
		NoiseFloor:     0.01,
	}
}

// Detector assigns an activity score to each frame.
type Detector struct {
	cfg   Config
	floor float64
}

// New creates a detector. It fails when the configuration cannot yield a
// usable classifier; per-frame scoring itself never fails.
func New(cfg Config) (*Detector, error) {
	if cfg.NoiseFloor <= 0 {
		return nil, fmt.Errorf("vad: noise floor must be positive, got %g", cfg.NoiseFloor)
	}
	if cfg.EnterThreshold <= 0 || cfg.EnterThreshold >= 1 {
		return nil, fmt.Errorf("vad: enter threshold must be in (0,1), got %g", cfg.EnterThreshold)
	}
	if cfg.ExitThreshold <= 0 || cfg.ExitThreshold >= cfg.EnterThreshold {
		return nil, fmt.Errorf("vad: exit threshold must be in (0, enter), got %g", cfg.ExitThreshold)
	}

	return &Detector{cfg: cfg, floor: cfg.NoiseFloor}, nil
}

// Score classifies one frame and returns an activity score in [0,1]. Higher
// means more likely speech.
func (d *Detector) Score(frame audio.Frame) float64 {
	rms := audio.RMS(frame.Samples)

	// Track the noise floor only through quiet frames so sustained speech
	// does not raise it.
	if rms < d.floor*2 {
		d.floor = d.floor*0.95 + rms*0.05
		if d.floor < d.cfg.NoiseFloor*0.1 {
			d.floor = d.cfg.NoiseFloor * 0.1
		}
	}

	snr := rms / d.floor
	score := (snr * snr) / (16 + snr*snr)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Reset clears the recurrent state so capture sessions score independently.
func (d *Detector) Reset() {
	d.floor = d.cfg.NoiseFloor
}
