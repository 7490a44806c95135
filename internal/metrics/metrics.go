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

// Package metrics exposes Prometheus instruments for the dictation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vox_frames_captured_total",
		Help: "Total audio frames delivered to the processing context",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vox_frames_dropped_total",
		Help: "Total audio frames dropped under backpressure",
	})

	recorderState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vox_recorder_state",
		Help: "Current recorder state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	utteranceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vox_utterance_duration_seconds",
		Help:    "Duration of finalized utterances in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vox_transcriptions_total",
		Help: "Total transcription requests by engine and outcome",
	}, []string{"engine", "status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vox_transcription_latency_seconds",
		Help:    "Transcription latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	dictionarySkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vox_dictionary_entries_skipped_total",
		Help: "Dictionary entries skipped due to malformed patterns",
	})
)

// RecordFrame counts one frame handed to the processing context.
func RecordFrame() {
	framesCaptured.Inc()
}

// RecordDroppedFrames counts frames lost under backpressure.
func RecordDroppedFrames(n uint64) {
	framesDropped.Add(float64(n))
}

// SetRecorderState marks the active recorder state gauge.
func SetRecorderState(active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		recorderState.WithLabelValues(s).Set(v)
	}
}

// ObserveUtterance records a finalized utterance duration.
func ObserveUtterance(d time.Duration) {
	utteranceDuration.Observe(d.Seconds())
}

// RecordTranscription records one transcription outcome and its latency.
func RecordTranscription(engine, status string, latency time.Duration) {
	transcriptions.WithLabelValues(engine, status).Inc()
	if status == "success" {
		transcriptionLatency.Observe(latency.Seconds())
	}
}

// RecordDictionarySkip counts a dictionary entry skipped for this invocation.
func RecordDictionarySkip() {
	dictionarySkips.Inc()
}
