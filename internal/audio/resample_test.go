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
	"math"
	"testing"
)

func TestResample_SameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %g, want %g", i, out[i], in[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	in := make([]float32, 640) // 20ms at 32kHz
	for i := range in {
		in[i] = 0.25
	}

	out := Resample(in, 32000, 16000)
	if len(out) != 320 {
		t.Fatalf("len = %d, want 320", len(out))
	}
	for i, v := range out {
		if math.Abs(float64(v)-0.25) > 1e-6 {
			t.Fatalf("out[%d] = %g, want 0.25", i, v)
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	in := make([]float32, 160) // 20ms at 8kHz
	for i := range in {
		in[i] = -0.5
	}

	out := Resample(in, 8000, 16000)
	if len(out) != 320 {
		t.Fatalf("len = %d, want 320", len(out))
	}
	for i, v := range out {
		if math.Abs(float64(v)+0.5) > 1e-6 {
			t.Fatalf("out[%d] = %g, want -0.5", i, v)
		}
	}
}

func TestResample_Empty(t *testing.T) {
	if out := Resample(nil, 48000, 16000); len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", make([]float32, 320), 0},
		{"constant half", []float32{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"alternating sign", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
		{"full scale", []float32{1, 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS() = %g, want %g", got, tt.want)
			}
		})
	}
}
