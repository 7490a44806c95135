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

import "testing"

func seqs(frames []Frame) []uint64 {
	out := make([]uint64, len(frames))
	for i, f := range frames {
		out[i] = f.Seq
	}
	return out
}

func TestRing_OldestToNewest(t *testing.T) {
	r := NewRing(3)
	for seq := uint64(0); seq < 3; seq++ {
		r.Push(Frame{Seq: seq})
	}

	got := seqs(r.Frames())
	want := []uint64{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Frames() seqs = %v, want %v", got, want)
		}
	}
}

func TestRing_EvictsOldestWhenFull(t *testing.T) {
	r := NewRing(3)
	for seq := uint64(0); seq < 5; seq++ {
		r.Push(Frame{Seq: seq})
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	got := seqs(r.Frames())
	want := []uint64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Frames() seqs = %v, want %v", got, want)
		}
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(3)
	r.Push(Frame{Seq: 1})
	r.Push(Frame{Seq: 2})
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", r.Len())
	}
	if got := r.Frames(); len(got) != 0 {
		t.Errorf("Frames() after Clear has %d frames, want 0", len(got))
	}

	// Reusable after Clear.
	r.Push(Frame{Seq: 7})
	if got := seqs(r.Frames()); len(got) != 1 || got[0] != 7 {
		t.Errorf("Frames() after reuse = %v, want [7]", got)
	}
}

func TestRing_ZeroCapacityStoresNothing(t *testing.T) {
	r := NewRing(0)
	r.Push(Frame{Seq: 1})

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
