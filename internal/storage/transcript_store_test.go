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

package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "vox-test.db")})
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return NewTranscriptStore(db)
}

func sampleTranscript(uuid string, at time.Time) *Transcript {
	return &Transcript{
		UUID:       uuid,
		CreatedAt:  at,
		DurationMS: 1200,
		SampleRate: 16000,
		Engine:     "whisper",
		Language:   "en",
		RawText:    "hello wrold",
		FinalText:  "hello world",
		LatencyMS:  350,
	}
}

func TestTranscriptStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)

	in := sampleTranscript("utt-1", time.Now())
	if err := store.Insert(in); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if in.ID == 0 {
		t.Error("Insert() did not backfill the row ID")
	}

	out, err := store.GetByUUID("utt-1")
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if out.RawText != "hello wrold" || out.FinalText != "hello world" {
		t.Errorf("texts = (%q, %q), want originals", out.RawText, out.FinalText)
	}
	if out.Engine != "whisper" || out.Language != "en" {
		t.Errorf("engine/language = (%q, %q), want (whisper, en)", out.Engine, out.Language)
	}
	if out.DurationMS != 1200 || out.LatencyMS != 350 {
		t.Errorf("durations = (%d, %d), want (1200, 350)", out.DurationMS, out.LatencyMS)
	}
}

func TestTranscriptStore_InsertRequiresUUID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Insert(&Transcript{}); err == nil {
		t.Error("Insert() without UUID succeeded, want error")
	}
}

func TestTranscriptStore_ListRecentNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		tr := sampleTranscript(fmt.Sprintf("utt-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(tr); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	list, err := store.ListRecent(3)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{"utt-4", "utt-3", "utt-2"}
	for i, tr := range list {
		if tr.UUID != want[i] {
			t.Errorf("list[%d].UUID = %q, want %q", i, tr.UUID, want[i])
		}
	}
}

func TestTranscriptStore_PruneKeepsNewest(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		tr := sampleTranscript(fmt.Sprintf("utt-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(tr); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	removed, err := store.Prune(4)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 6 {
		t.Errorf("removed = %d, want 6", removed)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}

	// The survivors are the newest rows.
	list, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if list[0].UUID != "utt-9" || list[len(list)-1].UUID != "utt-6" {
		t.Errorf("surviving range = [%s..%s], want [utt-9..utt-6]",
			list[0].UUID, list[len(list)-1].UUID)
	}
}

func TestTranscriptStore_PruneBelowLimitIsNoOp(t *testing.T) {
	store := newTestStore(t)

	if err := store.Insert(sampleTranscript("utt-1", time.Now())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	removed, err := store.Prune(100)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestTranscriptStore_DuplicateUUIDRejected(t *testing.T) {
	store := newTestStore(t)

	if err := store.Insert(sampleTranscript("utt-1", time.Now())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(sampleTranscript("utt-1", time.Now())); err == nil {
		t.Error("duplicate Insert() succeeded, want unique constraint error")
	}
}
