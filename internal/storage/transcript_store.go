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
	"time"

	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/logging"
)

// Transcript is one row of dictation history.
type Transcript struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMS int64     `json:"duration_ms"`
	SampleRate int       `json:"sample_rate"`
	Engine     string    `json:"engine"`
	Language   string    `json:"language"`
	RawText    string    `json:"raw_text"`
	FinalText  string    `json:"final_text"`
	LatencyMS  int64     `json:"latency_ms"`
}

// TranscriptStore handles database operations for dictation history.
type TranscriptStore struct {
	db *Database
}

// NewTranscriptStore creates a new transcript store
func NewTranscriptStore(db *Database) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// Insert stores a completed transcription.
func (s *TranscriptStore) Insert(t *Transcript) error {
	if t.UUID == "" {
		return fmt.Errorf("transcript UUID is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Language == "" {
		t.Language = "auto"
	}

	query := `
		INSERT INTO transcripts (
			uuid, created_at, duration_ms, sample_rate,
			engine, language, raw_text, final_text, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.DB().Exec(query,
		t.UUID, t.CreatedAt, t.DurationMS, t.SampleRate,
		t.Engine, t.Language, t.RawText, t.FinalText, t.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		t.ID = id
	}

	logging.LogStorageOperation("insert", "transcripts",
		zap.String("uuid", t.UUID),
		zap.String("engine", t.Engine),
	)
	return nil
}

// ListRecent returns up to limit transcripts, newest first.
func (s *TranscriptStore) ListRecent(limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, uuid, created_at, duration_ms, sample_rate,
		       engine, language, raw_text, final_text, latency_ms
		FROM transcripts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t := &Transcript{}
		if err := rows.Scan(
			&t.ID, &t.UUID, &t.CreatedAt, &t.DurationMS, &t.SampleRate,
			&t.Engine, &t.Language, &t.RawText, &t.FinalText, &t.LatencyMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, t)
	}

	return transcripts, rows.Err()
}

// GetByUUID retrieves a single transcript by its utterance identifier.
func (s *TranscriptStore) GetByUUID(uuid string) (*Transcript, error) {
	query := `
		SELECT id, uuid, created_at, duration_ms, sample_rate,
		       engine, language, raw_text, final_text, latency_ms
		FROM transcripts
		WHERE uuid = ?`

	t := &Transcript{}
	err := s.db.DB().QueryRow(query, uuid).Scan(
		&t.ID, &t.UUID, &t.CreatedAt, &t.DurationMS, &t.SampleRate,
		&t.Engine, &t.Language, &t.RawText, &t.FinalText, &t.LatencyMS,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript %s: %w", uuid, err)
	}

	return t, nil
}

// Prune deletes the oldest rows beyond keep, returning how many were removed.
func (s *TranscriptStore) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("keep must be positive: %d", keep)
	}

	query := `
		DELETE FROM transcripts
		WHERE id NOT IN (
			SELECT id FROM transcripts
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)`

	result, err := s.db.DB().Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcripts: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	if removed > 0 {
		logging.LogStorageOperation("prune", "transcripts",
			zap.Int64("removed", removed),
			zap.Int("keep", keep),
		)
	}
	return removed, nil
}

// Count returns the number of stored transcripts.
func (s *TranscriptStore) Count() (int, error) {
	var count int
	if err := s.db.DB().QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transcripts: %w", err)
	}
	return count, nil
}
