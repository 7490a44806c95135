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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxlabs/vox-core/internal/audio"
	"github.com/voxlabs/vox-core/internal/config"
	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/recorder"
	"github.com/voxlabs/vox-core/internal/transcription"
)

// nullDevice satisfies audio.Device without hardware.
type nullDevice struct{}

func (nullDevice) SampleRate() int { return audio.SampleRate }

func (nullDevice) Start(func(samples []float32)) error { return nil }

func (nullDevice) Stop() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("VOX_DB_PATH", filepath.Join(t.TempDir(), "vox-test.db"))
	t.Setenv("VOX_NATS_ENABLED", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	srv, err := New(cfg, nullDevice{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	go srv.machine.Run()
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	return w
}

func waitForState(t *testing.T, srv *Server, want recorder.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.machine.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", srv.machine.State(), want)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}
}

func TestStateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["state"] != "idle" {
		t.Errorf("state = %q, want idle", body["state"])
	}

	if w := doRequest(srv, http.MethodPost, "/api/state", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", w.Code)
	}
}

func TestActivateDeactivate(t *testing.T) {
	srv := newTestServer(t)

	if w := doRequest(srv, http.MethodPost, "/api/activate", ""); w.Code != http.StatusOK {
		t.Fatalf("activate status = %d, want 200", w.Code)
	}
	// Push-to-talk default: activate opens a recording.
	waitForState(t, srv, recorder.StateRecording)

	if w := doRequest(srv, http.MethodPost, "/api/deactivate", ""); w.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, want 200", w.Code)
	}
	waitForState(t, srv, recorder.StateIdle)

	if w := doRequest(srv, http.MethodGet, "/api/activate", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET activate status = %d, want 405", w.Code)
	}
}

func TestTranscriptsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/transcripts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
}

func TestRetryWithoutFailure(t *testing.T) {
	srv := newTestServer(t)

	if w := doRequest(srv, http.MethodPost, "/api/retry", ""); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["mode"] != "push_to_talk" {
		t.Errorf("mode = %v, want push_to_talk", body["mode"])
	}

	w = doRequest(srv, http.MethodPut, "/api/config", `{"mode":"voice_activated","language":"en"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204: %s", w.Code, w.Body.String())
	}
	cfg := srv.store.Snapshot()
	if cfg.Recorder.Mode != recorder.ModeVoiceActivated {
		t.Errorf("mode = %q, want voice_activated", cfg.Recorder.Mode)
	}
	if cfg.Engine.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Engine.Language)
	}

	if w := doRequest(srv, http.MethodPut, "/api/config", `{"mode":"hold_to_speak"}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode PUT status = %d, want 400", w.Code)
	}
	if w := doRequest(srv, http.MethodPut, "/api/config", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body PUT status = %d, want 400", w.Code)
	}
}

func TestHandleResult_CancellationIsNotAFailure(t *testing.T) {
	srv := newTestServer(t)

	var got []events.Event
	srv.emitter = events.EmitterFunc(func(ev events.Event) { got = append(got, ev) })

	req := &transcription.Request{
		ID:       "req-1",
		Snapshot: &recorder.Snapshot{ID: "utt-1"},
		EngineID: "whisper",
	}
	srv.handleResult(req, "", context.Canceled)

	if len(got) != 1 {
		t.Fatalf("emitted %d events, want 1", len(got))
	}
	if got[0].Kind != events.KindTranscriptionCancelled {
		t.Errorf("event kind = %q, want %q", got[0].Kind, events.KindTranscriptionCancelled)
	}
	if got[0].UtteranceID != "utt-1" {
		t.Errorf("utterance id = %q, want utt-1", got[0].UtteranceID)
	}

	// A genuine failure still reports as failed.
	got = nil
	srv.handleResult(req, "", context.DeadlineExceeded)
	if len(got) != 1 || got[0].Kind != events.KindTranscriptionFailed {
		t.Fatalf("events = %+v, want one transcription_failed", got)
	}
	if got[0].ErrorKind != events.ErrNetworkTimeout {
		t.Errorf("error kind = %q, want %q", got[0].ErrorKind, events.ErrNetworkTimeout)
	}
}

func TestConfigUpdate_AppliesDictionary(t *testing.T) {
	srv := newTestServer(t)

	body := `{"dictionary":[{"pattern":"react js","replacement":"React.js","enabled":true}]}`
	if w := doRequest(srv, http.MethodPut, "/api/config", body); w.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204", w.Code)
	}

	dict := srv.store.Snapshot().Dictionary
	if len(dict) != 1 || dict[0].Pattern != "react js" {
		t.Errorf("dictionary = %+v, want the submitted entry", dict)
	}
}
