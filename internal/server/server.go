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

// Package server assembles the dictation pipeline — capture, VAD, recorder,
// dispatcher, dictionary, collaborators — and exposes the control surface
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/audio"
	"github.com/voxlabs/vox-core/internal/config"
	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/messaging"
	"github.com/voxlabs/vox-core/internal/recorder"
	"github.com/voxlabs/vox-core/internal/storage"
	"github.com/voxlabs/vox-core/internal/textproc"
	"github.com/voxlabs/vox-core/internal/transcription"
	"github.com/voxlabs/vox-core/internal/vad"
)

// Server owns the dictation pipeline and its HTTP control surface.
type Server struct {
	store  *config.Store
	mux    *http.ServeMux
	server *http.Server

	machine    *recorder.Machine
	dispatcher *transcription.Dispatcher
	emitter    events.Emitter

	publisher   *messaging.Publisher
	db          *storage.Database
	transcripts *storage.TranscriptStore
	engines     map[string]transcription.Engine

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the pipeline around the given capture device. The device is
// injected so tests and headless builds can run without hardware.
func New(cfg *config.Config, device audio.Device) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		store:   config.NewStore(cfg),
		mux:     http.NewServeMux(),
		engines: make(map[string]transcription.Engine),
		ctx:     ctx,
		cancel:  cancel,
	}

	detector, err := vad.New(vad.Config{
		EnterThreshold: cfg.VAD.EnterThreshold,
		ExitThreshold:  cfg.VAD.ExitThreshold,
		NoiseFloor:     cfg.VAD.NoiseFloor,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create voice activity detector: %w", err)
	}

	if cfg.History.Enabled {
		db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.History.DBPath})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		s.db = db
		s.transcripts = storage.NewTranscriptStore(db)
	}

	var emitters []events.Emitter
	if cfg.NATS.Enabled {
		publisher, err := messaging.NewPublisher(messaging.Options{
			URL:           cfg.NATS.URL,
			MaxReconnect:  cfg.NATS.MaxReconnect,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
		if err != nil {
			s.closeCollaborators()
			cancel()
			return nil, fmt.Errorf("failed to connect event bridge: %w", err)
		}
		s.publisher = publisher
		emitters = append(emitters, publisher)
	}
	s.emitter = events.Fanout(emitters...)

	s.dispatcher = transcription.NewDispatcher(cfg.Engine.RequestTimeout, s.handleResult)
	s.dispatcher.SetLanguage(cfg.Engine.Language)

	if err := s.registerEngines(cfg); err != nil {
		s.closeCollaborators()
		cancel()
		return nil, err
	}

	source := audio.NewSource(device, cfg.Audio.QueueSize)
	s.machine = recorder.NewMachine(cfg.RecorderSettings(), source, detector, s.dispatcher, s.emitter)

	s.store.Subscribe(s.applyConfig)

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()
	return s, nil
}

// registerEngines constructs the transcription backends. The local engine
// always registers (the stub build fails its health check at selection);
// the remote engine registers only when a credential is configured.
func (s *Server) registerEngines(cfg *config.Config) error {
	local, err := transcription.NewWhisperEngine(cfg.Engine.WhisperModelPath)
	if err != nil {
		if cfg.Engine.Selected == "whisper" {
			return fmt.Errorf("failed to load local engine: %w", err)
		}
		logging.LogWarn("Local engine unavailable, continuing without it", zap.Error(err))
	} else {
		s.engines["whisper"] = local
		s.dispatcher.RegisterEngine("whisper", local)
	}

	if cfg.Engine.OpenAIAPIKey != "" {
		remote, err := transcription.NewOpenAIEngine(transcription.OpenAIConfig{
			APIKey:           cfg.Engine.OpenAIAPIKey,
			Model:            cfg.Engine.OpenAIModel,
			Prompt:           cfg.Engine.OpenAIPrompt,
			Temperature:      cfg.Engine.Temperature,
			RateLimitBackoff: cfg.Engine.RateLimitBackoff,
		})
		if err != nil {
			return fmt.Errorf("failed to create remote engine: %w", err)
		}
		s.engines["openai"] = remote
		s.dispatcher.RegisterEngine("openai", remote)
	} else if cfg.Engine.Selected == "openai" {
		return fmt.Errorf("engine %q selected but OPENAI_API_KEY is not set", cfg.Engine.Selected)
	}

	return nil
}

// handleResult receives every dispatcher outcome: it runs the dictionary
// over successful text, emits the terminal event, and records history.
func (s *Server) handleResult(req *transcription.Request, text string, err error) {
	utteranceID := ""
	if req.Snapshot != nil {
		utteranceID = req.Snapshot.ID
	}

	if err != nil {
		kind := transcription.KindOf(err)
		if kind == events.ErrCancelled {
			s.emitter.Emit(events.NewTranscriptionCancelled(utteranceID, req.EngineID))
			return
		}
		logging.LogError(err, "Transcription failed",
			zap.String("utterance_id", utteranceID),
			zap.String("engine", req.EngineID),
		)
		s.emitter.Emit(events.NewTranscriptionFailed(utteranceID, req.EngineID, kind))
		return
	}

	cfg := s.store.Snapshot()
	final := textproc.Apply(text, cfg.Dictionary)
	s.emitter.Emit(events.NewTranscriptionCompleted(utteranceID, req.EngineID, final))

	if s.transcripts == nil || req.Snapshot == nil {
		return
	}
	t := &storage.Transcript{
		UUID:       req.Snapshot.ID,
		CreatedAt:  time.Now(),
		DurationMS: req.Snapshot.Duration.Milliseconds(),
		SampleRate: req.Snapshot.SampleRate,
		Engine:     req.EngineID,
		Language:   req.Language,
		RawText:    text,
		FinalText:  final,
		LatencyMS:  time.Since(req.SubmittedAt).Milliseconds(),
	}
	if err := s.transcripts.Insert(t); err != nil {
		logging.LogError(err, "Failed to record transcript", zap.String("uuid", t.UUID))
		return
	}
	if _, err := s.transcripts.Prune(cfg.History.Limit); err != nil {
		logging.LogError(err, "Failed to prune transcript history")
	}
}

// applyConfig propagates a configuration update to the live pipeline. The
// recorder finalizes an open utterance itself when the mode changes; an
// engine change only routes future submissions.
func (s *Server) applyConfig(cfg *config.Config) {
	s.machine.SetConfig(cfg.RecorderSettings())
	s.dispatcher.SetLanguage(cfg.Engine.Language)

	if err := s.dispatcher.SelectEngine(s.ctx, cfg.Engine.Selected); err != nil {
		logging.LogError(err, "Engine selection failed, previous engine stays active",
			zap.String("engine", cfg.Engine.Selected),
		)
	}
}

// Start selects the configured engine, starts the recorder loop, and serves
// HTTP until Stop.
func (s *Server) Start() error {
	cfg := s.store.Snapshot()

	if err := s.dispatcher.SelectEngine(s.ctx, cfg.Engine.Selected); err != nil {
		return fmt.Errorf("failed to select engine %q: %w", cfg.Engine.Selected, err)
	}

	go s.machine.Run()

	logging.Sugar.Infow("🚀 Vox core starting",
		"addr", s.server.Addr,
		"engine", cfg.Engine.Selected,
		"mode", string(cfg.Recorder.Mode),
		"history", cfg.History.Enabled,
		"nats", cfg.NATS.Enabled,
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the pipeline down with bounded grace: capture stops and any
// open utterance is discarded, the in-flight transcription gets a short
// window to finish, then everything closes.
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down Vox core")

	s.machine.Shutdown()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := s.dispatcher.Close(closeCtx); err != nil {
		logging.LogError(err, "Dispatcher did not drain cleanly")
	}

	s.cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.closeCollaborators()
	logging.Sugar.Infow("✅ Vox core shut down")
	return nil
}

// closeCollaborators releases engines, the event bridge, and the history
// database. Safe to call with partially constructed state.
func (s *Server) closeCollaborators() {
	for id, engine := range s.engines {
		if err := engine.Close(); err != nil {
			logging.LogError(err, "Failed to close engine", zap.String("engine", id))
		}
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logging.LogError(err, "Failed to close history database")
		}
	}
}

// routes sets up the HTTP control surface.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/activate", s.handleActivate)
	s.mux.HandleFunc("/api/deactivate", s.handleDeactivate)
	s.mux.HandleFunc("/api/cancel", s.handleCancel)
	s.mux.HandleFunc("/api/retry", s.handleRetry)
	s.mux.HandleFunc("/api/transcripts", s.handleTranscripts)
	s.mux.HandleFunc("/api/config", s.handleConfig)
}

// handleHealth provides liveness plus pipeline status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Snapshot()
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"state":     s.machine.State().String(),
		"engine":    cfg.Engine.Selected,
		"mode":      string(cfg.Recorder.Mode),
	}
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			health["status"] = "degraded"
			health["history_error"] = err.Error()
		}
	}
	writeJSON(w, health)
}

// handleState returns the recorder state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"state": s.machine.State().String()})
}

// handleActivate delivers the external activate signal (the embedding app's
// hotkey press or toggle-on).
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.machine.Activate()
	writeJSON(w, map[string]string{"state": s.machine.State().String()})
}

// handleDeactivate delivers the external deactivate signal.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.machine.Deactivate()
	writeJSON(w, map[string]string{"state": s.machine.State().String()})
}

// handleCancel aborts the in-flight transcription, if any.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.dispatcher.CancelInFlight()
	w.WriteHeader(http.StatusAccepted)
}

// handleRetry resubmits the last failed utterance.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.dispatcher.Retry(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleTranscripts returns recent dictation history, newest first.
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.transcripts == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := s.transcripts.ListRecent(limit)
	if err != nil {
		logging.LogError(err, "Failed to list transcripts")
		http.Error(w, "Failed to list transcripts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"transcripts": list, "count": len(list)})
}

// configUpdate is the subset of configuration adjustable at runtime.
type configUpdate struct {
	Mode           *string          `json:"mode,omitempty"`
	Engine         *string          `json:"engine,omitempty"`
	Language       *string          `json:"language,omitempty"`
	EnterThreshold *float64         `json:"enter_threshold,omitempty"`
	ExitThreshold  *float64         `json:"exit_threshold,omitempty"`
	SilenceMS      *int64           `json:"silence_timeout_ms,omitempty"`
	Dictionary     []textproc.Entry `json:"dictionary,omitempty"`
}

// handleConfig reads or updates the runtime-adjustable configuration.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg := s.store.Snapshot()
		writeJSON(w, map[string]interface{}{
			"mode":               string(cfg.Recorder.Mode),
			"engine":             cfg.Engine.Selected,
			"language":           cfg.Engine.Language,
			"enter_threshold":    cfg.VAD.EnterThreshold,
			"exit_threshold":     cfg.VAD.ExitThreshold,
			"silence_timeout_ms": cfg.Recorder.SilenceTimeout.Milliseconds(),
			"dictionary":         cfg.Dictionary,
		})

	case http.MethodPut:
		var update configUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		// Copy-on-write: the previous snapshot stays immutable.
		next := *s.store.Snapshot()
		if update.Mode != nil {
			next.Recorder.Mode = recorder.Mode(*update.Mode)
		}
		if update.Engine != nil {
			next.Engine.Selected = *update.Engine
		}
		if update.Language != nil {
			next.Engine.Language = *update.Language
		}
		if update.EnterThreshold != nil {
			next.VAD.EnterThreshold = *update.EnterThreshold
		}
		if update.ExitThreshold != nil {
			next.VAD.ExitThreshold = *update.ExitThreshold
		}
		if update.SilenceMS != nil {
			next.Recorder.SilenceTimeout = time.Duration(*update.SilenceMS) * time.Millisecond
		}
		if update.Dictionary != nil {
			next.Dictionary = update.Dictionary
		}

		if err := s.store.Update(&next); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError(err, "Failed to write JSON response")
	}
}
