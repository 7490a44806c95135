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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/voxlabs/vox-core/internal/recorder"
	"github.com/voxlabs/vox-core/internal/textproc"
)

// Config holds all configuration for the dictation engine. Consumers receive
// it as an immutable snapshot from a Store.
type Config struct {
	Server     ServerConfig
	Audio      AudioConfig
	VAD        VADConfig
	Recorder   RecorderConfig
	Engine     EngineConfig
	Dictionary []textproc.Entry
	NATS       NATSConfig
	History    HistoryConfig
	Logging    LoggingConfig
}

// ServerConfig holds the HTTP control surface configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AudioConfig holds capture configuration.
type AudioConfig struct {
	DeviceSampleRate int // native device rate; resampled to 16kHz when it differs
	FramesPerBuffer  int
	QueueSize        int // bounded frame queue between capture and processing
}

// VADConfig holds voice activity detection tuning.
type VADConfig struct {
	EnterThreshold float64
	ExitThreshold  float64
	NoiseFloor     float64
}

// RecorderConfig holds state machine tuning.
type RecorderConfig struct {
	Mode           recorder.Mode
	SilenceTimeout time.Duration
	MinUtterance   time.Duration
	PreRollFrames  int
}

// EngineConfig holds transcription backend selection and credentials.
type EngineConfig struct {
	Selected         string // "whisper" or "openai"
	Language         string
	WhisperModelPath string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIPrompt     string
	Temperature      float32
	RequestTimeout   time.Duration
	RateLimitBackoff time.Duration
}

// NATSConfig holds the optional event bridge configuration.
type NATSConfig struct {
	Enabled       bool
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// HistoryConfig holds the transcript history collaborator configuration.
type HistoryConfig struct {
	Enabled bool
	DBPath  string
	Limit   int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("VOX_HOST", "127.0.0.1"),
			Port:         getEnvInt("VOX_PORT", 3200),
			ReadTimeout:  getEnvDuration("VOX_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("VOX_WRITE_TIMEOUT", 30*time.Second),
		},
		Audio: AudioConfig{
			DeviceSampleRate: getEnvInt("VOX_DEVICE_SAMPLE_RATE", 16000),
			FramesPerBuffer:  getEnvInt("VOX_FRAMES_PER_BUFFER", 320),
			QueueSize:        getEnvInt("VOX_FRAME_QUEUE_SIZE", 64),
		},
		VAD: VADConfig{
			EnterThreshold: getEnvFloat64("VOX_VAD_ENTER_THRESHOLD", 0.60),
			ExitThreshold:  getEnvFloat64("VOX_VAD_EXIT_THRESHOLD", 0.35),
			NoiseFloor:     getEnvFloat64("VOX_VAD_NOISE_FLOOR", 0.01),
		},
		Recorder: RecorderConfig{
			Mode:           recorder.Mode(getEnvString("VOX_RECORDING_MODE", string(recorder.ModePushToTalk))),
			SilenceTimeout: getEnvDuration("VOX_SILENCE_TIMEOUT", 2000*time.Millisecond),
			MinUtterance:   getEnvDuration("VOX_MIN_UTTERANCE", 300*time.Millisecond),
			PreRollFrames:  getEnvInt("VOX_PREROLL_FRAMES", 15),
		},
		Engine: EngineConfig{
			Selected:         getEnvString("VOX_ENGINE", "whisper"),
			Language:         getEnvString("VOX_LANGUAGE", "auto"),
			WhisperModelPath: getEnvString("VOX_WHISPER_MODEL_PATH", "./models/ggml-base.en.bin"),
			OpenAIAPIKey:     getEnvString("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnvString("VOX_OPENAI_MODEL", "whisper-1"),
			OpenAIPrompt:     getEnvString("VOX_OPENAI_PROMPT", ""),
			Temperature:      getEnvFloat32("VOX_TEMPERATURE", 0.0),
			RequestTimeout:   getEnvDuration("VOX_REQUEST_TIMEOUT", 60*time.Second),
			RateLimitBackoff: getEnvDuration("VOX_RATE_LIMIT_BACKOFF", 2*time.Second),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("VOX_NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		History: HistoryConfig{
			Enabled: getEnvBool("VOX_HISTORY_ENABLED", true),
			DBPath:  getEnvString("VOX_DB_PATH", "./data/vox.db"),
			Limit:   getEnvInt("VOX_HISTORY_LIMIT", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if path := getEnvString("VOX_DICTIONARY_PATH", ""); path != "" {
		entries, err := LoadDictionary(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionary: %w", err)
		}
		config.Dictionary = entries
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadDictionary reads an ordered list of dictionary entries from a JSON
// file. Insertion order in the file is application order.
func LoadDictionary(path string) ([]textproc.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []textproc.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return entries, nil
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if !c.Recorder.Mode.Valid() {
		return fmt.Errorf("invalid recording mode: %q", c.Recorder.Mode)
	}

	if c.VAD.ExitThreshold >= c.VAD.EnterThreshold {
		return fmt.Errorf("VAD exit threshold (%g) must be below enter threshold (%g)",
			c.VAD.ExitThreshold, c.VAD.EnterThreshold)
	}

	if c.Recorder.SilenceTimeout <= 0 {
		return fmt.Errorf("silence timeout must be positive: %v", c.Recorder.SilenceTimeout)
	}

	if c.Recorder.MinUtterance < 0 {
		return fmt.Errorf("minimum utterance duration must not be negative: %v", c.Recorder.MinUtterance)
	}

	if c.Engine.Selected != "whisper" && c.Engine.Selected != "openai" {
		return fmt.Errorf("unknown engine: %q", c.Engine.Selected)
	}

	if c.History.Enabled && c.History.Limit <= 0 {
		return fmt.Errorf("history limit must be positive: %d", c.History.Limit)
	}

	return nil
}

// RecorderSettings converts the snapshot into the recorder's own config type.
func (c *Config) RecorderSettings() recorder.Config {
	return recorder.Config{
		Mode:           c.Recorder.Mode,
		EnterThreshold: c.VAD.EnterThreshold,
		ExitThreshold:  c.VAD.ExitThreshold,
		SilenceTimeout: c.Recorder.SilenceTimeout,
		MinUtterance:   c.Recorder.MinUtterance,
		PreRollFrames:  c.Recorder.PreRollFrames,
	}
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
