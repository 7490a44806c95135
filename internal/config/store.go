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
	"fmt"
	"sync"
)

// Store holds the live configuration and notifies subscribers when it
// changes. Snapshots handed out are never mutated afterwards, so consumers
// read them without locks.
type Store struct {
	mu          sync.RWMutex
	current     *Config
	subscribers []func(*Config)
}

// NewStore creates a store seeded with cfg.
func NewStore(cfg *Config) *Store {
	return &Store{current: cfg}
}

// Snapshot returns the current immutable configuration.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to run on every successful Update, in registration
// order, on the updater's goroutine.
func (s *Store) Subscribe(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Update validates and installs a new configuration, then notifies
// subscribers. The previous snapshot stays in effect when validation fails.
func (s *Store) Update(cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s.mu.Lock()
	s.current = cfg
	subs := make([]func(*Config), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}
