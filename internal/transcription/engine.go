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

package transcription

import (
	"context"

	"github.com/voxlabs/vox-core/internal/recorder"
)

// Engine is a transcription backend. Implementations are swappable strategy
// objects; the dispatcher selects one by identifier at request creation time.
type Engine interface {
	// Transcribe converts a finalized snapshot to text. Implementations must
	// honor ctx cancellation by aborting promptly and releasing transient
	// resources; a cancelled request returns a Cancelled-kind error.
	Transcribe(ctx context.Context, snap *recorder.Snapshot, language string) (string, error)

	// Health reports whether the engine can accept requests. Invoked at
	// selection time so fatal conditions (missing model, bad credentials)
	// surface before any request is dispatched.
	Health(ctx context.Context) error

	// Close releases engine resources.
	Close() error
}
